package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/target/storefront-gate/internal/bootstrap"
	"github.com/target/storefront-gate/internal/data"
	"github.com/target/storefront-gate/internal/migrate"
	"github.com/target/storefront-gate/internal/service"
)

const defaultMigrationTimeout = 5 * time.Minute

type migrateOptions struct {
	Timeout time.Duration
	DryRun  bool
}

func parseMigrateFlags(args []string) (migrateOptions, error) {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := migrateOptions{Timeout: defaultMigrationTimeout}
	fs.DurationVar(&opts.Timeout, "timeout", defaultMigrationTimeout, "Maximum duration to wait for migrations to complete")
	fs.BoolVar(&opts.DryRun, "dry-run", false, "List pending migrations without applying them")

	if err := fs.Parse(args); err != nil {
		return migrateOptions{}, err
	}
	if opts.Timeout <= 0 {
		return migrateOptions{}, errors.New("--timeout must be greater than zero")
	}
	return opts, nil
}

func runMigrations(cmdCtx *commandContext, args []string) error {
	opts, err := parseMigrateFlags(args)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		if opts.DryRun {
			pending, pendingErr := migrate.Pending(ctx, db)
			if pendingErr != nil {
				return pendingErr
			}
			return printPending(os.Stdout, pending)
		}

		cmdCtx.Logger.Info("running database migrations")
		if migrateErr := bootstrap.RunMigrations(ctx, db, cmdCtx.Logger); migrateErr != nil {
			return fmt.Errorf("run migrations: %w", migrateErr)
		}
		cmdCtx.Logger.Info("migrations completed successfully")
		return nil
	})
}

func printPending(w io.Writer, pending []string) error {
	if len(pending) == 0 {
		return writeln(w, "No pending migrations.")
	}
	for _, v := range pending {
		if err := writef(w, "pending %s\n", v); err != nil {
			return err
		}
	}
	return nil
}

type setRoleOptions struct {
	UserID string
	Role   string
}

func parseSetRoleArgs(args []string) (setRoleOptions, error) {
	fs := flag.NewFlagSet("set-role", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return setRoleOptions{}, err
	}
	if fs.NArg() != 2 {
		return setRoleOptions{}, errors.New("usage: set-role <user-id> <role>")
	}
	return setRoleOptions{UserID: fs.Arg(0), Role: fs.Arg(1)}, nil
}

func runSetRole(cmdCtx *commandContext, args []string) error {
	opts, err := parseSetRoleArgs(args)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, time.Minute, func(ctx context.Context, db *sql.DB) error {
		profiles := service.NewProfileService(service.ProfileServiceOptions{
			Store:  data.NewProfileRepo(db),
			Logger: cmdCtx.Logger,
		})
		p, setErr := profiles.SetRole(ctx, opts.UserID, opts.Role)
		if setErr != nil {
			return setErr
		}
		return writef(os.Stdout, "%s\t%s\t%s\n", p.UserID, p.Email, p.Role)
	})
}

func withDatabase(
	cmdCtx *commandContext,
	timeout time.Duration,
	f func(context.Context, *sql.DB) error,
) error {
	ctx, stop := signal.NotifyContext(cmdCtx.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	db, err := bootstrap.ConnectDB(ctx, bootstrap.DatabaseConfig{
		DBConfig: cmdCtx.Config.Postgres,
		Logger:   cmdCtx.Logger,
	})
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			cmdCtx.Logger.Warn("db close failed", "error", cerr)
		}
	}()

	return f(ctx, db)
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func writeln(w io.Writer, args ...any) error {
	_, err := fmt.Fprintln(w, args...)
	return err
}
