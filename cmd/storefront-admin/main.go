package main

import (
	"context"
	"log/slog"
	"os"
	"sort"

	"github.com/target/storefront-gate/config"
	"github.com/target/storefront-gate/internal/bootstrap"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	usage       string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
}

func main() {
	logger := bootstrap.InitLogger()

	if len(os.Args) < 2 {
		if err := printUsage(); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if err := writef(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			logger.Error("print unknown command message failed", "error", err)
		}
		if err := printUsage(); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}

	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: logger,
		Config: cfg,
	}
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", cmdName, "error", runErr)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func commands() map[string]command {
	return map[string]command{
		"migrate": {
			name:        "migrate",
			usage:       "migrate [--timeout 5m] [--dry-run]",
			description: "Run profile database migrations",
			run:         runMigrations,
		},
		"set-role": {
			name:        "set-role",
			usage:       "set-role <user-id> <role>",
			description: "Grant a stored role to a user profile",
			run:         runSetRole,
		},
		"issue-token": {
			name:        "issue-token",
			usage:       "issue-token [--email e] [--name n] [--ttl 1h] [--verified] <user-id> <role>",
			description: "Mint an API bearer token signed with AUTH_TOKEN_SECRET",
			run:         runIssueToken,
		},
		"evaluate": {
			name:        "evaluate",
			usage:       "evaluate --location /admin/ [--state signed-in] [--role admin] [--policy admin]",
			description: "Dry-run a guard decision against the configured route policy",
			run:         runEvaluate,
		},
		"routes": {
			name:        "routes",
			usage:       "routes",
			description: "Print the effective route policy",
			run:         runRoutes,
		},
	}
}

func printUsage() error {
	if err := writef(os.Stdout, "Usage: storefront-admin <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(os.Stdout, "Available commands:\n"); err != nil {
		return err
	}
	cmds := commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := cmds[name]
		if err := writef(os.Stdout, "  %-14s %s\n  %-14s   %s\n", c.name, c.description, "", c.usage); err != nil {
			return err
		}
	}
	return nil
}
