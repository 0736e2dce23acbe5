package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/target/storefront-gate/config"
	"github.com/target/storefront-gate/internal/adapters/jwtauth"
	"github.com/target/storefront-gate/internal/bootstrap"
	domainauth "github.com/target/storefront-gate/internal/domain/auth"
	"github.com/target/storefront-gate/internal/domain/guard"
	httpx "github.com/target/storefront-gate/internal/http"
)

const defaultTokenTTL = time.Hour

type issueTokenOptions struct {
	UserID   string
	Role     string
	Email    string
	Name     string
	TTL      time.Duration
	Verified bool
}

func parseIssueTokenFlags(args []string) (issueTokenOptions, error) {
	fs := flag.NewFlagSet("issue-token", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts issueTokenOptions
	fs.StringVar(&opts.Email, "email", "", "Email claim")
	fs.StringVar(&opts.Name, "name", "", "Display name claim")
	fs.DurationVar(&opts.TTL, "ttl", defaultTokenTTL, "Token lifetime")
	fs.BoolVar(&opts.Verified, "verified", true, "Mark the email as verified")

	if err := fs.Parse(args); err != nil {
		return issueTokenOptions{}, err
	}
	if fs.NArg() != 2 {
		return issueTokenOptions{}, errors.New("usage: issue-token [flags] <user-id> <role>")
	}
	if opts.TTL <= 0 {
		return issueTokenOptions{}, errors.New("--ttl must be greater than zero")
	}
	opts.UserID = fs.Arg(0)
	opts.Role = fs.Arg(1)
	return opts, nil
}

func runIssueToken(cmdCtx *commandContext, args []string) error {
	opts, err := parseIssueTokenFlags(args)
	if err != nil {
		return err
	}
	token, err := issueToken(cmdCtx.Config.Auth, opts)
	if err != nil {
		return err
	}
	return writeln(os.Stdout, token)
}

func issueToken(cfg config.AuthConfig, opts issueTokenOptions) (string, error) {
	if !cfg.BearerEnabled() {
		return "", errors.New("AUTH_TOKEN_SECRET is not set")
	}
	v, err := jwtauth.NewVerifier(jwtauth.Options{
		Secret: []byte(cfg.TokenSecret),
		Issuer: cfg.TokenIssuer,
	})
	if err != nil {
		return "", err
	}
	return v.Issue(jwtauth.IssueInput{
		UserID:        opts.UserID,
		Email:         opts.Email,
		Name:          opts.Name,
		Role:          domainauth.ParseRole(opts.Role),
		EmailVerified: opts.Verified,
		TTL:           opts.TTL,
	})
}

// Auth states accepted by evaluate --state.
const (
	stateLoading   = "loading"
	stateSignedOut = "signed-out"
	stateSignedIn  = "signed-in"
)

type evaluateOptions struct {
	Location  string
	State     string
	Role      string
	Policy    string
	NoProfile bool
}

func parseEvaluateFlags(args []string) (evaluateOptions, error) {
	fs := flag.NewFlagSet("evaluate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts evaluateOptions
	fs.StringVar(&opts.Location, "location", "", "Path being requested (required)")
	fs.StringVar(&opts.State, "state", stateSignedIn, "Auth state: loading, signed-out or signed-in")
	fs.StringVar(&opts.Role, "role", "", "Profile role when signed in")
	fs.StringVar(&opts.Policy, "policy", "", "Evaluate this policy instead of matching the location")
	fs.BoolVar(&opts.NoProfile, "no-profile", false, "Signed in without a loaded profile")

	if err := fs.Parse(args); err != nil {
		return evaluateOptions{}, err
	}
	if !strings.HasPrefix(opts.Location, "/") {
		return evaluateOptions{}, errors.New("--location must be a path starting with /")
	}
	switch opts.State {
	case stateLoading, stateSignedOut, stateSignedIn:
	default:
		return evaluateOptions{}, fmt.Errorf("--state %q: want loading, signed-out or signed-in", opts.State)
	}
	return opts, nil
}

func (o evaluateOptions) authState() domainauth.AuthState {
	switch o.State {
	case stateLoading:
		return domainauth.Pending()
	case stateSignedOut:
		return domainauth.SignedOut()
	}
	if o.NoProfile {
		return domainauth.SignedIn(nil)
	}
	return domainauth.SignedIn(&domainauth.Profile{
		UserID: "cli-user",
		Role:   domainauth.ParseRole(o.Role),
	})
}

type evaluateResult struct {
	Location string          `json:"location"`
	Guarded  bool            `json:"guarded"`
	Policy   string          `json:"policy,omitempty"`
	Decision *guard.Decision `json:"decision,omitempty"`
}

func evaluate(table *httpx.RouteTable, opts evaluateOptions) (evaluateResult, error) {
	res := evaluateResult{Location: opts.Location}

	var (
		g  guard.Guard
		ok bool
	)
	if opts.Policy != "" {
		if g, ok = table.Named(opts.Policy); !ok {
			return res, fmt.Errorf("no route uses policy %q", opts.Policy)
		}
	} else if g, ok = table.Match(opts.Location); !ok {
		return res, nil
	}

	d := g.Decide(opts.authState(), opts.Location)
	res.Guarded = true
	res.Policy = g.Policy.Name
	res.Decision = &d
	return res, nil
}

func runEvaluate(cmdCtx *commandContext, args []string) error {
	opts, err := parseEvaluateFlags(args)
	if err != nil {
		return err
	}
	table, err := bootstrap.BuildRouteTable(cmdCtx.Config.Guard)
	if err != nil {
		return err
	}
	res, err := evaluate(table, opts)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func runRoutes(cmdCtx *commandContext, _ []string) error {
	table, err := bootstrap.BuildRouteTable(cmdCtx.Config.Guard)
	if err != nil {
		return err
	}
	return printRoutes(os.Stdout, table)
}

func printRoutes(out io.Writer, table *httpx.RouteTable) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	if err := writeln(w, "PATTERN\tPOLICY\tROLES\tLOGIN\tUNAUTHORIZED"); err != nil {
		return err
	}
	for _, rt := range table.Routes() {
		roles := "-"
		if rt.Guard.Policy.RoleRestricted() {
			names := make([]string, 0, len(rt.Guard.Policy.AllowedRoles()))
			for _, r := range rt.Guard.Policy.AllowedRoles() {
				names = append(names, string(r))
			}
			roles = strings.Join(names, ",")
			if roles == "" {
				roles = "(none)"
			}
		}
		if err := writef(w, "%s\t%s\t%s\t%s\t%s\n",
			rt.Pattern, rt.Guard.Policy.Name, roles, rt.Guard.Routes.Login, rt.Guard.Routes.Unauthorized); err != nil {
			return err
		}
	}
	return w.Flush()
}
