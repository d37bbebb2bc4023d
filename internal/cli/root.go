package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/dshills/covtrack/internal/config"
	"github.com/dshills/covtrack/internal/github"
	"github.com/dshills/covtrack/internal/logging"
	"github.com/dshills/covtrack/internal/snapshot"
	"github.com/dshills/covtrack/internal/store"
)

const version = "0.3.0"

// Exit codes
const (
	ExitSuccess        = 0
	ExitBelowThreshold = 1
	ExitUsageError     = 2
	ExitAuthError      = 3
	ExitRuntimeError   = 4
)

// errUsage marks bad flag values detected after parsing.
var errUsage = errors.New("usage error")

// errBelowThreshold is returned by local runs under --fail-under.
var errBelowThreshold = errors.New("coverage below threshold")

// flagKeys maps flags that override configuration to their config keys.
var flagKeys = map[string]string{
	"log-level":     "logging.level",
	"log-format":    "logging.format",
	"source-prefix": "source_prefix",
	"format":        "format",
	"backend":       "store.backend",
	"api-url":       "github.api_url",
}

// now is replaced in tests.
var now = time.Now

// app is the state of one invocation.
type app struct {
	configPath string
	noColor    bool

	cfg    config.Config
	logger *slog.Logger
	stdout io.Writer
	stderr io.Writer
}

// cmdError carries an error raised by a command body, as opposed to one
// raised by cobra while parsing.
type cmdError struct {
	err error
}

func (e *cmdError) Error() string { return e.err.Error() }
func (e *cmdError) Unwrap() error { return e.err }

// runE adapts a command body. Usage is only printed for parse errors.
func runE(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		if err := fn(cmd, args); err != nil {
			return &cmdError{err: err}
		}
		return nil
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "covtrack",
		Short: "Coverage reporting and tracking for GitHub repositories",
		Long: "covtrack attributes LCOV coverage to pull request and push diffs, posts " +
			"the results to GitHub and keeps a per-branch coverage history.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "Config file (default: ./"+config.FileName+" or $HOME/"+config.FileName+")")
	pf.String("log-level", "", "Log level (debug, info, warn, error)")
	pf.String("log-format", "", "Log format (text, json)")
	pf.String("api-url", "", "GitHub API base URL")
	pf.BoolVar(&a.noColor, "no-color", false, "Disable coloured output")

	root.AddCommand(newCoverageCmd(a))
	root.AddCommand(newTrackingCmd(a))
	root.AddCommand(newLocalCmd(a))
	root.AddCommand(newConfigCmd(a))
	root.AddCommand(newVersionCmd(a))
	return root
}

// setup loads the configuration and builds the run logger.
func (a *app) setup(cmd *cobra.Command) error {
	cmd.SilenceUsage = true
	overrides := make(map[string]any)
	cmd.Flags().Visit(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok {
			overrides[key] = f.Value.String()
		}
	})

	cfg, err := config.Load(a.configPath, overrides)
	if err != nil {
		return &cmdError{err: fmt.Errorf("%w: %w", errUsage, err)}
	}
	logger, err := logging.New(a.stderr, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return &cmdError{err: fmt.Errorf("%w: %w", errUsage, err)}
	}
	if a.noColor {
		color.NoColor = true
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}

// githubClient builds the client for this run from the configuration.
func (a *app) githubClient() (*github.Client, error) {
	return github.NewClient(a.cfg.GitHub.Token, a.cfg.GitHub.APIURL)
}

func (a *app) author() *github.Author {
	return &github.Author{Name: a.cfg.Author.Name, Email: a.cfg.Author.Email}
}

// Run executes the root command against os.Args and returns an exit code.
func Run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr, logger: logging.Discard()}
	root := newRootCmd(a)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}
	var ce *cmdError
	if !errors.As(err, &ce) {
		// Cobra already printed the parse error and usage.
		return ExitUsageError
	}
	return exitCode(ce.err)
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, errBelowThreshold):
		return ExitBelowThreshold
	case errors.Is(err, github.ErrMissingToken),
		errors.Is(err, github.ErrUnauthorized),
		errors.Is(err, store.ErrUnauthorized):
		return ExitAuthError
	case errors.Is(err, errUsage),
		errors.Is(err, snapshot.ErrInvalidRepository),
		errors.Is(err, snapshot.ErrInvalidTeam):
		return ExitUsageError
	default:
		return ExitRuntimeError
	}
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print covtrack version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "covtrack version %s\n", version)
		},
	}
}
