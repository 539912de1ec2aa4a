package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/bayleafwalker/msrv/internal/config"
	"github.com/bayleafwalker/msrv/internal/releases"
	"github.com/bayleafwalker/msrv/internal/reporter"
)

const (
	ExitFailure = 1
	ExitUsage   = 2
)

// ExitError is an error carrying the exit code the process should use.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

func usageErrorf(format string, args ...any) error {
	return &ExitError{Code: ExitUsage, Message: fmt.Sprintf(format, args...)}
}

// ExitCode maps the result of Run to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// EventConn is the part of *nats.Conn used to mirror events.
type EventConn interface {
	reporter.Publisher
	Drain() error
}

type App struct {
	Stdout io.Writer
	Stderr io.Writer

	HTTPClient   *http.Client
	ChangelogURL string
	DistURL      string

	// Dial connects to the event bus named by the nats url setting.
	Dial func(url string) (EventConn, error)
}

func New(stdout, stderr io.Writer) *App {
	return &App{
		Stdout:       stdout,
		Stderr:       stderr,
		HTTPClient:   http.DefaultClient,
		ChangelogURL: releases.DefaultChangelogURL,
		DistURL:      releases.DefaultDistURL,
		Dial:         dialNATS,
	}
}

func dialNATS(url string) (EventConn, error) {
	nc, err := nats.Connect(url, nats.Name("msrv"))
	if err != nil {
		return nil, err
	}
	return nc, nil
}

const usage = `msrv - inspect and record the minimum supported Rust version of a crate.

Usage:
  msrv list [options]          List dependencies grouped by their MSRV.
  msrv set [options] VERSION   Record VERSION as the MSRV of the crate.

Run 'msrv <command> -h' for the options of a command.
`

// Run executes the command named by args[0].
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.Stderr, usage)
		return usageErrorf("no command given")
	}

	switch args[0] {
	case "list":
		return a.list(ctx, args[1:])
	case "set":
		return a.set(ctx, args[1:])
	case "help", "-h", "-help", "--help":
		fmt.Fprint(a.Stdout, usage)
		return nil
	default:
		fmt.Fprint(a.Stderr, usage)
		return usageErrorf("unknown command %q", args[0])
	}
}

// common holds the flags shared by all commands.
type common struct {
	configPath   string
	manifestPath string
	outputFormat string
}

func (c *common) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "Path to a YAML config file. Defaults to "+config.FileName+" beside the manifest.")
	fs.StringVar(&c.manifestPath, "manifest-path", "", "Path to Cargo.toml.")
	fs.StringVar(&c.outputFormat, "output-format", string(config.OutputHuman), "Output format: 'human' or 'json'.")
}

// parseInterspersed parses args allowing flags after positional arguments.
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		if fs.NArg() == 0 {
			return positional, nil
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}
}

func newFlagSet(name string, output io.Writer, synopsis string) *flag.FlagSet {
	fs := flag.NewFlagSet("msrv "+name, flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprintf(output, "Usage:\n  msrv %s\n\nOptions:\n", synopsis)
		fs.PrintDefaults()
	}
	return fs
}

// resolveConfig loads the config file and applies every flag that was set
// explicitly on top of it. apply is called for each such flag.
func resolveConfig(fs *flag.FlagSet, c common, apply func(cfg *config.Config, name string)) (config.Config, error) {
	var cfg config.Config
	var err error
	if c.configPath != "" {
		cfg, err = config.Load(c.configPath)
	} else {
		dir := "."
		if c.manifestPath != "" {
			dir = filepath.Dir(c.manifestPath)
		}
		cfg, err = config.Discover(dir)
	}
	if err != nil {
		if errors.Is(err, config.ErrInvalidConfig) {
			return config.Config{}, &ExitError{Code: ExitUsage, Message: err.Error()}
		}
		return config.Config{}, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "manifest-path":
			cfg.ManifestPath = c.manifestPath
		case "output-format":
			cfg.OutputFormat = config.OutputFormat(strings.ToLower(c.outputFormat))
		default:
			apply(&cfg, f.Name)
		}
	})

	if err := cfg.Validate(); err != nil {
		return config.Config{}, &ExitError{Code: ExitUsage, Message: err.Error()}
	}
	return cfg, nil
}

// parseFailure converts a flag parse error. It returns nil after -h, when
// the flag package has already printed the usage.
func parseFailure(err error) error {
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	return &ExitError{Code: ExitUsage, Message: err.Error()}
}
