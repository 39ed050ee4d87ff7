package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	_ "gocloud.dev/blob/azureblob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/ligustah/fetchd/internal/config"
	"github.com/ligustah/fetchd/pkg/fetch"
)

// Exit codes
const (
	ExitSuccess         = 0
	ExitGeneralError    = 1
	ExitInvalidArgs     = 2
	ExitSourceNotAccess = 3
	ExitNoFilename      = 4
	ExitStorageError    = 5
	ExitRetryable       = 6
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return execute(ctx, args, os.Stdout, os.Stderr)
}

// execute runs the command line in args and returns the process exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCode(err)
	}
	return ExitSuccess
}

// usageError marks errors caused by the command line itself.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

// exitCode maps an error to the exit code reported for it.
func exitCode(err error) int {
	var ue *usageError
	if errors.As(err, &ue) {
		return ExitInvalidArgs
	}
	switch fetch.KindOf(err) {
	case fetch.KindValidation:
		return ExitInvalidArgs
	case fetch.KindHTTPClient:
		return ExitSourceNotAccess
	case fetch.KindResolution:
		return ExitNoFilename
	case fetch.KindStorage:
		return ExitStorageError
	case fetch.KindHTTPServer, fetch.KindTransport:
		return ExitRetryable
	}
	return ExitGeneralError
}

type globalFlags struct {
	configPath string
	envFiles   []string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	var g globalFlags

	cmd := &cobra.Command{
		Use:   "fetchd",
		Short: "Download HTTP resources into object storage",
		Long: `fetchd streams HTTP resources into object storage.

Run it as a service with 'fetchd serve' or download a single resource
with 'fetchd get'. Storage backends are selected by URL scheme: s3://,
gs://, azblob://, file:// and mem://.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		c.Println(c.UsageString())
		return &usageError{err: err}
	})

	cmd.PersistentFlags().StringVar(&g.configPath, "config", "", "YAML config file")
	cmd.PersistentFlags().StringSliceVar(&g.envFiles, "env-file", nil, "dotenv files to load (default: .env)")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&g.logFormat, "log-format", "", "log format (text, json)")

	cmd.AddCommand(
		newServeCmd(&g),
		newGetCmd(&g),
	)
	return cmd
}

// loadConfig layers defaults, the config file, dotenv files, the environment
// and command line overrides, in that order.
func loadConfig(g *globalFlags, override config.Config) (config.Config, error) {
	cfg := config.Default()
	if g.configPath != "" {
		var err error
		if cfg, err = config.LoadFromFile(g.configPath); err != nil {
			return config.Config{}, err
		}
	}
	if err := config.LoadDotEnv(g.envFiles...); err != nil {
		return config.Config{}, err
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return config.Config{}, err
	}

	override.Log.Level = g.logLevel
	override.Log.Format = g.logFormat
	cfg = cfg.Merge(override)

	if err := cfg.Validate(); err != nil {
		return config.Config{}, &usageError{err: err}
	}
	return cfg, nil
}
