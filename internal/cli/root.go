package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/TrishulMallur/EchoKey/internal/admin"
	"github.com/TrishulMallur/EchoKey/internal/config"
	"github.com/TrishulMallur/EchoKey/internal/logging"
	"github.com/TrishulMallur/EchoKey/internal/snippets"
	"github.com/TrishulMallur/EchoKey/internal/storage"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	StorePath  string
	EnvFile    string

	cfg *config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the EchoKey CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "echokey",
		Short: "EchoKey - text expansion for short trigger codes",
		Long: `EchoKey expands short trigger codes like ";5fwds" into canonical text as
you type. This tool administers an installation's snippet store and runs an
interactive playground.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return opts.formatter(cmd).Fail(ExitCommandError, ErrCodeConfig,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats), nil)
			}
			return opts.load(cmd)
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "YAML config file")
	cmd.PersistentFlags().StringVar(&opts.StorePath, "store", "", `store directory, or ":memory:" (overrides config)`)
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file loaded before config")

	// Add subcommands
	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewSnippetsCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewSettingsCommand(opts))
	cmd.AddCommand(NewEnableCommand(opts, true))
	cmd.AddCommand(NewEnableCommand(opts, false))
	cmd.AddCommand(NewResetDefaultsCommand(opts))
	cmd.AddCommand(NewTypeCommand(opts))
	cmd.AddCommand(NewTryCommand(opts))

	return cmd
}

// load reads the environment file and config and installs the logger.
func (o *RootOptions) load(cmd *cobra.Command) error {
	out := o.formatter(cmd)
	if err := config.LoadDotEnv(o.EnvFile); err != nil {
		return out.Fail(ExitCommandError, ErrCodeConfig, "load env file", err)
	}
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeConfig, "load config", err)
	}
	if o.StorePath != "" {
		cfg.Store.Path = o.StorePath
		cfg.Store.Backend = config.BackendPebble
		if o.StorePath == ":memory:" {
			cfg.Store.Backend = config.BackendMemory
		}
	}

	level := cfg.Log.Level
	if o.Verbose {
		level = "debug"
	}
	if _, err := logging.Setup(level, cfg.Log.Format, cmd.ErrOrStderr()); err != nil {
		return out.Fail(ExitCommandError, ErrCodeConfig, "configure logging", err)
	}
	o.cfg = cfg
	return nil
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// env is what a command body works with. The store is closed when the body
// returns.
type env struct {
	cfg   *config.Config
	store storage.Store
	svc   *admin.Service
	out   *OutputFormatter
}

// withStore opens the configured store, runs fn and closes the store.
func (o *RootOptions) withStore(cmd *cobra.Command, fn func(ctx context.Context, e *env) error) error {
	out := o.formatter(cmd)
	if o.cfg == nil {
		return out.Fail(ExitCommandError, ErrCodeConfig, "configuration not loaded", nil)
	}
	store, err := storage.Open(o.cfg.StorePath())
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeStore, "open store", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("Failed to close store", "error", err)
		}
	}()
	out.VerboseLog("Using store %s", o.cfg.StorePath())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx, &env{
		cfg:   o.cfg,
		store: store,
		svc:   admin.NewService(store, admin.WithPrefix(o.cfg.Engine.Prefix)),
		out:   out,
	})
}

// fail reports err with the exit and error codes matching its kind.
func (e *env) fail(message string, err error) error {
	switch {
	case errors.Is(err, snippets.ErrNotFound):
		return e.out.Fail(ExitFailure, ErrCodeNotFound, message, err)
	case errors.Is(err, snippets.ErrInvalidTrigger),
		errors.Is(err, snippets.ErrInvalidPack),
		errors.Is(err, admin.ErrManaged),
		errors.Is(err, admin.ErrExists),
		errors.Is(err, admin.ErrInvalidSetting):
		return e.out.Fail(ExitFailure, ErrCodeInvalid, message, err)
	}
	return e.out.Fail(ExitCommandError, ErrCodeStore, message, err)
}
