package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/ehrstore/internal/config"
	"github.com/roach88/ehrstore/internal/engine"
	"github.com/roach88/ehrstore/internal/store"
	"github.com/roach88/ehrstore/internal/telemetry"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	Database   string
	Queries    string
	SystemID   string

	// EngineOptions are appended to the engine options built from the
	// configuration. Tests use them to fix ids and the clock.
	EngineOptions []engine.Option
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the ehrstore CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "ehrstore",
		Short: "ehrstore - openEHR composition store",
		Long: `A composition store that answers AQL path queries.

Compositions are stored as JSON documents in SQLite. Queries select values
by archetype path, as emitted by an AQL parser, and return tabular results.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default ./"+config.DefaultFile+" if present)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.Queries, "queries", "", "directory of CUE query definitions (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.SystemID, "system-id", "", "system id for new versions (overrides config)")

	cmd.AddCommand(NewEHRCommand(opts))
	cmd.AddCommand(NewCompositionCommand(opts))
	cmd.AddCommand(NewAdminCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewResolveCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// loadConfig reads the config file and applies flag overrides.
func (o *RootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, err
	}
	if o.Database != "" {
		cfg.Database = o.Database
	}
	if o.Queries != "" {
		cfg.Queries = o.Queries
	}
	if o.SystemID != "" {
		cfg.SystemID = o.SystemID
	}
	if o.Verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// newLogger builds the text logger for diagnostic output on w.
func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(handler), nil
}

// session is an open engine with everything that must be released after use.
type session struct {
	cfg    *config.Config
	engine *engine.Engine
	logger *slog.Logger
	close  func() error
}

// openSession loads configuration, opens the store, and starts telemetry.
// Callers must call session.close.
func (o *RootOptions) openSession(cmd *cobra.Command) (*session, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid log level", err)
	}

	shutdown, err := telemetry.Setup(cfg.Telemetry.Endpoint, cfg.Telemetry.Service)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to set up telemetry", err)
	}

	logger.Debug("opening database", "path", cfg.Database)
	st, err := store.Open(cfg.Database)
	if err != nil {
		_ = shutdown(context.Background())
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	opts := []engine.Option{
		engine.WithSystemID(cfg.SystemID),
		engine.WithExplain(cfg.Explain),
		engine.WithLogger(logger),
	}
	opts = append(opts, o.EngineOptions...)

	return &session{
		cfg:    cfg,
		engine: engine.New(st, opts...),
		logger: logger,
		close: func() error {
			return errors.Join(st.Close(), shutdown(context.Background()))
		},
	}, nil
}

// formatter returns the output formatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}
