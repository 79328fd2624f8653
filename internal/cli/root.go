package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/proofslot/internal/config"
	"github.com/roach88/proofslot/internal/ir"
	"github.com/roach88/proofslot/internal/record"
	"github.com/roach88/proofslot/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	DB         string
	Backend    string

	// Resolved by PersistentPreRunE.
	Config *config.Config
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the proofslot CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "proofslot",
		Short: "proofslot - deterministic-address proof records",
		Long: `Store one proof record per identity in a slot whose address anyone can
derive from the identity alone. The first submission allocates the slot and
charges rent to the payer; later submissions overwrite it in place.`,
		Version:       ir.Version,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return opts.resolve(cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output (debug logging)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to a CUE config file")
	cmd.PersistentFlags().StringVar(&opts.DB, "db", "", "database path (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.Backend, "backend", "", "storage backend: sqlite|badger|memory (overrides config)")

	cmd.AddCommand(NewSubmitCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewDeriveCommand(opts))
	cmd.AddCommand(NewFundCommand(opts))
	cmd.AddCommand(NewBalanceCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// resolve loads configuration, applies flag overrides, and builds the logger.
// Logs go to w so they never mix with command output.
func (o *RootOptions) resolve(w io.Writer) error {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if o.DB != "" {
		cfg.Database = o.DB
	}
	if o.Backend != "" {
		cfg.Backend = o.Backend
	}
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	}

	level := cfg.Level()
	if o.Verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(w, handlerOpts)
	if o.Format == "json" {
		handler = slog.NewJSONHandler(w, handlerOpts)
	}

	o.Config = cfg
	o.Logger = slog.New(handler)
	return nil
}

// formatter returns an OutputFormatter writing to cmd's streams.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:  o.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: o.Verbose,
	}
}

// openRecords opens the configured backend and wraps it in a record store.
// The caller must call the returned close function.
func (o *RootOptions) openRecords() (*record.Store, func(), error) {
	if o.Config == nil {
		return nil, nil, NewExitError(ExitCommandError, "configuration not resolved")
	}
	backend, err := store.OpenBackend(o.Config.Backend, o.Config.Database)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	o.Logger.Debug("backend opened", "backend", o.Config.Backend, "database", o.Config.Database)

	records := record.New(backend,
		record.WithNamespace(o.Config.Namespace),
		record.WithRentPerByte(o.Config.RentPerByte),
		record.WithLogger(o.Logger),
	)
	return records, func() {
		if err := backend.Close(); err != nil {
			o.Logger.Warn("close backend", "error", err)
		}
	}, nil
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
