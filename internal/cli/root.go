package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/plures/praxis/internal/config"
	"github.com/plures/praxis/internal/logging"
)

// Output formats.
const (
	FormatText  = "text"
	FormatJSON  = "json"
	FormatSARIF = "sarif"
)

// DefaultConfigFile is read when --config is not given and the file exists.
const DefaultConfigFile = "praxis.toml"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "text" | "json" | "sarif"
	ConfigPath string

	// Environ replaces the process environment for config loading when
	// non-nil.
	Environ map[string]string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{FormatText, FormatJSON, FormatSARIF}

// NewRootCommand creates the root command for the praxis CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "praxis",
		Short: "praxis - contracts and ledgers for rule engines",
		Long: `Check rule and constraint contracts, and keep a versioned ledger of
their declared behavior.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if slices.Contains(ValidFormats, opts.Format) {
				return nil
			}
			f := &OutputFormatter{Format: FormatText, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr()}
			return f.Fail(ExitCommandError, ErrCodeFormat,
				fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats), nil)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", FormatText, "output format (text|json|sarif)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to a TOML config file (default ./"+DefaultConfigFile+" if present)")

	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewLedgerCommand(opts))

	return cmd
}

// formatter builds the OutputFormatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// setup loads the configuration and installs the process logger, which
// writes to cmd's error stream.
func (o *RootOptions) setup(cmd *cobra.Command, f *OutputFormatter) (config.Config, error) {
	path := o.ConfigPath
	if path == "" && config.Exists(DefaultConfigFile) {
		path = DefaultConfigFile
	}

	cfg, err := config.Load(config.LoadOptions{Path: path, Environ: o.Environ})
	if err != nil {
		return config.Config{}, f.Fail(ExitCommandError, ErrCodeConfig, "load config failed", err)
	}

	level := cfg.Level()
	if o.Verbose {
		level = slog.LevelDebug
	}
	logging.Init(level, cfg.LogFormat, cmd.ErrOrStderr())
	if path != "" {
		f.VerboseLog("Loaded config from %s", path)
	}
	return cfg, nil
}

// requireNotSARIF rejects --format sarif for commands with no SARIF output.
func (o *RootOptions) requireNotSARIF(f *OutputFormatter, command string) error {
	if o.Format != FormatSARIF {
		return nil
	}
	// SARIF is not an envelope format; report the error in text.
	f.Format = FormatText
	return f.Fail(ExitCommandError, ErrCodeFormat,
		fmt.Sprintf("%s does not support --format sarif", command), nil)
}
