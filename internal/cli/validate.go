package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/plures/praxis/internal/contract"
	"github.com/plures/praxis/internal/coverage"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions

	// EmitMissingGaps reports descriptors without a contract as gaps,
	// which makes them visible in SARIF output.
	EmitMissingGaps bool

	// IncompleteSeverity grades gaps for incomplete contracts.
	IncompleteSeverity string

	now func() time.Time
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts, now: time.Now}

	cmd := &cobra.Command{
		Use:   "validate <contracts-dir>",
		Short: "Report contract coverage",
		Long: `Load every rule and constraint declared in the contract files under a
directory and report which have complete, incomplete or missing contracts.

Contract files are YAML (.yaml, .yml) or CUE (.cue).

Exit codes:
  0 - Every descriptor has a complete contract
  1 - At least one contract is incomplete or missing
  2 - Command error (directory not found, malformed contract file)

Examples:
  praxis validate ./contracts
  praxis validate ./contracts --format json
  praxis validate ./contracts --format sarif --emit-missing-gaps > praxis.sarif`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, opts, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.EmitMissingGaps, "emit-missing-gaps", false, "report descriptors without a contract as gaps")
	cmd.Flags().StringVar(&opts.IncompleteSeverity, "incomplete-severity", "warning", "severity of incomplete-contract gaps (error|warning|info)")

	return cmd
}

func runValidate(cmd *cobra.Command, opts *ValidateOptions, dir string) error {
	f := opts.formatter(cmd)
	if opts.Format == FormatSARIF {
		// Load errors are not SARIF results.
		f.Format = FormatText
	}

	cfg, err := opts.setup(cmd, f)
	if err != nil {
		return err
	}
	incomplete, err := contract.ParseSeverity(opts.IncompleteSeverity)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	manifest, reg, err := loadManifest(f, cfg, dir)
	if err != nil {
		return err
	}

	report := coverage.ValidateContracts(reg, coverage.Options{
		RequiredFields:     cfg.Artifacts(),
		MissingSeverity:    cfg.Severity(),
		IncompleteSeverity: incomplete,
		EmitMissingGaps:    opts.EmitMissingGaps,
		Artifacts:          manifest.ArtifactIndex(),
		Now:                opts.now,
	})

	if err := writeReport(cmd, opts.Format, report); err != nil {
		return WrapExitError(ExitCommandError, "write report", err)
	}

	if !report.Passed() {
		return NewExitError(ExitFailure, fmt.Sprintf("%s: contract coverage incomplete: %d incomplete, %d missing",
			ErrCodeCoverageGap, len(report.Incomplete), len(report.Missing)))
	}
	return nil
}

func writeReport(cmd *cobra.Command, format string, report *coverage.Report) error {
	var (
		out []byte
		err error
	)
	switch format {
	case FormatJSON:
		out, err = coverage.FormatJSON(report)
	case FormatSARIF:
		out, err = coverage.FormatSARIF(report)
	default:
		out = []byte(coverage.FormatText(report))
	}
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}
