package cli

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/plures/praxis/internal/behaviorledger"
	"github.com/plures/praxis/internal/config"
	"github.com/plures/praxis/internal/contract"
	"github.com/plures/praxis/internal/coverage"
	"github.com/plures/praxis/internal/kv"
	"github.com/plures/praxis/internal/logging"
	"github.com/plures/praxis/internal/logicledger"
	"github.com/plures/praxis/internal/metrics"
)

// LedgerOptions holds flags shared by the ledger subcommands.
type LedgerOptions struct {
	*RootOptions
}

// NewLedgerCommand creates the ledger command group.
func NewLedgerCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LedgerOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Record and inspect contract history",
		Long: `Record contracts into the logic ledger (versioned files under
<ledger_root>/logic-ledger) and the behavior ledger (kept in the
configured key-value storage), and inspect what was recorded.`,
	}

	cmd.AddCommand(newLedgerWriteCommand(opts))
	cmd.AddCommand(newLedgerShowCommand(opts))
	cmd.AddCommand(newLedgerHistoryCommand(opts))
	cmd.AddCommand(newLedgerAssumptionsCommand(opts))
	cmd.AddCommand(newLedgerWatchCommand(opts))

	return cmd
}

// ledgerSession is the state opened by a ledger subcommand.
type ledgerSession struct {
	cfg       config.Config
	logic     *logicledger.Ledger
	behavior  *behaviorledger.Ledger
	collector *metrics.Collector
	registry  *prometheus.Registry
	store     kv.Storage
	close     func() error
}

// open loads config, opens the logic ledger and, when withBehavior is set,
// the behavior ledger from storage.
func (o *LedgerOptions) open(cmd *cobra.Command, f *OutputFormatter, withBehavior bool) (*ledgerSession, error) {
	cfg, err := o.setup(cmd, f)
	if err != nil {
		return nil, err
	}

	s := &ledgerSession{
		cfg:       cfg,
		collector: metrics.NewCollector(),
		registry:  prometheus.NewRegistry(),
		close:     func() error { return nil },
	}
	if err := s.collector.Register(s.registry); err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeGeneric, "register metrics", err)
	}
	s.logic = logicledger.Open(cfg.LedgerRoot,
		logicledger.WithLocker(&logicledger.MutexLocker{}),
		logicledger.WithWriteObserver(s.collector),
		logicledger.WithLogger(logging.New("logicledger")),
	)
	f.VerboseLog("Logic ledger at %s", s.logic.Root())

	if !withBehavior {
		return s, nil
	}
	store, closeStore, err := openStorage(cfg.Storage)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeStorage, "open storage failed", err)
	}
	s.store, s.close = store, closeStore

	behavior, found, err := behaviorledger.Load(cmd.Context(), store, cfg.Storage.Key,
		behaviorledger.WithLogger(logging.New("behaviorledger")))
	if err != nil {
		_ = closeStore()
		return nil, f.Fail(ExitCommandError, ErrCodeStorage, "load behavior ledger failed", err)
	}
	if found {
		f.VerboseLog("Loaded behavior ledger from %s storage (%d entries)", cfg.Storage.Backend, behavior.Stats().Total)
	}
	if lister, ok := store.(kv.Lister); ok && f.Verbose {
		keys, err := lister.Keys(cmd.Context())
		if err != nil {
			_ = closeStore()
			return nil, f.Fail(ExitCommandError, ErrCodeStorage, "list storage keys failed", err)
		}
		f.VerboseLog("Storage holds %d key(s)", len(keys))
	}
	s.behavior = behavior
	return s, nil
}

// WriteResult is the outcome of recording one contract.
type WriteResult struct {
	RuleID        string                    `json:"ruleId"`
	Version       int                       `json:"version"`
	ChangeSummary logicledger.ChangeSummary `json:"changeSummary"`
	Conflicts     []logicledger.Conflict    `json:"conflicts"`
	EntryID       string                    `json:"entryId,omitempty"`
}

// WriteSummary is the output of ledger write.
type WriteSummary struct {
	Results  []WriteResult        `json:"results"`
	Skipped  []string             `json:"skipped"`
	Behavior behaviorledger.Stats `json:"behavior"`
}

type ledgerWriteOptions struct {
	*LedgerOptions
	FailOnConflict bool
	MetricsFile    string
}

func newLedgerWriteCommand(parent *LedgerOptions) *cobra.Command {
	opts := &ledgerWriteOptions{LedgerOptions: parent}

	cmd := &cobra.Command{
		Use:   "write <contracts-dir>",
		Short: "Record every declared contract",
		Long: `Write a new logic ledger version for every contract declared under a
directory and record changed contracts in the behavior ledger.

Descriptors without a contract are skipped.

Exit codes:
  0 - Contracts recorded
  1 - --fail-on-conflict is set and a behavior change was recorded
  2 - Command error

Examples:
  praxis ledger write ./contracts
  praxis ledger write ./contracts --fail-on-conflict --metrics-file praxis.prom`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLedgerWrite(cmd, opts, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.FailOnConflict, "fail-on-conflict", false, "exit 1 when a contract's behavior changed")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "write Prometheus text-format metrics to this file")

	return cmd
}

func runLedgerWrite(cmd *cobra.Command, opts *ledgerWriteOptions, dir string) error {
	f := opts.formatter(cmd)
	if err := opts.requireNotSARIF(f, "ledger write"); err != nil {
		return err
	}

	s, err := opts.open(cmd, f, true)
	if err != nil {
		return err
	}
	defer s.close()

	manifest, _, err := loadManifest(f, s.cfg, dir)
	if err != nil {
		return err
	}
	index := manifest.ArtifactIndex()

	ctx := cmd.Context()
	summary := WriteSummary{Results: []WriteResult{}, Skipped: []string{}}
	conflicts := 0
	for _, d := range manifest.Descriptors {
		if d.Contract == nil {
			summary.Skipped = append(summary.Skipped, d.ID)
			continue
		}
		entry, err := s.logic.Write(ctx, d.Contract, logicledger.WriteOptions{
			Artifacts: artifactFlags(index, d.ID),
		})
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeStorage, "write logic ledger failed", err)
		}
		result := WriteResult{
			RuleID:        entry.RuleID,
			Version:       entry.Version,
			ChangeSummary: entry.Drift.ChangeSummary,
			Conflicts:     entry.Drift.Conflicts,
		}
		if len(entry.Drift.Conflicts) > 0 {
			conflicts++
		}

		recorded, err := recordBehavior(s.behavior, d.Contract, s.cfg.Author, entry)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeStorage, "record behavior ledger failed", err)
		}
		result.EntryID = recorded
		summary.Results = append(summary.Results, result)
	}

	if err := s.behavior.Save(ctx, s.store, s.cfg.Storage.Key); err != nil {
		return f.Fail(ExitCommandError, ErrCodeStorage, "save behavior ledger failed", err)
	}
	summary.Behavior = s.behavior.Stats()
	if rev, ok := s.store.(kv.Revisioner); ok && f.Verbose {
		n, err := rev.Revision(ctx, s.cfg.Storage.Key)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeStorage, "read storage revision failed", err)
		}
		f.VerboseLog("Saved behavior ledger to %s (revision %d)", s.cfg.Storage.Key, n)
	}

	if opts.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(opts.MetricsFile, s.registry); err != nil {
			return f.Fail(ExitCommandError, ErrCodeGeneric, "write metrics file failed", err)
		}
		f.VerboseLog("Wrote metrics to %s", opts.MetricsFile)
	}

	if err := f.Success(summary, formatWriteSummary(summary)); err != nil {
		return err
	}
	if opts.FailOnConflict && conflicts > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%s: %d contract(s) changed behavior", ErrCodeConflict, conflicts))
	}
	return nil
}

// recordBehavior appends c to the behavior ledger unless the logic ledger
// saw no change, superseding the rule's current entry. It returns the new
// entry id, or "" when nothing was recorded.
func recordBehavior(l *behaviorledger.Ledger, c *contract.Contract, author string, written logicledger.Entry) (string, error) {
	latest, hasLatest := l.LatestEntry(c.RuleID)
	if hasLatest && latest.Status == behaviorledger.StatusActive && written.Drift.ChangeSummary == logicledger.ChangeNoChange {
		return "", nil
	}

	var entryOpts []behaviorledger.EntryOption
	if hasLatest && latest.Status == behaviorledger.StatusActive {
		entryOpts = append(entryOpts, behaviorledger.Supersedes(latest.ID,
			fmt.Sprintf("logic ledger version %d", written.Version)))
	}
	e, err := l.Record(c, author, entryOpts...)
	if err != nil {
		return "", err
	}
	return e.ID, nil
}

func artifactFlags(index coverage.ArtifactIndex, ruleID string) logicledger.ArtifactFlags {
	if index == nil {
		return logicledger.ArtifactFlags{}
	}
	return logicledger.ArtifactFlags{
		Tests: index.HasTests(ruleID),
		Spec:  index.HasSpec(ruleID),
	}
}

func formatWriteSummary(s WriteSummary) string {
	var b strings.Builder
	for _, r := range s.Results {
		fmt.Fprintf(&b, "%s v%04d %s", r.RuleID, r.Version, r.ChangeSummary)
		if len(r.Conflicts) > 0 {
			fmt.Fprintf(&b, " (conflicts: %s)", joinConflicts(r.Conflicts))
		}
		b.WriteString("\n")
	}
	for _, id := range s.Skipped {
		fmt.Fprintf(&b, "%s skipped (no contract)\n", id)
	}
	fmt.Fprintf(&b, "Behavior ledger: %d entries, %d active, %d superseded, %d deprecated\n",
		s.Behavior.Total, s.Behavior.Active, s.Behavior.Superseded, s.Behavior.Deprecated)
	return b.String()
}

func joinConflicts(cs []logicledger.Conflict) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = string(c)
	}
	return strings.Join(parts, ", ")
}

type ledgerShowOptions struct {
	*LedgerOptions
	Version int
}

func newLedgerShowCommand(parent *LedgerOptions) *cobra.Command {
	opts := &ledgerShowOptions{LedgerOptions: parent}

	cmd := &cobra.Command{
		Use:   "show <rule-id>",
		Short: "Show the latest or a numbered logic ledger entry",
		Example: `  praxis ledger show auth.login
  praxis ledger show auth.login --version 1 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLedgerShow(cmd, opts, args[0])
		},
	}

	cmd.Flags().IntVar(&opts.Version, "version", 0, "entry version to show (default latest)")

	return cmd
}

func runLedgerShow(cmd *cobra.Command, opts *ledgerShowOptions, ruleID string) error {
	f := opts.formatter(cmd)
	if err := opts.requireNotSARIF(f, "ledger show"); err != nil {
		return err
	}
	s, err := opts.open(cmd, f, false)
	if err != nil {
		return err
	}
	defer s.close()

	var (
		entry logicledger.Entry
		found bool
	)
	if opts.Version > 0 {
		entry, found, err = s.logic.Version(ruleID, opts.Version)
	} else {
		entry, found, err = s.logic.Latest(ruleID)
	}
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStorage, "read logic ledger failed", err)
	}
	if !found {
		return f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("no logic ledger entry for %q", ruleID), nil)
	}
	return f.Success(entry, formatEntry(entry))
}

func formatEntry(e logicledger.Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s v%04d (%s)\n", e.RuleID, e.Version, e.Timestamp.Format("2006-01-02T15:04:05Z07:00"))
	fmt.Fprintf(&b, "  contract version: %s\n", e.ContractVersion)
	fmt.Fprintf(&b, "  behavior: %s\n", e.Behavior.Behavior)
	fmt.Fprintf(&b, "  behavior hash: %s\n", e.BehaviorHash)
	fmt.Fprintf(&b, "  examples: %d  invariants: %d  assumptions: %d\n",
		len(e.Behavior.Examples), len(e.Behavior.Invariants), len(e.Assumptions))
	fmt.Fprintf(&b, "  artifacts: tests=%t spec=%t\n", e.Artifacts.Tests, e.Artifacts.Spec)
	if e.Drift.PreviousVersion > 0 {
		fmt.Fprintf(&b, "  change: %s (from v%04d)\n", e.Drift.ChangeSummary, e.Drift.PreviousVersion)
	} else {
		fmt.Fprintf(&b, "  change: %s\n", e.Drift.ChangeSummary)
	}
	if len(e.Drift.Conflicts) > 0 {
		fmt.Fprintf(&b, "  conflicts: %s\n", joinConflicts(e.Drift.Conflicts))
	}
	if len(e.Drift.AssumptionsRevised) > 0 {
		fmt.Fprintf(&b, "  assumptions revised: %s\n", strings.Join(e.Drift.AssumptionsRevised, ", "))
	}
	if len(e.Drift.AssumptionsInvalidated) > 0 {
		fmt.Fprintf(&b, "  assumptions invalidated: %s\n", strings.Join(e.Drift.AssumptionsInvalidated, ", "))
	}
	return b.String()
}

func newLedgerHistoryCommand(parent *LedgerOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "history <rule-id>",
		Short:         "List every logic ledger version of a rule",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLedgerHistory(cmd, parent, args[0])
		},
	}
	return cmd
}

func runLedgerHistory(cmd *cobra.Command, opts *LedgerOptions, ruleID string) error {
	f := opts.formatter(cmd)
	if err := opts.requireNotSARIF(f, "ledger history"); err != nil {
		return err
	}
	s, err := opts.open(cmd, f, false)
	if err != nil {
		return err
	}
	defer s.close()

	entries, err := s.logic.History(ruleID)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStorage, "read logic ledger failed", err)
	}
	if len(entries) == 0 {
		return f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("no logic ledger entry for %q", ruleID), nil)
	}

	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "v%04d  %s  %-9s  %s\n", e.Version,
			e.Timestamp.Format("2006-01-02T15:04:05Z07:00"), e.Drift.ChangeSummary, shortHash(e.BehaviorHash))
	}
	return f.Success(entries, b.String())
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

type ledgerAssumptionsOptions struct {
	*LedgerOptions
	Impact string
}

// AssumptionsResult is the output of ledger assumptions.
type AssumptionsResult struct {
	Assumptions []contract.Assumption `json:"assumptions"`
	Stats       behaviorledger.Stats  `json:"stats"`
}

func newLedgerAssumptionsCommand(parent *LedgerOptions) *cobra.Command {
	opts := &ledgerAssumptionsOptions{LedgerOptions: parent}

	cmd := &cobra.Command{
		Use:   "assumptions",
		Short: "List active assumptions from the behavior ledger",
		Example: `  praxis ledger assumptions
  praxis ledger assumptions --impact tests`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLedgerAssumptions(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Impact, "impact", "", "only assumptions impacting spec, tests or code")

	return cmd
}

func runLedgerAssumptions(cmd *cobra.Command, opts *ledgerAssumptionsOptions) error {
	f := opts.formatter(cmd)
	if err := opts.requireNotSARIF(f, "ledger assumptions"); err != nil {
		return err
	}
	switch contract.Impact(opts.Impact) {
	case "", contract.ImpactSpec, contract.ImpactTests, contract.ImpactCode:
	default:
		return f.Fail(ExitCommandError, ErrCodeGeneric,
			fmt.Sprintf("invalid impact %q: must be one of spec, tests, code", opts.Impact), nil)
	}

	s, err := opts.open(cmd, f, true)
	if err != nil {
		return err
	}
	defer s.close()

	list := []contract.Assumption{}
	if opts.Impact != "" {
		list = append(list, s.behavior.AssumptionsByImpact(contract.Impact(opts.Impact))...)
	} else {
		active := s.behavior.ActiveAssumptions()
		for _, id := range slices.Sorted(maps.Keys(active)) {
			list = append(list, active[id])
		}
	}
	result := AssumptionsResult{Assumptions: list, Stats: s.behavior.Stats()}

	var b strings.Builder
	for _, a := range result.Assumptions {
		fmt.Fprintf(&b, "%s (%.2f): %s\n", a.ID, a.Confidence, a.Statement)
	}
	fmt.Fprintf(&b, "%d active assumption(s) across %d rule(s)\n", len(result.Assumptions), result.Stats.Rules)
	return f.Success(result, b.String())
}
