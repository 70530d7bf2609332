package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/plures/praxis/internal/logging"
	"github.com/plures/praxis/internal/logicledger"
)

type ledgerWatchOptions struct {
	*LedgerOptions
	MetricsAddr string
}

func newLedgerWatchCommand(parent *LedgerOptions) *cobra.Command {
	opts := &ledgerWatchOptions{LedgerOptions: parent}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print logic ledger entries as they are written",
		Long: `Watch <ledger_root>/logic-ledger and print every new LATEST entry
until interrupted. Each (rule, version) is printed once.

With --metrics-addr, ledger write counters are served at /metrics.`,
		Example: `  praxis ledger watch
  praxis ledger watch --format json --metrics-addr :9464`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLedgerWatch(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	return cmd
}

func runLedgerWatch(cmd *cobra.Command, opts *ledgerWatchOptions) error {
	f := opts.formatter(cmd)
	if err := opts.requireNotSARIF(f, "ledger watch"); err != nil {
		return err
	}
	s, err := opts.open(cmd, f, false)
	if err != nil {
		return err
	}
	defer s.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.New("cli")
	if opts.MetricsAddr != "" {
		addr, shutdown, err := serveMetrics(ctx, opts.MetricsAddr, s, logger)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeGeneric, "start metrics server failed", err)
		}
		defer shutdown()
		f.VerboseLog("Serving metrics on http://%s/metrics", addr)
	}

	logger.Info("watching logic ledger", slog.String("root", s.logic.Root()))
	err = s.logic.Watch(ctx, func(e logicledger.Entry) {
		s.collector.ObserveWrite(e)
		text := fmt.Sprintf("%s v%04d %s", e.RuleID, e.Version, e.Drift.ChangeSummary)
		if len(e.Drift.Conflicts) > 0 {
			text += fmt.Sprintf(" (conflicts: %s)", joinConflicts(e.Drift.Conflicts))
		}
		if err := f.Success(e, text+"\n"); err != nil {
			logger.Warn("write watch output", slog.Any("error", err))
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return f.Fail(ExitCommandError, ErrCodeStorage, "watch logic ledger failed", err)
	}
	return nil
}

// serveMetrics serves the session's registry at /metrics until the
// returned function is called. It returns the bound address.
func serveMetrics(ctx context.Context, addr string, s *ledgerSession, logger *slog.Logger) (string, func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", slog.Any("error", err))
		}
	}()
	bound := ln.Addr().String()
	logger.Info("serving metrics", slog.String("addr", bound))

	return bound, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}, nil
}
