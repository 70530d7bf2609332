package cli

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/plures/praxis/internal/config"
	"github.com/plures/praxis/internal/contract"
	"github.com/plures/praxis/internal/contractfile"
	"github.com/plures/praxis/internal/logging"
	"github.com/plures/praxis/internal/registry"
)

// loadManifest loads every contract file under dir and registers the
// declared descriptors. Registration-time gaps are logged at DEBUG and
// assumption derivation cycles at WARN.
func loadManifest(f *OutputFormatter, cfg config.Config, dir string) (*contractfile.Manifest, *registry.Registry, error) {
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return nil, nil, f.Fail(ExitCommandError, ErrCodeNotFound, "contracts directory not found: "+dir, nil)
	}

	manifest, err := contractfile.NewLoader().LoadDir(dir)
	if err != nil {
		var le *contractfile.LoadError
		if errors.As(err, &le) {
			return nil, nil, f.Fail(ExitCommandError, le.Code, le.Error(), le.Err)
		}
		return nil, nil, f.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}
	f.VerboseLog("Loaded %d descriptor(s) from %d file(s) in %s", len(manifest.Descriptors), len(manifest.Files), dir)

	logger := logging.New("cli")
	reg, err := manifest.Registry(
		registry.WithLogger(logger),
		registry.WithCompliance(registry.ComplianceOptions{
			RequiredFields:  cfg.Artifacts(),
			MissingSeverity: cfg.Severity(),
			OnGap: func(gap contract.Gap) {
				logger.Debug("contract gap at registration",
					slog.String("rule_id", gap.RuleID),
					slog.String("severity", string(gap.Severity)))
			},
		}),
	)
	if err != nil {
		return nil, nil, f.Fail(ExitCommandError, contractfile.ErrCodeInvalid, err.Error(), nil)
	}

	for _, cycle := range manifest.DerivationCycles() {
		logger.Warn(cycle.Message, slog.Any("path", cycle.Path))
	}
	return manifest, reg, nil
}
