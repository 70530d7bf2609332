package cli

import (
	"fmt"

	"github.com/plures/praxis/internal/config"
	"github.com/plures/praxis/internal/kv"
	"github.com/plures/praxis/internal/kv/badgerkv"
	"github.com/plures/praxis/internal/kv/sqlitekv"
	"github.com/plures/praxis/internal/logging"
)

// openStorage opens the configured key-value backend. The returned close
// function is never nil.
func openStorage(cfg config.StorageConfig) (kv.Storage, func() error, error) {
	switch cfg.Backend {
	case config.BackendMemory, "":
		return kv.NewMemory(), func() error { return nil }, nil

	case config.BackendSQLite:
		store, err := sqlitekv.Open(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite storage: %w", err)
		}
		return store, store.Close, nil

	case config.BackendBadger:
		store, err := badgerkv.Open(badgerkv.Config{
			Path:       cfg.Path,
			SyncWrites: true,
			Logger:     logging.New("badger"),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("open badger storage: %w", err)
		}
		return store, store.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
