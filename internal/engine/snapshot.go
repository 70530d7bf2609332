package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/plures/praxis/internal/kv"
	"github.com/plures/praxis/internal/protocol"
)

// SaveSnapshot stores the current state as JSON under key.
func (e *Engine) SaveSnapshot(ctx context.Context, store kv.Storage, key string) error {
	data, err := json.Marshal(e.state)
	if err != nil {
		return fmt.Errorf("save snapshot: marshal state: %w", err)
	}
	if err := store.Set(ctx, key, data); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// RestoreSnapshot replaces the current state with the snapshot stored under
// key. It returns false, leaving the state untouched, when no snapshot
// exists.
//
// Payloads and context come back in their JSON shape (map[string]any,
// []any, float64), not as the Go types they were saved from.
func (e *Engine) RestoreSnapshot(ctx context.Context, store kv.Storage, key string) (bool, error) {
	data, found, err := store.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("restore snapshot: %w", err)
	}
	if !found {
		return false, nil
	}

	var state protocol.State
	if err := json.Unmarshal(data, &state); err != nil {
		return false, fmt.Errorf("restore snapshot: unmarshal state: %w", err)
	}
	if state.Facts == nil {
		state.Facts = []protocol.Fact{}
	}
	if state.ProtocolVersion == "" {
		state.ProtocolVersion = protocol.ProtocolVersion
	}
	e.state = state
	return true, nil
}
