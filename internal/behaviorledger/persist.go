package behaviorledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/plures/praxis/internal/kv"
)

// documentVersion is the version of the export format.
const documentVersion = 1

type document struct {
	Version      int                 `json:"version"`
	Entries      []Entry             `json:"entries"`
	Deprecations []deprecationRecord `json:"deprecations,omitempty"`
}

// deprecationRecord places a deprecation in the append sequence: it was
// applied after the first After entries had been appended.
type deprecationRecord struct {
	Deprecation
	After int `json:"after"`
}

// MarshalJSON exports the append history and every deprecation, in the
// order they happened.
func (l *Ledger) MarshalJSON() ([]byte, error) {
	doc := document{
		Version: documentVersion,
		Entries: make([]Entry, 0, len(l.history)),
	}
	appended := 0
	for _, o := range l.ops {
		if o.deprecate != nil {
			doc.Deprecations = append(doc.Deprecations, deprecationRecord{
				Deprecation: *o.deprecate,
				After:       appended,
			})
			continue
		}
		doc.Entries = append(doc.Entries, l.history[o.entry])
		appended++
	}
	return json.Marshal(doc)
}

// FromJSON rebuilds a ledger from MarshalJSON output by replaying every
// append and deprecation in original order.
func FromJSON(data []byte, opts ...Option) (*Ledger, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode ledger: %w", err)
	}
	if doc.Version != documentVersion {
		return nil, fmt.Errorf("decode ledger: unsupported version %d", doc.Version)
	}

	l := New(opts...)
	next := 0
	replayDeprecations := func(appended int) error {
		for next < len(doc.Deprecations) && doc.Deprecations[next].After <= appended {
			if err := l.deprecate(doc.Deprecations[next].Deprecation); err != nil {
				return fmt.Errorf("replay deprecation %d: %w", next, err)
			}
			next++
		}
		return nil
	}

	for i, e := range doc.Entries {
		if err := replayDeprecations(i); err != nil {
			return nil, err
		}
		if err := l.Append(e); err != nil {
			return nil, fmt.Errorf("replay entry %d: %w", i, err)
		}
	}
	if err := replayDeprecations(len(doc.Entries)); err != nil {
		return nil, err
	}
	if next != len(doc.Deprecations) {
		return nil, fmt.Errorf("decode ledger: deprecation %d is out of order", next)
	}
	return l, nil
}

// Save writes the ledger export to store under key.
func (l *Ledger) Save(ctx context.Context, store kv.Storage, key string) error {
	data, err := l.MarshalJSON()
	if err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	if err := store.Set(ctx, key, data); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	return nil
}

// Load reads a ledger saved under key. It returns an empty ledger and false
// when nothing is stored there.
func Load(ctx context.Context, store kv.Storage, key string, opts ...Option) (*Ledger, bool, error) {
	data, found, err := store.Get(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("load ledger: %w", err)
	}
	if !found {
		return New(opts...), false, nil
	}
	l, err := FromJSON(data, opts...)
	if err != nil {
		return nil, false, fmt.Errorf("load ledger: %w", err)
	}
	return l, true, nil
}
