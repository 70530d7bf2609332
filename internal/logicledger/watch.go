package logicledger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch calls fn with the new LATEST entry each time a rule's LATEST
// pointer changes under the ledger root, until ctx is done. Entries are
// delivered at most once per (rule, version). Watch returns ctx.Err() when
// ctx is done.
//
// Watch only observes; it never writes. It requires the ledger to be on
// the local filesystem.
func (l *Ledger) Watch(ctx context.Context, fn func(Entry)) error {
	base := filepath.Join(l.root, DirName)
	if err := os.MkdirAll(base, dirPerm); err != nil {
		return fmt.Errorf("watch logic ledger: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch logic ledger: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(base); err != nil {
		return fmt.Errorf("watch logic ledger: %w", err)
	}
	entries, err := os.ReadDir(base)
	if err != nil {
		return fmt.Errorf("watch logic ledger: %w", err)
	}
	for _, de := range entries {
		if de.IsDir() {
			if err := watcher.Add(filepath.Join(base, de.Name())); err != nil {
				return fmt.Errorf("watch logic ledger: %w", err)
			}
		}
	}

	seen := make(map[string]int)
	deliver := func(latest string) {
		e, found, err := l.readEntry(latest)
		if err != nil || !found {
			// A partial write; the next event carries the full file.
			l.logger.Debug("skipping unreadable LATEST", "path", latest, "error", err)
			return
		}
		if seen[e.RuleID] == e.Version {
			return
		}
		seen[e.RuleID] = e.Version
		fn(e)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := watcher.Add(event.Name); err != nil {
						l.logger.Warn("watch rule directory", "path", event.Name, "error", err)
					}
					// LATEST may already exist by the time the watch is added.
					deliver(filepath.Join(event.Name, LatestFile))
					continue
				}
			}
			if filepath.Base(event.Name) == LatestFile && (event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				deliver(event.Name)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.logger.Warn("logic ledger watch error", "error", err)
		}
	}
}
