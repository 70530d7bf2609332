package logicledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/plures/praxis/internal/contract"
)

// Directory and file names inside the ledger root.
const (
	DirName    = "logic-ledger"
	LatestFile = "LATEST.json"
	IndexFile  = "index.json"
)

const (
	dirPerm  fs.FileMode = 0o755
	filePerm fs.FileMode = 0o644
)

// Locker serializes writers. Lock blocks until the lock is held or ctx is
// done, and returns the function that releases it.
type Locker interface {
	Lock(ctx context.Context) (unlock func(), err error)
}

// MutexLocker is a Locker for writers within one process.
type MutexLocker struct {
	mu sync.Mutex
}

// Lock implements Locker. It does not observe ctx once waiting.
func (m *MutexLocker) Lock(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	return m.mu.Unlock, nil
}

// WriteObserver is notified after every successful write.
type WriteObserver interface {
	ObserveWrite(Entry)
}

// Ledger reads and writes the logic ledger under a root directory.
type Ledger struct {
	root      string
	fs        FS
	now       func() time.Time
	locker    Locker
	logger    *slog.Logger
	observers []WriteObserver
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithFS replaces the filesystem. Default: OSFS.
func WithFS(fsys FS) Option {
	return func(l *Ledger) {
		l.fs = fsys
	}
}

// WithClock sets the clock used to stamp entries.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// WithLocker wraps every write in the given lock.
func WithLocker(locker Locker) Option {
	return func(l *Ledger) {
		l.locker = locker
	}
}

// WithLogger sets the ledger's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

// WithWriteObserver registers an observer notified after each write.
func WithWriteObserver(o WriteObserver) Option {
	return func(l *Ledger) {
		l.observers = append(l.observers, o)
	}
}

// Open returns a ledger rooted at root. Nothing is read or created until
// the first operation.
func Open(root string, opts ...Option) *Ledger {
	l := &Ledger{
		root:   root,
		fs:     OSFS{},
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Root returns the ledger root directory.
func (l *Ledger) Root() string {
	return l.root
}

// WriteOptions configures one write.
type WriteOptions struct {
	// Artifacts records test and spec presence for the rule.
	Artifacts ArtifactFlags

	// Timestamp stamps the entry. Default: the ledger clock.
	Timestamp time.Time
}

// Write appends a new version of c to the ledger and returns it.
//
// The sequence is: read LATEST, compute drift, write the numbered version
// file, overwrite LATEST with the same bytes, update the index. A missing
// LATEST means this is version 1; any other read or write error is
// returned and later steps are skipped.
func (l *Ledger) Write(ctx context.Context, c *contract.Contract, opts WriteOptions) (Entry, error) {
	if c == nil {
		return Entry{}, errors.New("write logic ledger: nil contract")
	}
	if err := ctx.Err(); err != nil {
		return Entry{}, fmt.Errorf("write logic ledger %q: %w", c.RuleID, err)
	}
	if l.locker != nil {
		unlock, err := l.locker.Lock(ctx)
		if err != nil {
			return Entry{}, fmt.Errorf("write logic ledger %q: lock: %w", c.RuleID, err)
		}
		defer unlock()
	}

	entry, err := l.write(c, opts)
	if err != nil {
		return Entry{}, fmt.Errorf("write logic ledger %q: %w", c.RuleID, err)
	}

	l.logger.Info("logic ledger entry written",
		"rule_id", entry.RuleID,
		"version", entry.Version,
		"change", entry.Drift.ChangeSummary,
	)
	for _, o := range l.observers {
		o.ObserveWrite(entry)
	}
	return entry, nil
}

func (l *Ledger) write(c *contract.Contract, opts WriteOptions) (Entry, error) {
	key := StorageKey(c.RuleID)
	dir := filepath.Join(l.root, DirName, key)

	prior, found, err := l.readEntry(filepath.Join(dir, LatestFile))
	if err != nil {
		return Entry{}, err
	}
	var priorPtr *Entry
	version := 1
	if found {
		priorPtr = &prior
		version = prior.Version + 1
	}

	behavior := canonicalize(c)
	hash, err := behavior.Hash()
	if err != nil {
		return Entry{}, err
	}
	assumptions := slices.Clone(c.Assumptions)
	if assumptions == nil {
		assumptions = []contract.Assumption{}
	}
	drift, err := ComputeDrift(priorPtr, behavior, assumptions)
	if err != nil {
		return Entry{}, err
	}

	ts := opts.Timestamp
	if ts.IsZero() {
		ts = l.now()
	}
	entry := Entry{
		RuleID:          c.RuleID,
		Version:         version,
		Timestamp:       ts.UTC(),
		ContractVersion: c.Version,
		Behavior:        behavior,
		BehaviorHash:    hash,
		Assumptions:     assumptions,
		Artifacts:       opts.Artifacts,
		Drift:           drift,
	}

	data, err := encode(entry)
	if err != nil {
		return Entry{}, err
	}
	if err := l.fs.MkdirAll(dir, dirPerm); err != nil {
		return Entry{}, fmt.Errorf("create %s: %w", dir, err)
	}
	if err := l.fs.WriteFile(filepath.Join(dir, versionFile(version)), data, filePerm); err != nil {
		return Entry{}, fmt.Errorf("write version %d: %w", version, err)
	}
	if err := l.fs.WriteFile(filepath.Join(dir, LatestFile), data, filePerm); err != nil {
		return Entry{}, fmt.Errorf("write %s: %w", LatestFile, err)
	}
	if err := l.updateIndex(c.RuleID, key); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// updateIndex records ruleID -> key, last write wins. An unparsable index
// is rebuilt from scratch since version files are authoritative.
func (l *Ledger) updateIndex(ruleID, key string) error {
	indexPath := filepath.Join(l.root, DirName, IndexFile)
	idx, err := l.readIndex(indexPath)
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		l.logger.Warn("rebuilding unreadable logic ledger index", "path", indexPath, "error", err)
		idx, err = Index{ByRuleID: map[string]string{}}, nil
	}
	if err != nil {
		return err
	}
	idx.ByRuleID[ruleID] = path.Join(DirName, key)

	data, err := encode(idx)
	if err != nil {
		return err
	}
	if err := l.fs.WriteFile(indexPath, data, filePerm); err != nil {
		return fmt.Errorf("write %s: %w", IndexFile, err)
	}
	return nil
}

// Latest returns the newest version of ruleID, or false if none exists.
func (l *Ledger) Latest(ruleID string) (Entry, bool, error) {
	return l.readEntry(filepath.Join(l.dir(ruleID), LatestFile))
}

// Version returns version n of ruleID, or false if it does not exist.
func (l *Ledger) Version(ruleID string, n int) (Entry, bool, error) {
	if n < 1 {
		return Entry{}, false, nil
	}
	return l.readEntry(filepath.Join(l.dir(ruleID), versionFile(n)))
}

// History returns every version of ruleID in ascending order.
func (l *Ledger) History(ruleID string) ([]Entry, error) {
	latest, found, err := l.Latest(ruleID)
	if err != nil || !found {
		return nil, err
	}
	out := make([]Entry, 0, latest.Version)
	for n := 1; n <= latest.Version; n++ {
		e, ok, err := l.Version(ruleID, n)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("logic ledger %q: version %d missing below LATEST version %d", ruleID, n, latest.Version)
		}
		out = append(out, e)
	}
	return out, nil
}

// Index returns the rule index. A missing index is empty.
func (l *Ledger) Index() (Index, error) {
	return l.readIndex(filepath.Join(l.root, DirName, IndexFile))
}

func (l *Ledger) dir(ruleID string) string {
	return filepath.Join(l.root, DirName, StorageKey(ruleID))
}

func (l *Ledger) readEntry(name string) (Entry, bool, error) {
	data, err := l.fs.ReadFile(name)
	if errors.Is(err, fs.ErrNotExist) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("read %s: %w", name, err)
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, false, fmt.Errorf("decode %s: %w", name, err)
	}
	return e, true, nil
}

func (l *Ledger) readIndex(name string) (Index, error) {
	idx := Index{ByRuleID: map[string]string{}}
	data, err := l.fs.ReadFile(name)
	if errors.Is(err, fs.ErrNotExist) {
		return idx, nil
	}
	if err != nil {
		return Index{}, fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, &idx); err != nil {
		return Index{}, fmt.Errorf("decode %s: %w", name, err)
	}
	if idx.ByRuleID == nil {
		idx.ByRuleID = map[string]string{}
	}
	return idx, nil
}

func encode(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
