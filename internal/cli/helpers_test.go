package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

const completeContracts = `rules:
  - id: auth.login
    description: Process login events
    contract:
      behavior: Emits UserLoggedIn for each LOGIN event
      examples:
        - given: no session
          when: LOGIN alice
          then: UserLoggedIn alice
      invariants:
        - one fact per login event
      assumptions:
        - id: usernames-unique
          statement: Usernames are unique per tenant
          confidence: 0.9
          justification: Enforced by the identity provider
          impacts: [spec, tests]
constraints:
  - id: auth.required
    contract:
      behavior: A current user must be set after every step
      examples:
        - given: an anonymous context
          when: any step
          then: constraint-violation
      invariants:
        - checked after rules
`

const gappyContracts = `rules:
  - id: cart.total
    contract:
      behavior: Derives CartTotal from LineItem facts
      examples:
        - given: two line items
          when: TOTAL
          then: CartTotal
  - id: legacy.rule
`

// syncBuffer is a bytes.Buffer safe for a running command and a polling test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// writeContracts writes files into a fresh directory and returns it.
func writeContracts(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

// testEnv isolates config from the process environment and points the
// ledgers at a temporary root with SQLite storage.
func testEnv(t *testing.T) map[string]string {
	t.Helper()
	root := t.TempDir()
	return map[string]string{
		"PRAXIS_LEDGER_ROOT":     root,
		"PRAXIS_AUTHOR":          "tester",
		"PRAXIS_STORAGE_BACKEND": "sqlite",
		"PRAXIS_STORAGE_PATH":    filepath.Join(root, "behavior.db"),
	}
}

// execute runs the root command with args and returns stdout, stderr and
// the command error.
func execute(t *testing.T, environ map[string]string, args ...string) (string, string, error) {
	t.Helper()
	return executeContext(context.Background(), t, environ, nil, args...)
}

func executeContext(ctx context.Context, t *testing.T, environ map[string]string, out *syncBuffer, args ...string) (string, string, error) {
	t.Helper()
	if out == nil {
		out = &syncBuffer{}
	}
	errOut := &syncBuffer{}

	cmd := newRootCommand(&RootOptions{Environ: environ})
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return out.String(), errOut.String(), err
}
