package contractfile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plures/praxis/internal/contract"
	"github.com/plures/praxis/internal/coverage"
	"github.com/plures/praxis/internal/registry"
)

var fixedNow = time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)

func newLoader() *Loader {
	return NewLoader(WithClock(func() time.Time { return fixedNow }))
}

func writeManifest(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFile_YAML(t *testing.T) {
	m, err := newLoader().LoadFile("testdata/manifests/auth.yaml")
	require.NoError(t, err)

	require.Len(t, m.Descriptors, 3)
	login := m.Descriptors[0]
	assert.Equal(t, "auth.login", login.ID)
	assert.Equal(t, KindRule, login.Kind)
	assert.Equal(t, "Process login events", login.Description)
	require.NotNil(t, login.Contract)
	assert.Equal(t, "auth.login", login.Contract.RuleID)
	assert.Equal(t, contract.DefaultVersion, login.Contract.Version)
	assert.Equal(t, fixedNow, login.Contract.Timestamp)
	require.Len(t, login.Contract.Assumptions, 1)
	a := login.Contract.Assumptions[0]
	assert.Equal(t, contract.AssumptionActive, a.Status, "status defaults to active")
	assert.True(t, a.HasImpact(contract.ImpactTests))

	assert.Nil(t, m.Descriptors[1].Contract)
	assert.Equal(t, KindConstraint, m.Descriptors[2].Kind)
	assert.Equal(t, []string{"auth.login", "auth.required"}, m.Tests)
	assert.Len(t, m.Contracts(), 2)
}

func TestLoadFile_CUE(t *testing.T) {
	m, err := newLoader().LoadFile("testdata/manifests/cart.cue")
	require.NoError(t, err)

	require.Len(t, m.Descriptors, 2)
	total := m.Descriptors[0]
	assert.Equal(t, "cart.total", total.ID)
	assert.Equal(t, KindRule, total.Kind)
	require.NotNil(t, total.Contract)
	assert.Equal(t, "2.0.0", total.Contract.Version)
	assert.Equal(t, []string{"total is never negative"}, total.Contract.Invariants)
	assert.Equal(t, "CartTotal 7", total.Contract.Examples[0].Then)

	assert.Equal(t, "cart.nonEmpty", m.Descriptors[1].ID)
	assert.Equal(t, KindConstraint, m.Descriptors[1].Kind)
	assert.Nil(t, m.Descriptors[1].Contract)
	assert.Equal(t, []string{"cart.total"}, m.Tests)
}

func TestLoadDir(t *testing.T) {
	m, err := newLoader().LoadDir("testdata/manifests")
	require.NoError(t, err)

	assert.Len(t, m.Files, 2)
	ids := make([]string, len(m.Descriptors))
	for i, d := range m.Descriptors {
		ids[i] = d.ID
	}
	assert.Equal(t, []string{"auth.login", "auth.logout", "auth.required", "cart.total", "cart.nonEmpty"}, ids)
}

func TestLoadDir_Empty(t *testing.T) {
	_, err := newLoader().LoadDir(t.TempDir())
	require.Error(t, err)
	assert.True(t, IsLoadError(err, ErrCodeNoFiles))
}

func TestManifest_RegistryAndCoverage(t *testing.T) {
	m, err := newLoader().LoadDir("testdata/manifests")
	require.NoError(t, err)

	reg, err := m.Registry()
	require.NoError(t, err)
	assert.Equal(t, []string{"auth.login", "auth.logout", "cart.total"}, reg.RuleIDs())
	assert.Equal(t, []string{"auth.required", "cart.nonEmpty"}, reg.ConstraintIDs())

	report := coverage.ValidateContracts(reg, coverage.Options{Artifacts: m.ArtifactIndex()})
	assert.Equal(t, []string{"auth.login"}, report.Complete)
	assert.Equal(t, []string{"auth.logout", "cart.nonEmpty"}, report.Missing)
	require.Len(t, report.Incomplete, 2)
	assert.Equal(t, "cart.total", report.Incomplete[0].RuleID)
	assert.Equal(t, []contract.Artifact{contract.ArtifactSpec}, report.Incomplete[0].Missing)
	assert.Equal(t, "auth.required", report.Incomplete[1].RuleID)
}

func TestManifest_RegistryDuplicate(t *testing.T) {
	path := writeManifest(t, "dup.yaml", `
rules:
  - id: same
  - id: same
`)
	m, err := newLoader().LoadFile(path)
	require.NoError(t, err)

	_, err = m.Registry()
	require.Error(t, err)
	assert.True(t, registry.IsDuplicateID(err))
}

func TestManifest_NoArtifacts(t *testing.T) {
	m := &Manifest{}
	assert.Nil(t, m.ArtifactIndex())
}

func TestLoadYAML_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		code    string
		want    string
	}{
		{"syntax", "rules: [", ErrCodeParse, ""},
		{"unknown field", "rulez: []", ErrCodeParse, "rulez"},
		{"missing id", "rules:\n  - description: x", ErrCodeInvalid, "ID"},
		{"no examples", "rules:\n  - id: r\n    contract:\n      behavior: b", ErrCodeInvalid, "Examples"},
		{"incomplete example", "rules:\n  - id: r\n    contract:\n      examples:\n        - given: g", ErrCodeInvalid, "When"},
		{"confidence", "rules:\n  - id: r\n    contract:\n      examples: [{given: g, when: w, then: t}]\n      assumptions:\n        - {id: a, statement: s, confidence: 1.5}", ErrCodeInvalid, "Confidence"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newLoader().LoadYAML("inline.yaml", []byte(tt.content))
			require.Error(t, err)
			assert.True(t, IsLoadError(err, tt.code), "got %v", err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Contains(t, err.Error(), "inline.yaml")
		})
	}
}

func TestLoadYAML_Empty(t *testing.T) {
	m, err := newLoader().LoadYAML("empty.yaml", nil)
	require.NoError(t, err)
	assert.Empty(t, m.Descriptors)
}

func TestLoadCUE_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		code    string
	}{
		{"syntax", `rules: "r": {`, ErrCodeParse},
		{"conflict", `rules: "r": description: "a"` + "\n" + `rules: "r": description: "b"`, ErrCodeParse},
		{"no examples", `rules: "r": contract: behavior: "b"`, ErrCodeInvalid},
		{"id mismatch", `rules: "r": id: "other"`, ErrCodeInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newLoader().LoadCUE("inline.cue", []byte(tt.content))
			require.Error(t, err)
			assert.True(t, IsLoadError(err, tt.code), "got %v", err)
		})
	}
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := newLoader().LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.True(t, IsLoadError(err, ErrCodeRead))

	_, err = newLoader().LoadFile(writeManifest(t, "contracts.json", "{}"))
	assert.True(t, IsLoadError(err, ErrCodeUnsupported))
}

func TestIsManifest(t *testing.T) {
	assert.True(t, IsManifest("a.yaml"))
	assert.True(t, IsManifest("dir/a.yml"))
	assert.True(t, IsManifest("a.cue"))
	assert.False(t, IsManifest("a.json"))
	assert.False(t, IsManifest("README"))
}
