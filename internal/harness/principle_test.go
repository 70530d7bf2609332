package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plures/praxis/internal/contract"
	"github.com/plures/praxis/internal/protocol"
	"github.com/plures/praxis/internal/registry"
)

func scenarioContract(ruleID string, refs ...contract.Reference) *contract.Contract {
	return &contract.Contract{
		RuleID:     ruleID,
		Behavior:   "test behavior",
		Examples:   []contract.Example{{Given: "g", When: "w", Then: "t"}},
		References: refs,
	}
}

func scenarioRef(path string) contract.Reference {
	return contract.Reference{Type: ReferenceTypeScenario, URL: path}
}

func TestScenarioRefs(t *testing.T) {
	c := scenarioContract("auth.login",
		contract.Reference{Type: "doc", URL: "https://example.com/auth"},
		scenarioRef("scenarios/login_sets_user.yaml"),
	)

	paths, err := ScenarioRefs(c, "testdata")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join("testdata", "scenarios", "login_sets_user.yaml")}, paths)
}

func TestScenarioRefs_AbsolutePath(t *testing.T) {
	abs, err := filepath.Abs(filepath.Join("testdata", "scenarios", "multi_step.yaml"))
	require.NoError(t, err)

	paths, err := ScenarioRefs(scenarioContract("auth.login", scenarioRef(abs)), "/elsewhere")
	require.NoError(t, err)
	assert.Equal(t, []string{abs}, paths)
}

func TestScenarioRefs_NoScenarios(t *testing.T) {
	paths, err := ScenarioRefs(scenarioContract("auth.login"), "testdata")
	require.NoError(t, err)
	assert.Empty(t, paths)

	paths, err = ScenarioRefs(nil, "testdata")
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestScenarioRefs_NotFound(t *testing.T) {
	_, err := ScenarioRefs(scenarioContract("auth.login", scenarioRef("scenarios/missing.yaml")), "testdata")
	require.Error(t, err)

	var nf *ScenarioNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "auth.login", nf.RuleID)
	assert.Equal(t, "scenarios/missing.yaml", nf.ScenarioPath)
	assert.Equal(t, filepath.Join("testdata", "scenarios", "missing.yaml"), nf.ResolvedPath)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestRunContracts(t *testing.T) {
	reg := registry.New()
	noop := func(protocol.State, []protocol.Event) ([]protocol.Fact, error) { return nil, nil }

	base := authRegistry(t)
	login, _ := base.Rule("auth.login")
	login.Contract = scenarioContract("auth.login",
		scenarioRef("scenarios/login_sets_user.yaml"),
		scenarioRef("scenarios/wrong_expectation.yaml"),
	)
	session, _ := base.Rule("auth.session")
	fail, _ := base.Rule("auth.fail")
	required, _ := base.Constraint("auth.required")
	required.Contract = scenarioContract("auth.required", scenarioRef("scenarios/missing.yaml"))

	require.NoError(t, reg.RegisterRule(login))
	require.NoError(t, reg.RegisterRule(session))
	require.NoError(t, reg.RegisterRule(fail))
	require.NoError(t, reg.RegisterRule(registry.RuleDescriptor{
		ID:       "docs.only",
		Impl:     noop,
		Contract: scenarioContract("docs.only"),
	}))
	require.NoError(t, reg.RegisterConstraint(required))

	result := RunContracts(reg, "testdata")

	assert.Equal(t, 3, result.TotalContracts)
	assert.Equal(t, 2, result.TotalScenarios)
	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, 2, result.Failed)
	assert.Equal(t, 1, result.Skipped)
	assert.False(t, result.OK())

	require.Len(t, result.Failures, 2)
	assert.Equal(t, "auth.login", result.Failures[0].RuleID)
	assert.Contains(t, result.Failures[0].Error, "scenario assertions failed")
	assert.Equal(t, "auth.required", result.Failures[1].RuleID)
	assert.Equal(t, "scenarios/missing.yaml", result.Failures[1].ScenarioPath)
}

func TestRunContract_LoadFailure(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: broken\n"), 0o644))

	result := &ValidationResult{}
	RunContract(result, scenarioContract("auth.login", scenarioRef("broken.yaml")), authRegistry(t), dir)

	assert.Equal(t, 1, result.TotalScenarios)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Failures, 1)
	assert.Contains(t, result.Failures[0].Error, "failed to load scenario")
}
