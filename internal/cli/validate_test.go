package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plures/praxis/internal/contract"
	"github.com/plures/praxis/internal/coverage"
)

func decodeReport(t *testing.T, out string) coverage.Report {
	t.Helper()
	var report coverage.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	return report
}

func TestValidateComplete(t *testing.T) {
	dir := writeContracts(t, map[string]string{"auth.yaml": completeContracts})

	stdout, _, err := execute(t, testEnv(t), "validate", dir)
	require.NoError(t, err)

	assert.Contains(t, stdout, "Contract coverage (")
	assert.Contains(t, stdout, "Complete (2)")
	assert.Contains(t, stdout, "  [x] auth.login\n")
	assert.Contains(t, stdout, "  [x] auth.required\n")
	assert.Contains(t, stdout, "Total: 2  complete: 2  incomplete: 0  missing: 0")
}

func TestValidateGaps(t *testing.T) {
	dir := writeContracts(t, map[string]string{"gaps.yaml": gappyContracts})

	stdout, _, err := execute(t, testEnv(t), "validate", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "E007")

	assert.Contains(t, stdout, "  [~] cart.total: missing invariants [warning]\n")
	assert.Contains(t, stdout, "  [ ] legacy.rule\n")
	assert.Contains(t, stdout, "Total: 2  complete: 0  incomplete: 1  missing: 1")
}

func TestValidateIncompleteSeverity(t *testing.T) {
	dir := writeContracts(t, map[string]string{"gaps.yaml": gappyContracts})

	stdout, _, err := execute(t, testEnv(t), "validate", dir, "--incomplete-severity", "error")
	require.Error(t, err)
	assert.Contains(t, stdout, "missing invariants [error]")

	_, stderr, err := execute(t, testEnv(t), "validate", dir, "--incomplete-severity", "loud")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stderr, "invalid severity")
}

func TestValidateJSON(t *testing.T) {
	dir := writeContracts(t, map[string]string{
		"auth.yaml": completeContracts,
		"gaps.yaml": gappyContracts,
	})

	stdout, _, err := execute(t, testEnv(t), "validate", dir, "--format", "json")
	require.Error(t, err)

	report := decodeReport(t, stdout)
	// Rules before constraints, files in lexical order.
	assert.Equal(t, []string{"auth.login", "auth.required"}, report.Complete)
	require.Len(t, report.Incomplete, 1)
	assert.Equal(t, "cart.total", report.Incomplete[0].RuleID)
	assert.Equal(t, []string{"legacy.rule"}, report.Missing)
	assert.Equal(t, 4, report.Total)
	assert.Empty(t, report.MissingGaps)
	assert.Equal(t, []contract.Artifact{contract.ArtifactInvariants}, report.Incomplete[0].Missing)
}

func TestValidateArtifacts(t *testing.T) {
	withArtifacts := completeContracts + `artifacts:
  tests: [auth.login, auth.required]
  specs: [auth.login]
`
	dir := writeContracts(t, map[string]string{"auth.yaml": withArtifacts})

	stdout, _, err := execute(t, testEnv(t), "validate", dir, "--format", "json")
	require.Error(t, err)

	report := decodeReport(t, stdout)
	assert.Equal(t, []string{"auth.login"}, report.Complete)
	require.Len(t, report.Incomplete, 1)
	assert.Equal(t, "auth.required", report.Incomplete[0].RuleID)
	assert.Equal(t, []contract.Artifact{contract.ArtifactSpec}, report.Incomplete[0].Missing)
}

func TestValidateSARIF(t *testing.T) {
	dir := writeContracts(t, map[string]string{"gaps.yaml": gappyContracts})

	stdout, _, err := execute(t, testEnv(t), "validate", dir, "--format", "sarif", "--emit-missing-gaps")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var log struct {
		Version string `json:"version"`
		Runs    []struct {
			Tool struct {
				Driver struct {
					Name string `json:"name"`
				} `json:"driver"`
			} `json:"tool"`
			Results []struct {
				RuleID string `json:"ruleId"`
				Level  string `json:"level"`
			} `json:"results"`
		} `json:"runs"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &log))
	assert.Equal(t, coverage.SARIFVersion, log.Version)
	require.Len(t, log.Runs, 1)
	assert.Equal(t, coverage.SARIFTool, log.Runs[0].Tool.Driver.Name)
	require.Len(t, log.Runs[0].Results, 2)
	assert.Equal(t, "decision-ledger/invariants", log.Runs[0].Results[0].RuleID)
	assert.Equal(t, "decision-ledger/contract", log.Runs[0].Results[1].RuleID)
	assert.Equal(t, "warning", log.Runs[0].Results[1].Level)
}

func TestValidateNonExistentDirectory(t *testing.T) {
	_, stderr, err := execute(t, testEnv(t), "validate", "/nonexistent/directory/path")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "E005")
	assert.Contains(t, stderr, "not found")
}

func TestValidateNonExistentDirectoryJSON(t *testing.T) {
	stdout, _, err := execute(t, testEnv(t), "validate", "/nonexistent/directory/path", "--format", "json")
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
}

func TestValidateEmptyDirectory(t *testing.T) {
	_, stderr, err := execute(t, testEnv(t), "validate", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stderr, "E205")
}

func TestValidateMalformedFile(t *testing.T) {
	dir := writeContracts(t, map[string]string{"bad.yaml": "rules: [\n"})

	_, stderr, err := execute(t, testEnv(t), "validate", dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stderr, "E202")
}

func TestValidateDuplicateIDs(t *testing.T) {
	dir := writeContracts(t, map[string]string{
		"a.yaml": "rules:\n  - id: dup\n",
		"b.yaml": "rules:\n  - id: dup\n",
	})

	_, stderr, err := execute(t, testEnv(t), "validate", dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stderr, "E203")
	assert.Contains(t, stderr, "dup")
}

func TestValidateRequiresOneArg(t *testing.T) {
	_, _, err := execute(t, testEnv(t), "validate")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestValidateWarnsOnDerivationCycle(t *testing.T) {
	cyclic := `rules:
  - id: auth.login
    contract:
      behavior: Emits UserLoggedIn
      examples:
        - given: no session
          when: LOGIN alice
          then: UserLoggedIn alice
      invariants: [one fact per login]
      assumptions:
        - id: a
          statement: first
          confidence: 0.5
          derivedFrom: b
        - id: b
          statement: second
          confidence: 0.5
          derivedFrom: a
`
	dir := writeContracts(t, map[string]string{"auth.yaml": cyclic})

	stdout, stderr, err := execute(t, testEnv(t), "validate", dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "[x] auth.login")
	assert.Contains(t, stderr, "assumption derivation cycle: auth.login/a → auth.login/b → auth.login/a")
}
