package registry

import (
	"bytes"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plures/praxis/internal/contract"
	"github.com/plures/praxis/internal/protocol"
)

func noopRule(id string) RuleDescriptor {
	return RuleDescriptor{
		ID: id,
		Impl: func(protocol.State, []protocol.Event) ([]protocol.Fact, error) {
			return nil, nil
		},
	}
}

func noopConstraint(id string) ConstraintDescriptor {
	return ConstraintDescriptor{
		ID:   id,
		Impl: func(protocol.State) (Verdict, error) { return Pass(), nil },
	}
}

func completeContract(ruleID string) *contract.Contract {
	return contract.MustDefine(contract.Options{
		RuleID:     ruleID,
		Behavior:   "does the thing",
		Examples:   []contract.Example{{Given: "g", When: "w", Then: "t"}},
		Invariants: []string{"always"},
	})
}

func TestRegistry_RegistrationOrder(t *testing.T) {
	r := New()
	ids := []string{"c.three", "a.one", "b.two", "z.last"}
	for _, id := range ids {
		require.NoError(t, r.RegisterRule(noopRule(id)))
	}

	assert.Equal(t, ids, r.RuleIDs())
	for i, d := range r.Rules() {
		assert.Equal(t, ids[i], d.ID)
	}
}

func TestRegistry_DuplicateRule(t *testing.T) {
	r := New()
	require.NoError(t, r.RegisterRule(noopRule("auth.login")))

	dup := noopRule("auth.login")
	dup.Description = "replacement"
	err := r.RegisterRule(dup)

	require.Error(t, err)
	assert.True(t, IsDuplicateID(err))
	var de *DuplicateIDError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, ErrCodeDuplicateRule, de.Code)
	assert.Contains(t, err.Error(), `rule "auth.login" already registered`)

	assert.Equal(t, []string{"auth.login"}, r.RuleIDs(), "registry unchanged after duplicate")
	got, ok := r.Rule("auth.login")
	require.True(t, ok)
	assert.Empty(t, got.Description, "original descriptor kept")
}

func TestRegistry_DuplicateConstraint(t *testing.T) {
	r := New()
	require.NoError(t, r.RegisterConstraint(noopConstraint("auth.required")))

	err := r.RegisterConstraint(noopConstraint("auth.required"))
	var de *DuplicateIDError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, ErrCodeDuplicateConstraint, de.Code)
	assert.Equal(t, []string{"auth.required"}, r.ConstraintIDs())
}

func TestRegistry_SeparateNamespaces(t *testing.T) {
	r := New()
	require.NoError(t, r.RegisterRule(noopRule("shared.id")))
	require.NoError(t, r.RegisterConstraint(noopConstraint("shared.id")))

	_, ok := r.Rule("shared.id")
	assert.True(t, ok)
	_, ok = r.Constraint("shared.id")
	assert.True(t, ok)
}

func TestRegistry_NotFound(t *testing.T) {
	r := New()
	_, ok := r.Rule("missing")
	assert.False(t, ok)
	_, ok = r.Constraint("missing")
	assert.False(t, ok)
	assert.Empty(t, r.RuleIDs())
	assert.Empty(t, r.ConstraintIDs())
}

func TestRegistry_IDListsAreCopies(t *testing.T) {
	r := New()
	require.NoError(t, r.RegisterRule(noopRule("a")))

	ids := r.RuleIDs()
	ids[0] = "mutated"
	assert.Equal(t, []string{"a"}, r.RuleIDs())
}

func TestRegistry_RegisterModule(t *testing.T) {
	r := New()
	err := r.RegisterModule(Module{
		Rules:       []RuleDescriptor{noopRule("r1"), noopRule("r2")},
		Constraints: []ConstraintDescriptor{noopConstraint("c1")},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"r1", "r2"}, r.RuleIDs())
	assert.Equal(t, []string{"c1"}, r.ConstraintIDs())
}

func TestRegistry_RegisterModuleNoRollback(t *testing.T) {
	r := New()
	require.NoError(t, r.RegisterRule(noopRule("r2")))

	err := r.RegisterModule(Module{
		Rules:       []RuleDescriptor{noopRule("r1"), noopRule("r2"), noopRule("r3")},
		Constraints: []ConstraintDescriptor{noopConstraint("c1")},
	})
	require.Error(t, err)
	assert.True(t, IsDuplicateID(err))

	// r1 was registered before the failure and stays; r3 and c1 never ran.
	assert.Equal(t, []string{"r2", "r1"}, r.RuleIDs())
	assert.Empty(t, r.ConstraintIDs())
}

func TestCompliance_DisabledByDefault(t *testing.T) {
	r := New()
	require.NoError(t, r.RegisterRule(noopRule("no.contract")))
	assert.Empty(t, r.ContractGaps())
}

func TestCompliance_MissingContract(t *testing.T) {
	var seen []contract.Gap
	r := New(WithCompliance(ComplianceOptions{
		OnGap: func(g contract.Gap) { seen = append(seen, g) },
	}))

	require.NoError(t, r.RegisterRule(noopRule("no.contract")))

	require.Len(t, seen, 1)
	assert.Equal(t, "no.contract", seen[0].RuleID)
	assert.Equal(t, []contract.Artifact{contract.ArtifactContract}, seen[0].Missing)
	assert.Equal(t, contract.SeverityWarning, seen[0].Severity)
	assert.Equal(t, seen, r.ContractGaps())
}

func TestCompliance_MissingSeverityConfigurable(t *testing.T) {
	var seen []contract.Gap
	r := New(WithCompliance(ComplianceOptions{
		MissingSeverity: contract.SeverityError,
		OnGap:           func(g contract.Gap) { seen = append(seen, g) },
	}))

	require.NoError(t, r.RegisterConstraint(noopConstraint("no.contract")))
	require.Len(t, seen, 1)
	assert.Equal(t, contract.SeverityError, seen[0].Severity)
}

func TestCompliance_IncompleteContractUsesFixedSeverity(t *testing.T) {
	var seen []contract.Gap
	r := New(WithCompliance(ComplianceOptions{
		MissingSeverity:    contract.SeverityError,
		IncompleteSeverity: contract.SeverityError,
		OnGap:              func(g contract.Gap) { seen = append(seen, g) },
	}))

	d := noopRule("partial")
	d.Contract = contract.MustDefine(contract.Options{
		RuleID:   "partial",
		Examples: []contract.Example{{Given: "g", When: "w", Then: "t"}},
	})
	require.NoError(t, r.RegisterRule(d))

	require.Len(t, seen, 1)
	assert.Equal(t, []contract.Artifact{contract.ArtifactBehavior, contract.ArtifactInvariants}, seen[0].Missing)
	assert.Equal(t, IncompleteGapSeverity, seen[0].Severity)
	assert.NotEqual(t, contract.SeverityError, seen[0].Severity)
}

func TestCompliance_CompleteContractNoGap(t *testing.T) {
	r := New(WithCompliance(ComplianceOptions{
		OnGap: func(g contract.Gap) { t.Fatalf("unexpected gap: %+v", g) },
	}))

	d := noopRule("auth.login")
	d.Contract = completeContract("auth.login")
	require.NoError(t, r.RegisterRule(d))

	c := noopConstraint("auth.required")
	c.Meta = map[string]any{"contract": completeContract("auth.required")}
	require.NoError(t, r.RegisterConstraint(c))

	assert.Empty(t, r.ContractGaps())
}

func TestCompliance_CustomRequiredFields(t *testing.T) {
	r := New(WithCompliance(ComplianceOptions{
		RequiredFields: []contract.Artifact{contract.ArtifactBehavior},
		OnGap:          func(contract.Gap) {},
	}))

	d := noopRule("behavior.only")
	d.Contract = contract.MustDefine(contract.Options{
		RuleID:   "behavior.only",
		Behavior: "present",
		Examples: []contract.Example{{Given: "g", When: "w", Then: "t"}},
	})
	require.NoError(t, r.RegisterRule(d))
	assert.Empty(t, r.ContractGaps())
}

func TestCompliance_DuplicateNotChecked(t *testing.T) {
	count := 0
	r := New(WithCompliance(ComplianceOptions{OnGap: func(contract.Gap) { count++ }}))

	require.NoError(t, r.RegisterRule(noopRule("dup")))
	require.Error(t, r.RegisterRule(noopRule("dup")))
	assert.Equal(t, 1, count, "compliance runs only after a successful registration")
}

func TestCompliance_PanickingSinkStillRegisters(t *testing.T) {
	r := New(
		WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))),
		WithCompliance(ComplianceOptions{OnGap: func(contract.Gap) { panic("sink down") }}),
	)
	for i := 0; i < 3; i++ {
		require.NoError(t, r.RegisterRule(noopRule(fmt.Sprintf("r%d", i))))
	}
	assert.Equal(t, []string{"r0", "r1", "r2"}, r.RuleIDs())
	assert.Len(t, r.ContractGaps(), 3)
}

func TestCompliance_DefaultSinkLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	r := New(WithLogger(logger), WithCompliance(ComplianceOptions{}))

	require.NoError(t, r.RegisterRule(noopRule("no.contract")))

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "contract gap")
	assert.Contains(t, out, "rule_id=no.contract")
}

func TestCompliance_ClearGaps(t *testing.T) {
	r := New(WithCompliance(ComplianceOptions{OnGap: func(contract.Gap) {}}))
	require.NoError(t, r.RegisterRule(noopRule("a")))
	require.NotEmpty(t, r.ContractGaps())

	r.ClearContractGaps()
	assert.Empty(t, r.ContractGaps())
}

func TestVerdict(t *testing.T) {
	assert.True(t, Pass().OK())
	assert.False(t, Fail().OK())
	assert.Empty(t, Fail().Message())
	assert.Equal(t, "nope", Violation("nope").Message())
	assert.False(t, Violation("nope").OK())
	assert.True(t, Check(true, "x").OK())
	assert.Equal(t, "x", Check(false, "x").Message())
}
