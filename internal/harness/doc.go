// Package harness runs YAML scenarios against an engine built from a
// caller-supplied registry.
//
// Rules and constraints are Go code, so the registry is always provided by
// the test; a scenario only describes inputs and expectations. Each run
// uses a fresh engine, so scenarios never share state.
//
// # Scenario Format
//
//	name: login_sets_user
//	description: "LOGIN derives UserLoggedIn and satisfies auth.required"
//	context:
//	  currentUser: ""
//	steps:
//	  - events:
//	      - tag: LOGIN
//	        payload: { username: alice }
//	    rules: [auth.login]            # optional; default every rule
//	    constraints: [auth.required]   # optional; default every constraint
//	    expect:
//	      facts: [UserLoggedIn]        # tags derived by this step, in order
//	      diagnostics: []              # diagnostic kinds, in order
//	assertions:
//	  - type: fact_contains
//	    tag: UserLoggedIn
//	    payload: { userId: alice }
//	  - type: fact_count
//	    tag: UserLoggedIn
//	    count: 1
//	  - type: fact_order
//	    tags: [UserLoggedIn, SessionStarted]
//	  - type: diagnostic_contains
//	    kind: constraint-violation
//	    message: "no current user"
//	  - type: no_diagnostics
//	  - type: final_context
//	    expect: { currentUser: alice }
//
// Payload and context matches are subset matches: only the listed fields
// are compared.
//
// # Contract Scenarios
//
// A contract may reference scenarios with references of type "scenario".
// ScenarioRefs resolves them relative to a base directory and RunContracts
// executes the scenarios of every contract in a registry.
//
// # Golden Files
//
// RunWithGolden and AssertGolden compare the canonical JSON trace with
// testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
