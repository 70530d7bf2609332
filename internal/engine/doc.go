// Package engine evolves application state by applying rules to events and
// checking constraints against the result.
//
// ARCHITECTURE:
//
// Single Owner:
// The engine exclusively owns one protocol.State. It has no internal locking
// and no goroutines; Step, StepWithConfig and every mutator are expected to
// be called serially by one logical owner.
//
// Step Flow:
//  1. Rules run in configuration order (default: registration order),
//     each against a private copy of the current state
//  2. Facts from every successful rule are concatenated in execution order
//     and appended to a new state
//  3. Constraints run in configuration order against the new state
//  4. The new state is committed regardless of diagnostics
//
// CRITICAL PATTERNS:
//
// Failure Boundary:
// Rule and constraint implementations run inside one recover/err boundary.
// No error or panic escapes Step; every failure becomes a protocol.Diagnostic
// and execution continues with the next rule or constraint.
//
// Advisory Diagnostics:
// Diagnostics never block commitment. Callers that want fail-closed
// behavior inspect StepResult.Diagnostics and call Reset themselves.
//
// Copy-on-Read:
// State, Context and Facts return deep copies. No mutable reference to the
// engine's state escapes.
package engine
