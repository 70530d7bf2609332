// Package contract defines the structured description of a rule's intended
// behavior: narrative, Given/When/Then examples, invariants, assumptions and
// references.
//
// Contracts are immutable value objects built through Define, the one place
// malformed contract input (zero examples) is rejected. Everything else about
// contract quality is reported as a non-blocking Gap.
package contract
