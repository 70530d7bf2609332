// Package registry holds rule and constraint descriptors keyed by stable id.
//
// Rules and constraints live in separate namespaces. Within a namespace an id
// is registered at most once: a duplicate registration is an error, never a
// silent overwrite. Descriptors are immutable after registration and the
// registry keeps them for its whole lifetime.
//
// When compliance checking is enabled, every successful registration is
// followed by a contract check whose gaps are reported to a sink. The check
// runs strictly after the uniqueness invariant is enforced and can never
// abort a registration.
//
// The registry is not safe for concurrent use. It is populated once at
// bootstrap by a single owner.
package registry
