// Package protocol provides the data types shared by every praxis package.
//
// This package contains value types and pure helpers only. All other internal
// packages import protocol; protocol imports nothing internal.
//
// Key design constraints:
//   - Payloads are JSON-shaped values (maps, slices, strings, numbers, bools)
//   - State is returned to callers as a deep copy, never by reference
//   - Canonical JSON (RFC 8785) is the only encoding used for comparison
//     and content hashing
package protocol
