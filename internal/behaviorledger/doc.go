// Package behaviorledger is an in-memory, append-only log of contract
// versions with logical supersession.
//
// The ledger keeps two views of its entries:
//
//	history  the ordered append log; records are stored verbatim and never
//	         rewritten
//	status   a lookup of each entry's current status, patched when a later
//	         entry supersedes it or when it is deprecated
//
// Queries that answer "what is true now" (LatestEntry, AllEntries,
// ActiveAssumptions) read through the status view. History returns the log
// exactly as appended.
//
// A Ledger is not safe for concurrent use.
package behaviorledger
