// Package logicledger persists a versioned history of each rule's contract
// on a filesystem, with computed drift between successive versions.
//
// Layout under the ledger root:
//
//	logic-ledger/
//	  index.json                     {"byRuleId": {ruleId: "logic-ledger/<key>"}}
//	  <sanitized-id>-<hash8>/
//	    v0001.json                   immutable, one file per version
//	    v0002.json
//	    LATEST.json                  byte-identical copy of the highest version
//
// Version files are authoritative. LATEST is a read shortcut and the index
// is derived; neither is consulted to decide what a version contains.
//
// CRITICAL: writes are read-then-write on LATEST and the index with no
// cross-process coordination. Concurrent writers for the same rule race on
// version numbering. Supply a Locker to serialize writers.
package logicledger
