package logicledger

import (
	"fmt"
	"strings"

	"github.com/plures/praxis/internal/protocol"
)

// hashSuffixLen is the number of hex characters of the id hash appended to
// the sanitized id.
const hashSuffixLen = 8

// StorageKey returns the directory name for ruleID. Characters outside
// [A-Za-z0-9._-] are replaced with '_'; the hash suffix keeps ids that
// sanitize identically apart.
func StorageKey(ruleID string) string {
	var b strings.Builder
	for _, r := range ruleID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	sanitized := strings.Trim(b.String(), ".")
	if sanitized == "" {
		sanitized = "rule"
	}
	hash := protocol.HashWithDomain(protocol.DomainStorageKey, []byte(ruleID))
	return fmt.Sprintf("%s-%s", sanitized, hash[:hashSuffixLen])
}

func versionFile(n int) string {
	return fmt.Sprintf("v%04d.json", n)
}
