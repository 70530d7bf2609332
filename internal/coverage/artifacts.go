package coverage

// ArtifactIndex reports which rule ids have tests or specs outside of their
// contracts. Implementations are typically built by scanning a source tree.
type ArtifactIndex interface {
	HasTests(ruleID string) bool
	HasSpec(ruleID string) bool
}

// StaticIndex is an ArtifactIndex over fixed id sets.
type StaticIndex struct {
	tests map[string]struct{}
	specs map[string]struct{}
}

// NewStaticIndex builds an index from the ids known to have tests and specs.
func NewStaticIndex(tests, specs []string) *StaticIndex {
	idx := &StaticIndex{
		tests: make(map[string]struct{}, len(tests)),
		specs: make(map[string]struct{}, len(specs)),
	}
	for _, id := range tests {
		idx.tests[id] = struct{}{}
	}
	for _, id := range specs {
		idx.specs[id] = struct{}{}
	}
	return idx
}

// HasTests implements ArtifactIndex.
func (s *StaticIndex) HasTests(ruleID string) bool {
	_, ok := s.tests[ruleID]
	return ok
}

// HasSpec implements ArtifactIndex.
func (s *StaticIndex) HasSpec(ruleID string) bool {
	_, ok := s.specs[ruleID]
	return ok
}
