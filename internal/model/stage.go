package model

import (
	"sort"

	"github.com/sells-group/journey-mapper/internal/bowtie"
)

// SourceStage is one entry of a tenant's lifecycle-stage catalog.
type SourceStage struct {
	Value       string `json:"value" yaml:"value"`
	Label       string `json:"label" yaml:"label"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// StageValues returns the set of values in a catalog.
func StageValues(stages []SourceStage) map[string]struct{} {
	set := make(map[string]struct{}, len(stages))
	for _, s := range stages {
		set[s.Value] = struct{}{}
	}
	return set
}

// StageMapping maps source stage values to bowtie stage ids. It is replaced
// wholesale, never edited in place once accepted.
type StageMapping map[string]bowtie.ID

// Clone returns an independent copy.
func (m StageMapping) Clone() StageMapping {
	if m == nil {
		return nil
	}
	out := make(StageMapping, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Keys returns the source values in sorted order.
func (m StageMapping) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// KeysWithin reports whether every key is a value in the catalog.
func (m StageMapping) KeysWithin(stages []SourceStage) bool {
	values := StageValues(stages)
	for k := range m {
		if _, ok := values[k]; !ok {
			return false
		}
	}
	return true
}

// Covers reports whether every catalog value is a key.
func (m StageMapping) Covers(stages []SourceStage) bool {
	for _, s := range stages {
		if _, ok := m[s.Value]; !ok {
			return false
		}
	}
	return true
}

// InvalidTargets returns the keys whose value is not a bowtie stage id.
func (m StageMapping) InvalidTargets() []string {
	var bad []string
	for _, k := range m.Keys() {
		if !bowtie.Valid(m[k]) {
			bad = append(bad, k)
		}
	}
	return bad
}
