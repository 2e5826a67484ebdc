// Package reconcile derives per-stage groupings and an entity's position from
// a stage mapping. Everything here is pure and recomputed from scratch.
package reconcile

import (
	"sort"

	"github.com/sells-group/journey-mapper/internal/bowtie"
	"github.com/sells-group/journey-mapper/internal/model"
)

// Grouping lists the source values mapped to each bowtie stage. Every stage
// id is present; unmapped stages have an empty, non-nil slice.
type Grouping map[bowtie.ID][]string

// View is the derived state the visual layer consumes.
type View struct {
	Grouping Grouping  `json:"grouping"`
	Position bowtie.ID `json:"position"`
}

// GroupByTarget inverts m. Values within a stage are sorted. Entries whose
// target is not a bowtie stage are ignored.
func GroupByTarget(m model.StageMapping) Grouping {
	g := make(Grouping, bowtie.Count)
	for _, id := range bowtie.IDs() {
		g[id] = []string{}
	}
	for src, tgt := range m {
		if _, ok := g[tgt]; ok {
			g[tgt] = append(g[tgt], src)
		}
	}
	for _, vals := range g {
		sort.Strings(vals)
	}
	return g
}

// LocateEntity returns the stage value maps to, or bowtie.None when value is
// unset or unmapped.
func LocateEntity(value string, m model.StageMapping) bowtie.ID {
	if value == "" || len(m) == 0 {
		return bowtie.None
	}
	id, ok := m[value]
	if !ok || !bowtie.Valid(id) {
		return bowtie.None
	}
	return id
}

// Derive computes the full view for a mapping and an optional entity.
func Derive(m model.StageMapping, entity *model.Entity) View {
	v := View{Grouping: GroupByTarget(m), Position: bowtie.None}
	if entity != nil {
		v.Position = LocateEntity(entity.StageValue, m)
	}
	return v
}

// LabelsFor renders a grouping with catalog labels in catalog order. Values
// missing from the catalog fall back to the raw value.
func LabelsFor(g Grouping, stages []model.SourceStage) map[bowtie.ID][]string {
	order := make(map[string]int, len(stages))
	labels := make(map[string]string, len(stages))
	for i, s := range stages {
		order[s.Value] = i
		labels[s.Value] = s.Label
	}

	out := make(map[bowtie.ID][]string, len(g))
	for id, vals := range g {
		sorted := append([]string(nil), vals...)
		sort.SliceStable(sorted, func(i, j int) bool {
			oi, iok := order[sorted[i]]
			oj, jok := order[sorted[j]]
			switch {
			case iok && jok:
				return oi < oj
			case iok != jok:
				return iok
			default:
				return sorted[i] < sorted[j]
			}
		})
		names := make([]string, 0, len(sorted))
		for _, v := range sorted {
			if l := labels[v]; l != "" {
				names = append(names, l)
			} else {
				names = append(names, v)
			}
		}
		out[id] = names
	}
	return out
}
