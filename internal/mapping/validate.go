package mapping

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/sells-group/journey-mapper/internal/bowtie"
	"github.com/sells-group/journey-mapper/internal/model"
)

// Drop reasons.
const (
	ReasonUnknownKey    = "unknown_key"
	ReasonInvalidTarget = "invalid_target"
	ReasonNotString     = "not_string"
	ReasonDuplicate     = "duplicate_key"
)

// Drop records a classifier entry that did not survive validation.
type Drop struct {
	Key    string `json:"key"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

// ErrEmptyMapping is the cause attached when nothing survives validation.
var ErrEmptyMapping = eris.New("mapping: no valid entries after validation")

// Validate turns raw classifier text into a StageMapping over stages.
// Unknown keys and invalid targets are dropped with a warning. Keys and
// targets that match only after case folding, or a stage name in place of
// an id, are repaired. The result is never empty on success.
func Validate(raw string, stages []model.SourceStage) (model.StageMapping, []Drop, error) {
	obj, err := extractObject(raw)
	if err != nil {
		return nil, nil, err
	}
	obj = unwrap(obj, stages)

	keys := newKeyIndex(stages)
	out := make(model.StageMapping, len(obj))
	exact := make(map[string]bool, len(obj))
	origin := make(map[string]Drop, len(obj))
	var drops []Drop

	// Sorted for deterministic repair and drop order.
	rawKeys := make([]string, 0, len(obj))
	for k := range obj {
		rawKeys = append(rawKeys, k)
	}
	sort.Strings(rawKeys)

	for _, k := range rawKeys {
		v := obj[k]
		s, ok := v.(string)
		if !ok {
			drops = append(drops, Drop{Key: k, Value: fmt.Sprint(v), Reason: ReasonNotString})
			continue
		}

		value, isExact, ok := keys.resolve(k)
		if !ok {
			drops = append(drops, Drop{Key: k, Value: s, Reason: ReasonUnknownKey})
			continue
		}

		id, ok := bowtie.Parse(s)
		if !ok {
			drops = append(drops, Drop{Key: k, Value: s, Reason: ReasonInvalidTarget})
			continue
		}

		if prev, taken := origin[value]; taken {
			if exact[value] || !isExact {
				drops = append(drops, Drop{Key: k, Value: s, Reason: ReasonDuplicate})
				continue
			}
			drops = append(drops, Drop{Key: prev.Key, Value: prev.Value, Reason: ReasonDuplicate})
		}
		out[value] = id
		exact[value] = isExact
		origin[value] = Drop{Key: k, Value: s}
	}

	for _, d := range drops {
		zap.L().Warn("dropped classifier entry",
			zap.String("key", d.Key),
			zap.String("value", d.Value),
			zap.String("reason", d.Reason),
		)
	}

	if len(out) == 0 {
		return nil, drops, ErrEmptyMapping
	}
	return out, drops, nil
}

// unwrap descends into {"mapping": {...}} style wrappers.
func unwrap(obj map[string]any, stages []model.SourceStage) map[string]any {
	values := model.StageValues(stages)
	for len(obj) == 1 {
		var inner map[string]any
		for k, v := range obj {
			if _, known := values[k]; known {
				return obj
			}
			m, ok := v.(map[string]any)
			if !ok {
				return obj
			}
			inner = m
		}
		obj = inner
	}
	return obj
}

// keyIndex resolves classifier keys to catalog values.
type keyIndex struct {
	exact  map[string]struct{}
	folded map[string]string
	fold   cases.Caser
}

func newKeyIndex(stages []model.SourceStage) *keyIndex {
	ki := &keyIndex{
		exact:  model.StageValues(stages),
		folded: make(map[string]string, len(stages)*2),
		fold:   cases.Fold(),
	}
	// Values take precedence over labels.
	for _, st := range stages {
		if f := ki.key(st.Value); f != "" {
			if _, ok := ki.folded[f]; !ok {
				ki.folded[f] = st.Value
			}
		}
	}
	for _, st := range stages {
		if f := ki.key(st.Label); f != "" {
			if _, ok := ki.folded[f]; !ok {
				ki.folded[f] = st.Value
			}
		}
	}
	return ki
}

func (ki *keyIndex) key(s string) string {
	return ki.fold.String(strings.TrimSpace(s))
}

func (ki *keyIndex) resolve(k string) (value string, exact bool, ok bool) {
	if _, hit := ki.exact[k]; hit {
		return k, true, true
	}
	if v, hit := ki.folded[ki.key(k)]; hit {
		return v, false, true
	}
	return "", false, false
}
