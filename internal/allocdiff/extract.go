package allocdiff

import (
	"encoding/json"
	"math"
)

// targetPaths are tried in order; the first object with a usable entry wins.
var targetPaths = [][]string{
	{"target_weights"},
	{"next_allocation_weights"},
	{"next_allocation_plan", "target_weights"},
	{"next_allocation_plan", "next_allocation_weights"},
}

// ExtractTargetWeights finds the target weights inside a decision document.
// Non-numeric and non-finite entries are dropped. ok is false when no
// location holds an object with at least one numeric entry, which callers
// must treat as "no target weights" rather than an all-zero target.
func ExtractTargetWeights(doc map[string]any) (map[string]float64, bool) {
	for _, path := range targetPaths {
		obj, found := lookup(doc, path)
		if !found {
			continue
		}
		weights := numericEntries(obj)
		if len(weights) > 0 {
			return weights, true
		}
	}
	return nil, false
}

func lookup(doc map[string]any, path []string) (map[string]any, bool) {
	cur := doc
	for i, key := range path {
		v, ok := cur[key]
		if !ok {
			return nil, false
		}
		obj, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		if i == len(path)-1 {
			return obj, true
		}
		cur = obj
	}
	return nil, false
}

func numericEntries(obj map[string]any) map[string]float64 {
	out := make(map[string]float64, len(obj))
	for k, v := range obj {
		var f float64
		switch n := v.(type) {
		case float64:
			f = n
		case int:
			f = float64(n)
		case int64:
			f = float64(n)
		case json.Number:
			parsed, err := n.Float64()
			if err != nil {
				continue
			}
			f = parsed
		default:
			continue
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		out[k] = f
	}
	return out
}
