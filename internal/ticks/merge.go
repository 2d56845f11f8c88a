package ticks

import (
	"sort"

	"github.com/aristath/sentinel-desk/internal/domain"
)

// Merge combines server ticks with local-only ticks.
//
// Ticks without an id are dropped. On an id collision the server tick wins
// (and within one list the first occurrence wins). Ids in hidden are filtered
// out. The result is sorted newest first by normalized timestamp, keeping
// input order for equal timestamps, so Merge(Merge(s, l, h), nil, h) returns
// the same list.
func Merge(server, local []domain.Tick, hidden map[string]bool) []domain.Tick {
	seen := make(map[string]struct{}, len(server)+len(local))
	out := make([]domain.Tick, 0, len(server)+len(local))

	add := func(t domain.Tick) {
		if t.ID == "" {
			return
		}
		if _, dup := seen[t.ID]; dup {
			return
		}
		seen[t.ID] = struct{}{}
		if hidden[t.ID] {
			return
		}
		out = append(out, Normalize(t))
	}

	for _, t := range server {
		add(t)
	}
	for _, t := range local {
		add(t)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp > out[j].Timestamp
	})
	return out
}
