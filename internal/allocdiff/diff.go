// Package allocdiff compares current portfolio weights with a decision's
// target weights.
package allocdiff

import (
	"sort"

	"github.com/aristath/sentinel-desk/internal/domain"
	"gonum.org/v1/gonum/floats"
)

// Result is the per-asset comparison plus one-way turnover.
type Result struct {
	Rows     []domain.AllocationRow `json:"rows"`
	Turnover float64                `json:"turnover"`
}

// Diff builds one row per id present on either side, sorted by id. A side
// that lacks an id counts as 0. A nil target behaves like an empty one.
// Turnover is half the L1 norm of the deltas.
func Diff(current, target map[string]float64) Result {
	ids := make([]string, 0, len(current)+len(target))
	for id := range current {
		ids = append(ids, id)
	}
	for id := range target {
		if _, ok := current[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	rows := make([]domain.AllocationRow, 0, len(ids))
	deltas := make([]float64, 0, len(ids))
	for _, id := range ids {
		cur, tgt := current[id], target[id]
		delta := tgt - cur
		rows = append(rows, domain.AllocationRow{ID: id, Current: cur, Target: tgt, Delta: delta})
		deltas = append(deltas, delta)
	}

	turnover := 0.0
	if len(deltas) > 0 {
		turnover = 0.5 * floats.Norm(deltas, 1)
	}
	return Result{Rows: rows, Turnover: turnover}
}
