package domain

import (
	"bytes"
	"sort"

	"github.com/google/uuid"
)

// Snapshot is the part of a lead that determines agent counters.
type Snapshot struct {
	Status     Status
	AssignedTo *uuid.UUID
}

// Adjustment is the net change to one agent's counters.
type Adjustment struct {
	AgentID        uuid.UUID
	TotalDelta     int
	ConvertedDelta int
}

// PlanAdjustments returns the counter deltas that move agent counters from
// reflecting before to reflecting after. A nil before means the lead is being
// created and a nil after means it is being deleted.
//
// Each lead contributes one to its assignee's total, and one to its converted
// count while Converted. The plan is the contribution of after minus the
// contribution of before, so a simultaneous status change and reassignment
// touches each (agent, counter) pair at most once. Agents whose deltas cancel
// out are omitted. The result is ordered by agent id so concurrent
// transactions lock agent rows in the same order.
func PlanAdjustments(before, after *Snapshot) []Adjustment {
	deltas := make(map[uuid.UUID]*Adjustment, 2)
	contribute := func(s *Snapshot, sign int) {
		if s == nil || s.AssignedTo == nil {
			return
		}
		adj, ok := deltas[*s.AssignedTo]
		if !ok {
			adj = &Adjustment{AgentID: *s.AssignedTo}
			deltas[*s.AssignedTo] = adj
		}
		adj.TotalDelta += sign
		if s.Status.IsConverted() {
			adj.ConvertedDelta += sign
		}
	}
	contribute(before, -1)
	contribute(after, 1)

	plan := make([]Adjustment, 0, len(deltas))
	for _, adj := range deltas {
		if adj.TotalDelta == 0 && adj.ConvertedDelta == 0 {
			continue
		}
		plan = append(plan, *adj)
	}
	sort.Slice(plan, func(i, j int) bool {
		return bytes.Compare(plan[i].AgentID[:], plan[j].AgentID[:]) < 0
	})
	return plan
}
