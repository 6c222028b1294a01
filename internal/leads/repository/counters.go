package repository

import (
	"context"
	"fmt"

	"crm_backend/platform/db"

	"github.com/google/uuid"
)

func (r *Repository) AgentExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM agents WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

// AdjustAgentCounters adds the deltas to an agent's counters in a single
// statement. The agents_counters_check constraint rejects results outside
// 0 <= converted_leads <= total_leads.
func (r *Repository) AdjustAgentCounters(ctx context.Context, agentID uuid.UUID, totalDelta, convertedDelta int) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE agents
		SET total_leads = total_leads + $2,
			converted_leads = converted_leads + $3,
			updated_at = now()
		WHERE id = $1
	`, agentID, totalDelta, convertedDelta)
	if err != nil {
		if db.IsCheckViolation(err) {
			return fmt.Errorf("%w: %v", ErrCounterConstraint, err)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAgentNotFound
	}
	return nil
}
