// Package repository reads the aggregates behind the analytics endpoints.
// It never writes.
package repository

import (
	"context"

	"crm_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Reader is the read surface the analytics service depends on. A nil agentID
// means "all agents".
type Reader interface {
	CountLeadsByStatus(ctx context.Context, agentID *uuid.UUID) (map[string]int, error)
	CountFollowUps(ctx context.Context, agentID *uuid.UUID) (FollowUpCounts, error)
	AgentExists(ctx context.Context, agentID uuid.UUID) (bool, error)
}

type FollowUpCounts struct {
	Total     int
	Completed int
}

type Repository struct {
	q db.DBTX
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{q: pool}
}

func (r *Repository) CountLeadsByStatus(ctx context.Context, agentID *uuid.UUID) (map[string]int, error) {
	rows, err := r.q.Query(ctx, `
		SELECT status, COUNT(*)
		FROM leads
		WHERE ($1::uuid IS NULL OR assigned_to = $1)
		GROUP BY status
	`, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func (r *Repository) CountFollowUps(ctx context.Context, agentID *uuid.UUID) (FollowUpCounts, error) {
	var counts FollowUpCounts
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE is_completed)
		FROM follow_ups
		WHERE ($1::uuid IS NULL OR agent_id = $1)
	`, agentID).Scan(&counts.Total, &counts.Completed)
	return counts, err
}

func (r *Repository) AgentExists(ctx context.Context, agentID uuid.UUID) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM agents WHERE id = $1)`, agentID).Scan(&exists)
	return exists, err
}

var _ Reader = (*Repository)(nil)
