package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"crm_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound      = errors.New("follow-up not found")
	ErrLeadNotFound  = errors.New("lead not found")
	ErrAgentNotFound = errors.New("agent not found")
)

type LeadRef struct {
	ID        uuid.UUID
	FirstName string
	LastName  string
	Email     string
}

type AgentRef struct {
	ID    uuid.UUID
	Name  string
	Email string
	Phone string
}

type FollowUp struct {
	ID           uuid.UUID
	LeadID       uuid.UUID
	AgentID      uuid.UUID
	Notes        string
	FollowUpDate time.Time
	IsCompleted  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Lead         LeadRef
	Agent        AgentRef
}

type CreateParams struct {
	LeadID       uuid.UUID
	AgentID      uuid.UUID
	Notes        string
	FollowUpDate time.Time
}

type UpdateParams struct {
	Notes        *string
	FollowUpDate *time.Time
	IsCompleted  *bool
}

// Change is the state transition produced by a single Update.
type Change struct {
	PreviousDate time.Time
	Date         time.Time
	WasCompleted bool
	Completed    bool
}

// Rescheduled reports whether an incomplete follow-up moved to a new date.
func (c Change) Rescheduled() bool {
	return !c.Completed && !c.Date.Equal(c.PreviousDate)
}

// JustCompleted reports whether this update flipped the follow-up to completed.
func (c Change) JustCompleted() bool {
	return c.Completed && !c.WasCompleted
}

type ListParams struct {
	AgentID     *uuid.UUID
	LeadID      *uuid.UUID
	IsCompleted *bool
	DueBefore   *time.Time
	Offset      int
	Limit       int
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const followUpSelect = `
	SELECT f.id, f.lead_id, f.agent_id, f.notes, f.follow_up_date, f.is_completed, f.created_at, f.updated_at,
		l.id, l.first_name, l.last_name, l.email,
		a.id, a.name, a.email, a.phone
	FROM follow_ups f
	JOIN leads l ON l.id = f.lead_id
	JOIN agents a ON a.id = f.agent_id`

type scanner interface {
	Scan(dest ...any) error
}

func scanFollowUp(row scanner) (FollowUp, error) {
	var f FollowUp
	err := row.Scan(
		&f.ID, &f.LeadID, &f.AgentID, &f.Notes, &f.FollowUpDate, &f.IsCompleted, &f.CreatedAt, &f.UpdatedAt,
		&f.Lead.ID, &f.Lead.FirstName, &f.Lead.LastName, &f.Lead.Email,
		&f.Agent.ID, &f.Agent.Name, &f.Agent.Email, &f.Agent.Phone,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return FollowUp{}, ErrNotFound
	}
	return f, err
}

func (r *Repository) LeadExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM leads WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

func (r *Repository) AgentExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM agents WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

func (r *Repository) Create(ctx context.Context, params CreateParams) (FollowUp, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `
		INSERT INTO follow_ups (lead_id, agent_id, notes, follow_up_date)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, params.LeadID, params.AgentID, params.Notes, params.FollowUpDate).Scan(&id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			if strings.Contains(db.ConstraintName(err), "agent") {
				return FollowUp{}, ErrAgentNotFound
			}
			return FollowUp{}, ErrLeadNotFound
		}
		return FollowUp{}, err
	}
	return r.GetByID(ctx, id)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (FollowUp, error) {
	return scanFollowUp(r.pool.QueryRow(ctx, followUpSelect+` WHERE f.id = $1`, id))
}

func (r *Repository) List(ctx context.Context, params ListParams) ([]FollowUp, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	add := func(clause string, value interface{}) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if params.AgentID != nil {
		add("f.agent_id = $%d", *params.AgentID)
	}
	if params.LeadID != nil {
		add("f.lead_id = $%d", *params.LeadID)
	}
	if params.IsCompleted != nil {
		add("f.is_completed = $%d", *params.IsCompleted)
	}
	if params.DueBefore != nil {
		add("f.follow_up_date <= $%d", *params.DueBefore)
	}
	whereSQL := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM follow_ups f WHERE "+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := followUpSelect + " WHERE " + whereSQL + " ORDER BY f.follow_up_date ASC, f.id ASC"
	if params.Limit > 0 {
		args = append(args, params.Limit, params.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]FollowUp, 0)
	for rows.Next() {
		f, err := scanFollowUp(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, f)
	}
	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}
	return items, total, nil
}

// Update applies params and reports the date and completion flag as they were
// immediately before and after this statement. The row is locked by the CTE, so
// a concurrent writer is either fully before or fully after the reported change.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (FollowUp, Change, error) {
	setClauses := []string{"updated_at = now()"}
	args := []interface{}{id}
	argIdx := 2

	if params.Notes != nil {
		setClauses = append(setClauses, fmt.Sprintf("notes = $%d", argIdx))
		args = append(args, *params.Notes)
		argIdx++
	}
	if params.FollowUpDate != nil {
		setClauses = append(setClauses, fmt.Sprintf("follow_up_date = $%d", argIdx))
		args = append(args, *params.FollowUpDate)
		argIdx++
	}
	if params.IsCompleted != nil {
		setClauses = append(setClauses, fmt.Sprintf("is_completed = $%d", argIdx))
		args = append(args, *params.IsCompleted)
	}

	query := fmt.Sprintf(`
		WITH prev AS (
			SELECT id, follow_up_date, is_completed FROM follow_ups WHERE id = $1 FOR UPDATE
		)
		UPDATE follow_ups f SET %s
		FROM prev
		WHERE f.id = prev.id
		RETURNING prev.follow_up_date, f.follow_up_date, prev.is_completed, f.is_completed
	`, strings.Join(setClauses, ", "))

	var change Change
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&change.PreviousDate, &change.Date, &change.WasCompleted, &change.Completed,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return FollowUp{}, Change{}, ErrNotFound
	}
	if err != nil {
		return FollowUp{}, Change{}, err
	}

	followUp, err := r.GetByID(ctx, id)
	if err != nil {
		return FollowUp{}, Change{}, err
	}
	return followUp, change, nil
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM follow_ups WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
