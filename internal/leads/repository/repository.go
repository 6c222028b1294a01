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
	ErrNotFound       = errors.New("lead not found")
	ErrDuplicateEmail = errors.New("lead email already exists")
	ErrAgentNotFound  = errors.New("agent not found")
	// ErrCounterConstraint means a delta would push agent counters outside
	// 0 <= converted <= total, which only happens when they had already drifted.
	ErrCounterConstraint = errors.New("agent counter constraint violated")
)

type Repository struct {
	q           db.DBTX
	pool        *pgxpool.Pool
	maxAttempts int
}

func New(pool *pgxpool.Pool, maxAttempts int) *Repository {
	return &Repository{q: pool, pool: pool, maxAttempts: maxAttempts}
}

// WithinTx runs fn against a transaction-bound copy of the repository.
func (r *Repository) WithinTx(ctx context.Context, fn func(Tx) error) error {
	if r.pool == nil {
		return errors.New("repository is already bound to a transaction")
	}
	return db.WithTx(ctx, r.pool, r.maxAttempts, func(tx pgx.Tx) error {
		return fn(&Repository{q: tx})
	})
}

type AgentRef struct {
	ID    uuid.UUID
	Name  string
	Email string
	Phone string
}

type Lead struct {
	ID         uuid.UUID
	FirstName  string
	LastName   string
	Email      string
	Phone      string
	Status     string
	AssignedTo *uuid.UUID
	Notes      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Assignee   *AgentRef
}

type CreateLeadParams struct {
	FirstName  string
	LastName   string
	Email      string
	Phone      string
	Status     string
	AssignedTo *uuid.UUID
	Notes      string
}

type UpdateLeadParams struct {
	FirstName     *string
	LastName      *string
	Email         *string
	Phone         *string
	Status        *string
	Notes         *string
	AssignedTo    *uuid.UUID
	AssignedToSet bool
}

type ListParams struct {
	Status     *string
	AssignedTo *uuid.UUID
	Offset     int
	Limit      int
}

const leadColumns = `
	l.id, l.first_name, l.last_name, l.email, l.phone, l.status, l.assigned_to, l.notes, l.created_at, l.updated_at,
	a.id, a.name, a.email, a.phone`

const leadFrom = `
	FROM leads l
	LEFT JOIN agents a ON a.id = l.assigned_to`

type scanner interface {
	Scan(dest ...any) error
}

func scanLead(row scanner) (Lead, error) {
	var (
		lead       Lead
		agentID    *uuid.UUID
		agentName  *string
		agentEmail *string
		agentPhone *string
	)
	err := row.Scan(
		&lead.ID, &lead.FirstName, &lead.LastName, &lead.Email, &lead.Phone, &lead.Status, &lead.AssignedTo, &lead.Notes,
		&lead.CreatedAt, &lead.UpdatedAt,
		&agentID, &agentName, &agentEmail, &agentPhone,
	)
	if err != nil {
		return Lead{}, err
	}
	if agentID != nil {
		lead.Assignee = &AgentRef{ID: *agentID, Name: deref(agentName), Email: deref(agentEmail), Phone: deref(agentPhone)}
	}
	return lead, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (r *Repository) getOne(ctx context.Context, where string, suffix string, arg any) (Lead, error) {
	lead, err := scanLead(r.q.QueryRow(ctx, "SELECT"+leadColumns+leadFrom+" WHERE "+where+suffix, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	return r.getOne(ctx, "l.id = $1", "", id)
}

// GetByIDForUpdate locks the lead row; the assignee join is not locked.
func (r *Repository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (Lead, error) {
	return r.getOne(ctx, "l.id = $1", " FOR UPDATE OF l", id)
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (Lead, error) {
	return r.getOne(ctx, "l.email = $1", "", email)
}

func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (Lead, error) {
	var id uuid.UUID
	err := r.q.QueryRow(ctx, `
		INSERT INTO leads (first_name, last_name, email, phone, status, assigned_to, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, params.FirstName, params.LastName, params.Email, params.Phone, params.Status, params.AssignedTo, params.Notes).Scan(&id)
	if err != nil {
		return Lead{}, translateWriteError(err)
	}
	return r.GetByID(ctx, id)
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, params UpdateLeadParams) (Lead, error) {
	setClauses := []string{"updated_at = now()"}
	args := []interface{}{id}
	argIdx := 2

	set := func(column string, value interface{}) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argIdx))
		args = append(args, value)
		argIdx++
	}
	if params.FirstName != nil {
		set("first_name", *params.FirstName)
	}
	if params.LastName != nil {
		set("last_name", *params.LastName)
	}
	if params.Email != nil {
		set("email", *params.Email)
	}
	if params.Phone != nil {
		set("phone", *params.Phone)
	}
	if params.Status != nil {
		set("status", *params.Status)
	}
	if params.Notes != nil {
		set("notes", *params.Notes)
	}
	if params.AssignedToSet {
		set("assigned_to", params.AssignedTo)
	}

	query := fmt.Sprintf(`UPDATE leads SET %s WHERE id = $1`, strings.Join(setClauses, ", "))
	tag, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return Lead{}, translateWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return Lead{}, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) List(ctx context.Context, params ListParams) ([]Lead, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if params.Status != nil {
		args = append(args, *params.Status)
		where = append(where, fmt.Sprintf("l.status = $%d", len(args)))
	}
	if params.AssignedTo != nil {
		args = append(args, *params.AssignedTo)
		where = append(where, fmt.Sprintf("l.assigned_to = $%d", len(args)))
	}
	whereSQL := strings.Join(where, " AND ")

	var total int
	if err := r.q.QueryRow(ctx, "SELECT COUNT(*) FROM leads l WHERE "+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, params.Limit, params.Offset)
	query := fmt.Sprintf("SELECT%s%s WHERE %s ORDER BY l.created_at DESC, l.id DESC LIMIT $%d OFFSET $%d",
		leadColumns, leadFrom, whereSQL, len(args)-1, len(args))
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, lead)
	}
	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}
	return items, total, nil
}

func translateWriteError(err error) error {
	switch {
	case db.IsUniqueViolation(err):
		return fmt.Errorf("%w: %v", ErrDuplicateEmail, err)
	case db.IsForeignKeyViolation(err):
		return fmt.Errorf("%w: %v", ErrAgentNotFound, err)
	default:
		return err
	}
}
