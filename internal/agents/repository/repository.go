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
	ErrNotFound       = errors.New("agent not found")
	ErrDuplicateEmail = errors.New("agent email already exists")
	ErrHasLeads       = errors.New("agent still has assigned leads")
)

type Agent struct {
	ID             uuid.UUID
	Name           string
	Email          string
	Phone          string
	TotalLeads     int
	ConvertedLeads int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type CreateAgentParams struct {
	Name  string
	Email string
	Phone string
}

type UpdateAgentParams struct {
	Name  *string
	Email *string
	Phone *string
}

// Recount holds counters before and after recomputation.
type Recount struct {
	Agent                  Agent
	PreviousTotalLeads     int
	PreviousConvertedLeads int
}

// Repository is the pgx-backed agent store.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const agentColumns = `id, name, email, phone, total_leads, converted_leads, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanAgent(row scanner) (Agent, error) {
	var a Agent
	err := row.Scan(&a.ID, &a.Name, &a.Email, &a.Phone, &a.TotalLeads, &a.ConvertedLeads, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Agent{}, ErrNotFound
	}
	return a, err
}

func (r *Repository) Create(ctx context.Context, params CreateAgentParams) (Agent, error) {
	agent, err := scanAgent(r.pool.QueryRow(ctx, `
		INSERT INTO agents (name, email, phone)
		VALUES ($1, $2, $3)
		RETURNING `+agentColumns,
		params.Name, params.Email, params.Phone,
	))
	if db.IsUniqueViolation(err) {
		return Agent{}, ErrDuplicateEmail
	}
	return agent, err
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Agent, error) {
	return scanAgent(r.pool.QueryRow(ctx, `SELECT `+agentColumns+` FROM agents WHERE id = $1`, id))
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (Agent, error) {
	return scanAgent(r.pool.QueryRow(ctx, `SELECT `+agentColumns+` FROM agents WHERE email = $1`, email))
}

func (r *Repository) List(ctx context.Context, offset, limit int) ([]Agent, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM agents`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+agentColumns+`
		FROM agents
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]Agent, 0)
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, agent)
	}
	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}
	return items, total, nil
}

// Update never touches the counters; only lead mutations and Recount do.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, params UpdateAgentParams) (Agent, error) {
	setClauses := []string{"updated_at = now()"}
	args := []interface{}{id}
	argIdx := 2

	if params.Name != nil {
		setClauses = append(setClauses, fmt.Sprintf("name = $%d", argIdx))
		args = append(args, *params.Name)
		argIdx++
	}
	if params.Email != nil {
		setClauses = append(setClauses, fmt.Sprintf("email = $%d", argIdx))
		args = append(args, *params.Email)
		argIdx++
	}
	if params.Phone != nil {
		setClauses = append(setClauses, fmt.Sprintf("phone = $%d", argIdx))
		args = append(args, *params.Phone)
	}

	query := fmt.Sprintf(`UPDATE agents SET %s WHERE id = $1 RETURNING %s`, strings.Join(setClauses, ", "), agentColumns)
	agent, err := scanAgent(r.pool.QueryRow(ctx, query, args...))
	if db.IsUniqueViolation(err) {
		return Agent{}, ErrDuplicateEmail
	}
	return agent, err
}

// Delete removes an agent without assigned leads. Their follow-ups cascade.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM agents
		WHERE id = $1 AND NOT EXISTS (SELECT 1 FROM leads WHERE assigned_to = $1)
	`, id)
	if db.IsForeignKeyViolation(err) {
		return ErrHasLeads
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return ErrHasLeads
}

// Recount recomputes an agent's counters from the leads table.
func (r *Repository) Recount(ctx context.Context, id uuid.UUID) (Recount, error) {
	var result Recount
	err := db.WithTx(ctx, r.pool, 3, func(tx pgx.Tx) error {
		current, err := scanAgent(tx.QueryRow(ctx, `SELECT `+agentColumns+` FROM agents WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		updated, err := scanAgent(tx.QueryRow(ctx, `
			UPDATE agents SET
				total_leads = (SELECT COUNT(*) FROM leads WHERE assigned_to = $1),
				converted_leads = (SELECT COUNT(*) FROM leads WHERE assigned_to = $1 AND status = 'Converted'),
				updated_at = now()
			WHERE id = $1
			RETURNING `+agentColumns, id))
		if err != nil {
			return err
		}
		result = Recount{
			Agent:                  updated,
			PreviousTotalLeads:     current.TotalLeads,
			PreviousConvertedLeads: current.ConvertedLeads,
		}
		return nil
	})
	return result, err
}
