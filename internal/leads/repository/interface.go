package repository

import (
	"context"

	"github.com/google/uuid"
)

// LeadReader reads leads with their assignee populated.
type LeadReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (Lead, error)
	GetByEmail(ctx context.Context, email string) (Lead, error)
	List(ctx context.Context, params ListParams) ([]Lead, int, error)
}

// LeadWriter mutates lead rows.
type LeadWriter interface {
	Create(ctx context.Context, params CreateLeadParams) (Lead, error)
	Update(ctx context.Context, id uuid.UUID, params UpdateLeadParams) (Lead, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// LeadLocker reads a lead and holds its row lock until the transaction ends.
type LeadLocker interface {
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (Lead, error)
}

// AgentCounterWriter checks agent references and applies counter deltas.
type AgentCounterWriter interface {
	AgentExists(ctx context.Context, id uuid.UUID) (bool, error)
	AdjustAgentCounters(ctx context.Context, agentID uuid.UUID, totalDelta, convertedDelta int) error
}

// Tx is everything a lead mutation may do inside one transaction.
type Tx interface {
	LeadReader
	LeadWriter
	LeadLocker
	AgentCounterWriter
}

// Transactor runs fn inside a transaction committed when fn returns nil.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(Tx) error) error
}

// LeadsRepository is the full store the lead service depends on.
type LeadsRepository interface {
	LeadReader
	Transactor
}

var (
	_ Tx              = (*Repository)(nil)
	_ LeadsRepository = (*Repository)(nil)
)
