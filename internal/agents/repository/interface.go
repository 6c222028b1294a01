package repository

import (
	"context"

	"github.com/google/uuid"
)

// AgentReader reads agents.
type AgentReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (Agent, error)
	GetByEmail(ctx context.Context, email string) (Agent, error)
	List(ctx context.Context, offset, limit int) ([]Agent, int, error)
}

// AgentWriter mutates agents.
type AgentWriter interface {
	Create(ctx context.Context, params CreateAgentParams) (Agent, error)
	Update(ctx context.Context, id uuid.UUID, params UpdateAgentParams) (Agent, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Recount(ctx context.Context, id uuid.UUID) (Recount, error)
}

// AgentsRepository is the store the agent service depends on.
type AgentsRepository interface {
	AgentReader
	AgentWriter
}

var _ AgentsRepository = (*Repository)(nil)
