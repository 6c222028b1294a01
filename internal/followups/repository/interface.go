package repository

import (
	"context"

	"github.com/google/uuid"
)

// Reader loads follow-ups with their lead and agent populated.
type Reader interface {
	GetByID(ctx context.Context, id uuid.UUID) (FollowUp, error)
	List(ctx context.Context, params ListParams) ([]FollowUp, int, error)
}

// Writer mutates follow-ups.
type Writer interface {
	Create(ctx context.Context, params CreateParams) (FollowUp, error)
	Update(ctx context.Context, id uuid.UUID, params UpdateParams) (FollowUp, Change, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ReferenceChecker verifies the lead and agent a follow-up points at.
type ReferenceChecker interface {
	LeadExists(ctx context.Context, id uuid.UUID) (bool, error)
	AgentExists(ctx context.Context, id uuid.UUID) (bool, error)
}

// FollowUpsRepository is the store the follow-up service depends on.
type FollowUpsRepository interface {
	Reader
	Writer
	ReferenceChecker
}

var _ FollowUpsRepository = (*Repository)(nil)
