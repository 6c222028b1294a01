package transport

import (
	"time"

	"github.com/google/uuid"
)

type CreateFollowUpRequest struct {
	LeadID       uuid.UUID `json:"leadId" validate:"required"`
	AgentID      uuid.UUID `json:"agentId" validate:"required"`
	Notes        string    `json:"notes" validate:"required,max=5000"`
	FollowUpDate time.Time `json:"followUpDate" validate:"required"`
}

type UpdateFollowUpRequest struct {
	Notes        *string    `json:"notes" validate:"omitempty,max=5000"`
	FollowUpDate *time.Time `json:"followUpDate"`
	IsCompleted  *bool      `json:"isCompleted"`
}

type ListFollowUpsRequest struct {
	AgentID     string `form:"agentId" validate:"omitempty,uuid"`
	LeadID      string `form:"leadId" validate:"omitempty,uuid"`
	IsCompleted string `form:"isCompleted" validate:"omitempty,oneof=true false"`
	Page        int    `form:"page" validate:"omitempty,min=1"`
	Limit       int    `form:"limit" validate:"omitempty,min=1,max=100"`
}

type PendingFollowUpsRequest struct {
	AgentID string `form:"agentId" validate:"omitempty,uuid"`
}

type LeadSummary struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
}

type AgentSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Phone string    `json:"phone"`
}

type FollowUpResponse struct {
	ID           uuid.UUID    `json:"id"`
	LeadID       LeadSummary  `json:"leadId"`
	AgentID      AgentSummary `json:"agentId"`
	Notes        string       `json:"notes"`
	FollowUpDate time.Time    `json:"followUpDate"`
	IsCompleted  bool         `json:"isCompleted"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

type FollowUpListResponse struct {
	Items []FollowUpResponse
	Total int
	Page  int
	Limit int
}
