package transport

import (
	"time"

	"github.com/google/uuid"
)

type CreateLeadRequest struct {
	FirstName  string       `json:"firstName" validate:"required,max=100"`
	LastName   string       `json:"lastName" validate:"required,max=100"`
	Email      string       `json:"email" validate:"required,email,max=254"`
	Phone      string       `json:"phone" validate:"required,min=3,max=32"`
	Status     string       `json:"status" validate:"omitempty,leadstatus"`
	AssignedTo OptionalUUID `json:"assignedTo"`
	Notes      string       `json:"notes" validate:"max=5000"`
}

// UpdateLeadRequest only changes fields present in the body. assignedTo set
// to null or "" unassigns the lead.
type UpdateLeadRequest struct {
	FirstName  *string      `json:"firstName" validate:"omitempty,max=100"`
	LastName   *string      `json:"lastName" validate:"omitempty,max=100"`
	Email      *string      `json:"email" validate:"omitempty,email,max=254"`
	Phone      *string      `json:"phone" validate:"omitempty,max=32"`
	Status     *string      `json:"status" validate:"omitempty,leadstatus"`
	AssignedTo OptionalUUID `json:"assignedTo"`
	Notes      *string      `json:"notes" validate:"omitempty,max=5000"`
}

type AssignLeadRequest struct {
	AgentID OptionalUUID `json:"agentId"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,leadstatus"`
}

type ListLeadsRequest struct {
	Status     string `form:"status" validate:"omitempty,leadstatus"`
	AssignedTo string `form:"assignedTo" validate:"omitempty,uuid"`
	Page       int    `form:"page" validate:"omitempty,min=1"`
	Limit      int    `form:"limit" validate:"omitempty,min=1,max=100"`
}

type AgentSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Phone string    `json:"phone"`
}

type LeadResponse struct {
	ID         uuid.UUID     `json:"id"`
	FirstName  string        `json:"firstName"`
	LastName   string        `json:"lastName"`
	Email      string        `json:"email"`
	Phone      string        `json:"phone"`
	Status     string        `json:"status"`
	AssignedTo *AgentSummary `json:"assignedTo"`
	Notes      string        `json:"notes"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

type LeadListResponse struct {
	Items []LeadResponse
	Total int
	Page  int
	Limit int
}
