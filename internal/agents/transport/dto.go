package transport

import (
	"time"

	"github.com/google/uuid"
)

type CreateAgentRequest struct {
	Name  string `json:"name" validate:"required,max=100"`
	Email string `json:"email" validate:"required,email,max=254"`
	Phone string `json:"phone" validate:"required,min=3,max=32"`
}

// UpdateAgentRequest has no counter fields; clients cannot set them.
type UpdateAgentRequest struct {
	Name  *string `json:"name" validate:"omitempty,max=100"`
	Email *string `json:"email" validate:"omitempty,email,max=254"`
	Phone *string `json:"phone" validate:"omitempty,max=32"`
}

type ListAgentsRequest struct {
	Page  int `form:"page" validate:"omitempty,min=1"`
	Limit int `form:"limit" validate:"omitempty,min=1,max=100"`
}

type AgentResponse struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	TotalLeads     int       `json:"totalLeads"`
	ConvertedLeads int       `json:"convertedLeads"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type AgentListResponse struct {
	Items []AgentResponse
	Total int
	Page  int
	Limit int
}

type ReconcileResponse struct {
	Agent                  AgentResponse `json:"agent"`
	PreviousTotalLeads     int           `json:"previousTotalLeads"`
	PreviousConvertedLeads int           `json:"previousConvertedLeads"`
	Changed                bool          `json:"changed"`
}
