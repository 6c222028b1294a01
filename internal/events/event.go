// Package events defines the CRM domain events. The bus itself lives in
// platform/events; its types are aliased here so modules import one package.
package events

import (
	"time"

	"crm_backend/platform/events"
	"crm_backend/platform/logger"

	"github.com/google/uuid"
)

type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

var NewBaseEvent = events.NewBaseEvent

func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return events.NewInMemoryBus(log)
}

// Event names.
const (
	NameLeadCreated             = "leads.created"
	NameLeadUpdated             = "leads.updated"
	NameLeadAssigned            = "leads.assigned"
	NameLeadStatusChanged       = "leads.status_changed"
	NameLeadDeleted             = "leads.deleted"
	NameAgentCountersReconciled = "agents.counters_reconciled"
	NameAgentCountersDrifted    = "agents.counters_inconsistent"
	NameFollowUpCreated         = "followups.created"
	NameFollowUpCompleted       = "followups.completed"
	NameFollowUpDue             = "followups.due"
)

// =============================================================================
// Lead Domain Events
// =============================================================================

// LeadCreated is published after a lead and its counter adjustments commit.
type LeadCreated struct {
	BaseEvent
	LeadID     uuid.UUID  `json:"leadId"`
	Email      string     `json:"email"`
	Status     string     `json:"status"`
	AssignedTo *uuid.UUID `json:"assignedTo,omitempty"`
}

func (e LeadCreated) EventName() string { return NameLeadCreated }

// LeadUpdated is published after any committed lead update.
type LeadUpdated struct {
	BaseEvent
	LeadID uuid.UUID `json:"leadId"`
}

func (e LeadUpdated) EventName() string { return NameLeadUpdated }

// LeadAssigned is published when a lead's assignee changes, including unassignment.
type LeadAssigned struct {
	BaseEvent
	LeadID       uuid.UUID  `json:"leadId"`
	FromAgentID  *uuid.UUID `json:"fromAgentId,omitempty"`
	ToAgentID    *uuid.UUID `json:"toAgentId,omitempty"`
	LeadFullName string     `json:"leadName"`
}

func (e LeadAssigned) EventName() string { return NameLeadAssigned }

// LeadStatusChanged is published when a lead moves between lifecycle states.
type LeadStatusChanged struct {
	BaseEvent
	LeadID     uuid.UUID  `json:"leadId"`
	OldStatus  string     `json:"oldStatus"`
	NewStatus  string     `json:"newStatus"`
	AssignedTo *uuid.UUID `json:"assignedTo,omitempty"`
}

func (e LeadStatusChanged) EventName() string { return NameLeadStatusChanged }

// LeadDeleted is published after a lead is removed.
type LeadDeleted struct {
	BaseEvent
	LeadID     uuid.UUID  `json:"leadId"`
	AssignedTo *uuid.UUID `json:"assignedTo,omitempty"`
}

func (e LeadDeleted) EventName() string { return NameLeadDeleted }

// =============================================================================
// Agent Domain Events
// =============================================================================

// AgentCountersReconciled is published after counters are recomputed from leads.
type AgentCountersReconciled struct {
	BaseEvent
	AgentID                uuid.UUID `json:"agentId"`
	PreviousTotalLeads     int       `json:"previousTotalLeads"`
	PreviousConvertedLeads int       `json:"previousConvertedLeads"`
	TotalLeads             int       `json:"totalLeads"`
	ConvertedLeads         int       `json:"convertedLeads"`
}

func (e AgentCountersReconciled) EventName() string { return NameAgentCountersReconciled }

// AgentCountersDrifted is published when a counter delta was rejected by the store.
type AgentCountersDrifted struct {
	BaseEvent
	AgentID   uuid.UUID `json:"agentId"`
	LeadID    uuid.UUID `json:"leadId"`
	Operation string    `json:"operation"`
}

func (e AgentCountersDrifted) EventName() string { return NameAgentCountersDrifted }

// =============================================================================
// Follow-up Domain Events
// =============================================================================

// FollowUpCreated is published after a follow-up is stored.
type FollowUpCreated struct {
	BaseEvent
	FollowUpID   uuid.UUID `json:"followUpId"`
	LeadID       uuid.UUID `json:"leadId"`
	AgentID      uuid.UUID `json:"agentId"`
	FollowUpDate time.Time `json:"followUpDate"`
}

func (e FollowUpCreated) EventName() string { return NameFollowUpCreated }

// FollowUpCompleted is published when a follow-up is marked completed.
type FollowUpCompleted struct {
	BaseEvent
	FollowUpID uuid.UUID `json:"followUpId"`
	AgentID    uuid.UUID `json:"agentId"`
}

func (e FollowUpCompleted) EventName() string { return NameFollowUpCompleted }

// FollowUpDue is published by the scheduler worker when an incomplete follow-up comes due.
type FollowUpDue struct {
	BaseEvent
	FollowUpID   uuid.UUID `json:"followUpId"`
	LeadID       uuid.UUID `json:"leadId"`
	AgentID      uuid.UUID `json:"agentId"`
	FollowUpDate time.Time `json:"followUpDate"`
	Notes        string    `json:"notes"`
}

func (e FollowUpDue) EventName() string { return NameFollowUpDue }
