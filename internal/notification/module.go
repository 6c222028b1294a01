// Package notification reacts to domain events. Every event is logged and,
// when a broker is configured, relayed as JSON with the event name as
// routing key so downstream consumers can fan out emails or dashboards.
package notification

import (
	"context"
	"encoding/json"
	"time"

	"crm_backend/internal/events"
	"crm_backend/platform/logger"

	"github.com/google/uuid"
)

// Publisher relays an encoded event. A nil Publisher disables relaying.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

// Envelope is the wire shape of relayed events.
type Envelope struct {
	Name       string       `json:"name"`
	OccurredAt time.Time    `json:"occurredAt"`
	Payload    events.Event `json:"payload"`
}

type Module struct {
	publisher Publisher
	log       *logger.Logger
}

func New(publisher Publisher, log *logger.Logger) *Module {
	return &Module{publisher: publisher, log: log}
}

var relayedEvents = []string{
	events.NameLeadCreated,
	events.NameLeadUpdated,
	events.NameLeadAssigned,
	events.NameLeadStatusChanged,
	events.NameLeadDeleted,
	events.NameAgentCountersReconciled,
	events.NameAgentCountersDrifted,
	events.NameFollowUpCreated,
	events.NameFollowUpCompleted,
	events.NameFollowUpDue,
}

func (m *Module) RegisterHandlers(bus events.Bus) {
	for _, name := range relayedEvents {
		bus.Subscribe(name, m)
	}
	m.log.Info("notification module registered event handlers", "relay", m.publisher != nil)
}

// Handle logs the event and relays it.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	m.logEvent(event)
	if m.publisher == nil {
		return nil
	}

	body, err := json.Marshal(Envelope{Name: event.EventName(), OccurredAt: event.OccurredAt(), Payload: event})
	if err != nil {
		return err
	}
	return m.publisher.Publish(ctx, event.EventName(), body)
}

func (m *Module) logEvent(event events.Event) {
	switch e := event.(type) {
	case events.LeadAssigned:
		m.log.Info("lead assignment changed",
			"lead_id", e.LeadID.String(),
			"from_agent_id", uuidString(e.FromAgentID),
			"to_agent_id", uuidString(e.ToAgentID),
		)
	case events.LeadStatusChanged:
		m.log.Info("lead status changed",
			"lead_id", e.LeadID.String(),
			"old_status", e.OldStatus,
			"new_status", e.NewStatus,
		)
	case events.AgentCountersDrifted:
		m.log.Error("agent counters drifted",
			"agent_id", e.AgentID.String(),
			"lead_id", e.LeadID.String(),
			"operation", e.Operation,
		)
	case events.AgentCountersReconciled:
		m.log.Info("agent counters reconciled",
			"agent_id", e.AgentID.String(),
			"total_leads", e.TotalLeads,
			"converted_leads", e.ConvertedLeads,
		)
	case events.FollowUpDue:
		m.log.Info("follow-up due",
			"follow_up_id", e.FollowUpID.String(),
			"agent_id", e.AgentID.String(),
			"follow_up_date", e.FollowUpDate,
		)
	default:
		m.log.Debug("domain event", "event", event.EventName())
	}
}

func uuidString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
