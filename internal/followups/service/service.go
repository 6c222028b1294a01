// Package service implements follow-up reminders. Follow-ups only reference
// leads and agents; they never change agent counters.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"crm_backend/internal/events"
	"crm_backend/internal/followups/repository"
	"crm_backend/internal/followups/transport"
	"crm_backend/platform/apperr"
	"crm_backend/platform/logger"
	"crm_backend/platform/paging"
	"crm_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	msgFollowUpNotFound = "Follow-up not found"
	msgLeadNotFound     = "Lead not found"
	msgAgentNotFound    = "Agent not found"
)

// ReminderScheduler enqueues a due notification for a follow-up.
type ReminderScheduler interface {
	ScheduleFollowUpReminder(ctx context.Context, followUpID uuid.UUID, dueAt time.Time) error
}

type Service struct {
	repo      repository.FollowUpsRepository
	bus       events.Bus
	reminders ReminderScheduler
	log       *logger.Logger
	now       func() time.Time
}

// New creates a follow-up service. reminders may be nil when no scheduler is configured.
func New(repo repository.FollowUpsRepository, bus events.Bus, reminders ReminderScheduler, log *logger.Logger) *Service {
	return &Service{repo: repo, bus: bus, reminders: reminders, log: log, now: time.Now}
}

func (s *Service) Create(ctx context.Context, req transport.CreateFollowUpRequest) (transport.FollowUpResponse, error) {
	notes := sanitize.Text(req.Notes)
	switch {
	case req.LeadID == uuid.Nil || req.AgentID == uuid.Nil:
		return transport.FollowUpResponse{}, apperr.Validation("leadId and agentId are required")
	case notes == "":
		return transport.FollowUpResponse{}, apperr.Validation("notes are required")
	case req.FollowUpDate.IsZero():
		return transport.FollowUpResponse{}, apperr.Validation("followUpDate is required")
	}

	if err := s.ensureReferences(ctx, req.LeadID, req.AgentID); err != nil {
		return transport.FollowUpResponse{}, err
	}

	followUp, err := s.repo.Create(ctx, repository.CreateParams{
		LeadID:       req.LeadID,
		AgentID:      req.AgentID,
		Notes:        notes,
		FollowUpDate: req.FollowUpDate.UTC(),
	})
	if err != nil {
		return transport.FollowUpResponse{}, translate(err)
	}

	s.scheduleReminder(ctx, followUp.ID, followUp.FollowUpDate)
	s.bus.Publish(ctx, events.FollowUpCreated{
		BaseEvent:    events.NewBaseEvent(),
		FollowUpID:   followUp.ID,
		LeadID:       followUp.LeadID,
		AgentID:      followUp.AgentID,
		FollowUpDate: followUp.FollowUpDate,
	})
	return toResponse(followUp), nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.FollowUpResponse, error) {
	followUp, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.FollowUpResponse{}, translate(err)
	}
	return toResponse(followUp), nil
}

func (s *Service) List(ctx context.Context, req transport.ListFollowUpsRequest) (transport.FollowUpListResponse, error) {
	page, limit, offset := paging.Normalize(req.Page, req.Limit)
	params := repository.ListParams{Offset: offset, Limit: limit}

	var err error
	if params.AgentID, err = parseOptionalUUID(req.AgentID, "agentId"); err != nil {
		return transport.FollowUpListResponse{}, err
	}
	if params.LeadID, err = parseOptionalUUID(req.LeadID, "leadId"); err != nil {
		return transport.FollowUpListResponse{}, err
	}
	if req.IsCompleted != "" {
		completed := req.IsCompleted == "true"
		params.IsCompleted = &completed
	}

	items, total, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.FollowUpListResponse{}, err
	}
	return transport.FollowUpListResponse{Items: toResponses(items), Total: total, Page: page, Limit: limit}, nil
}

// Pending returns incomplete follow-ups due now or earlier, oldest first.
func (s *Service) Pending(ctx context.Context, req transport.PendingFollowUpsRequest) ([]transport.FollowUpResponse, error) {
	agentID, err := parseOptionalUUID(req.AgentID, "agentId")
	if err != nil {
		return nil, err
	}
	completed := false
	now := s.now().UTC()
	items, _, err := s.repo.List(ctx, repository.ListParams{AgentID: agentID, IsCompleted: &completed, DueBefore: &now})
	if err != nil {
		return nil, err
	}
	return toResponses(items), nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateFollowUpRequest) (transport.FollowUpResponse, error) {
	params := repository.UpdateParams{Notes: sanitize.TextPtr(req.Notes), IsCompleted: req.IsCompleted}
	if params.Notes != nil && *params.Notes == "" {
		return transport.FollowUpResponse{}, apperr.Validation("notes cannot be empty")
	}
	if req.FollowUpDate != nil {
		if req.FollowUpDate.IsZero() {
			return transport.FollowUpResponse{}, apperr.Validation("followUpDate cannot be empty")
		}
		due := req.FollowUpDate.UTC()
		params.FollowUpDate = &due
	}

	followUp, change, err := s.repo.Update(ctx, id, params)
	if err != nil {
		return transport.FollowUpResponse{}, translate(err)
	}

	// Decisions follow the transition this statement made, not the row as
	// reloaded afterwards, which a later writer may already have changed.
	if change.Rescheduled() {
		s.scheduleReminder(ctx, followUp.ID, change.Date)
	}
	if change.JustCompleted() {
		s.publishCompleted(ctx, followUp)
	}
	return toResponse(followUp), nil
}

// Complete marks a follow-up done. Completing twice is a no-op.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (transport.FollowUpResponse, error) {
	done := true
	return s.Update(ctx, id, transport.UpdateFollowUpRequest{IsCompleted: &done})
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return translate(s.repo.Delete(ctx, id))
}

func (s *Service) ensureReferences(ctx context.Context, leadID, agentID uuid.UUID) error {
	leadExists, err := s.repo.LeadExists(ctx, leadID)
	if err != nil {
		return err
	}
	if !leadExists {
		return apperr.NotFound(msgLeadNotFound)
	}
	agentExists, err := s.repo.AgentExists(ctx, agentID)
	if err != nil {
		return err
	}
	if !agentExists {
		return apperr.NotFound(msgAgentNotFound)
	}
	return nil
}

// scheduleReminder is best-effort; a scheduler outage must not fail the request.
func (s *Service) scheduleReminder(ctx context.Context, id uuid.UUID, dueAt time.Time) {
	if s.reminders == nil {
		return
	}
	if err := s.reminders.ScheduleFollowUpReminder(ctx, id, dueAt); err != nil {
		s.log.WithContext(ctx).Warn("failed to schedule follow-up reminder",
			"follow_up_id", id.String(),
			"error", err.Error(),
		)
	}
}

func (s *Service) publishCompleted(ctx context.Context, followUp repository.FollowUp) {
	s.bus.Publish(ctx, events.FollowUpCompleted{
		BaseEvent:  events.NewBaseEvent(),
		FollowUpID: followUp.ID,
		AgentID:    followUp.AgentID,
	})
}

func parseOptionalUUID(raw, name string) (*uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperr.Validation("invalid " + name)
	}
	return &id, nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound(msgFollowUpNotFound)
	case errors.Is(err, repository.ErrLeadNotFound):
		return apperr.NotFound(msgLeadNotFound)
	case errors.Is(err, repository.ErrAgentNotFound):
		return apperr.NotFound(msgAgentNotFound)
	default:
		return err
	}
}

func toResponses(items []repository.FollowUp) []transport.FollowUpResponse {
	out := make([]transport.FollowUpResponse, 0, len(items))
	for _, item := range items {
		out = append(out, toResponse(item))
	}
	return out
}

func toResponse(f repository.FollowUp) transport.FollowUpResponse {
	return transport.FollowUpResponse{
		ID: f.ID,
		LeadID: transport.LeadSummary{
			ID:        f.Lead.ID,
			FirstName: f.Lead.FirstName,
			LastName:  f.Lead.LastName,
			Email:     f.Lead.Email,
		},
		AgentID: transport.AgentSummary{
			ID:    f.Agent.ID,
			Name:  f.Agent.Name,
			Email: f.Agent.Email,
			Phone: f.Agent.Phone,
		},
		Notes:        f.Notes,
		FollowUpDate: f.FollowUpDate,
		IsCompleted:  f.IsCompleted,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}
