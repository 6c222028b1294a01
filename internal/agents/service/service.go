package service

import (
	"context"
	"errors"
	"strings"

	"crm_backend/internal/agents/repository"
	"crm_backend/internal/agents/transport"
	"crm_backend/internal/events"
	"crm_backend/platform/apperr"
	"crm_backend/platform/logger"
	"crm_backend/platform/metrics"
	"crm_backend/platform/paging"
	"crm_backend/platform/phone"
	"crm_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	msgAgentNotFound  = "Agent not found"
	msgDuplicateEmail = "Agent with this email already exists"
	msgHasLeads       = "Agent still has assigned leads; reassign or delete them first"
)

type Service struct {
	repo  repository.AgentsRepository
	bus   events.Bus
	phone *phone.Normalizer
	log   *logger.Logger
}

func New(repo repository.AgentsRepository, bus events.Bus, phones *phone.Normalizer, log *logger.Logger) *Service {
	return &Service{repo: repo, bus: bus, phone: phones, log: log}
}

func (s *Service) Create(ctx context.Context, req transport.CreateAgentRequest) (transport.AgentResponse, error) {
	params := repository.CreateAgentParams{
		Name:  strings.TrimSpace(req.Name),
		Email: sanitize.Email(req.Email),
		Phone: s.phone.E164(req.Phone),
	}
	if params.Name == "" || params.Email == "" || params.Phone == "" {
		return transport.AgentResponse{}, apperr.Validation("name, email and phone are required")
	}
	if err := s.ensureEmailFree(ctx, params.Email, uuid.Nil); err != nil {
		return transport.AgentResponse{}, err
	}

	agent, err := s.repo.Create(ctx, params)
	if err != nil {
		return transport.AgentResponse{}, translate(err)
	}
	return toAgentResponse(agent), nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.AgentResponse, error) {
	agent, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.AgentResponse{}, translate(err)
	}
	return toAgentResponse(agent), nil
}

func (s *Service) List(ctx context.Context, req transport.ListAgentsRequest) (transport.AgentListResponse, error) {
	page, limit, offset := paging.Normalize(req.Page, req.Limit)
	agents, total, err := s.repo.List(ctx, offset, limit)
	if err != nil {
		return transport.AgentListResponse{}, err
	}
	items := make([]transport.AgentResponse, 0, len(agents))
	for _, agent := range agents {
		items = append(items, toAgentResponse(agent))
	}
	return transport.AgentListResponse{Items: items, Total: total, Page: page, Limit: limit}, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateAgentRequest) (transport.AgentResponse, error) {
	params := repository.UpdateAgentParams{Email: sanitize.EmailPtr(req.Email)}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return transport.AgentResponse{}, apperr.Validation("name cannot be empty")
		}
		params.Name = &name
	}
	if req.Phone != nil {
		normalized := s.phone.E164(*req.Phone)
		if normalized == "" {
			return transport.AgentResponse{}, apperr.Validation("phone cannot be empty")
		}
		params.Phone = &normalized
	}
	if params.Email != nil {
		if *params.Email == "" {
			return transport.AgentResponse{}, apperr.Validation("email cannot be empty")
		}
		if err := s.ensureEmailFree(ctx, *params.Email, id); err != nil {
			return transport.AgentResponse{}, err
		}
	}

	agent, err := s.repo.Update(ctx, id, params)
	if err != nil {
		return transport.AgentResponse{}, translate(err)
	}
	return toAgentResponse(agent), nil
}

// Delete refuses agents that still own leads so no lead is left pointing at
// a missing agent.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return translate(s.repo.Delete(ctx, id))
}

// Reconcile recomputes the agent's counters from its leads. It is the repair
// path for Inconsistent errors.
func (s *Service) Reconcile(ctx context.Context, id uuid.UUID) (transport.ReconcileResponse, error) {
	result, err := s.repo.Recount(ctx, id)
	if err != nil {
		return transport.ReconcileResponse{}, translate(err)
	}
	metrics.RecordCounterRepair()

	changed := result.PreviousTotalLeads != result.Agent.TotalLeads || result.PreviousConvertedLeads != result.Agent.ConvertedLeads
	if changed {
		s.log.WithContext(ctx).Warn("agent counters reconciled",
			"agent_id", id.String(),
			"previous_total", result.PreviousTotalLeads,
			"previous_converted", result.PreviousConvertedLeads,
			"total", result.Agent.TotalLeads,
			"converted", result.Agent.ConvertedLeads,
		)
	}
	s.bus.Publish(ctx, events.AgentCountersReconciled{
		BaseEvent:              events.NewBaseEvent(),
		AgentID:                id,
		PreviousTotalLeads:     result.PreviousTotalLeads,
		PreviousConvertedLeads: result.PreviousConvertedLeads,
		TotalLeads:             result.Agent.TotalLeads,
		ConvertedLeads:         result.Agent.ConvertedLeads,
	})

	return transport.ReconcileResponse{
		Agent:                  toAgentResponse(result.Agent),
		PreviousTotalLeads:     result.PreviousTotalLeads,
		PreviousConvertedLeads: result.PreviousConvertedLeads,
		Changed:                changed,
	}, nil
}

func (s *Service) ensureEmailFree(ctx context.Context, email string, self uuid.UUID) error {
	existing, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID != self {
		return apperr.Conflict(msgDuplicateEmail)
	}
	return nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound(msgAgentNotFound)
	case errors.Is(err, repository.ErrDuplicateEmail):
		return apperr.Conflict(msgDuplicateEmail)
	case errors.Is(err, repository.ErrHasLeads):
		return apperr.Conflict(msgHasLeads)
	default:
		return err
	}
}

func toAgentResponse(agent repository.Agent) transport.AgentResponse {
	return transport.AgentResponse{
		ID:             agent.ID,
		Name:           agent.Name,
		Email:          agent.Email,
		Phone:          agent.Phone,
		TotalLeads:     agent.TotalLeads,
		ConvertedLeads: agent.ConvertedLeads,
		CreatedAt:      agent.CreatedAt,
		UpdatedAt:      agent.UpdatedAt,
	}
}
