// Package service implements lead management. Every mutation writes the lead
// and the matching agent counter deltas in one transaction, so agent
// totalLeads and convertedLeads always equal a recount of the leads table.
package service

import (
	"context"
	"errors"
	"strings"

	"crm_backend/internal/events"
	"crm_backend/internal/leads/domain"
	"crm_backend/internal/leads/repository"
	"crm_backend/internal/leads/transport"
	"crm_backend/platform/apperr"
	"crm_backend/platform/lock"
	"crm_backend/platform/logger"
	"crm_backend/platform/metrics"
	"crm_backend/platform/paging"
	"crm_backend/platform/phone"
	"crm_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	msgLeadNotFound   = "Lead not found"
	msgAgentNotFound  = "Agent not found"
	msgDuplicateEmail = "Lead with this email already exists"
	msgAgentRequired  = "agentId is required"
	msgFieldEmpty     = " cannot be empty"
)

// Service handles lead operations and the agent counter bookkeeping.
type Service struct {
	repo   repository.LeadsRepository
	locker lock.Locker
	bus    events.Bus
	phone  *phone.Normalizer
	log    *logger.Logger
}

// New creates a lead service.
func New(repo repository.LeadsRepository, locker lock.Locker, bus events.Bus, phones *phone.Normalizer, log *logger.Logger) *Service {
	if locker == nil {
		locker = lock.NoopLocker{}
	}
	return &Service{repo: repo, locker: locker, bus: bus, phone: phones, log: log}
}

func (s *Service) Create(ctx context.Context, req transport.CreateLeadRequest) (transport.LeadResponse, error) {
	status := domain.StatusNew
	if req.Status != "" {
		status = domain.Status(req.Status)
	}
	if !status.Valid() {
		return transport.LeadResponse{}, apperr.Validation("invalid status")
	}

	params := repository.CreateLeadParams{
		FirstName:  strings.TrimSpace(req.FirstName),
		LastName:   strings.TrimSpace(req.LastName),
		Email:      sanitize.Email(req.Email),
		Phone:      s.phone.E164(req.Phone),
		Status:     string(status),
		AssignedTo: req.AssignedTo.Value,
		Notes:      sanitize.Text(req.Notes),
	}
	if err := requireNonEmpty(
		field{"firstName", &params.FirstName}, field{"lastName", &params.LastName},
		field{"email", &params.Email}, field{"phone", &params.Phone},
	); err != nil {
		return transport.LeadResponse{}, err
	}

	var created repository.Lead
	err := s.repo.WithinTx(ctx, func(tx repository.Tx) error {
		if err := ensureEmailFree(ctx, tx, params.Email, uuid.Nil); err != nil {
			return err
		}
		if params.AssignedTo != nil {
			if err := ensureAgent(ctx, tx, *params.AssignedTo); err != nil {
				return err
			}
		}

		lead, err := tx.Create(ctx, params)
		if err != nil {
			return translate(err)
		}
		if err := s.applyAdjustments(ctx, tx, lead.ID, "create", nil, snapshot(lead)); err != nil {
			return err
		}
		created = lead
		return nil
	})
	if err != nil {
		return transport.LeadResponse{}, err
	}

	s.bus.Publish(ctx, events.LeadCreated{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     created.ID,
		Email:      created.Email,
		Status:     created.Status,
		AssignedTo: created.AssignedTo,
	})
	return toLeadResponse(created), nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.LeadResponse{}, translate(err)
	}
	return toLeadResponse(lead), nil
}

func (s *Service) List(ctx context.Context, req transport.ListLeadsRequest) (transport.LeadListResponse, error) {
	page, limit, offset := paging.Normalize(req.Page, req.Limit)
	params := repository.ListParams{Offset: offset, Limit: limit}
	if req.Status != "" {
		params.Status = &req.Status
	}
	if req.AssignedTo != "" {
		agentID, err := uuid.Parse(req.AssignedTo)
		if err != nil {
			return transport.LeadListResponse{}, apperr.Validation("invalid assignedTo")
		}
		params.AssignedTo = &agentID
	}

	leads, total, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.LeadListResponse{}, err
	}

	items := make([]transport.LeadResponse, 0, len(leads))
	for _, lead := range leads {
		items = append(items, toLeadResponse(lead))
	}
	return transport.LeadListResponse{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// Update applies a partial update. Status and assignee changes are reconciled together.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateLeadRequest) (transport.LeadResponse, error) {
	params := repository.UpdateLeadParams{
		FirstName:     trimPtr(req.FirstName),
		LastName:      trimPtr(req.LastName),
		Email:         sanitize.EmailPtr(req.Email),
		Notes:         sanitize.TextPtr(req.Notes),
		Status:        req.Status,
		AssignedTo:    req.AssignedTo.Value,
		AssignedToSet: req.AssignedTo.Set,
	}
	if req.Phone != nil {
		normalized := s.phone.E164(*req.Phone)
		params.Phone = &normalized
	}

	if err := requireNonEmpty(
		field{"firstName", params.FirstName}, field{"lastName", params.LastName},
		field{"email", params.Email}, field{"phone", params.Phone},
	); err != nil {
		return transport.LeadResponse{}, err
	}
	if params.Status != nil && !domain.Status(*params.Status).Valid() {
		return transport.LeadResponse{}, apperr.Validation("invalid status")
	}

	return s.update(ctx, id, params, "update")
}

// Assign moves the lead to agentID.
func (s *Service) Assign(ctx context.Context, id uuid.UUID, req transport.AssignLeadRequest) (transport.LeadResponse, error) {
	if req.AgentID.Value == nil {
		return transport.LeadResponse{}, apperr.Validation(msgAgentRequired)
	}
	return s.update(ctx, id, repository.UpdateLeadParams{AssignedTo: req.AgentID.Value, AssignedToSet: true}, "assign")
}

// ChangeStatus moves the lead to a new lifecycle state.
func (s *Service) ChangeStatus(ctx context.Context, id uuid.UUID, req transport.UpdateStatusRequest) (transport.LeadResponse, error) {
	status := domain.Status(req.Status)
	if !status.Valid() {
		return transport.LeadResponse{}, apperr.Validation("invalid status")
	}
	value := string(status)
	return s.update(ctx, id, repository.UpdateLeadParams{Status: &value}, "status")
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	release := s.locker.Acquire(ctx, leadLockKey(id))
	defer release()

	var deleted repository.Lead
	err := s.repo.WithinTx(ctx, func(tx repository.Tx) error {
		current, err := tx.GetByIDForUpdate(ctx, id)
		if err != nil {
			return translate(err)
		}
		if err := tx.Delete(ctx, id); err != nil {
			return translate(err)
		}
		if err := s.applyAdjustments(ctx, tx, id, "delete", snapshot(current), nil); err != nil {
			return err
		}
		deleted = current
		return nil
	})
	if err != nil {
		return err
	}

	s.bus.Publish(ctx, events.LeadDeleted{BaseEvent: events.NewBaseEvent(), LeadID: id, AssignedTo: deleted.AssignedTo})
	return nil
}

func (s *Service) update(ctx context.Context, id uuid.UUID, params repository.UpdateLeadParams, operation string) (transport.LeadResponse, error) {
	release := s.locker.Acquire(ctx, leadLockKey(id))
	defer release()

	var before, after repository.Lead
	err := s.repo.WithinTx(ctx, func(tx repository.Tx) error {
		current, err := tx.GetByIDForUpdate(ctx, id)
		if err != nil {
			return translate(err)
		}
		if params.Email != nil && *params.Email != current.Email {
			if err := ensureEmailFree(ctx, tx, *params.Email, id); err != nil {
				return err
			}
		}
		if params.AssignedToSet && params.AssignedTo != nil && !sameAgent(current.AssignedTo, params.AssignedTo) {
			if err := ensureAgent(ctx, tx, *params.AssignedTo); err != nil {
				return err
			}
		}

		updated, err := tx.Update(ctx, id, params)
		if err != nil {
			return translate(err)
		}
		if err := s.applyAdjustments(ctx, tx, id, operation, snapshot(current), snapshot(updated)); err != nil {
			return err
		}
		before, after = current, updated
		return nil
	})
	if err != nil {
		return transport.LeadResponse{}, err
	}

	s.publishChanges(ctx, before, after)
	return toLeadResponse(after), nil
}

// applyAdjustments writes the counter plan for one lead mutation. A rejected
// delta aborts the whole transaction, leaving the lead unchanged.
func (s *Service) applyAdjustments(ctx context.Context, tx repository.Tx, leadID uuid.UUID, operation string, before, after *domain.Snapshot) error {
	log := s.log.WithContext(ctx)
	for _, adj := range domain.PlanAdjustments(before, after) {
		err := tx.AdjustAgentCounters(ctx, adj.AgentID, adj.TotalDelta, adj.ConvertedDelta)
		switch {
		case err == nil:
			log.CounterAdjusted(adj.AgentID.String(), leadID.String(), adj.TotalDelta, adj.ConvertedDelta)
			metrics.RecordCounterAdjustment(adj.TotalDelta, adj.ConvertedDelta)
		case errors.Is(err, repository.ErrCounterConstraint):
			log.CounterInconsistent(adj.AgentID.String(), leadID.String(), operation, err)
			metrics.RecordCounterInconsistency(operation)
			s.bus.Publish(ctx, events.AgentCountersDrifted{
				BaseEvent: events.NewBaseEvent(),
				AgentID:   adj.AgentID,
				LeadID:    leadID,
				Operation: operation,
			})
			return apperr.Inconsistent(err).WithOp("leads." + operation)
		case errors.Is(err, repository.ErrAgentNotFound):
			return apperr.NotFound(msgAgentNotFound)
		default:
			return err
		}
	}
	return nil
}

func (s *Service) publishChanges(ctx context.Context, before, after repository.Lead) {
	s.bus.Publish(ctx, events.LeadUpdated{BaseEvent: events.NewBaseEvent(), LeadID: after.ID})
	if before.Status != after.Status {
		s.bus.Publish(ctx, events.LeadStatusChanged{
			BaseEvent:  events.NewBaseEvent(),
			LeadID:     after.ID,
			OldStatus:  before.Status,
			NewStatus:  after.Status,
			AssignedTo: after.AssignedTo,
		})
	}
	if !sameAgent(before.AssignedTo, after.AssignedTo) {
		s.bus.Publish(ctx, events.LeadAssigned{
			BaseEvent:    events.NewBaseEvent(),
			LeadID:       after.ID,
			FromAgentID:  before.AssignedTo,
			ToAgentID:    after.AssignedTo,
			LeadFullName: strings.TrimSpace(after.FirstName + " " + after.LastName),
		})
	}
}

func ensureEmailFree(ctx context.Context, tx repository.Tx, email string, self uuid.UUID) error {
	existing, err := tx.GetByEmail(ctx, email)
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

func ensureAgent(ctx context.Context, tx repository.Tx, agentID uuid.UUID) error {
	exists, err := tx.AgentExists(ctx, agentID)
	if err != nil {
		return err
	}
	if !exists {
		return apperr.NotFound(msgAgentNotFound)
	}
	return nil
}

func translate(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound(msgLeadNotFound)
	case errors.Is(err, repository.ErrDuplicateEmail):
		return apperr.Conflict(msgDuplicateEmail)
	case errors.Is(err, repository.ErrAgentNotFound):
		return apperr.NotFound(msgAgentNotFound)
	default:
		return err
	}
}

type field struct {
	name  string
	value *string
}

// requireNonEmpty rejects present fields that are blank after normalization.
func requireNonEmpty(fields ...field) error {
	for _, f := range fields {
		if f.value != nil && *f.value == "" {
			return apperr.Validation(f.name + msgFieldEmpty)
		}
	}
	return nil
}

func snapshot(lead repository.Lead) *domain.Snapshot {
	return &domain.Snapshot{Status: domain.Status(lead.Status), AssignedTo: lead.AssignedTo}
}

func sameAgent(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	return &trimmed
}

func leadLockKey(id uuid.UUID) string {
	return "lead:" + id.String()
}

func toLeadResponse(lead repository.Lead) transport.LeadResponse {
	resp := transport.LeadResponse{
		ID:        lead.ID,
		FirstName: lead.FirstName,
		LastName:  lead.LastName,
		Email:     lead.Email,
		Phone:     lead.Phone,
		Status:    lead.Status,
		Notes:     lead.Notes,
		CreatedAt: lead.CreatedAt,
		UpdatedAt: lead.UpdatedAt,
	}
	if lead.Assignee != nil {
		resp.AssignedTo = &transport.AgentSummary{
			ID:    lead.Assignee.ID,
			Name:  lead.Assignee.Name,
			Email: lead.Assignee.Email,
			Phone: lead.Assignee.Phone,
		}
	}
	return resp
}
