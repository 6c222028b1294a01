// Package leadstest provides an in-memory lead store for tests that need the
// transactional behaviour of the Postgres repository without a database.
package leadstest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"crm_backend/internal/leads/repository"

	"github.com/google/uuid"
)

type agentRow struct {
	ref       repository.AgentRef
	total     int
	converted int
}

type memState struct {
	leads  map[uuid.UUID]repository.Lead
	agents map[uuid.UUID]agentRow
	clock  time.Time
}

func (s *memState) clone() *memState {
	out := &memState{
		leads:  make(map[uuid.UUID]repository.Lead, len(s.leads)),
		agents: make(map[uuid.UUID]agentRow, len(s.agents)),
		clock:  s.clock,
	}
	for k, v := range s.leads {
		out.leads[k] = v
	}
	for k, v := range s.agents {
		out.agents[k] = v
	}
	return out
}

// MemStore applies a transaction to a private copy of the state and swaps it
// in on success, so a failing transaction leaves nothing behind. The mutex is
// held for the whole transaction, which stands in for row locks.
type MemStore struct {
	mu    sync.Mutex
	state *memState
}

// NewMemStore returns an empty store.
func NewMemStore() *MemStore {
	return &MemStore{state: &memState{
		leads:  map[uuid.UUID]repository.Lead{},
		agents: map[uuid.UUID]agentRow{},
		clock:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}}
}

// AddAgent inserts an agent with zeroed counters.
func (m *MemStore) AddAgent(name string) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.state.agents[id] = agentRow{ref: repository.AgentRef{ID: id, Name: name, Email: name + "@crm.test", Phone: "+15550100"}}
	return id
}

// Counters returns the stored totalLeads and convertedLeads.
func (m *MemStore) Counters(id uuid.UUID) (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row := m.state.agents[id]
	return row.total, row.converted
}

// SetCounters overwrites stored counters, simulating drift.
func (m *MemStore) SetCounters(id uuid.UUID, total, converted int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row := m.state.agents[id]
	row.total, row.converted = total, converted
	m.state.agents[id] = row
}

func (m *MemStore) LeadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.leads)
}

// Drift returns a description of every agent whose counters differ from a recount.
func (m *MemStore) Drift() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := map[uuid.UUID][2]int{}
	for _, lead := range m.state.leads {
		if lead.AssignedTo == nil {
			continue
		}
		c := want[*lead.AssignedTo]
		c[0]++
		if lead.Status == "Converted" {
			c[1]++
		}
		want[*lead.AssignedTo] = c
	}
	var out []string
	for id, row := range m.state.agents {
		if got := [2]int{row.total, row.converted}; got != want[id] {
			out = append(out, fmt.Sprintf("agent %s: stored %v, recount %v", row.ref.Name, got, want[id]))
		}
	}
	return out
}

func (m *MemStore) WithinTx(ctx context.Context, fn func(repository.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &memTx{state: m.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	m.state = tx.state
	return nil
}

func (m *MemStore) GetByID(ctx context.Context, id uuid.UUID) (repository.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{state: m.state}).GetByID(ctx, id)
}

func (m *MemStore) GetByEmail(ctx context.Context, email string) (repository.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{state: m.state}).GetByEmail(ctx, email)
}

func (m *MemStore) List(ctx context.Context, params repository.ListParams) ([]repository.Lead, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{state: m.state}).List(ctx, params)
}

type memTx struct {
	state *memState
}

func (t *memTx) populate(lead repository.Lead) repository.Lead {
	lead.Assignee = nil
	if lead.AssignedTo != nil {
		if row, ok := t.state.agents[*lead.AssignedTo]; ok {
			ref := row.ref
			lead.Assignee = &ref
		}
	}
	return lead
}

func (t *memTx) GetByID(_ context.Context, id uuid.UUID) (repository.Lead, error) {
	lead, ok := t.state.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	return t.populate(lead), nil
}

func (t *memTx) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (repository.Lead, error) {
	return t.GetByID(ctx, id)
}

func (t *memTx) GetByEmail(_ context.Context, email string) (repository.Lead, error) {
	for _, lead := range t.state.leads {
		if lead.Email == email {
			return t.populate(lead), nil
		}
	}
	return repository.Lead{}, repository.ErrNotFound
}

func (t *memTx) List(_ context.Context, params repository.ListParams) ([]repository.Lead, int, error) {
	matched := make([]repository.Lead, 0)
	for _, lead := range t.state.leads {
		if params.Status != nil && lead.Status != *params.Status {
			continue
		}
		if params.AssignedTo != nil && (lead.AssignedTo == nil || *lead.AssignedTo != *params.AssignedTo) {
			continue
		}
		matched = append(matched, t.populate(lead))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	total := len(matched)
	if params.Offset >= total {
		return []repository.Lead{}, total, nil
	}
	end := params.Offset + params.Limit
	if end > total {
		end = total
	}
	return matched[params.Offset:end], total, nil
}

func (t *memTx) emailTaken(email string, self uuid.UUID) bool {
	for id, lead := range t.state.leads {
		if lead.Email == email && id != self {
			return true
		}
	}
	return false
}

func (t *memTx) Create(_ context.Context, params repository.CreateLeadParams) (repository.Lead, error) {
	if t.emailTaken(params.Email, uuid.Nil) {
		return repository.Lead{}, repository.ErrDuplicateEmail
	}
	if params.AssignedTo != nil {
		if _, ok := t.state.agents[*params.AssignedTo]; !ok {
			return repository.Lead{}, repository.ErrAgentNotFound
		}
	}
	t.state.clock = t.state.clock.Add(time.Second)
	lead := repository.Lead{
		ID:         uuid.New(),
		FirstName:  params.FirstName,
		LastName:   params.LastName,
		Email:      params.Email,
		Phone:      params.Phone,
		Status:     params.Status,
		AssignedTo: params.AssignedTo,
		Notes:      params.Notes,
		CreatedAt:  t.state.clock,
		UpdatedAt:  t.state.clock,
	}
	t.state.leads[lead.ID] = lead
	return t.populate(lead), nil
}

func (t *memTx) Update(_ context.Context, id uuid.UUID, params repository.UpdateLeadParams) (repository.Lead, error) {
	lead, ok := t.state.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	if params.FirstName != nil {
		lead.FirstName = *params.FirstName
	}
	if params.LastName != nil {
		lead.LastName = *params.LastName
	}
	if params.Email != nil {
		if t.emailTaken(*params.Email, id) {
			return repository.Lead{}, repository.ErrDuplicateEmail
		}
		lead.Email = *params.Email
	}
	if params.Phone != nil {
		lead.Phone = *params.Phone
	}
	if params.Status != nil {
		lead.Status = *params.Status
	}
	if params.Notes != nil {
		lead.Notes = *params.Notes
	}
	if params.AssignedToSet {
		if params.AssignedTo != nil {
			if _, ok := t.state.agents[*params.AssignedTo]; !ok {
				return repository.Lead{}, repository.ErrAgentNotFound
			}
		}
		lead.AssignedTo = params.AssignedTo
	}
	t.state.clock = t.state.clock.Add(time.Second)
	lead.UpdatedAt = t.state.clock
	t.state.leads[id] = lead
	return t.populate(lead), nil
}

func (t *memTx) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := t.state.leads[id]; !ok {
		return repository.ErrNotFound
	}
	delete(t.state.leads, id)
	return nil
}

func (t *memTx) AgentExists(_ context.Context, id uuid.UUID) (bool, error) {
	_, ok := t.state.agents[id]
	return ok, nil
}

func (t *memTx) AdjustAgentCounters(_ context.Context, agentID uuid.UUID, totalDelta, convertedDelta int) error {
	row, ok := t.state.agents[agentID]
	if !ok {
		return repository.ErrAgentNotFound
	}
	row.total += totalDelta
	row.converted += convertedDelta
	if row.total < 0 || row.converted < 0 || row.converted > row.total {
		return fmt.Errorf("%w: total=%d converted=%d", repository.ErrCounterConstraint, row.total, row.converted)
	}
	t.state.agents[agentID] = row
	return nil
}

var _ repository.LeadsRepository = (*MemStore)(nil)
var _ repository.Tx = (*memTx)(nil)
