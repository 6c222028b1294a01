package service

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"crm_backend/internal/events"
	"crm_backend/internal/leads/leadstest"
	"crm_backend/internal/leads/transport"
	"crm_backend/platform/apperr"
	"crm_backend/platform/logger"
	"crm_backend/platform/phone"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	statusNew       = "New"
	statusContacted = "Contacted"
	statusConverted = "Converted"
	statusLost      = "Lost"
)

type fixture struct {
	store *leadstest.MemStore
	bus   *recordingBus
	svc   *Service
}

func newFixture() *fixture {
	store := leadstest.NewMemStore()
	bus := &recordingBus{}
	return &fixture{
		store: store,
		bus:   bus,
		svc:   New(store, nil, bus, phone.NewNormalizer("US"), logger.Discard()),
	}
}

func (f *fixture) createLead(t *testing.T, email, status string, agent *uuid.UUID) transport.LeadResponse {
	t.Helper()
	lead, err := f.svc.Create(context.Background(), transport.CreateLeadRequest{
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Email:      email,
		Phone:      "+1 650 253 0000",
		Status:     status,
		AssignedTo: transport.OptionalUUID{Value: agent, Set: agent != nil},
	})
	require.NoError(t, err)
	return lead
}

func assertCounters(t *testing.T, store *leadstest.MemStore, agentID uuid.UUID, total, converted int) {
	t.Helper()
	gotTotal, gotConverted := store.Counters(agentID)
	assert.Equal(t, total, gotTotal, "totalLeads")
	assert.Equal(t, converted, gotConverted, "convertedLeads")
}

func assertNoDrift(t *testing.T, store *leadstest.MemStore) {
	t.Helper()
	if drift := store.Drift(); len(drift) > 0 {
		t.Fatalf("counters drifted: %v", drift)
	}
}

func ptr(s string) *string { return &s }

func TestLeadLifecycleKeepsCountersExact(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	agentA := f.store.AddAgent("a")
	agentB := f.store.AddAgent("b")

	lead := f.createLead(t, "lead@crm.test", "", &agentA)
	assert.Equal(t, statusNew, lead.Status)
	require.NotNil(t, lead.AssignedTo)
	assert.Equal(t, agentA, lead.AssignedTo.ID)
	assertCounters(t, f.store, agentA, 1, 0)

	_, err := f.svc.ChangeStatus(ctx, lead.ID, transport.UpdateStatusRequest{Status: statusConverted})
	require.NoError(t, err)
	assertCounters(t, f.store, agentA, 1, 1)

	moved, err := f.svc.Update(ctx, lead.ID, transport.UpdateLeadRequest{
		AssignedTo: transport.OptionalUUID{Value: &agentB, Set: true},
	})
	require.NoError(t, err)
	assert.Equal(t, agentB, moved.AssignedTo.ID)
	assertCounters(t, f.store, agentA, 0, 0)
	assertCounters(t, f.store, agentB, 1, 1)

	require.NoError(t, f.svc.Delete(ctx, lead.ID))
	assertCounters(t, f.store, agentB, 0, 0)
	assert.Equal(t, 0, f.store.LeadCount())
}

func TestUpdateStatusAndAssigneeTogether(t *testing.T) {
	f := newFixture()
	agentA := f.store.AddAgent("a")
	agentB := f.store.AddAgent("b")
	lead := f.createLead(t, "combo@crm.test", statusNew, &agentA)

	updated, err := f.svc.Update(context.Background(), lead.ID, transport.UpdateLeadRequest{
		Status:     ptr(statusConverted),
		AssignedTo: transport.OptionalUUID{Value: &agentB, Set: true},
	})
	require.NoError(t, err)
	assert.Equal(t, statusConverted, updated.Status)
	assertCounters(t, f.store, agentA, 0, 0)
	assertCounters(t, f.store, agentB, 1, 1)
}

func TestConvertedLeadReassignedAndLost(t *testing.T) {
	f := newFixture()
	agentA := f.store.AddAgent("a")
	agentB := f.store.AddAgent("b")
	lead := f.createLead(t, "lost@crm.test", statusConverted, &agentA)
	assertCounters(t, f.store, agentA, 1, 1)

	_, err := f.svc.Update(context.Background(), lead.ID, transport.UpdateLeadRequest{
		Status:     ptr(statusLost),
		AssignedTo: transport.OptionalUUID{Value: &agentB, Set: true},
	})
	require.NoError(t, err)
	assertCounters(t, f.store, agentA, 0, 0)
	assertCounters(t, f.store, agentB, 1, 0)
}

func TestCreateConvertedIncrementsBothCounters(t *testing.T) {
	f := newFixture()
	agentA := f.store.AddAgent("a")
	f.createLead(t, "won@crm.test", statusConverted, &agentA)
	assertCounters(t, f.store, agentA, 1, 1)
}

func TestUnassignedLeadTouchesNoCounters(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	agentA := f.store.AddAgent("a")
	lead := f.createLead(t, "free@crm.test", statusNew, nil)
	assert.Nil(t, lead.AssignedTo)

	_, err := f.svc.ChangeStatus(ctx, lead.ID, transport.UpdateStatusRequest{Status: statusConverted})
	require.NoError(t, err)
	assertCounters(t, f.store, agentA, 0, 0)

	_, err = f.svc.Assign(ctx, lead.ID, transport.AssignLeadRequest{AgentID: transport.OptionalUUID{Value: &agentA, Set: true}})
	require.NoError(t, err)
	assertCounters(t, f.store, agentA, 1, 1)
}

func TestExplicitNullUnassigns(t *testing.T) {
	f := newFixture()
	agentA := f.store.AddAgent("a")
	lead := f.createLead(t, "drop@crm.test", statusConverted, &agentA)

	updated, err := f.svc.Update(context.Background(), lead.ID, transport.UpdateLeadRequest{
		AssignedTo: transport.OptionalUUID{Set: true},
	})
	require.NoError(t, err)
	assert.Nil(t, updated.AssignedTo)
	assertCounters(t, f.store, agentA, 0, 0)
}

func TestAbsentAssigneeLeavesAssignmentAlone(t *testing.T) {
	f := newFixture()
	agentA := f.store.AddAgent("a")
	lead := f.createLead(t, "keep@crm.test", statusNew, &agentA)

	updated, err := f.svc.Update(context.Background(), lead.ID, transport.UpdateLeadRequest{Notes: ptr("called back")})
	require.NoError(t, err)
	require.NotNil(t, updated.AssignedTo)
	assert.Equal(t, agentA, updated.AssignedTo.ID)
	assert.Equal(t, "called back", updated.Notes)
	assertCounters(t, f.store, agentA, 1, 0)
}

func TestSelfTransitionIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	agentA := f.store.AddAgent("a")
	lead := f.createLead(t, "same@crm.test", statusConverted, &agentA)

	for i := 0; i < 3; i++ {
		_, err := f.svc.ChangeStatus(ctx, lead.ID, transport.UpdateStatusRequest{Status: statusConverted})
		require.NoError(t, err)
	}
	_, err := f.svc.Assign(ctx, lead.ID, transport.AssignLeadRequest{AgentID: transport.OptionalUUID{Value: &agentA, Set: true}})
	require.NoError(t, err)
	assertCounters(t, f.store, agentA, 1, 1)
}

func TestDuplicateEmailRejectedWithoutCounterChange(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	agentA := f.store.AddAgent("a")
	agentB := f.store.AddAgent("b")
	f.createLead(t, "taken@crm.test", statusNew, &agentA)
	other := f.createLead(t, "other@crm.test", statusNew, &agentA)

	_, err := f.svc.Create(ctx, transport.CreateLeadRequest{
		FirstName:  "Grace",
		LastName:   "Hopper",
		Email:      "  TAKEN@crm.test ",
		Phone:      "5550100",
		AssignedTo: transport.OptionalUUID{Value: &agentB, Set: true},
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Equal(t, msgDuplicateEmail, err.Error())

	_, err = f.svc.Update(ctx, other.ID, transport.UpdateLeadRequest{
		Email:      ptr("taken@crm.test"),
		AssignedTo: transport.OptionalUUID{Value: &agentB, Set: true},
	})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	assertCounters(t, f.store, agentA, 2, 0)
	assertCounters(t, f.store, agentB, 0, 0)
}

func TestUpdateKeepingOwnEmailIsAllowed(t *testing.T) {
	f := newFixture()
	lead := f.createLead(t, "mine@crm.test", statusNew, nil)
	updated, err := f.svc.Update(context.Background(), lead.ID, transport.UpdateLeadRequest{Email: ptr("MINE@crm.test")})
	require.NoError(t, err)
	assert.Equal(t, "mine@crm.test", updated.Email)
}

func TestEmailIsNormalized(t *testing.T) {
	f := newFixture()
	lead := f.createLead(t, "  Mixed.Case@Example.COM ", statusNew, nil)
	assert.Equal(t, "mixed.case@example.com", lead.Email)
	assert.Equal(t, "+16502530000", lead.Phone)
}

func TestAssignToMissingAgent(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	agentA := f.store.AddAgent("a")
	lead := f.createLead(t, "ghost@crm.test", statusConverted, &agentA)
	missing := uuid.New()

	_, err := f.svc.Assign(ctx, lead.ID, transport.AssignLeadRequest{AgentID: transport.OptionalUUID{Value: &missing, Set: true}})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = f.svc.Create(ctx, transport.CreateLeadRequest{
		FirstName: "x", LastName: "y", Email: "new@crm.test", Phone: "5550100",
		AssignedTo: transport.OptionalUUID{Value: &missing, Set: true},
	})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	stored, err := f.svc.GetByID(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, agentA, stored.AssignedTo.ID)
	assertCounters(t, f.store, agentA, 1, 1)
	assert.Equal(t, 1, f.store.LeadCount())
}

func TestAssignRequiresAgentID(t *testing.T) {
	f := newFixture()
	lead := f.createLead(t, "need@crm.test", statusNew, nil)

	_, err := f.svc.Assign(context.Background(), lead.ID, transport.AssignLeadRequest{})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = f.svc.Assign(context.Background(), lead.ID, transport.AssignLeadRequest{AgentID: transport.OptionalUUID{Set: true}})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestInvalidStatusRejected(t *testing.T) {
	f := newFixture()
	lead := f.createLead(t, "bad@crm.test", statusNew, nil)

	_, err := f.svc.ChangeStatus(context.Background(), lead.ID, transport.UpdateStatusRequest{Status: "Won"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = f.svc.Update(context.Background(), lead.ID, transport.UpdateLeadRequest{Status: ptr("converted")})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestBlankRequiredFieldRejectedOnUpdate(t *testing.T) {
	f := newFixture()
	lead := f.createLead(t, "blank@crm.test", statusNew, nil)
	_, err := f.svc.Update(context.Background(), lead.ID, transport.UpdateLeadRequest{FirstName: ptr("   ")})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Equal(t, "firstName cannot be empty", err.Error())
}

func TestUnknownLead(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	id := uuid.New()

	_, err := f.svc.GetByID(ctx, id)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	_, err = f.svc.ChangeStatus(ctx, id, transport.UpdateStatusRequest{Status: statusLost})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.True(t, apperr.Is(f.svc.Delete(ctx, id), apperr.KindNotFound))
}

func TestDriftedCountersAbortMutation(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	agentA := f.store.AddAgent("a")
	lead := f.createLead(t, "drift@crm.test", statusConverted, &agentA)
	f.store.SetCounters(agentA, 1, 0)

	err := f.svc.Delete(ctx, lead.ID)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindInconsistent))
	assert.Equal(t, 1, f.store.LeadCount(), "lead delete must roll back")
	assertCounters(t, f.store, agentA, 1, 0)
	assert.Contains(t, f.bus.names(), events.NameAgentCountersDrifted)
}

func TestPublishesChangeEvents(t *testing.T) {
	f := newFixture()
	agentA := f.store.AddAgent("a")
	agentB := f.store.AddAgent("b")
	lead := f.createLead(t, "events@crm.test", statusNew, &agentA)

	_, err := f.svc.Update(context.Background(), lead.ID, transport.UpdateLeadRequest{
		Status:     ptr(statusContacted),
		AssignedTo: transport.OptionalUUID{Value: &agentB, Set: true},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		events.NameLeadCreated,
		events.NameLeadUpdated,
		events.NameLeadStatusChanged,
		events.NameLeadAssigned,
	}, f.bus.names())
}

func TestListPaginatesNewestFirst(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	agentA := f.store.AddAgent("a")
	for i := 0; i < 12; i++ {
		status := statusNew
		if i%3 == 0 {
			status = statusConverted
		}
		f.createLead(t, fmt.Sprintf("l%02d@crm.test", i), status, &agentA)
	}

	page, err := f.svc.List(ctx, transport.ListLeadsRequest{})
	require.NoError(t, err)
	assert.Equal(t, 12, page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 10, page.Limit)
	require.Len(t, page.Items, 10)
	assert.Equal(t, "l11@crm.test", page.Items[0].Email)

	second, err := f.svc.List(ctx, transport.ListLeadsRequest{Page: 2})
	require.NoError(t, err)
	assert.Len(t, second.Items, 2)

	converted, err := f.svc.List(ctx, transport.ListLeadsRequest{Status: statusConverted, AssignedTo: agentA.String()})
	require.NoError(t, err)
	assert.Equal(t, 4, converted.Total)
}

// A long random sequence of mutations must never let stored counters diverge
// from a recount.
func TestRandomMutationsPreserveInvariant(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	agents := []uuid.UUID{f.store.AddAgent("a"), f.store.AddAgent("b"), f.store.AddAgent("c")}
	statuses := []string{statusNew, statusContacted, statusConverted, statusLost}
	rng := rand.New(rand.NewSource(42))

	pickAgent := func() transport.OptionalUUID {
		n := rng.Intn(len(agents) + 1)
		if n == len(agents) {
			return transport.OptionalUUID{Set: true}
		}
		return transport.OptionalUUID{Value: &agents[n], Set: true}
	}

	var ids []uuid.UUID
	for step := 0; step < 400; step++ {
		switch op := rng.Intn(5); {
		case op == 0 || len(ids) == 0:
			lead, err := f.svc.Create(ctx, transport.CreateLeadRequest{
				FirstName: "r", LastName: "r", Phone: "5550100",
				Email:      fmt.Sprintf("r%d@crm.test", step),
				Status:     statuses[rng.Intn(len(statuses))],
				AssignedTo: pickAgent(),
			})
			require.NoError(t, err)
			ids = append(ids, lead.ID)
		case op == 1:
			i := rng.Intn(len(ids))
			require.NoError(t, f.svc.Delete(ctx, ids[i]))
			ids = append(ids[:i], ids[i+1:]...)
		case op == 2:
			_, err := f.svc.ChangeStatus(ctx, ids[rng.Intn(len(ids))], transport.UpdateStatusRequest{Status: statuses[rng.Intn(len(statuses))]})
			require.NoError(t, err)
		default:
			req := transport.UpdateLeadRequest{}
			if rng.Intn(2) == 0 {
				req.Status = ptr(statuses[rng.Intn(len(statuses))])
			}
			if rng.Intn(2) == 0 {
				req.AssignedTo = pickAgent()
			}
			_, err := f.svc.Update(ctx, ids[rng.Intn(len(ids))], req)
			require.NoError(t, err)
		}
		assertNoDrift(t, f.store)
	}
}

func TestConcurrentMutationsPreserveInvariant(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	agentA := f.store.AddAgent("a")
	agentB := f.store.AddAgent("b")

	leads := make([]transport.LeadResponse, 8)
	for i := range leads {
		leads[i] = f.createLead(t, fmt.Sprintf("c%d@crm.test", i), statusNew, &agentA)
	}

	var wg sync.WaitGroup
	for i, lead := range leads {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				target := agentA
				if (i+j)%2 == 0 {
					target = agentB
				}
				status := statusConverted
				if j%3 == 0 {
					status = statusContacted
				}
				if _, err := f.svc.Update(ctx, id, transport.UpdateLeadRequest{
					Status:     &status,
					AssignedTo: transport.OptionalUUID{Value: &target, Set: true},
				}); err != nil {
					t.Errorf("update %s: %v", id, err)
					return
				}
			}
		}(i, lead.ID)
	}
	wg.Wait()

	assertNoDrift(t, f.store)
	totalA, _ := f.store.Counters(agentA)
	totalB, _ := f.store.Counters(agentB)
	assert.Equal(t, len(leads), totalA+totalB)
}
