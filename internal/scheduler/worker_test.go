package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"crm_backend/internal/events"
	"crm_backend/internal/followups/repository"
	"crm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubReader struct {
	followUp repository.FollowUp
	err      error
}

func (s stubReader) GetByID(context.Context, uuid.UUID) (repository.FollowUp, error) {
	return s.followUp, s.err
}

type captureBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *captureBus) Publish(_ context.Context, e events.Event) { b.record(e) }
func (b *captureBus) PublishSync(_ context.Context, e events.Event) error {
	b.record(e)
	return nil
}
func (b *captureBus) Subscribe(string, events.Handler) {}

func (b *captureBus) record(e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func dueTask(t *testing.T, id uuid.UUID, due time.Time) *asynq.Task {
	t.Helper()
	task, err := NewFollowUpDueTask(id, due)
	require.NoError(t, err)
	return task
}

func TestHandleFollowUpDuePublishesEvent(t *testing.T) {
	due := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	fu := repository.FollowUp{ID: uuid.New(), LeadID: uuid.New(), AgentID: uuid.New(), Notes: "call", FollowUpDate: due}
	bus := &captureBus{}
	h := NewReminderHandler(stubReader{followUp: fu}, bus, logger.Discard())

	require.NoError(t, h.HandleFollowUpDue(context.Background(), dueTask(t, fu.ID, due)))
	require.Len(t, bus.events, 1)

	got, ok := bus.events[0].(events.FollowUpDue)
	require.True(t, ok)
	assert.Equal(t, fu.ID, got.FollowUpID)
	assert.Equal(t, fu.AgentID, got.AgentID)
	assert.Equal(t, "call", got.Notes)
}

func TestHandleFollowUpDueSkipsStaleTasks(t *testing.T) {
	due := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	id := uuid.New()

	cases := []struct {
		name   string
		reader stubReader
	}{
		{"deleted", stubReader{err: repository.ErrNotFound}},
		{"completed", stubReader{followUp: repository.FollowUp{ID: id, FollowUpDate: due, IsCompleted: true}}},
		{"rescheduled", stubReader{followUp: repository.FollowUp{ID: id, FollowUpDate: due.Add(time.Hour)}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bus := &captureBus{}
			h := NewReminderHandler(tc.reader, bus, logger.Discard())
			require.NoError(t, h.HandleFollowUpDue(context.Background(), dueTask(t, id, due)))
			assert.Empty(t, bus.events)
		})
	}
}

func TestHandleFollowUpDueRetriesStoreErrors(t *testing.T) {
	boom := errors.New("connection reset")
	h := NewReminderHandler(stubReader{err: boom}, &captureBus{}, logger.Discard())
	err := h.HandleFollowUpDue(context.Background(), dueTask(t, uuid.New(), time.Now()))
	assert.ErrorIs(t, err, boom)
}

func TestHandleFollowUpDueRejectsBadPayload(t *testing.T) {
	h := NewReminderHandler(stubReader{}, &captureBus{}, logger.Discard())
	err := h.HandleFollowUpDue(context.Background(), asynq.NewTask(TaskFollowUpDue, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestNilClientIsNoop(t *testing.T) {
	var c *Client
	assert.NoError(t, c.ScheduleFollowUpReminder(context.Background(), uuid.New(), time.Now()))
	assert.NoError(t, c.Close())
}

func TestFollowUpTaskIDIsStablePerDueTime(t *testing.T) {
	id := uuid.New()
	due := time.Unix(1_700_000_000, 0)
	assert.Equal(t, followUpTaskID(id, due), followUpTaskID(id, due.UTC()))
	assert.NotEqual(t, followUpTaskID(id, due), followUpTaskID(id, due.Add(time.Minute)))
}
