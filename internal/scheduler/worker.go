package scheduler

import (
	"context"
	"errors"
	"fmt"

	"crm_backend/internal/events"
	"crm_backend/internal/followups/repository"
	"crm_backend/platform/config"
	"crm_backend/platform/logger"
	"crm_backend/platform/metrics"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	outcomeDelivered   = "delivered"
	outcomeCompleted   = "completed"
	outcomeDeleted     = "deleted"
	outcomeRescheduled = "rescheduled"
)

// FollowUpReader is the part of the follow-up store the worker needs.
type FollowUpReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (repository.FollowUp, error)
}

type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	handler *ReminderHandler
	log     *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, followUps FollowUpReader, bus events.Bus, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:  server,
		mux:     mux,
		handler: NewReminderHandler(followUps, bus, log),
		log:     log,
	}

	mux.HandleFunc(TaskFollowUpDue, w.handler.HandleFollowUpDue)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

// ReminderHandler turns due tasks into FollowUpDue events.
type ReminderHandler struct {
	followUps FollowUpReader
	bus       events.Bus
	log       *logger.Logger
}

func NewReminderHandler(followUps FollowUpReader, bus events.Bus, log *logger.Logger) *ReminderHandler {
	return &ReminderHandler{followUps: followUps, bus: bus, log: log}
}

func (h *ReminderHandler) HandleFollowUpDue(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseFollowUpDuePayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	followUpID, err := uuid.Parse(payload.FollowUpID)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	followUp, err := h.followUps.GetByID(ctx, followUpID)
	if errors.Is(err, repository.ErrNotFound) {
		metrics.RecordReminder(outcomeDeleted)
		return nil
	}
	if err != nil {
		return err
	}

	if followUp.IsCompleted {
		metrics.RecordReminder(outcomeCompleted)
		return nil
	}
	// A newer task exists for the new date.
	if followUp.FollowUpDate.Unix() != payload.DueAt {
		metrics.RecordReminder(outcomeRescheduled)
		return nil
	}

	if err := h.bus.PublishSync(ctx, events.FollowUpDue{
		BaseEvent:    events.NewBaseEvent(),
		FollowUpID:   followUp.ID,
		LeadID:       followUp.LeadID,
		AgentID:      followUp.AgentID,
		FollowUpDate: followUp.FollowUpDate,
		Notes:        followUp.Notes,
	}); err != nil {
		return err
	}

	metrics.RecordReminder(outcomeDelivered)
	h.log.Info("follow-up due",
		"follow_up_id", followUp.ID.String(),
		"agent_id", followUp.AgentID.String(),
	)
	return nil
}
