package scheduler

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const TaskFollowUpDue = "followups.due"

// FollowUpDuePayload carries the due time the task was scheduled for so a
// stale task can be told apart from one enqueued after a reschedule.
type FollowUpDuePayload struct {
	FollowUpID string `json:"followUpId"`
	DueAt      int64  `json:"dueAt"`
}

func NewFollowUpDueTask(followUpID uuid.UUID, dueAt time.Time) (*asynq.Task, error) {
	data, err := json.Marshal(FollowUpDuePayload{FollowUpID: followUpID.String(), DueAt: dueAt.Unix()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFollowUpDue, data), nil
}

func ParseFollowUpDuePayload(task *asynq.Task) (FollowUpDuePayload, error) {
	var payload FollowUpDuePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return FollowUpDuePayload{}, err
	}
	return payload, nil
}

func followUpTaskID(followUpID uuid.UUID, dueAt time.Time) string {
	return fmt.Sprintf("followup:%s:%d", followUpID, dueAt.Unix())
}
