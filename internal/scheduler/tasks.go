package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskResponseOutboxDue = "responder.outbox.due"

type ResponseOutboxDuePayload struct {
	OutboxID string `json:"outboxId"`
}

func NewResponseOutboxDueTask(payload ResponseOutboxDuePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskResponseOutboxDue, data), nil
}

func ParseResponseOutboxDuePayload(task *asynq.Task) (ResponseOutboxDuePayload, error) {
	var payload ResponseOutboxDuePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ResponseOutboxDuePayload{}, err
	}
	return payload, nil
}
