package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	TaskNotificationDispatch = "notification:dispatch"
	TaskQuotesExpire         = "quotes:expire"
)

// Delivery retries are tracked on the notification row, so asynq only retries
// infrastructure failures a couple of times.
const dispatchMaxRetry = 2

type NotificationDispatchPayload struct {
	NotificationID string `json:"notificationId"`
}

func NewNotificationDispatchTask(payload NotificationDispatchPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotificationDispatch, data), nil
}

func ParseNotificationDispatchPayload(task *asynq.Task) (NotificationDispatchPayload, error) {
	var payload NotificationDispatchPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return NotificationDispatchPayload{}, err
	}
	return payload, nil
}

func NewQuotesExpireTask() *asynq.Task {
	return asynq.NewTask(TaskQuotesExpire, nil)
}
