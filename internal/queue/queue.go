package queue

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/hibiken/asynq"
)

// EnqueueUserDrain schedules a drain task for one user. Uniqueness over
// a minute means a user who is already queued or mid-drain does not get
// a second concurrent worker; the next tick picks them up again.
func EnqueueUserDrain(asynqClient *asynq.Client, payload PublishUserPayload) error {
	taskPayload, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypePublishUser, taskPayload)

	_, err = asynqClient.Enqueue(task, asynq.Unique(time.Minute), asynq.MaxRetry(0))
	if err != nil {
		if errors.Is(err, asynq.ErrDuplicateTask) {
			return nil
		}
		return err
	}

	return nil
}
