package queue

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
)

func (q *Queue) HandlePublishUserTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishUserPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	return q.pub.DrainUser(ctx, payload.UserID)
}
