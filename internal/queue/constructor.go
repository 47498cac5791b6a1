package queue

import (
	"github.com/voicedeck/postqueue/internal/publisher"
)

// Queue owns the asynq task handlers. Each publish task drains one
// user, so the per-user delivery order is a property of the task
// granularity rather than of locking inside the publisher.
type Queue struct {
	pub *publisher.Publisher
}

func NewQueue(pub *publisher.Publisher) *Queue {
	return &Queue{
		pub: pub,
	}
}

const TaskTypePublishUser = "publish:user"

type PublishUserPayload struct {
	UserID int64 `json:"user_id"`
}
