package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/voicedeck/postqueue/internal/queue"
	"github.com/voicedeck/postqueue/internal/repository"
)

// DrainJob runs on the cron tick. It finds users with due items and
// enqueues one drain task per user; asynq's uniqueness keeps a slow
// drain from stacking up duplicates.
type DrainJob struct {
	qr          repository.QueueRepository
	asynqClient *asynq.Client
}

func NewDrainJob(qr repository.QueueRepository, asynqClient *asynq.Client) *DrainJob {
	return &DrainJob{
		qr:          qr,
		asynqClient: asynqClient,
	}
}

func (d *DrainJob) Tick() {
	ctx := context.Background()

	userIDs, err := d.qr.ListUsersWithDue(ctx, time.Now())
	if err != nil {
		slog.Info(err.Error())
		return
	}

	for _, userID := range userIDs {
		err := queue.EnqueueUserDrain(d.asynqClient, queue.PublishUserPayload{UserID: userID})
		if err != nil {
			slog.Info("error enqueueing drain task", "user_id", userID, "error", err.Error())
		}
	}
}
