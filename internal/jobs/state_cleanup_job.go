package job

import (
	"context"
	"log/slog"

	"github.com/voicedeck/postqueue/internal/repository"
)

// StateCleanupJob removes expired OAuth state rows. States are consumed
// on redemption; this sweeps the ones from authorizations that were
// never completed.
type StateCleanupJob struct {
	or repository.OAuthStateRepository
}

func NewStateCleanupJob(or repository.OAuthStateRepository) *StateCleanupJob {
	return &StateCleanupJob{or: or}
}

func (j *StateCleanupJob) CleanupStates() {
	if err := j.or.DeleteExpired(context.Background()); err != nil {
		slog.Info("error deleting expired oauth states", "error", err.Error())
	}
}
