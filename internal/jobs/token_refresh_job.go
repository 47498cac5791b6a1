package job

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/voicedeck/postqueue/internal/models"
	"github.com/voicedeck/postqueue/internal/repository"
	"github.com/voicedeck/postqueue/internal/service"
)

// TokenRefreshJob proactively refreshes credentials that expire soon so
// the publisher rarely has to refresh on the hot path.
type TokenRefreshJob struct {
	cr repository.CredentialRepository
	cs service.CredentialService
}

func NewTokenRefreshJob(
	cr repository.CredentialRepository,
	cs service.CredentialService) *TokenRefreshJob {
	return &TokenRefreshJob{
		cr: cr,
		cs: cs,
	}
}

func (c *TokenRefreshJob) RefreshTokens() {
	ctx := context.Background()

	cutoff := time.Now().Add(30 * time.Minute)

	credentials, err := c.cr.ListExpiringBefore(ctx, cutoff)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	var wg sync.WaitGroup

	concurrencyLimit := 10
	semaphore := make(chan struct{}, concurrencyLimit)

	for _, cred := range credentials {

		wg.Add(1)
		semaphore <- struct{}{}

		go func(cred *models.OAuthCredential) {
			defer wg.Done()
			defer func() { <-semaphore }()

			// GetValidAccessToken refreshes and persists when the token
			// is inside the expiry margin. A failed refresh removes the
			// credential so the next publish fails fast.
			if _, _, err := c.cs.GetValidAccessToken(ctx, cred.UserID); err != nil {
				slog.Info("unable to refresh credential", "user_id", cred.UserID, "error", err.Error())
			}
		}(cred)
	}

	wg.Wait()
}
