package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	config "github.com/voicedeck/postqueue/configs"
	"github.com/voicedeck/postqueue/internal/apperrors"
	"github.com/voicedeck/postqueue/internal/models"
	"github.com/voicedeck/postqueue/internal/repository"
	"github.com/voicedeck/postqueue/internal/service"
)

const reauthorizationError = "reauthorization_required"

// Publisher drains a user's due queue items and delivers them to the
// publishing endpoint. Items of one user are always processed
// sequentially in scheduled_for order; concurrency exists only across
// users (one asynq task per user).
type Publisher struct {
	cfg    config.Publisher
	qr     repository.QueueRepository
	ph     repository.PostingHistoryRepository
	creds  service.CredentialService
	quota  service.QuotaService
	li     service.LinkedinService
	assets service.AssetService
	now    func() time.Time
}

func New(
	cfg config.Publisher,
	qr repository.QueueRepository,
	ph repository.PostingHistoryRepository,
	creds service.CredentialService,
	quota service.QuotaService,
	li service.LinkedinService,
	assets service.AssetService) *Publisher {
	return &Publisher{
		cfg:    cfg,
		qr:     qr,
		ph:     ph,
		creds:  creds,
		quota:  quota,
		li:     li,
		assets: assets,
		now:    time.Now,
	}
}

// DrainUser delivers every due item for one user. A quota exhaustion or
// a platform rate limit stops the whole drain; the items stay untouched
// for the next tick.
func (p *Publisher) DrainUser(ctx context.Context, userID int64) error {
	items, err := p.qr.ListDue(ctx, userID, p.now())
	if err != nil {
		return err
	}

	for _, item := range items {
		keepGoing, err := p.processItem(ctx, item)
		if err != nil {
			slog.Info("error processing queue item", "item_id", item.ID, "error", err.Error())
		}
		if !keepGoing {
			break
		}
	}
	return nil
}

func composeText(item *models.QueueItem) string {
	text := item.Body
	if tags := strings.TrimSpace(item.Hashtags); tags != "" {
		var rendered []string
		for _, tag := range strings.Split(tags, ",") {
			tag = strings.TrimSpace(strings.TrimPrefix(tag, "#"))
			if tag != "" {
				rendered = append(rendered, "#"+tag)
			}
		}
		if len(rendered) > 0 {
			text = text + "\n\n" + strings.Join(rendered, " ")
		}
	}
	return text
}

func (p *Publisher) recordHistory(ctx context.Context, item *models.QueueItem, externalPostID, errorMessage string) {
	_, err := p.ph.Create(ctx, &models.PostingHistory{
		UserID:         item.UserID,
		ItemID:         item.ID,
		ExternalPostID: externalPostID,
		ErrorMessage:   errorMessage,
	})
	if err != nil {
		slog.Info("error saving posting history", "item_id", item.ID, "error", err.Error())
	}
}

// processItem runs one delivery attempt. The boolean result says
// whether the drain should continue with the user's next item.
func (p *Publisher) processItem(ctx context.Context, item *models.QueueItem) (bool, error) {
	accessToken, authorURN, err := p.creds.GetValidAccessToken(ctx, item.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrReauthorizationRequired) {
			// No retry: the user must re-link before anything publishes.
			if _, markErr := p.qr.MarkFailed(ctx, item.ID, reauthorizationError); markErr != nil {
				return false, markErr
			}
			p.recordHistory(ctx, item, "", reauthorizationError)
			return false, nil
		}
		return false, err
	}

	if err := p.quota.Reserve(ctx, item.UserID); err != nil {
		var quotaErr *apperrors.QuotaExceededError
		if errors.As(err, &quotaErr) {
			// Expected throttling: the item stays due and untouched,
			// no retry-count increment.
			slog.Info("quota exhausted, deferring user", "user_id", item.UserID, "reset_at", quotaErr.ResetAt)
			return false, nil
		}
		return false, err
	}

	mediaURLs, err := p.assets.ResolveItemURLs(ctx, item.ID)
	if err != nil {
		if releaseErr := p.quota.Release(ctx, item.UserID); releaseErr != nil {
			return false, releaseErr
		}
		return false, err
	}

	publishCtx, cancel := context.WithTimeout(ctx, p.cfg.PublishTimeout)
	externalPostID, err := p.li.Publish(publishCtx, accessToken, authorURN, &service.PostContent{
		Text:      composeText(item),
		MediaURLs: mediaURLs,
	})
	cancel()

	if err == nil {
		return p.finalizeSuccess(ctx, item, externalPostID)
	}
	return p.finalizeFailure(ctx, item, err)
}

func (p *Publisher) finalizeSuccess(ctx context.Context, item *models.QueueItem, externalPostID string) (bool, error) {
	updated, err := p.qr.MarkPublished(ctx, item.ID, externalPostID, p.now())
	if err != nil {
		return false, err
	}
	if !updated {
		// The item was cancelled while the call was in flight. The post
		// exists externally and the quota unit was genuinely spent, so
		// the reservation stands.
		slog.Info("item cancelled mid-publish, keeping terminal cancelled status", "item_id", item.ID)
	}
	p.recordHistory(ctx, item, externalPostID, "")
	return true, nil
}

func (p *Publisher) finalizeFailure(ctx context.Context, item *models.QueueItem, pubErr error) (bool, error) {
	// A failed attempt consumed nothing: give the reservation back.
	if err := p.quota.Release(ctx, item.UserID); err != nil {
		return false, err
	}

	var de *apperrors.DeliveryError
	if !errors.As(pubErr, &de) {
		de = apperrors.Transient("internal_error", pubErr)
	}

	p.recordHistory(ctx, item, "", de.Error())

	if !de.Transient {
		if de.Reason == "invalid_token" {
			// Authoritative token rejection invalidates the credential
			// so subsequent items fail fast until the user re-links.
			if err := p.creds.Invalidate(ctx, item.UserID); err != nil {
				slog.Info("error invalidating credential", "user_id", item.UserID, "error", err.Error())
			}
		}
		if _, err := p.qr.MarkFailed(ctx, item.ID, de.Reason); err != nil {
			return false, err
		}
		return true, nil
	}

	retryCount := item.RetryCount + 1
	if retryCount >= p.cfg.MaxRetries {
		if _, err := p.qr.MarkFailed(ctx, item.ID, de.Reason); err != nil {
			return false, err
		}
	} else {
		delay := Backoff(p.cfg.BackoffBase, p.cfg.BackoffMax, retryCount)
		if de.RetryAfter > delay {
			delay = de.RetryAfter
		}
		if err := p.qr.UpdateRetry(ctx, item.ID, retryCount, p.now().Add(delay), de.Reason); err != nil {
			return false, err
		}
	}

	if de.Reason == "rate_limited" {
		// The platform told us to slow down for the whole account.
		return false, nil
	}
	return true, fmt.Errorf("delivery attempt failed: %w", de)
}
