package job

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/voicedeck/postqueue/internal/models"
)

type fakeStateRepo struct {
	deleteCalls int
	deleteErr   error
}

func (f *fakeStateRepo) Create(ctx context.Context, state *models.OAuthState) error {
	return nil
}

func (f *fakeStateRepo) Consume(ctx context.Context, state string) (*models.OAuthState, bool, error) {
	return nil, false, nil
}

func (f *fakeStateRepo) DeleteExpired(ctx context.Context) error {
	f.deleteCalls++
	return f.deleteErr
}

func TestCleanupStatesSweepsExpired(t *testing.T) {
	repo := &fakeStateRepo{}
	j := NewStateCleanupJob(repo)

	j.CleanupStates()
	j.CleanupStates()

	assert.Equal(t, 2, repo.deleteCalls)
}

func TestCleanupStatesToleratesRepositoryError(t *testing.T) {
	repo := &fakeStateRepo{deleteErr: errors.New("connection reset")}
	j := NewStateCleanupJob(repo)

	j.CleanupStates()

	assert.Equal(t, 1, repo.deleteCalls)
}
