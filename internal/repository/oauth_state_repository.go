package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/voicedeck/postqueue/internal/models"
)

type OAuthStateRepository interface {
	Create(ctx context.Context, state *models.OAuthState) error
	Consume(ctx context.Context, state string) (*models.OAuthState, bool, error)
	DeleteExpired(ctx context.Context) error
}

type oauthStateRepository struct {
	db *sql.DB
}

func NewOAuthStateRepository(db *sql.DB) OAuthStateRepository {
	return &oauthStateRepository{db: db}
}

func (r *oauthStateRepository) Create(ctx context.Context, state *models.OAuthState) error {
	query := `INSERT INTO oauth_states (state, user_id, expires_at) VALUES ($1, $2, $3)`
	_, err := r.db.ExecContext(ctx, query, state.State, state.UserID, state.ExpiresAt)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// Consume deletes the state row and returns it, so a state can only be
// redeemed once.
func (r *oauthStateRepository) Consume(ctx context.Context, state string) (*models.OAuthState, bool, error) {
	query := `DELETE FROM oauth_states WHERE state = $1 RETURNING state, user_id, expires_at, created_at`
	row := r.db.QueryRowContext(ctx, query, state)

	var s models.OAuthState
	err := row.Scan(&s.State, &s.UserID, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		slog.Info(err.Error())
		return nil, false, err
	}
	return &s, true, nil
}

func (r *oauthStateRepository) DeleteExpired(ctx context.Context) error {
	query := `DELETE FROM oauth_states WHERE expires_at < CURRENT_TIMESTAMP`
	_, err := r.db.ExecContext(ctx, query)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
