package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/voicedeck/postqueue/internal/models"
)

type CredentialRepository interface {
	Get(ctx context.Context, userID int64) (*models.OAuthCredential, bool, error)
	Upsert(ctx context.Context, cred *models.OAuthCredential) error
	SetTokens(ctx context.Context, userID int64, accessToken, refreshToken string, expiresAt time.Time) error
	ListExpiringBefore(ctx context.Context, cutoff time.Time) ([]*models.OAuthCredential, error)
	Remove(ctx context.Context, userID int64) error
}

type credentialRepository struct {
	db *sql.DB
}

func NewCredentialRepository(db *sql.DB) CredentialRepository {
	return &credentialRepository{db: db}
}

func (r *credentialRepository) Get(ctx context.Context, userID int64) (*models.OAuthCredential, bool, error) {
	query := `SELECT user_id, account_urn, account_name, access_token, refresh_token, expires_at, scopes, created_at, updated_at
		FROM oauth_credentials WHERE user_id = $1`
	row := r.db.QueryRowContext(ctx, query, userID)

	var cred models.OAuthCredential
	err := row.Scan(&cred.UserID, &cred.AccountURN, &cred.AccountName, &cred.AccessToken,
		&cred.RefreshToken, &cred.ExpiresAt, &cred.Scopes, &cred.CreatedAt, &cred.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		slog.Info(err.Error())
		return nil, false, err
	}
	return &cred, true, nil
}

func (r *credentialRepository) Upsert(ctx context.Context, cred *models.OAuthCredential) error {
	query := `
		INSERT INTO oauth_credentials (user_id, account_urn, account_name, access_token, refresh_token, expires_at, scopes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id)
		DO UPDATE SET account_urn = $2,
			account_name = $3,
			access_token = $4,
			refresh_token = $5,
			expires_at = $6,
			scopes = $7,
			updated_at = CURRENT_TIMESTAMP
	`
	_, err := r.db.ExecContext(ctx, query, cred.UserID, cred.AccountURN, cred.AccountName,
		cred.AccessToken, cred.RefreshToken, cred.ExpiresAt, cred.Scopes)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *credentialRepository) SetTokens(ctx context.Context, userID int64, accessToken, refreshToken string, expiresAt time.Time) error {
	query := `
		UPDATE oauth_credentials
		SET access_token = COALESCE(NULLIF($2, ''), access_token),
			refresh_token = COALESCE(NULLIF($3, ''), refresh_token),
			expires_at = $4,
			updated_at = CURRENT_TIMESTAMP
		WHERE user_id = $1
	`
	_, err := r.db.ExecContext(ctx, query, userID, accessToken, refreshToken, expiresAt)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *credentialRepository) ListExpiringBefore(ctx context.Context, cutoff time.Time) ([]*models.OAuthCredential, error) {
	query := `SELECT user_id, access_token, refresh_token, expires_at
		FROM oauth_credentials WHERE expires_at < $1`
	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var creds []*models.OAuthCredential
	for rows.Next() {
		var cred models.OAuthCredential
		err := rows.Scan(&cred.UserID, &cred.AccessToken, &cred.RefreshToken, &cred.ExpiresAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		creds = append(creds, &cred)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return creds, nil
}

func (r *credentialRepository) Remove(ctx context.Context, userID int64) error {
	query := `DELETE FROM oauth_credentials WHERE user_id = $1`
	_, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
