package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	config "github.com/voicedeck/postqueue/configs"
	"github.com/voicedeck/postqueue/internal/apperrors"
	"github.com/voicedeck/postqueue/internal/models"
	"github.com/voicedeck/postqueue/internal/repository"
	"github.com/voicedeck/postqueue/pkg/utils"
)

const stateTTL = 10 * time.Minute

type CredentialService interface {
	BeginAuthorization(ctx context.Context, userID int64) (string, error)
	CompleteAuthorization(ctx context.Context, userID int64, code, state string) error
	GetValidAccessToken(ctx context.Context, userID int64) (string, string, error)
	Invalidate(ctx context.Context, userID int64) error
	Disconnect(ctx context.Context, userID int64) error
	Status(ctx context.Context, userID int64) (*models.OAuthCredential, bool, error)
}

type credentialService struct {
	cfg config.Config
	cr  repository.CredentialRepository
	st  repository.OAuthStateRepository
	li  LinkedinService
	now func() time.Time
}

func NewCredentialService(
	cfg config.Config,
	cr repository.CredentialRepository,
	st repository.OAuthStateRepository,
	li LinkedinService) CredentialService {
	return &credentialService{
		cfg: cfg,
		cr:  cr,
		st:  st,
		li:  li,
		now: time.Now,
	}
}

func (s *credentialService) BeginAuthorization(ctx context.Context, userID int64) (string, error) {
	if s.cfg.LinkedinClientID == "" || s.cfg.LinkedinClientSecret == "" || s.cfg.LinkedinRedirectURI == "" {
		slog.Info("linkedin integration is not configured")
		return "", apperrors.ErrConfiguration
	}

	state, err := gonanoid.New(32)
	if err != nil {
		slog.Info(err.Error())
		return "", fmt.Errorf("error generating state: %w", err)
	}

	err = s.st.Create(ctx, &models.OAuthState{
		State:     state,
		UserID:    userID,
		ExpiresAt: s.now().Add(stateTTL),
	})
	if err != nil {
		return "", fmt.Errorf("error persisting state: %w", err)
	}

	return s.li.AuthURL(state), nil
}

func (s *credentialService) CompleteAuthorization(ctx context.Context, userID int64, code, state string) error {
	stored, found, err := s.st.Consume(ctx, state)
	if err != nil {
		return err
	}
	if !found || stored.UserID != userID || s.now().After(stored.ExpiresAt) {
		slog.Info("oauth state missing, expired or owned by another user")
		return apperrors.ErrInvalidState
	}

	tokenResponse, err := s.li.ExchangeCode(ctx, code)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrAuthorizationFailed, err)
	}

	profile, err := s.li.Profile(ctx, tokenResponse.AccessToken)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrAuthorizationFailed, err)
	}

	encryptedAccessToken, err := utils.Encrypt([]byte(tokenResponse.AccessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	encryptedRefreshToken, err := utils.Encrypt([]byte(tokenResponse.RefreshToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	cred := &models.OAuthCredential{
		UserID:       userID,
		AccountURN:   "urn:li:person:" + profile.Sub,
		AccountName:  profile.Name,
		AccessToken:  encryptedAccessToken,
		RefreshToken: encryptedRefreshToken,
		ExpiresAt:    GetExpiresAt(tokenResponse.ExpiresIn),
		Scopes:       tokenResponse.Scope,
	}

	return s.cr.Upsert(ctx, cred)
}

// GetValidAccessToken returns a decrypted access token and the account
// URN, refreshing the pair first when expiry is within the safety
// margin. A failed refresh deletes the credential: the user must
// re-link before anything can be published.
func (s *credentialService) GetValidAccessToken(ctx context.Context, userID int64) (string, string, error) {
	cred, found, err := s.cr.Get(ctx, userID)
	if err != nil {
		return "", "", err
	}
	if !found {
		return "", "", apperrors.ErrReauthorizationRequired
	}

	if cred.ExpiresAt.After(s.now().Add(s.cfg.Publisher.RefreshMargin)) {
		accessToken, err := utils.Decrypt(cred.AccessToken, []byte(s.cfg.SecretKey))
		if err != nil {
			return "", "", err
		}
		return accessToken, cred.AccountURN, nil
	}

	refreshToken, err := utils.Decrypt(cred.RefreshToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return "", "", err
	}

	tokenResponse, err := s.li.RefreshToken(ctx, refreshToken)
	if err != nil {
		slog.Info("refresh token exchange failed, removing credential", "user_id", userID)
		if removeErr := s.cr.Remove(ctx, userID); removeErr != nil {
			return "", "", removeErr
		}
		return "", "", fmt.Errorf("%w: %v", apperrors.ErrReauthorizationRequired, err)
	}

	encryptedAccessToken, err := utils.Encrypt([]byte(tokenResponse.AccessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return "", "", err
	}

	encryptedRefreshToken := ""
	if tokenResponse.RefreshToken != "" {
		encryptedRefreshToken, err = utils.Encrypt([]byte(tokenResponse.RefreshToken), []byte(s.cfg.SecretKey))
		if err != nil {
			return "", "", err
		}
	}

	err = s.cr.SetTokens(ctx, userID, encryptedAccessToken, encryptedRefreshToken, GetExpiresAt(tokenResponse.ExpiresIn))
	if err != nil {
		return "", "", err
	}

	return tokenResponse.AccessToken, cred.AccountURN, nil
}

// Invalidate drops a credential the platform has rejected. Unlike
// Disconnect there is no revoke call; the token is already dead.
func (s *credentialService) Invalidate(ctx context.Context, userID int64) error {
	return s.cr.Remove(ctx, userID)
}

func (s *credentialService) Disconnect(ctx context.Context, userID int64) error {
	cred, found, err := s.cr.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !found {
		return apperrors.ErrNotFound
	}

	accessToken, err := utils.Decrypt(cred.AccessToken, []byte(s.cfg.SecretKey))
	if err == nil {
		if err := s.li.Revoke(ctx, accessToken); err != nil {
			slog.Info("unable to revoke access, removing credential anyway")
		}
	}

	return s.cr.Remove(ctx, userID)
}

func (s *credentialService) Status(ctx context.Context, userID int64) (*models.OAuthCredential, bool, error) {
	return s.cr.Get(ctx, userID)
}
