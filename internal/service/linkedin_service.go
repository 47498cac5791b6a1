package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	config "github.com/voicedeck/postqueue/configs"
	"github.com/voicedeck/postqueue/internal/apperrors"
	"github.com/voicedeck/postqueue/internal/transfer"
)

const (
	LINKEDIN_AUTH_URL   = "https://www.linkedin.com/oauth/v2/authorization"
	linkedinTokenURL    = "https://www.linkedin.com/oauth/v2/accessToken"
	linkedinRevokeURL   = "https://www.linkedin.com/oauth/v2/revoke"
	linkedinUserinfoURL = "https://api.linkedin.com/v2/userinfo"
	linkedinUGCPostsURL = "https://api.linkedin.com/v2/ugcPosts"
	linkedinAPIVersion  = "2.0.0"
)

// PostContent is the payload handed to Publish after media refs have
// been resolved to fetchable URLs.
type PostContent struct {
	Text      string
	MediaURLs []string
}

type LinkedinService interface {
	AuthURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*transfer.LinkedinTokenResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*transfer.LinkedinTokenResponse, error)
	Revoke(ctx context.Context, accessToken string) error
	Profile(ctx context.Context, accessToken string) (*transfer.LinkedinProfile, error)
	Publish(ctx context.Context, accessToken, authorURN string, content *PostContent) (string, error)
}

type linkedinService struct {
	cfg         config.Config
	client      *http.Client
	breaker     *gobreaker.CircuitBreaker
	tokenURL    string
	revokeURL   string
	userinfoURL string
	postsURL    string
}

func NewLinkedinService(cfg config.Config) LinkedinService {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "linkedin-publish",
		Timeout: 60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &linkedinService{
		cfg:         cfg,
		client:      &http.Client{},
		breaker:     breaker,
		tokenURL:    linkedinTokenURL,
		revokeURL:   linkedinRevokeURL,
		userinfoURL: linkedinUserinfoURL,
		postsURL:    linkedinUGCPostsURL,
	}
}

func (s *linkedinService) AuthURL(state string) string {
	params := url.Values{}
	params.Add("response_type", "code")
	params.Add("client_id", s.cfg.LinkedinClientID)
	params.Add("redirect_uri", s.cfg.LinkedinRedirectURI)
	params.Add("scope", s.cfg.LinkedinScopes)
	params.Add("state", state)

	return fmt.Sprintf("%s?%s", LINKEDIN_AUTH_URL, params.Encode())
}

func (s *linkedinService) ExchangeCode(ctx context.Context, code string) (*transfer.LinkedinTokenResponse, error) {
	if code == "" {
		err := errors.New("authorization code is empty")
		slog.Info(err.Error())
		return nil, err
	}

	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("client_id", s.cfg.LinkedinClientID)
	data.Set("client_secret", s.cfg.LinkedinClientSecret)
	data.Set("redirect_uri", s.cfg.LinkedinRedirectURI)

	return s.tokenRequest(ctx, data)
}

func (s *linkedinService) RefreshToken(ctx context.Context, refreshToken string) (*transfer.LinkedinTokenResponse, error) {
	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)
	data.Set("client_id", s.cfg.LinkedinClientID)
	data.Set("client_secret", s.cfg.LinkedinClientSecret)

	return s.tokenRequest(ctx, data)
}

func (s *linkedinService) tokenRequest(ctx context.Context, data url.Values) (*transfer.LinkedinTokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", s.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		var errResp transfer.LinkedinErrorResponse
		_ = json.Unmarshal(bodyBytes, &errResp)
		slog.Info("LinkedIn token endpoint returned non-200 status", "status", resp.StatusCode, "error", errResp.Error)
		return nil, fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, errResp.ErrorDescription)
	}

	var tokenResponse transfer.LinkedinTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResponse); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	return &tokenResponse, nil
}

func (s *linkedinService) Revoke(ctx context.Context, accessToken string) error {
	data := url.Values{}
	data.Set("client_id", s.cfg.LinkedinClientID)
	data.Set("client_secret", s.cfg.LinkedinClientSecret)
	data.Set("token", accessToken)

	req, err := http.NewRequestWithContext(ctx, "POST", s.revokeURL, strings.NewReader(data.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Info("LinkedIn revoke endpoint returned non-200 status")
		return errors.New("revoke endpoint returned non-200 status")
	}
	return nil
}

func (s *linkedinService) Profile(ctx context.Context, accessToken string) (*transfer.LinkedinProfile, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", s.userinfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Info("LinkedIn userinfo endpoint returned non-200 status")
		return nil, errors.New("userinfo endpoint returned non-200 status")
	}

	var profile transfer.LinkedinProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return &profile, nil
}

// ugcPost is the request body of the LinkedIn ugcPosts API.
type ugcPost struct {
	Author          string         `json:"author"`
	LifecycleState  string         `json:"lifecycleState"`
	SpecificContent map[string]any `json:"specificContent"`
	Visibility      map[string]any `json:"visibility"`
}

func buildUGCPost(authorURN string, content *PostContent) *ugcPost {
	shareContent := map[string]any{
		"shareCommentary":    map[string]any{"text": content.Text},
		"shareMediaCategory": "NONE",
	}

	if len(content.MediaURLs) > 0 {
		var media []map[string]any
		for _, u := range content.MediaURLs {
			media = append(media, map[string]any{
				"status":      "READY",
				"originalUrl": u,
			})
		}
		shareContent["shareMediaCategory"] = "IMAGE"
		shareContent["media"] = media
	}

	return &ugcPost{
		Author:         authorURN,
		LifecycleState: "PUBLISHED",
		SpecificContent: map[string]any{
			"com.linkedin.ugc.ShareContent": shareContent,
		},
		Visibility: map[string]any{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}
}

// Publish creates the post and returns the external post id. Errors are
// classified as transient or permanent DeliveryErrors so the retry
// engine can decide what to do with the item.
func (s *linkedinService) Publish(ctx context.Context, accessToken, authorURN string, content *PostContent) (string, error) {
	body, err := json.Marshal(buildUGCPost(authorURN, content))
	if err != nil {
		return "", apperrors.Permanent("invalid_payload", err)
	}

	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.doPublish(ctx, accessToken, body)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", apperrors.Transient("circuit_open", err)
		}
		return "", err
	}
	return result.(string), nil
}

func (s *linkedinService) doPublish(ctx context.Context, accessToken string, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", s.postsURL, bytes.NewReader(body))
	if err != nil {
		return "", apperrors.Permanent("invalid_request", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", linkedinAPIVersion)

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return "", apperrors.Transient("network_error", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
		var postResp transfer.LinkedinPostResponse
		if err := json.NewDecoder(resp.Body).Decode(&postResp); err != nil || postResp.ID == "" {
			// Some API versions only return the id in a header.
			if id := resp.Header.Get("X-RestLi-Id"); id != "" {
				return id, nil
			}
			slog.Info("publish response carried no post id")
			return "", apperrors.Transient("missing_post_id", err)
		}
		return postResp.ID, nil
	}

	bodyBytes, _ := io.ReadAll(resp.Body)
	var errResp transfer.LinkedinErrorResponse
	_ = json.Unmarshal(bodyBytes, &errResp)

	return "", classifyPublishError(resp, &errResp)
}

func classifyPublishError(resp *http.Response, errResp *transfer.LinkedinErrorResponse) *apperrors.DeliveryError {
	reason := errResp.Message
	if reason == "" {
		reason = resp.Status
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return apperrors.Permanent("invalid_token", errors.New(reason))

	case resp.StatusCode == http.StatusTooManyRequests:
		de := apperrors.Transient("rate_limited", errors.New(reason))
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if seconds, err := strconv.Atoi(ra); err == nil {
				de.RetryAfter = time.Duration(seconds) * time.Second
			}
		}
		return de

	case resp.StatusCode >= 500:
		return apperrors.Transient("server_error", errors.New(reason))

	default:
		return apperrors.Permanent("content_rejected: "+reason, nil)
	}
}
