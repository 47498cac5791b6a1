package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	config "github.com/voicedeck/postqueue/configs"
	"github.com/voicedeck/postqueue/internal/apperrors"
)

func newLinkedinForTest(srv *httptest.Server) *linkedinService {
	cfg := config.Config{
		LinkedinClientID:     "client",
		LinkedinClientSecret: "secret",
		LinkedinRedirectURI:  "http://localhost/callback",
		LinkedinScopes:       "openid w_member_social",
	}
	return &linkedinService{
		cfg:         cfg,
		client:      srv.Client(),
		breaker:     gobreaker.NewCircuitBreaker(gobreaker.Settings{}),
		tokenURL:    srv.URL + "/token",
		revokeURL:   srv.URL + "/revoke",
		userinfoURL: srv.URL + "/userinfo",
		postsURL:    srv.URL + "/ugcPosts",
	}
}

func TestExchangeCodeSendsForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostFormValue("grant_type"))
		assert.Equal(t, "the-code", r.PostFormValue("code"))
		assert.Equal(t, "client", r.PostFormValue("client_id"))

		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "at",
			"refresh_token": "rt",
			"expires_in":    3600,
		})
	}))
	defer srv.Close()

	s := newLinkedinForTest(srv)
	resp, err := s.ExchangeCode(context.Background(), "the-code")
	require.NoError(t, err)
	assert.Equal(t, "at", resp.AccessToken)
	assert.Equal(t, "rt", resp.RefreshToken)
	assert.Equal(t, 3600, resp.ExpiresIn)
}

func TestExchangeCodeEmptyCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}))
	defer srv.Close()

	s := newLinkedinForTest(srv)
	_, err := s.ExchangeCode(context.Background(), "")
	assert.Error(t, err)
}

func TestProfileSendsBearer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer at", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{
			"sub":   "abc123",
			"name":  "Pat Example",
			"email": "pat@example.com",
		})
	}))
	defer srv.Close()

	s := newLinkedinForTest(srv)
	profile, err := s.Profile(context.Background(), "at")
	require.NoError(t, err)
	assert.Equal(t, "abc123", profile.Sub)
	assert.Equal(t, "Pat Example", profile.Name)
}

func TestPublishReturnsPostID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer at", r.Header.Get("Authorization"))

		var post ugcPost
		require.NoError(t, json.NewDecoder(r.Body).Decode(&post))
		assert.Equal(t, "urn:li:person:abc", post.Author)
		assert.Equal(t, "PUBLISHED", post.LifecycleState)

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"id": "urn:li:share:42"})
	}))
	defer srv.Close()

	s := newLinkedinForTest(srv)
	id, err := s.Publish(context.Background(), "at", "urn:li:person:abc", &PostContent{Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "urn:li:share:42", id)
}

func TestPublishReadsIDHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RestLi-Id", "urn:li:share:77")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	s := newLinkedinForTest(srv)
	id, err := s.Publish(context.Background(), "at", "urn:li:person:abc", &PostContent{Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "urn:li:share:77", id)
}

func TestPublishClassifiesErrors(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		headers       map[string]string
		wantReason    string
		wantTransient bool
		wantRetry     time.Duration
	}{
		{"unauthorized", http.StatusUnauthorized, nil, "invalid_token", false, 0},
		{"rate limited", http.StatusTooManyRequests, map[string]string{"Retry-After": "30"}, "rate_limited", true, 30 * time.Second},
		{"server error", http.StatusServiceUnavailable, nil, "server_error", true, 0},
		{"bad request", http.StatusUnprocessableEntity, nil, "content_rejected: duplicate post", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				for k, v := range tt.headers {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(map[string]any{"message": "duplicate post"})
			}))
			defer srv.Close()

			s := newLinkedinForTest(srv)
			_, err := s.Publish(context.Background(), "at", "urn:li:person:abc", &PostContent{Text: "hello"})
			require.Error(t, err)

			var de *apperrors.DeliveryError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, tt.wantReason, de.Reason)
			assert.Equal(t, tt.wantTransient, de.Transient)
			assert.Equal(t, tt.wantRetry, de.RetryAfter)
		})
	}
}

func TestPublishCircuitOpens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := newLinkedinForTest(srv)
	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 2
		},
	})

	ctx := context.Background()
	_, err := s.Publish(ctx, "at", "urn:li:person:abc", &PostContent{Text: "x"})
	require.Error(t, err)
	_, err = s.Publish(ctx, "at", "urn:li:person:abc", &PostContent{Text: "x"})
	require.Error(t, err)

	_, err = s.Publish(ctx, "at", "urn:li:person:abc", &PostContent{Text: "x"})
	var de *apperrors.DeliveryError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "circuit_open", de.Reason)
	assert.True(t, de.Transient)
}

func TestAuthURLCarriesState(t *testing.T) {
	s := &linkedinService{cfg: config.Config{
		LinkedinClientID:    "client",
		LinkedinRedirectURI: "http://localhost/callback",
		LinkedinScopes:      "openid",
	}}

	url := s.AuthURL("state123")
	assert.Contains(t, url, LINKEDIN_AUTH_URL)
	assert.Contains(t, url, "state=state123")
	assert.Contains(t, url, "client_id=client")
}

func TestBuildUGCPostMedia(t *testing.T) {
	post := buildUGCPost("urn:li:person:abc", &PostContent{
		Text:      "caption",
		MediaURLs: []string{"https://cdn.example.com/a.jpg"},
	})

	share := post.SpecificContent["com.linkedin.ugc.ShareContent"].(map[string]any)
	assert.Equal(t, "IMAGE", share["shareMediaCategory"])
	media := share["media"].([]map[string]any)
	require.Len(t, media, 1)
	assert.Equal(t, "https://cdn.example.com/a.jpg", media[0]["originalUrl"])
}
