package infrastructure

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/music-harvest-go/internal/domain"
	"go.uber.org/zap"
)

func newTestCredentials(tokenURL string) *CredentialManager {
	cfg := &domain.SpotifyConfig{
		ClientID:          "client-id",
		ClientSecret:      "client-secret",
		TokenURL:          tokenURL,
		RequestTimeout:    5 * time.Second,
		TokenSafetyMargin: 100 * time.Second,
	}
	return NewCredentialManager(cfg, zap.NewNop())
}

func TestCredentialManager_Exchange(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, http.MethodPost, r.Method)

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client-id", user)
		assert.Equal(t, "client-secret", pass)

		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok-1","token_type":"Bearer","expires_in":3600}`))
	}))
	defer server.Close()

	creds := newTestCredentials(server.URL)
	issued := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	creds.now = func() time.Time { return issued }

	token, err := creds.ValidToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token.AccessToken)
	assert.Equal(t, issued.Add(time.Hour), token.ExpiresAt)

	_, err = creds.ValidToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "valid token is reused")
}

func TestCredentialManager_RefreshesInsideSafetyMargin(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"access_token":"tok","expires_in":3600}`))
	}))
	defer server.Close()

	creds := newTestCredentials(server.URL)
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	creds.now = func() time.Time { return now }

	_, err := creds.ValidToken(context.Background())
	require.NoError(t, err)

	now = now.Add(3400 * time.Second)
	_, err = creds.ValidToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	now = now.Add(150 * time.Second)
	_, err = creds.ValidToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestCredentialManager_Invalidate(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"access_token":"tok","expires_in":3600}`))
	}))
	defer server.Close()

	creds := newTestCredentials(server.URL)

	_, err := creds.ValidToken(context.Background())
	require.NoError(t, err)

	creds.Invalidate()

	_, err = creds.ValidToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestCredentialManager_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"rejected credentials", http.StatusBadRequest, `{"error":"invalid_client"}`, "status 400"},
		{"malformed body", http.StatusOK, `not json`, "malformed token response"},
		{"missing token", http.StatusOK, `{"expires_in":3600}`, "missing access_token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			creds := newTestCredentials(server.URL)
			_, err := creds.ValidToken(context.Background())

			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrAuthFailure)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCredentialManager_MissingClientCredentials(t *testing.T) {
	creds := NewCredentialManager(&domain.SpotifyConfig{TokenURL: "http://127.0.0.1:0"}, zap.NewNop())

	_, err := creds.ValidToken(context.Background())

	assert.ErrorIs(t, err, domain.ErrAuthFailure)
}
