package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/yourusername/music-harvest-go/internal/domain"
	"go.uber.org/zap"
)

// CredentialManager holds the client-credentials bearer token and refreshes it
// on demand. Refresh is idempotent, so concurrent callers racing past an
// expired token at worst exchange twice.
type CredentialManager struct {
	httpClient *http.Client
	config     *domain.SpotifyConfig
	logger     *zap.Logger
	now        func() time.Time

	mu    sync.RWMutex
	token domain.Token
}

// NewCredentialManager creates a new credential manager
func NewCredentialManager(config *domain.SpotifyConfig, logger *zap.Logger) *CredentialManager {
	return &CredentialManager{
		httpClient: &http.Client{Timeout: config.RequestTimeout},
		config:     config,
		logger:     logger.With(zap.String("component", "spotify_auth")),
		now:        time.Now,
	}
}

// ValidToken returns the held token, exchanging credentials for a new one
// when none is held or the held one is inside the safety margin
func (m *CredentialManager) ValidToken(ctx context.Context) (domain.Token, error) {
	m.mu.RLock()
	token := m.token
	m.mu.RUnlock()
	if token.ValidAt(m.now(), m.config.TokenSafetyMargin) {
		return token, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token.ValidAt(m.now(), m.config.TokenSafetyMargin) {
		return m.token, nil
	}

	token, err := m.exchange(ctx)
	if err != nil {
		m.logger.Error("Token exchange failed", zap.Error(err))
		return domain.Token{}, err
	}
	m.token = token

	m.logger.Debug("Obtained access token", zap.Time("expires_at", token.ExpiresAt))
	return token, nil
}

// Invalidate drops the held token so the next call refreshes it
func (m *CredentialManager) Invalidate() {
	m.mu.Lock()
	m.token = domain.Token{}
	m.mu.Unlock()
}

func (m *CredentialManager) exchange(ctx context.Context) (domain.Token, error) {
	if m.config.ClientID == "" || m.config.ClientSecret == "" {
		return domain.Token{}, fmt.Errorf("%w: client id or secret not configured", domain.ErrAuthFailure)
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.config.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return domain.Token{}, fmt.Errorf("%w: %v", domain.ErrAuthFailure, err)
	}
	req.SetBasicAuth(m.config.ClientID, m.config.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	requestedAt := m.now()
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return domain.Token{}, fmt.Errorf("%w: %v", domain.ErrAuthFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Token{}, fmt.Errorf("%w: token endpoint returned status %d", domain.ErrAuthFailure, resp.StatusCode)
	}

	var body tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.Token{}, fmt.Errorf("%w: malformed token response: %v", domain.ErrAuthFailure, err)
	}
	if body.AccessToken == "" || body.ExpiresIn <= 0 {
		return domain.Token{}, fmt.Errorf("%w: token response missing access_token or expires_in", domain.ErrAuthFailure)
	}

	return domain.Token{
		AccessToken: body.AccessToken,
		ExpiresAt:   requestedAt.Add(time.Duration(body.ExpiresIn) * time.Second),
	}, nil
}
