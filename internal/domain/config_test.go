package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.NotNil(t, config)
	assert.Equal(t, "localhost", config.Server.Host)
	assert.Equal(t, 5001, config.Server.Port)
	assert.Equal(t, "IT", config.Spotify.Market)
	assert.Equal(t, 10*time.Second, config.Spotify.RequestTimeout)
	assert.Equal(t, 100*time.Second, config.Spotify.TokenSafetyMargin)
	assert.Equal(t, "spotdl", config.Download.SpotDLBinary)
	assert.Equal(t, "opus", config.Download.Format)
	assert.Equal(t, 180*time.Second, config.Download.ItemTimeout)
	assert.Equal(t, 600*time.Second, config.Download.BatchTimeout)
	assert.Equal(t, PlanTracks, config.Download.PlanMode)
	assert.Equal(t, time.Second, config.Discovery.RequestDelay)
	assert.Empty(t, config.Discovery.Schedule)
	assert.False(t, config.Notification.Enabled)
	assert.Equal(t, "info", config.Logging.Level)
}

func TestDownloadConfig_TimeoutFor(t *testing.T) {
	tests := []struct {
		name     string
		config   DownloadConfig
		task     DownloadTask
		expected time.Duration
	}{
		{
			name:     "configured item timeout",
			config:   DownloadConfig{ItemTimeout: 90 * time.Second},
			task:     DownloadTask{Kind: KindTrack},
			expected: 90 * time.Second,
		},
		{
			name:     "task override wins",
			config:   DownloadConfig{ItemTimeout: 90 * time.Second},
			task:     DownloadTask{Kind: KindAlbum, Timeout: DefaultBatchTimeout},
			expected: DefaultBatchTimeout,
		},
		{
			name:     "unset falls back to default",
			config:   DownloadConfig{},
			task:     DownloadTask{Kind: KindAlbum},
			expected: DefaultItemTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.config.TimeoutFor(tt.task))
		})
	}
}
