package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestToken_ValidAt(t *testing.T) {
	issued := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	token := Token{AccessToken: "abc", ExpiresAt: issued.Add(3600 * time.Second)}
	margin := 100 * time.Second

	assert.True(t, token.ValidAt(issued, margin))
	assert.True(t, token.ValidAt(issued.Add(3400*time.Second), margin))
	assert.False(t, token.ValidAt(issued.Add(3500*time.Second), margin))
	assert.False(t, token.ValidAt(issued.Add(3550*time.Second), margin))
	assert.False(t, token.ValidAt(issued.Add(4000*time.Second), margin))
}

func TestToken_Zero(t *testing.T) {
	var token Token

	assert.True(t, token.IsZero())
	assert.False(t, token.ValidAt(time.Now(), 0))
}
