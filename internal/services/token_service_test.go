package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Wikid82/warden/internal/models"
)

func TestTokenServiceRoundTrip(t *testing.T) {
	service := NewTokenService("test-secret")
	alice := testUser("alice")

	raw, err := service.Mint(alice, []string{ScopeRead, ScopeLaunch}, time.Hour)
	assert.NoError(t, err)
	assert.NotEmpty(t, raw)

	claims, err := service.Parse(raw)
	assert.NoError(t, err)
	assert.Equal(t, alice, claims.User())
	assert.True(t, claims.HasScope(ScopeRead))
	assert.True(t, claims.HasScope(ScopeLaunch))
	assert.False(t, claims.HasScope(ScopePolicyWrite))
}

func TestTokenServiceRejectsBadTokens(t *testing.T) {
	service := NewTokenService("test-secret")
	alice := testUser("alice")

	t.Run("wrong secret", func(t *testing.T) {
		raw, err := NewTokenService("other-secret").Mint(alice, []string{ScopeRead}, time.Hour)
		assert.NoError(t, err)

		_, err = service.Parse(raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		raw, err := service.Mint(alice, []string{ScopeRead}, -time.Minute)
		assert.NoError(t, err)

		_, err = service.Parse(raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := service.Parse("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing identity", func(t *testing.T) {
		raw, err := service.Mint(models.User{}, []string{ScopeRead}, time.Hour)
		assert.NoError(t, err)

		_, err = service.Parse(raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
