package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenExpiringSoon(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	window := 5 * time.Minute

	assert.True(t, Shop{}.TokenExpiringSoon(now, window), "missing access token is always expiring")

	fresh := Shop{AccessToken: "tok", ExpireAt: now.Add(time.Hour)}
	assert.False(t, fresh.TokenExpiringSoon(now, window))

	aboutToExpire := Shop{AccessToken: "tok", ExpireAt: now.Add(time.Minute)}
	assert.True(t, aboutToExpire.TokenExpiringSoon(now, window))

	alreadyExpired := Shop{AccessToken: "tok", ExpireAt: now.Add(-time.Minute)}
	assert.True(t, alreadyExpired.TokenExpiringSoon(now, window))
}

func TestEffectiveSandbox(t *testing.T) {
	assert.True(t, EffectiveSandbox(Company{IsSandbox: true}, false, true), "known company row wins over process flag")
	assert.False(t, EffectiveSandbox(Company{IsSandbox: false}, true, true), "known company row wins even when process flag says sandbox")
	assert.True(t, EffectiveSandbox(Company{}, true, false), "falls back to process flag when company is unknown")
	assert.False(t, EffectiveSandbox(Company{}, false, false))
}
