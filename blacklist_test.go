package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBlacklist(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	bl := NewMemoryBlacklist()
	bl.now = func() time.Time { return now }

	require.NoError(t, bl.Add(ctx, "token-a", now.Add(time.Hour)))
	require.NoError(t, bl.Add(ctx, "token-b", now.Add(2*time.Hour)))

	listed, err := bl.Contains(ctx, "token-a")
	require.NoError(t, err)
	assert.True(t, listed)

	listed, err = bl.Contains(ctx, "token-c")
	require.NoError(t, err)
	assert.False(t, listed)
	assert.Equal(t, 2, bl.Len())

	now = now.Add(90 * time.Minute)

	listed, _ = bl.Contains(ctx, "token-a")
	assert.False(t, listed, "expired entries are dropped")
	listed, _ = bl.Contains(ctx, "token-b")
	assert.True(t, listed)
	assert.Equal(t, 1, bl.Len())
}

func TestTokenFingerprint(t *testing.T) {
	a := TokenFingerprint("token-a")
	assert.Len(t, a, 64)
	assert.Equal(t, a, TokenFingerprint("token-a"))
	assert.NotEqual(t, a, TokenFingerprint("token-b"))
	assert.NotContains(t, a, "token")
}

func TestTokenExpiry(t *testing.T) {
	minter := NewJWTMinter([]byte("0123456789abcdef0123456789abcdef"))
	claims := minter.claimsFor(&User{Email: "ada@example.com"}, TokenTypeRefresh, time.Unix(1_700_000_000, 0), time.Hour)
	raw, err := minter.SignClaims(claims)
	require.NoError(t, err)

	until, ok := tokenExpiry(raw)
	require.True(t, ok)
	assert.Equal(t, int64(1_700_003_600), until.Unix())

	_, ok = tokenExpiry("opaque-token")
	assert.False(t, ok)
}
