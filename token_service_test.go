package auth_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	auth "github.com/goliatone/go-auth-gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokenService(store *memStore, bl auth.Blacklist) *auth.TokenService {
	return auth.NewJWTTokenService(store, bl, newTestMinter()).WithLogger(nopLogger{})
}

func TestTokenService_IssueForUser(t *testing.T) {
	user := newTestUser(t, "ada@example.com", "secret")
	store := newMemStore(user)
	svc := newTestTokenService(store, nil)

	pair, err := svc.IssueForUser(context.Background(), user)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.Access)
	assert.NotEmpty(t, pair.Refresh)
	assert.NotEqual(t, pair.Access, pair.Refresh)

	stored := store.get(user.Email)
	assert.Equal(t, pair.Refresh, stored.RefreshToken)
	assert.NotNil(t, stored.LastLogin)
}

func TestTokenService_RotateHappyPath(t *testing.T) {
	ctx := context.Background()
	user := newTestUser(t, "ada@example.com", "secret")
	store := newMemStore(user)
	bl := auth.NewMemoryBlacklist()
	svc := newTestTokenService(store, bl)

	first, err := svc.IssueForUser(ctx, user)
	require.NoError(t, err)
	loginAt := store.get(user.Email).LastLogin

	second, err := svc.Rotate(ctx, user.Email, first.Refresh)
	require.NoError(t, err)
	assert.NotEqual(t, first.Refresh, second.Refresh)

	stored := store.get(user.Email)
	assert.Equal(t, second.Refresh, stored.RefreshToken)
	assert.Equal(t, loginAt, stored.LastLogin, "refresh must not touch last_login")

	revoked, err := bl.Contains(ctx, first.Refresh)
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestTokenService_RotateRejectsStaleToken(t *testing.T) {
	ctx := context.Background()
	user := newTestUser(t, "ada@example.com", "secret")
	store := newMemStore(user)
	svc := newTestTokenService(store, nil)

	first, err := svc.IssueForUser(ctx, user)
	require.NoError(t, err)
	_, err = svc.Rotate(ctx, user.Email, first.Refresh)
	require.NoError(t, err)
	current := store.get(user.Email).RefreshToken

	_, err = svc.Rotate(ctx, user.Email, first.Refresh)
	require.Error(t, err)
	assert.True(t, auth.HasTextCode(err, auth.TextCodeInvalidOrExpiredToken))
	assert.Equal(t, current, store.get(user.Email).RefreshToken, "a rejected refresh must not change state")
}

func TestTokenService_LoginRevokesPreviousRefresh(t *testing.T) {
	ctx := context.Background()
	user := newTestUser(t, "ada@example.com", "secret")
	store := newMemStore(user)
	bl := auth.NewMemoryBlacklist()
	svc := newTestTokenService(store, bl)

	first, err := svc.IssueForUser(ctx, user)
	require.NoError(t, err)

	again, err := store.FindUserByEmail(ctx, user.Email)
	require.NoError(t, err)
	second, err := svc.IssueForUser(ctx, again)
	require.NoError(t, err)

	revoked, err := bl.Contains(ctx, first.Refresh)
	require.NoError(t, err)
	assert.True(t, revoked)

	_, err = svc.Rotate(ctx, user.Email, first.Refresh)
	assert.True(t, auth.HasTextCode(err, auth.TextCodeInvalidOrExpiredToken))

	_, err = svc.Rotate(ctx, user.Email, second.Refresh)
	assert.NoError(t, err)
}

func TestTokenService_RotateUnknownEmail(t *testing.T) {
	svc := newTestTokenService(newMemStore(), nil)

	_, err := svc.Rotate(context.Background(), "ghost@example.com", "whatever")
	require.Error(t, err)
	assert.True(t, auth.HasTextCode(err, auth.TextCodeInvalidCredential))
}

func TestTokenService_RotateWithoutLiveToken(t *testing.T) {
	user := newTestUser(t, "ada@example.com", "secret")
	svc := newTestTokenService(newMemStore(user), nil)

	_, err := svc.Rotate(context.Background(), user.Email, "")
	assert.True(t, auth.HasTextCode(err, auth.TextCodeInvalidOrExpiredToken))
}

func TestTokenService_RotateRejectsExpiredToken(t *testing.T) {
	ctx := context.Background()
	user := newTestUser(t, "ada@example.com", "secret")
	store := newMemStore(user)

	issuedAt := time.Now().Add(-48 * time.Hour)
	minter := auth.NewJWTMinter([]byte(testSigningKey), auth.WithMinterClock(func() time.Time { return issuedAt }))
	svc := auth.NewTokenService(store, nil, minter.Mint).
		WithRefreshVerifier(newTestMinter().VerifyRefresh).
		WithLogger(nopLogger{})

	pair, err := svc.IssueForUser(ctx, user)
	require.NoError(t, err)

	_, err = svc.Rotate(ctx, user.Email, pair.Refresh)
	assert.True(t, auth.HasTextCode(err, auth.TextCodeInvalidOrExpiredToken))
}

func TestTokenService_Revoke(t *testing.T) {
	ctx := context.Background()
	user := newTestUser(t, "ada@example.com", "secret")
	store := newMemStore(user)
	bl := auth.NewMemoryBlacklist()
	svc := newTestTokenService(store, bl)

	pair, err := svc.IssueForUser(ctx, user)
	require.NoError(t, err)

	loaded, err := store.FindUserByEmail(ctx, user.Email)
	require.NoError(t, err)
	require.NoError(t, svc.Revoke(ctx, loaded))

	assert.Empty(t, store.get(user.Email).RefreshToken)
	revoked, _ := bl.Contains(ctx, pair.Refresh)
	assert.True(t, revoked)

	_, err = svc.Rotate(ctx, user.Email, pair.Refresh)
	assert.True(t, auth.HasTextCode(err, auth.TextCodeInvalidOrExpiredToken))

	t.Run("revoke without a live token still persists", func(t *testing.T) {
		require.NoError(t, svc.Revoke(ctx, loaded))
		assert.Empty(t, store.get(user.Email).RefreshToken)
	})
}

func TestTokenService_BlacklistFailuresAreDropped(t *testing.T) {
	ctx := context.Background()
	user := newTestUser(t, "ada@example.com", "secret")
	store := newMemStore(user)
	svc := newTestTokenService(store, failingBlacklist{})

	first, err := svc.IssueForUser(ctx, user)
	require.NoError(t, err)

	loaded, _ := store.FindUserByEmail(ctx, user.Email)
	_, err = svc.IssueForUser(ctx, loaded)
	require.NoError(t, err)

	second, err := svc.Rotate(ctx, user.Email, store.get(user.Email).RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.Refresh, second.Refresh)
}

func TestTokenService_MintStrategyIsSwappable(t *testing.T) {
	ctx := context.Background()
	user := newTestUser(t, "ada@example.com", "secret")
	store := newMemStore(user)

	calls := 0
	mint := func(u *auth.User) (auth.TokenPair, error) {
		calls++
		return auth.TokenPair{
			Access:  fmt.Sprintf("access-%d", calls),
			Refresh: fmt.Sprintf("refresh-%d", calls),
		}, nil
	}

	svc := auth.NewTokenService(store, nil, mint).WithLogger(nopLogger{})

	pair, err := svc.IssueForUser(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", pair.Refresh)

	pair, err = svc.Rotate(ctx, user.Email, "refresh-1")
	require.NoError(t, err)
	assert.Equal(t, auth.TokenPair{Access: "access-2", Refresh: "refresh-2"}, pair)
	assert.Equal(t, "refresh-2", store.get(user.Email).RefreshToken)
	assert.Equal(t, 2, calls)
}

func TestTokenService_EmitsActivity(t *testing.T) {
	ctx := context.Background()
	user := newTestUser(t, "ada@example.com", "secret")
	store := newMemStore(user)

	var events []auth.ActivityEventType
	sink := auth.ActivitySinkFunc(func(_ context.Context, e auth.ActivityEvent) error {
		events = append(events, e.EventType)
		return nil
	})
	svc := newTestTokenService(store, nil).WithActivitySink(sink)

	pair, err := svc.IssueForUser(ctx, user)
	require.NoError(t, err)
	_, err = svc.Rotate(ctx, user.Email, pair.Refresh)
	require.NoError(t, err)
	loaded, _ := store.FindUserByEmail(ctx, user.Email)
	require.NoError(t, svc.Revoke(ctx, loaded))

	assert.Equal(t, []auth.ActivityEventType{auth.ActivityEventTokenRefresh, auth.ActivityEventLogout}, events)
}
