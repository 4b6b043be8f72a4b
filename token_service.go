package auth

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/goliatone/go-errors"
)

const (
	columnLastLogin    = "last_login"
	columnRefreshToken = "refresh_token"
)

// TokenService owns the refresh token lifecycle. Every login and refresh
// mints through issue, and a user holds at most one live refresh token.
type TokenService struct {
	store      UserStore
	blacklist  Blacklist
	mint       MintFunc
	verify     RefreshVerifier
	refreshTTL time.Duration
	now        func() time.Time
	logger     Logger
	activity   ActivitySink
}

// NewTokenService creates a TokenService. A nil blacklist falls back to a
// MemoryBlacklist.
func NewTokenService(store UserStore, blacklist Blacklist, mint MintFunc) *TokenService {
	if blacklist == nil {
		blacklist = NewMemoryBlacklist()
	}
	return &TokenService{
		store:      store,
		blacklist:  blacklist,
		mint:       mint,
		refreshTTL: DefaultRefreshTTL,
		now:        time.Now,
		logger:     defLogger{},
		activity:   noopActivitySink{},
	}
}

// NewJWTTokenService wires minter as both the mint strategy and the refresh
// verifier.
func NewJWTTokenService(store UserStore, blacklist Blacklist, minter *JWTMinter) *TokenService {
	return NewTokenService(store, blacklist, minter.Mint).
		WithRefreshVerifier(minter.VerifyRefresh).
		WithRefreshTTL(minter.RefreshTTL())
}

func (t *TokenService) WithLogger(logger Logger) *TokenService {
	if logger != nil {
		t.logger = logger
	}
	return t
}

func (t *TokenService) WithActivitySink(sink ActivitySink) *TokenService {
	t.activity = normalizeActivitySink(sink)
	return t
}

// WithMintFunc swaps the minting strategy.
func (t *TokenService) WithMintFunc(mint MintFunc) *TokenService {
	t.mint = mint
	return t
}

func (t *TokenService) WithRefreshVerifier(verify RefreshVerifier) *TokenService {
	t.verify = verify
	return t
}

// WithRefreshTTL sets how long blacklist entries live when a token carries
// no readable expiry.
func (t *TokenService) WithRefreshTTL(ttl time.Duration) *TokenService {
	if ttl > 0 {
		t.refreshTTL = ttl
	}
	return t
}

func (t *TokenService) WithClock(now func() time.Time) *TokenService {
	if now != nil {
		t.now = now
	}
	return t
}

// IssueForUser revokes the user's current refresh token, mints a new pair
// and persists the new refresh token together with last_login.
func (t *TokenService) IssueForUser(ctx context.Context, user *User) (TokenPair, error) {
	return t.issue(ctx, user, true)
}

// Rotate exchanges the user's live refresh token for a new pair. It does not
// touch last_login.
//
// Two concurrent rotations presenting the same token can both pass the
// comparison; the last SaveUser wins and the other caller holds a token that
// no longer matches.
func (t *TokenService) Rotate(ctx context.Context, email, presented string) (TokenPair, error) {
	user, err := t.store.FindUserByEmail(ctx, email)
	if err != nil {
		if HasTextCode(err, TextCodeUserNotFound) {
			return TokenPair{}, ErrInvalidCredential
		}
		return TokenPair{}, errors.Wrap(err, errors.CategoryInternal, "failed to load user for refresh")
	}
	if user == nil {
		return TokenPair{}, ErrInvalidCredential
	}

	if user.RefreshToken == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(user.RefreshToken)) != 1 {
		return TokenPair{}, ErrInvalidOrExpiredToken
	}

	revoked, err := t.blacklist.Contains(ctx, presented)
	if err != nil {
		t.logger.Warn("blacklist lookup failed, continuing", "user", user.ID, "error", err)
	}
	if revoked {
		return TokenPair{}, ErrInvalidOrExpiredToken
	}

	if t.verify != nil {
		if err := t.verify(presented); err != nil {
			t.logger.Debug("refresh token rejected", "user", user.ID, "error", err)
			return TokenPair{}, ErrInvalidOrExpiredToken
		}
	}

	pair, err := t.issue(ctx, user, false)
	if err != nil {
		return TokenPair{}, err
	}

	emitActivity(ctx, t.activity, t.logger, ActivityEventTokenRefresh, user, nil)
	return pair, nil
}

// Revoke blacklists the user's refresh token and clears it. Calling it on a
// user without a token only persists the empty value again.
func (t *TokenService) Revoke(ctx context.Context, user *User) error {
	if user == nil {
		return errors.New("user is required", errors.CategoryBadInput)
	}

	t.discard(ctx, user.RefreshToken)
	user.RefreshToken = ""

	if err := t.store.SaveUser(ctx, user, columnRefreshToken); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to clear refresh token")
	}

	emitActivity(ctx, t.activity, t.logger, ActivityEventLogout, user, nil)
	return nil
}

func (t *TokenService) issue(ctx context.Context, user *User, login bool) (TokenPair, error) {
	if user == nil {
		return TokenPair{}, errors.New("user is required", errors.CategoryBadInput)
	}
	if t.mint == nil {
		return TokenPair{}, errors.New("token service has no mint strategy", errors.CategoryInternal)
	}

	t.discard(ctx, user.RefreshToken)

	pair, err := t.mint(user)
	if err != nil {
		return TokenPair{}, errors.Wrap(err, errors.CategoryInternal, "failed to mint token pair")
	}

	columns := []string{columnRefreshToken}
	user.RefreshToken = pair.Refresh
	if login {
		now := t.now()
		user.LastLogin = &now
		columns = append(columns, columnLastLogin)
	}

	if err := t.store.SaveUser(ctx, user, columns...); err != nil {
		return TokenPair{}, errors.Wrap(err, errors.CategoryInternal, "failed to persist refresh token")
	}

	return pair, nil
}

// discard blacklists token best-effort. Failures are logged and dropped.
func (t *TokenService) discard(ctx context.Context, token string) {
	if token == "" {
		return
	}

	until, ok := tokenExpiry(token)
	if !ok {
		until = t.now().Add(t.refreshTTL)
	}

	if err := t.blacklist.Add(ctx, token, until); err != nil {
		t.logger.Warn("failed to blacklist refresh token", "error", err)
	}
}
