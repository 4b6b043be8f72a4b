package auth

import (
	stderrors "errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

const (
	DefaultAccessTTL  = 5 * time.Minute
	DefaultRefreshTTL = 24 * time.Hour
)

// JWTMinter signs HS256 access/refresh pairs and verifies them.
type JWTMinter struct {
	signingKey []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
	logger     Logger
}

// MinterOption customizes a JWTMinter
type MinterOption func(*JWTMinter)

func WithMinterIssuer(issuer string) MinterOption {
	return func(m *JWTMinter) {
		m.issuer = issuer
	}
}

func WithMinterTTL(access, refresh time.Duration) MinterOption {
	return func(m *JWTMinter) {
		if access > 0 {
			m.accessTTL = access
		}
		if refresh > 0 {
			m.refreshTTL = refresh
		}
	}
}

func WithMinterClock(now func() time.Time) MinterOption {
	return func(m *JWTMinter) {
		if now != nil {
			m.now = now
		}
	}
}

func WithMinterLogger(logger Logger) MinterOption {
	return func(m *JWTMinter) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewJWTMinter creates a minter signing with signingKey.
func NewJWTMinter(signingKey []byte, opts ...MinterOption) *JWTMinter {
	m := &JWTMinter{
		signingKey: signingKey,
		accessTTL:  DefaultAccessTTL,
		refreshTTL: DefaultRefreshTTL,
		now:        time.Now,
		logger:     defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// RefreshTTL is the lifetime of refresh tokens minted by m.
func (m *JWTMinter) RefreshTTL() time.Duration {
	return m.refreshTTL
}

// Mint implements MintFunc. The refresh token is bound to the user identity
// and the access token is derived from the same claims.
func (m *JWTMinter) Mint(user *User) (TokenPair, error) {
	if user == nil {
		return TokenPair{}, errors.New("user is required", errors.CategoryBadInput)
	}

	now := m.now()
	refreshClaims := m.claimsFor(user, TokenTypeRefresh, now, m.refreshTTL)
	refresh, err := m.SignClaims(refreshClaims)
	if err != nil {
		return TokenPair{}, err
	}

	accessClaims := m.claimsFor(user, TokenTypeAccess, now, m.accessTTL)
	access, err := m.SignClaims(accessClaims)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{Access: access, Refresh: refresh}, nil
}

func (m *JWTMinter) claimsFor(user *User, kind TokenType, now time.Time, ttl time.Duration) *TokenClaims {
	claims := &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   user.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UID:       user.ID.String(),
		Email:     user.Email,
		IsStaff:   user.IsStaff,
		TokenType: kind,
	}
	ensureTokenID(&claims.RegisteredClaims)
	return claims
}

// SignClaims signs arbitrary claims using the configured signing key.
func (m *JWTMinter) SignClaims(claims *TokenClaims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(m.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signed, nil
}

// Parse validates a token string and returns its claims.
func (m *JWTMinter) Parse(tokenString string) (*TokenClaims, error) {
	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	}
	if m.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(m.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			m.logger.Error("minter parse encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode)
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}

// Validate accepts only access tokens.
func (m *JWTMinter) Validate(tokenString string) (*TokenClaims, error) {
	claims, err := m.Parse(tokenString)
	if err != nil {
		return nil, err
	}
	if !claims.IsAccess() {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}

// VerifyRefresh implements RefreshVerifier.
func (m *JWTMinter) VerifyRefresh(tokenString string) error {
	claims, err := m.Parse(tokenString)
	if err != nil {
		return err
	}
	if !claims.IsRefresh() {
		return ErrTokenMalformed
	}
	return nil
}

// tokenExpiry reads the exp claim without verifying the signature.
func tokenExpiry(tokenString string) (time.Time, bool) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
