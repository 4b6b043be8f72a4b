package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType distinguishes the two halves of a TokenPair.
type TokenType = string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// TokenClaims are the claims carried by both access and refresh tokens.
type TokenClaims struct {
	jwt.RegisteredClaims
	UID       string    `json:"uid,omitempty"`
	Email     string    `json:"email,omitempty"`
	IsStaff   bool      `json:"is_staff,omitempty"`
	TokenType TokenType `json:"token_type"`
}

func (c *TokenClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the uid claim, falling back to the subject
func (c *TokenClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}

func (c *TokenClaims) TokenID() string {
	return c.RegisteredClaims.ID
}

func (c *TokenClaims) IsAccess() bool {
	return c.TokenType == TokenTypeAccess
}

func (c *TokenClaims) IsRefresh() bool {
	return c.TokenType == TokenTypeRefresh
}

func (c *TokenClaims) Expires() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

func (c *TokenClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt == nil {
		return time.Time{}
	}
	return c.RegisteredClaims.IssuedAt.Time
}

func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims == nil || claims.ID != "" {
		return
	}
	claims.ID = uuid.NewString()
}
