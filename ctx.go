package auth

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

var userCtxKey = &contextKey{"user"}
var claimsCtxKey = &contextKey{"claims"}

type contextKey struct {
	name string
}

// WithContext sets the User in the given context
func WithContext(r context.Context, user *User) context.Context {
	return context.WithValue(r, userCtxKey, user)
}

// FromContext finds the user from the context.
func FromContext(ctx context.Context) (*User, bool) {
	raw, ok := ctx.Value(userCtxKey).(*User)
	return raw, ok
}

// WithClaimsContext sets the TokenClaims in the given context
func WithClaimsContext(r context.Context, claims *TokenClaims) context.Context {
	return context.WithValue(r, claimsCtxKey, claims)
}

// GetClaims extracts the TokenClaims from the standard context
func GetClaims(ctx context.Context) (*TokenClaims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(*TokenClaims)
	return raw, ok
}

// GetFiberClaims extracts the TokenClaims stored in the fiber locals under
// key by the JWT middleware.
func GetFiberClaims(c *fiber.Ctx, key string) (*TokenClaims, bool) {
	if key == "" {
		key = "user"
	}
	raw := c.Locals(key)
	if raw == nil {
		return nil, false
	}
	claims, ok := raw.(*TokenClaims)
	return claims, ok
}
