package auth

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Logger takes a message followed by alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// UserStore is the credential store the gateway persists users through.
type UserStore interface {
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	CreateUser(ctx context.Context, user *User) (*User, error)
	// SaveUser persists only the named columns of user.
	SaveUser(ctx context.Context, user *User, columns ...string) error
}

// Blacklist records refresh tokens revoked before their natural expiry.
type Blacklist interface {
	Add(ctx context.Context, token string, until time.Time) error
	Contains(ctx context.Context, token string) (bool, error)
}

// CredentialVerifier checks a local email/password pair.
type CredentialVerifier interface {
	VerifyCredentials(ctx context.Context, email, password string) (*User, error)
}

// MintFunc produces a fresh token pair for user.
type MintFunc func(user *User) (TokenPair, error)

// RefreshVerifier checks the signature and expiry of a refresh token.
type RefreshVerifier func(token string) error

// TokenValidator validates access tokens presented to protected routes.
type TokenValidator interface {
	Validate(token string) (*TokenClaims, error)
}

type defLogger struct{}

func (d defLogger) Debug(msg string, args ...any) {
	fmt.Print("[DBG] AUTH " + render(msg, args))
}

func (d defLogger) Info(msg string, args ...any) {
	fmt.Print("[INF] AUTH " + render(msg, args))
}

func (d defLogger) Warn(msg string, args ...any) {
	fmt.Print("[WRN] AUTH " + render(msg, args))
}

func (d defLogger) Error(msg string, args ...any) {
	fmt.Print("[ERR] AUTH " + render(msg, args))
}

func render(msg string, args []any) string {
	var b strings.Builder
	b.WriteString(strings.TrimSuffix(msg, "\n"))
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
			continue
		}
		fmt.Fprintf(&b, " %v", args[i])
	}
	b.WriteString("\n")
	return b.String()
}
