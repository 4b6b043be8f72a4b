package social

import (
	"context"
	"time"
)

// Provider is an OAuth2 authorization code flow against one identity
// provider.
type Provider interface {
	// Name returns the provider identifier (e.g., "google", "facebook").
	Name() string

	// AuthCodeURL returns the consent page URL the browser is sent to.
	AuthCodeURL(state, redirectURI string) string

	// ValidateCallback checks the query parameters of the provider redirect
	// before any network call is made.
	ValidateCallback(params CallbackParams) error

	// Exchange trades an authorization code for a provider access token.
	Exchange(ctx context.Context, code, redirectURI string) (*Token, error)

	// Profile fetches and normalizes the user's profile.
	Profile(ctx context.Context, token *Token) (*Profile, error)
}

// Token represents an OAuth2 token response.
type Token struct {
	AccessToken  string
	TokenType    string
	RefreshToken string
	IDToken      string
	ExpiresAt    time.Time
}

// Profile is the provider independent identity used to find or create a
// local user.
type Profile struct {
	Provider       string
	ProviderUserID string
	Email          string
	FirstName      string
	LastName       string
	Raw            map[string]any
}
