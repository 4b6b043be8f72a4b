package google

import (
	"context"
	"net/http"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-auth-gateway/social"
	goerrors "github.com/goliatone/go-errors"
)

const defaultCertsURL = "https://www.googleapis.com/oauth2/v3/certs"

var googleIssuers = []string{"accounts.google.com", "https://accounts.google.com"}

type idTokenClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
}

// IDTokenVerifier checks Google ID tokens issued to ClientID and turns them
// into profiles.
type IDTokenVerifier struct {
	clientID string
	keyfunc  jwt.Keyfunc
	now      func() time.Time
	closer   func()
}

// NewIDTokenVerifier verifies signatures with keyFunc.
func NewIDTokenVerifier(clientID string, keyFunc jwt.Keyfunc) *IDTokenVerifier {
	return &IDTokenVerifier{
		clientID: clientID,
		keyfunc:  keyFunc,
		now:      time.Now,
	}
}

// NewJWKSIDTokenVerifier loads Google's signing keys from certsURL and keeps
// them refreshed in the background until Close is called.
func NewJWKSIDTokenVerifier(ctx context.Context, clientID, certsURL string, client *http.Client, onRefreshError func(error)) (*IDTokenVerifier, error) {
	if certsURL == "" {
		certsURL = defaultCertsURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	jwks, err := keyfunc.Get(certsURL, keyfunc.Options{
		Ctx:                 ctx,
		Client:              client,
		RefreshErrorHandler: onRefreshError,
		RefreshInterval:     time.Hour,
		RefreshRateLimit:    time.Minute * 5,
		RefreshTimeout:      time.Second * 10,
		RefreshUnknownKID:   true,
	})
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load google signing keys")
	}

	v := NewIDTokenVerifier(clientID, jwks.Keyfunc)
	v.closer = jwks.EndBackground
	return v, nil
}

// Close stops background key refreshes.
func (v *IDTokenVerifier) Close() {
	if v.closer != nil {
		v.closer()
	}
}

// Verify validates the signature, audience, issuer and expiry of rawToken.
func (v *IDTokenVerifier) Verify(_ context.Context, rawToken string) (*social.Profile, error) {
	claims := &idTokenClaims{}
	_, err := jwt.ParseWithClaims(rawToken, claims, v.keyfunc,
		jwt.WithAudience(v.clientID),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, invalidIDToken("invalid_token", err.Error(), err)
	}

	if !validIssuer(claims.Issuer) {
		return nil, invalidIDToken("invalid_issuer", "unexpected issuer "+claims.Issuer, nil)
	}
	if claims.Email == "" {
		return nil, invalidIDToken("missing_email", "id_token carries no email", nil)
	}

	return &social.Profile{
		Provider:       ProviderName,
		ProviderUserID: claims.Subject,
		Email:          claims.Email,
		FirstName:      claims.GivenName,
		LastName:       claims.FamilyName,
		Raw: map[string]any{
			"sub":            claims.Subject,
			"email":          claims.Email,
			"email_verified": claims.EmailVerified,
			"name":           claims.Name,
			"picture":        claims.Picture,
		},
	}, nil
}

func validIssuer(iss string) bool {
	for _, allowed := range googleIssuers {
		if iss == allowed {
			return true
		}
	}
	return false
}

func invalidIDToken(code, description string, err error) error {
	perr := providerError("id_token", 0, code, description, err, nil)
	clone := social.ErrInvalidIDToken.Clone()
	if clone == nil {
		clone = social.ErrInvalidIDToken
	}
	clone.Source = perr
	clone.WithMetadata(perr.Metadata())
	return clone
}
