package auth

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/goliatone/go-auth-gateway/social"
)

// GatewayConfig holds the URLs the gateway builds redirects from.
type GatewayConfig interface {
	GetBackendURL() string
	GetFrontendURL() string
	GetRoutePrefix() string
	GetUseHashid() bool
}

// IDTokenVerifier turns a provider issued ID token into a profile.
type IDTokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (*social.Profile, error)
}

// CallbackRejection is returned by FederatedLogin when the provider redirect
// itself is unusable. Location is where the browser should be sent.
type CallbackRejection struct {
	Provider string
	Reason   string
	Location string
	Err      error
}

func (e *CallbackRejection) Error() string {
	return fmt.Sprintf("%s login rejected: %s", e.Provider, e.Reason)
}

func (e *CallbackRejection) Unwrap() error {
	return e.Err
}

// Gateway drives local, federated, refresh and logout flows.
type Gateway struct {
	tokens      *TokenService
	users       UserStore
	credentials CredentialVerifier
	providers   *social.Registry
	idTokens    IDTokenVerifier
	backendURL  string
	frontendURL string
	routePrefix string
	useHashid   bool
	logger      Logger
	activity    ActivitySink
}

func NewGateway(cfg GatewayConfig, tokens *TokenService, users UserStore) *Gateway {
	return &Gateway{
		tokens:      tokens,
		users:       users,
		credentials: NewPasswordVerifier(users),
		providers:   social.NewRegistry(),
		backendURL:  strings.TrimSuffix(cfg.GetBackendURL(), "/"),
		frontendURL: strings.TrimSuffix(cfg.GetFrontendURL(), "/"),
		routePrefix: normalizePrefix(cfg.GetRoutePrefix()),
		useHashid:   cfg.GetUseHashid(),
		logger:      defLogger{},
		activity:    noopActivitySink{},
	}
}

func (g *Gateway) WithLogger(logger Logger) *Gateway {
	if logger != nil {
		g.logger = logger
	}
	return g
}

func (g *Gateway) WithActivitySink(sink ActivitySink) *Gateway {
	g.activity = normalizeActivitySink(sink)
	return g
}

func (g *Gateway) WithCredentialVerifier(v CredentialVerifier) *Gateway {
	if v != nil {
		g.credentials = v
	}
	return g
}

func (g *Gateway) WithProviders(providers ...social.Provider) *Gateway {
	for _, p := range providers {
		g.providers.Register(p)
	}
	return g
}

func (g *Gateway) WithIDTokenVerifier(v IDTokenVerifier) *Gateway {
	g.idTokens = v
	return g
}

// LocalLogin verifies email and password and issues a token pair.
func (g *Gateway) LocalLogin(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := g.credentials.VerifyCredentials(ctx, email, password)
	if err != nil {
		g.logger.Debug("local login rejected", "email", email, "error", err)
		emitActivity(ctx, g.activity, g.logger, ActivityEventLoginFailure, nil, map[string]any{
			"email": email,
			"error": err.Error(),
		})
		if HasTextCode(err, TextCodeInvalidCredential) {
			return nil, ErrInvalidCredential
		}
		return nil, err
	}

	pair, err := g.tokens.IssueForUser(ctx, user)
	if err != nil {
		return nil, err
	}

	emitActivity(ctx, g.activity, g.logger, ActivityEventLoginSuccess, user, map[string]any{
		"method": "password",
	})

	return NewLoginResult(user, pair), nil
}

// FederatedLogin completes a provider redirect. A malformed or forged
// redirect, or one for an unconfigured provider, yields a *CallbackRejection
// and nothing is looked up or issued.
func (g *Gateway) FederatedLogin(ctx context.Context, providerName string, params social.CallbackParams) (*LoginResult, error) {
	provider, err := g.providers.Get(providerName)
	if err != nil {
		return nil, &CallbackRejection{
			Provider: providerName,
			Reason:   social.ReasonProviderNotFound,
			Location: g.LoginRedirectURL(social.ReasonProviderNotFound),
			Err:      err,
		}
	}

	profile, err := social.Authenticate(ctx, provider, params, g.CallbackURL(providerName))
	if err != nil {
		if cerr, ok := social.AsCallbackError(err); ok {
			return nil, &CallbackRejection{
				Provider: providerName,
				Reason:   cerr.Reason,
				Location: g.LoginRedirectURL(cerr.Reason),
				Err:      err,
			}
		}
		g.logger.Error("federated login failed", "provider", providerName, "error", err)
		return nil, err
	}

	return g.loginProfile(ctx, profile)
}

// GoogleIDTokenLogin logs in with a Google ID token obtained by the browser.
func (g *Gateway) GoogleIDTokenLogin(ctx context.Context, idToken string) (*LoginResult, error) {
	if g.idTokens == nil {
		return nil, social.ErrProviderNotFound
	}

	profile, err := g.idTokens.Verify(ctx, idToken)
	if err != nil {
		return nil, err
	}

	return g.loginProfile(ctx, profile)
}

func (g *Gateway) loginProfile(ctx context.Context, profile *social.Profile) (*LoginResult, error) {
	user, created, err := GetOrCreateUser(ctx, g.users, profile, GetOrCreateOptions{UseHashid: g.useHashid})
	if err != nil {
		return nil, err
	}

	pair, err := g.tokens.IssueForUser(ctx, user)
	if err != nil {
		return nil, err
	}

	emitActivity(ctx, g.activity, g.logger, ActivityEventSocialLogin, user, map[string]any{
		"provider": profile.Provider,
		"created":  created,
	})

	return NewLoginResult(user, pair), nil
}

// Refresh rotates the refresh token held by email.
func (g *Gateway) Refresh(ctx context.Context, email, refresh string) (TokenPair, error) {
	return g.tokens.Rotate(ctx, strings.TrimSpace(email), refresh)
}

// Logout revokes the user's refresh token.
func (g *Gateway) Logout(ctx context.Context, user *User) error {
	return g.tokens.Revoke(ctx, user)
}

// UserForClaims loads the user an access token was issued to.
func (g *Gateway) UserForClaims(ctx context.Context, claims *TokenClaims) (*User, error) {
	if claims == nil {
		return nil, ErrTokenMalformed
	}
	email := claims.Email
	if email == "" {
		email = claims.Subject()
	}
	return g.users.FindUserByEmail(ctx, email)
}

// AuthorizationURL returns the consent page for providerName, wired to this
// gateway's callback route.
func (g *Gateway) AuthorizationURL(providerName string) (string, error) {
	provider, err := g.providers.Get(providerName)
	if err != nil {
		return "", err
	}
	return provider.AuthCodeURL("", g.CallbackURL(providerName)), nil
}

// CallbackURL is the redirect URI registered with providerName. It is built
// only from configuration.
func (g *Gateway) CallbackURL(providerName string) string {
	return g.backendURL + g.routePrefix + "/login/" + providerName + "/"
}

// LoginRedirectURL is the front-end login page carrying reason as error.
func (g *Gateway) LoginRedirectURL(reason string) string {
	return appendQueryParam(g.frontendURL+"/login", "error", reason)
}

// Providers lists configured provider names.
func (g *Gateway) Providers() []string {
	return g.providers.Names()
}

func normalizePrefix(prefix string) string {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), "/")
	if prefix != "" && !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	return prefix
}

func appendQueryParam(rawURL, key, value string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	query := u.Query()
	query.Set(key, value)
	u.RawQuery = query.Encode()
	return u.String()
}
