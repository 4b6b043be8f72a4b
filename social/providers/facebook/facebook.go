package facebook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-auth-gateway/social"
	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/oauth2"
)

const (
	ProviderName = "facebook"

	graphVersion       = "v13.0"
	defaultAuthURL     = "https://www.facebook.com/" + graphVersion + "/dialog/oauth"
	defaultGraphURL    = "https://graph.facebook.com/" + graphVersion
	profileFields      = "email,name,first_name,last_name,gender,birthday,picture"
	stateMismatchError = "Invalid Facebook Secret state"
)

// Config holds Facebook OAuth configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	// State is the anti-CSRF value the browser must send back.
	State  string
	Scopes []string

	AuthURL  string
	GraphURL string

	HTTPClient *http.Client
}

// Provider implements social.Provider for Facebook.
type Provider struct {
	config     Config
	httpClient *http.Client
}

var _ social.Provider = (*Provider)(nil)

// New creates a new Facebook provider.
func New(cfg Config) *Provider {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{"email"}
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultAuthURL
	}
	if cfg.GraphURL == "" {
		cfg.GraphURL = defaultGraphURL
	}
	cfg.GraphURL = strings.TrimSuffix(cfg.GraphURL, "/")

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &Provider{
		config:     cfg,
		httpClient: client,
	}
}

// Name implements social.Provider.
func (p *Provider) Name() string {
	return ProviderName
}

// AuthCodeURL implements social.Provider. The configured state is always
// used; the state argument is ignored when one is configured.
func (p *Provider) AuthCodeURL(state, redirectURI string) string {
	if p.config.State != "" {
		state = p.config.State
	}
	cfg := &oauth2.Config{
		ClientID:    p.config.ClientID,
		RedirectURL: redirectURI,
		Scopes:      p.config.Scopes,
		Endpoint:    oauth2.Endpoint{AuthURL: p.config.AuthURL},
	}
	return cfg.AuthCodeURL(state,
		oauth2.SetAuthURLParam("auth_type", "rerequest"),
		oauth2.SetAuthURLParam("fields", "name,email,picture"),
	)
}

// ValidateCallback implements social.Provider.
func (p *Provider) ValidateCallback(params social.CallbackParams) error {
	return social.ValidateCallback(params, social.CallbackPolicy{
		Provider:       ProviderName,
		RequireState:   true,
		ExpectedState:  p.config.State,
		MismatchReason: stateMismatchError,
	})
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Exchange implements social.Provider.
func (p *Provider) Exchange(ctx context.Context, code, redirectURI string) (*social.Token, error) {
	params := url.Values{
		"code":          {code},
		"client_id":     {p.config.ClientID},
		"client_secret": {p.config.ClientSecret},
		"redirect_uri":  {redirectURI},
	}

	var resp tokenResponse
	if err := p.get(ctx, social.OperationExchange, p.config.GraphURL+"/oauth/access_token", params, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, social.WrapExchangeError(ProviderName,
			providerError(social.OperationExchange, http.StatusOK, "missing_access_token", "missing access token", nil, nil))
	}

	token := &social.Token{
		AccessToken: resp.AccessToken,
		TokenType:   resp.TokenType,
	}
	if resp.ExpiresIn > 0 {
		token.ExpiresAt = time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	return token, nil
}

type meResponse struct {
	ID string `json:"id"`
}

// Profile implements social.Provider. Facebook needs the user id from /me
// before the profile fields can be requested.
func (p *Provider) Profile(ctx context.Context, token *social.Token) (*social.Profile, error) {
	if token == nil || token.AccessToken == "" {
		return nil, social.WrapProfileError(ProviderName, social.OperationUserInfo,
			providerError(social.OperationUserInfo, 0, "missing_access_token", "missing access token", nil, nil))
	}

	auth := url.Values{"access_token": {token.AccessToken}}

	var me meResponse
	if err := p.get(ctx, social.OperationUserID, p.config.GraphURL+"/me", auth, &me); err != nil {
		return nil, err
	}
	if me.ID == "" {
		return nil, social.WrapProfileError(ProviderName, social.OperationUserID,
			providerError(social.OperationUserID, http.StatusOK, "missing_id", "missing user id", nil, nil))
	}

	params := url.Values{
		"fields":       {profileFields},
		"access_token": {token.AccessToken},
	}

	var info facebookUser
	if err := p.get(ctx, social.OperationUserInfo, p.config.GraphURL+"/"+url.PathEscape(me.ID), params, &info); err != nil {
		return nil, err
	}

	return mapProfile(&info), nil
}

func (p *Provider) get(ctx context.Context, operation, endpoint string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, fmt.Sprintf("facebook %s request failed", operation))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, fmt.Sprintf("failed to read facebook %s response", operation))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		code, desc, raw := parseFacebookError(body)
		perr := providerError(operation, resp.StatusCode, code, desc, nil, raw)
		if operation == social.OperationExchange {
			return social.WrapExchangeError(ProviderName, perr)
		}
		return social.WrapProfileError(ProviderName, operation, perr)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, fmt.Sprintf("failed to decode facebook %s response", operation))
	}
	return nil
}

// Graph API errors look like {"error":{"message":..,"type":..,"code":..}}.
// The OAuth endpoint may also answer with a flat error/error_description.
type graphError struct {
	Error struct {
		Message   string `json:"message"`
		Type      string `json:"type"`
		Code      int    `json:"code"`
		FBTraceID string `json:"fbtrace_id"`
	} `json:"error"`
}

type flatError struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
}

func parseFacebookError(body []byte) (string, string, map[string]any) {
	var graph graphError
	if err := json.Unmarshal(body, &graph); err == nil && (graph.Error.Message != "" || graph.Error.Type != "") {
		return graph.Error.Type, graph.Error.Message, map[string]any{
			"type":       graph.Error.Type,
			"message":    graph.Error.Message,
			"code":       graph.Error.Code,
			"fbtrace_id": graph.Error.FBTraceID,
		}
	}

	var flat flatError
	if err := json.Unmarshal(body, &flat); err == nil && (flat.Error != "" || flat.Description != "") {
		return flat.Error, flat.Description, map[string]any{
			"error":             flat.Error,
			"error_description": flat.Description,
		}
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = "facebook request failed"
	}
	return "", msg, nil
}

func providerError(operation string, status int, code, description string, err error, raw map[string]any) *social.ProviderError {
	return &social.ProviderError{
		Provider:    ProviderName,
		Operation:   operation,
		Status:      status,
		Code:        code,
		Description: description,
		Err:         err,
		Raw:         raw,
	}
}
