package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-auth-gateway/social"
	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
)

const (
	ProviderName = "google"

	defaultAuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	defaultUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
)

// Config holds Google OAuth configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	Scopes       []string

	AuthURL     string
	TokenURL    string
	UserInfoURL string

	HTTPClient *http.Client
}

// DefaultScopes returns the default Google scopes.
func DefaultScopes() []string {
	return []string{
		"https://www.googleapis.com/auth/userinfo.email",
		"https://www.googleapis.com/auth/userinfo.profile",
	}
}

// Provider implements social.Provider for Google.
type Provider struct {
	config     Config
	httpClient *http.Client
}

var _ social.Provider = (*Provider)(nil)

// New creates a new Google provider.
func New(cfg Config) *Provider {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = DefaultScopes()
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = googleoauth.Endpoint.TokenURL
	}
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = defaultUserInfoURL
	}

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

func (p *Provider) oauthConfig(redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     p.config.ClientID,
		ClientSecret: p.config.ClientSecret,
		RedirectURL:  redirectURI,
		Scopes:       p.config.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   p.config.AuthURL,
			TokenURL:  p.config.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// AuthCodeURL implements social.Provider.
func (p *Provider) AuthCodeURL(state, redirectURI string) string {
	return p.oauthConfig(redirectURI).AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "select_account"),
	)
}

// ValidateCallback implements social.Provider. Google redirects carry no
// state that the gateway checks.
func (p *Provider) ValidateCallback(params social.CallbackParams) error {
	return social.ValidateCallback(params, social.CallbackPolicy{Provider: ProviderName})
}

// Exchange implements social.Provider.
func (p *Provider) Exchange(ctx context.Context, code, redirectURI string) (*social.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	tok, err := p.oauthConfig(redirectURI).Exchange(ctx, code)
	if err != nil {
		return nil, p.exchangeError(err)
	}

	token := &social.Token{
		AccessToken:  tok.AccessToken,
		TokenType:    tok.TokenType,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}
	if idToken, ok := tok.Extra("id_token").(string); ok {
		token.IDToken = idToken
	}

	return token, nil
}

func (p *Provider) exchangeError(err error) error {
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		status := 0
		if rerr.Response != nil {
			status = rerr.Response.StatusCode
		}
		code, desc := rerr.ErrorCode, rerr.ErrorDescription
		var raw map[string]any
		if code == "" && desc == "" {
			code, desc, raw = parseGoogleError(rerr.Body)
		}
		return social.WrapExchangeError(ProviderName, providerError(social.OperationExchange, status, code, desc, nil, raw))
	}

	var uerr *url.Error
	if errors.As(err, &uerr) {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "google token request failed")
	}

	return social.WrapExchangeError(ProviderName, providerError(social.OperationExchange, 0, "invalid_response", err.Error(), err, nil))
}

// Profile implements social.Provider.
func (p *Provider) Profile(ctx context.Context, token *social.Token) (*social.Profile, error) {
	if token == nil || token.AccessToken == "" {
		return nil, social.WrapProfileError(ProviderName, social.OperationUserInfo,
			providerError(social.OperationUserInfo, 0, "missing_access_token", "missing access token", nil, nil))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.UserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "google userinfo request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read google userinfo response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		code, description, raw := parseGoogleError(body)
		return nil, social.WrapProfileError(ProviderName, social.OperationUserInfo,
			providerError(social.OperationUserInfo, resp.StatusCode, code, description, nil, raw))
	}

	var userInfo googleUserInfo
	if err := json.Unmarshal(body, &userInfo); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to decode google userinfo response")
	}

	return mapProfile(&userInfo), nil
}

type googleErrorResponse struct {
	Error string `json:"error"`
	Desc  string `json:"error_description"`
}

type googleAPIError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func parseGoogleError(body []byte) (string, string, map[string]any) {
	var plain googleErrorResponse
	if err := json.Unmarshal(body, &plain); err == nil && (plain.Error != "" || plain.Desc != "") {
		return plain.Error, plain.Desc, map[string]any{
			"error":             plain.Error,
			"error_description": plain.Desc,
		}
	}

	var api googleAPIError
	if err := json.Unmarshal(body, &api); err == nil && (api.Error.Message != "" || api.Error.Status != "") {
		code := api.Error.Status
		if code == "" && api.Error.Code != 0 {
			code = fmt.Sprintf("%d", api.Error.Code)
		}
		return code, api.Error.Message, map[string]any{
			"status":  api.Error.Status,
			"message": api.Error.Message,
			"code":    api.Error.Code,
		}
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = "google request failed"
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
