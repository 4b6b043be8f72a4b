package social

import (
	"context"
	"errors"
	"strings"
	"sync"

	goerrors "github.com/goliatone/go-errors"
)

// Authenticate runs the provider pipeline: callback validation, code
// exchange, then profile fetch. It stops at the first failing step.
func Authenticate(ctx context.Context, provider Provider, params CallbackParams, redirectURI string) (*Profile, error) {
	if provider == nil {
		return nil, ErrProviderNotFound
	}

	if err := provider.ValidateCallback(params); err != nil {
		return nil, err
	}

	token, err := provider.Exchange(ctx, params.Code, redirectURI)
	if err != nil {
		return nil, err
	}

	profile, err := provider.Profile(ctx, token)
	if err != nil {
		return nil, err
	}

	if profile == nil || strings.TrimSpace(profile.Email) == "" {
		return nil, WrapProfileError(provider.Name(), OperationUserInfo, &ProviderError{
			Provider:    provider.Name(),
			Operation:   OperationUserInfo,
			Code:        "missing_email",
			Description: ErrMissingProfileEmail.Message,
			Err:         ErrMissingProfileEmail,
		})
	}

	profile.Email = strings.TrimSpace(profile.Email)
	if profile.Provider == "" {
		profile.Provider = provider.Name()
	}

	return profile, nil
}

// AsProviderError finds a ProviderError in err, following both standard
// wrapping and go-errors sources.
func AsProviderError(err error) (*ProviderError, bool) {
	for err != nil {
		var perr *ProviderError
		if errors.As(err, &perr) {
			return perr, true
		}
		var rich *goerrors.Error
		if !errors.As(err, &rich) || rich.Source == nil {
			return nil, false
		}
		err = rich.Source
	}
	return nil, false
}

// AsCallbackError reports whether err is a rejected provider redirect.
func AsCallbackError(err error) (*CallbackError, bool) {
	var cerr *CallbackError
	if errors.As(err, &cerr) {
		return cerr, true
	}
	return nil, false
}

// Registry holds the configured providers by name.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider)}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

func (r *Registry) Register(p Provider) {
	if p == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return nil, ErrProviderNotFound
	}
	return p, nil
}

// Names lists the registered providers.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}
