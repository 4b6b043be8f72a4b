package social

import "github.com/goliatone/go-errors"

const (
	TextCodeProviderNotFound    = "social_provider_not_found"
	TextCodeProviderCallback    = "social_provider_callback"
	TextCodeCsrfStateMismatch   = "social_csrf_state_mismatch"
	TextCodeTokenExchangeFail   = "social_token_exchange_failed"
	TextCodeProfileFetchFail    = "social_profile_fetch_failed"
	TextCodeIDTokenInvalid      = "social_id_token_invalid"
	TextCodeMissingProfileEmail = "social_missing_profile_email"
)

// ErrProviderNotFound is returned when a requested provider is not configured.
var ErrProviderNotFound = errors.New("social provider not found", errors.CategoryNotFound).
	WithTextCode(TextCodeProviderNotFound).
	WithCode(errors.CodeNotFound)

// ErrProviderCallback is returned when the provider redirect carries an
// error or no authorization code.
var ErrProviderCallback = errors.New("provider callback rejected", errors.CategoryBadInput).
	WithTextCode(TextCodeProviderCallback).
	WithCode(errors.CodeBadRequest)

// ErrCsrfStateMismatch is returned when the callback state does not match
// the configured value.
var ErrCsrfStateMismatch = errors.New("oauth state mismatch", errors.CategoryBadInput).
	WithTextCode(TextCodeCsrfStateMismatch).
	WithCode(errors.CodeBadRequest)

// ErrProviderTokenExchange is returned when a provider token exchange fails.
var ErrProviderTokenExchange = errors.New("token exchange failed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExchangeFail).
	WithCode(errors.CodeUnauthorized)

// ErrProviderProfileFetch is returned when fetching the provider profile fails.
var ErrProviderProfileFetch = errors.New("failed to fetch user info", errors.CategoryAuth).
	WithTextCode(TextCodeProfileFetchFail).
	WithCode(errors.CodeUnauthorized)

var ErrMissingProfileEmail = errors.New("provider profile has no email", errors.CategoryValidation).
	WithTextCode(TextCodeMissingProfileEmail).
	WithCode(errors.CodeBadRequest)

var ErrInvalidIDToken = errors.New("id_token is invalid", errors.CategoryAuth).
	WithTextCode(TextCodeIDTokenInvalid).
	WithCode(errors.CodeBadRequest)
