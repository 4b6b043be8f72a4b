package social

import (
	"crypto/subtle"
	"fmt"
)

// ReasonMissingCode is the redirect reason used when a callback has neither
// a code nor an error.
const ReasonMissingCode = "missing_code"

// ReasonProviderNotFound is the redirect reason for a callback on a provider
// that is not configured.
const ReasonProviderNotFound = "provider_not_found"

// ReasonStateMismatch is the default redirect reason for a forged or stale
// state.
const ReasonStateMismatch = "invalid_state"

// CallbackParams are the query parameters of a provider redirect.
type CallbackParams struct {
	Code             string
	State            string
	Error            string
	ErrorReason      string
	ErrorDescription string
}

// ReadCallbackParams collects callback parameters through get, usually a
// query string lookup.
func ReadCallbackParams(get func(key string) string) CallbackParams {
	return CallbackParams{
		Code:             get("code"),
		State:            get("state"),
		Error:            get("error"),
		ErrorReason:      get("error_reason"),
		ErrorDescription: get("error_description"),
	}
}

// CallbackError is a rejected provider redirect. Reason is safe to show to
// the browser.
type CallbackError struct {
	Provider string
	Reason   string
	Err      error
}

func (e *CallbackError) Error() string {
	if e == nil {
		return "callback rejected"
	}
	return fmt.Sprintf("%s callback rejected: %s", e.Provider, e.Reason)
}

func (e *CallbackError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// CallbackPolicy controls ValidateCallback.
type CallbackPolicy struct {
	Provider      string
	RequireState  bool
	ExpectedState string

	// MismatchReason overrides ReasonStateMismatch.
	MismatchReason string
}

// ValidateCallback rejects a redirect that carries an error, lacks a code,
// or (when the policy requires it) carries the wrong state.
func ValidateCallback(params CallbackParams, policy CallbackPolicy) error {
	if params.Error != "" || params.Code == "" {
		reason := params.Error
		if reason == "" {
			reason = ReasonMissingCode
		}
		return &CallbackError{
			Provider: policy.Provider,
			Reason:   reason,
			Err: wrapProviderError(ErrProviderCallback, policy.Provider, "callback", &ProviderError{
				Provider:    policy.Provider,
				Operation:   "callback",
				Code:        params.Error,
				Description: params.ErrorDescription,
			}),
		}
	}

	if policy.RequireState {
		if policy.ExpectedState == "" || subtle.ConstantTimeCompare([]byte(params.State), []byte(policy.ExpectedState)) != 1 {
			reason := policy.MismatchReason
			if reason == "" {
				reason = ReasonStateMismatch
			}
			return &CallbackError{
				Provider: policy.Provider,
				Reason:   reason,
				Err:      wrapProviderError(ErrCsrfStateMismatch, policy.Provider, "callback", nil),
			}
		}
	}

	return nil
}
