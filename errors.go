package auth

import (
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidCredential     = "INVALID_CREDENTIAL"
	TextCodeInvalidOrExpiredToken = "INVALID_OR_EXPIRED_TOKEN"
	TextCodeTokenExpired          = "TOKEN_EXPIRED"
	TextCodeTokenMalformed        = "TOKEN_MALFORMED"
	TextCodeUserNotFound          = "USER_NOT_FOUND"
	TextCodeEmptyPassword         = "EMPTY_PASSWORD"
	TextCodePasswordMismatch      = "PASSWORD_MISMATCH"
)

// ErrInvalidCredential is returned for a bad local login and for an unknown
// email on refresh. Callers must not reveal which of the two happened.
var ErrInvalidCredential = errors.New("no active account found with the given credentials", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredential).
	WithCode(errors.CodeUnauthorized)

// ErrInvalidOrExpiredToken is returned when a presented refresh token is not
// the user's live token.
var ErrInvalidOrExpiredToken = errors.New("refresh token is invalid or expired", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidOrExpiredToken).
	WithCode(errors.CodeBadRequest)

var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

var ErrUserNotFound = errors.New("user not found", errors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(errors.CodeNotFound)

var ErrNoEmptyString = errors.New("password can not be empty", errors.CategoryBadInput).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(errors.CodeBadRequest)

var ErrMismatchedHashAndPassword = errors.New("password does not match hash", errors.CategoryAuth).
	WithTextCode(TextCodePasswordMismatch).
	WithCode(errors.CodeUnauthorized)

// HasTextCode reports whether err, or any error it wraps, is a rich error
// carrying the given text code.
func HasTextCode(err error, code string) bool {
	for err != nil {
		var rich *errors.Error
		if !errors.As(err, &rich) {
			return false
		}
		if rich.TextCode == code {
			return true
		}
		err = rich.Source
	}
	return false
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if HasTextCode(err, TextCodeTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if HasTextCode(err, TextCodeTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
