package kitsune

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes carried by the rich errors below. The HTTP layer keys its
// status mapping off these rather than inspecting messages.
const (
	TextCodeInvalidCredentials = "INVALID_CREDENTIALS"
	TextCodeInactiveUser       = "INACTIVE_USER"
	TextCodeDuplicateEmail     = "DUPLICATE_EMAIL"
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodeTokenMalformed     = "TOKEN_MALFORMED"
	TextCodeUserNotFound       = "USER_NOT_FOUND"
)

// ErrInvalidCredentials is returned for both unknown emails and wrong
// passwords so responses never reveal which one failed.
var ErrInvalidCredentials = goerrors.New("Incorrect email or password", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials)

// ErrInactiveUser is returned when credentials verify but the account is disabled.
var ErrInactiveUser = goerrors.New("Inactive user", goerrors.CategoryAuth).
	WithTextCode(TextCodeInactiveUser)

// ErrDuplicateEmail is returned when registration hits an email already in the store.
var ErrDuplicateEmail = goerrors.New("The user with this username already exists in the system.", goerrors.CategoryConflict).
	WithTextCode(TextCodeDuplicateEmail)

// ErrTokenExpired is the expiry-classified validation failure.
var ErrTokenExpired = goerrors.New("Could not validate credentials", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired)

// ErrTokenMalformed covers undecodable tokens and bad signatures. It shares
// its message with ErrTokenExpired: externally all token failures look alike.
var ErrTokenMalformed = goerrors.New("Could not validate credentials", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed)

// ErrUserNotFound is returned when a token's subject no longer resolves to a
// stored user. Kept distinct from the token failures to preserve the
// observed 404 behavior.
var ErrUserNotFound = goerrors.New("User not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound)

// ErrMismatchedHashAndPassword is the internal hash comparison failure.
var ErrMismatchedHashAndPassword = goerrors.New("mismatched hash and password", goerrors.CategoryAuth).
	WithTextCode("PASSWORD_MISMATCH")

// ErrNoEmptyString rejects empty passwords before they reach bcrypt.
var ErrNoEmptyString = goerrors.New("value must not be empty", goerrors.CategoryValidation).
	WithTextCode("EMPTY_VALUE")

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if goerrors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for undecodable or badly signed tokens
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if goerrors.Is(err, ErrTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
