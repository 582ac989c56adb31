package auth

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes surfaced to transports alongside structured errors.
const (
	TextCodeUserExists       = "USER_EXISTS"
	TextCodeInvalidCreds     = "INVALID_CREDENTIALS"
	TextCodeTokenExpired     = "TOKEN_EXPIRED"
	TextCodeTokenMalformed   = "TOKEN_MALFORMED"
	TextCodeIdentityNotFound = "IDENTITY_NOT_FOUND"
	TextCodeFederatedToken   = "FEDERATED_TOKEN_INVALID"
	TextCodeVerifierDown     = "VERIFIER_UNAVAILABLE"
	TextCodeEmptyPassword    = "EMPTY_PASSWORD"
	TextCodeInvalidRole      = "INVALID_ROLE"
)

// ErrUserExists is returned when a registration collides with an existing
// account on email or username.
var ErrUserExists = goerrors.New("user already exists", goerrors.CategoryConflict).
	WithTextCode(TextCodeUserExists).
	WithCode(goerrors.CodeConflict)

// ErrInvalidCredentials collapses unknown-identity and wrong-password into a
// single outcome so callers cannot enumerate accounts.
var ErrInvalidCredentials = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(goerrors.CodeUnauthorized)

// ErrMismatchedHashAndPassword is the internal outcome of a failed password
// comparison. Workflows report it to callers as ErrInvalidCredentials.
var ErrMismatchedHashAndPassword = goerrors.New("password does not match hash", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(goerrors.CodeUnauthorized)

// ErrNoEmptyString rejects empty plaintext passwords before hashing.
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword)

// ErrTokenExpired is returned when a token's expiry is in the past.
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed covers unparseable tokens and bad signatures alike; the
// caller gets no hint which byte was wrong.
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// ErrIdentityNotFound is returned when a valid token references a subject
// that can no longer be resolved in the store.
var ErrIdentityNotFound = goerrors.New("identity not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeIdentityNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrFederatedTokenInvalid is returned when a third-party identity assertion
// fails signature, audience, or expiry checks.
var ErrFederatedTokenInvalid = goerrors.New("invalid federated token", goerrors.CategoryAuth).
	WithTextCode(TextCodeFederatedToken).
	WithCode(goerrors.CodeUnauthorized)

// ErrVerifierUnavailable is returned when the external verification oracle is
// unreachable or times out. Retrying is caller policy, never done here.
var ErrVerifierUnavailable = goerrors.New("federated verifier unavailable", goerrors.CategoryOperation).
	WithTextCode(TextCodeVerifierDown)

// IsConflictError reports whether err is a uniqueness conflict.
func IsConflictError(err error) bool {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.Category == goerrors.CategoryConflict
	}
	return false
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.TextCode == TextCodeTokenExpired {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.TextCode == TextCodeTokenMalformed {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
