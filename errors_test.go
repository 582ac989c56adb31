package auth_test

import (
	"errors"
	"fmt"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/medistream/go-identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelErrorShapes(t *testing.T) {
	tests := []struct {
		name     string
		err      *goerrors.Error
		category goerrors.Category
		textCode string
	}{
		{"user exists", auth.ErrUserExists, goerrors.CategoryConflict, auth.TextCodeUserExists},
		{"invalid credentials", auth.ErrInvalidCredentials, goerrors.CategoryAuth, auth.TextCodeInvalidCreds},
		{"mismatched hash", auth.ErrMismatchedHashAndPassword, goerrors.CategoryAuth, auth.TextCodeInvalidCreds},
		{"empty password", auth.ErrNoEmptyString, goerrors.CategoryValidation, auth.TextCodeEmptyPassword},
		{"token expired", auth.ErrTokenExpired, goerrors.CategoryAuth, auth.TextCodeTokenExpired},
		{"token malformed", auth.ErrTokenMalformed, goerrors.CategoryAuth, auth.TextCodeTokenMalformed},
		{"identity not found", auth.ErrIdentityNotFound, goerrors.CategoryNotFound, auth.TextCodeIdentityNotFound},
		{"federated token invalid", auth.ErrFederatedTokenInvalid, goerrors.CategoryAuth, auth.TextCodeFederatedToken},
		{"verifier unavailable", auth.ErrVerifierUnavailable, goerrors.CategoryOperation, auth.TextCodeVerifierDown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotNil(t, tt.err)
			assert.Equal(t, tt.category, tt.err.Category)
			assert.Equal(t, tt.textCode, tt.err.TextCode)
		})
	}
}

func TestCredentialErrorsShareOneOutcome(t *testing.T) {
	// unknown identity and wrong password must be indistinguishable
	assert.Equal(t, auth.ErrInvalidCredentials.TextCode, auth.ErrMismatchedHashAndPassword.TextCode)
	assert.Equal(t, auth.ErrInvalidCredentials.Category, auth.ErrMismatchedHashAndPassword.Category)
}

func TestIsConflictError(t *testing.T) {
	assert.True(t, auth.IsConflictError(auth.ErrUserExists))
	assert.True(t, auth.IsConflictError(auth.ErrUserExists.Clone().WithMetadata(map[string]any{"provider": "local"})))
	assert.True(t, auth.IsConflictError(fmt.Errorf("outer: %w", auth.ErrUserExists)))

	assert.False(t, auth.IsConflictError(nil))
	assert.False(t, auth.IsConflictError(errors.New("plain error")))
	assert.False(t, auth.IsConflictError(auth.ErrInvalidCredentials))
}

func TestIsTokenExpiredError(t *testing.T) {
	assert.True(t, auth.IsTokenExpiredError(auth.ErrTokenExpired))
	assert.True(t, auth.IsTokenExpiredError(errors.New("token is expired by 3h")))

	assert.False(t, auth.IsTokenExpiredError(nil))
	assert.False(t, auth.IsTokenExpiredError(auth.ErrTokenMalformed))
}

func TestIsMalformedError(t *testing.T) {
	assert.True(t, auth.IsMalformedError(auth.ErrTokenMalformed))
	assert.True(t, auth.IsMalformedError(errors.New("missing or malformed JWT")))

	assert.False(t, auth.IsMalformedError(nil))
	assert.False(t, auth.IsMalformedError(auth.ErrTokenExpired))
}
