package social

import (
	"context"
)

// Profile is the identity extracted from a verified federated assertion.
type Profile struct {
	Provider      string `json:"provider"`
	Subject       string `json:"subject"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name,omitempty"`
	Avatar        string `json:"avatar,omitempty"`
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// AssertionVerifier delegates verification of a third-party identity
// assertion to the provider's verification oracle. Implementations must
// check signature, audience, and expiry; they never fall back to trusting
// unverified claims.
type AssertionVerifier interface {
	Provider() string
	Verify(ctx context.Context, assertion string) (*Profile, error)
}
