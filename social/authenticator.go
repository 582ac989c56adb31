package social

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	auth "github.com/medistream/go-identity"
)

// UserReconciler is the slice of the identity store the federated workflow
// needs: resolve-or-create keyed on the (email, provider) pair.
type UserReconciler interface {
	GetOrCreate(ctx context.Context, record *auth.User) (*auth.User, error)
}

// Authenticator implements the federated login workflow: verify the
// provider assertion, reconcile the (email, provider) pair to exactly one
// user, and issue a first-party token.
type Authenticator struct {
	verifier    AssertionVerifier
	users       UserReconciler
	tokens      auth.TokenService
	defaultRole auth.UserRole
	logger      auth.Logger
}

// NewAuthenticator creates a federated authenticator for one provider.
func NewAuthenticator(verifier AssertionVerifier, users UserReconciler, tokens auth.TokenService) *Authenticator {
	return &Authenticator{
		verifier:    verifier,
		users:       users,
		tokens:      tokens,
		defaultRole: auth.RolePatient,
		logger:      noopLogger{},
	}
}

func (a *Authenticator) WithLogger(l auth.Logger) *Authenticator {
	if l != nil {
		a.logger = l
	}
	return a
}

// WithDefaultRole overrides the role stamped on first-login account creation.
func (a *Authenticator) WithDefaultRole(role auth.UserRole) *Authenticator {
	if auth.IsValidRole(role) {
		a.defaultRole = role
	}
	return a
}

// Login verifies the opaque assertion and resolves it to a user, creating
// the account on first contact. Creation is idempotent in effect: the row id
// derives from the (email, provider) pair and lookups key on the same pair,
// so a second assertion for the same subject lands on the same user.
func (a *Authenticator) Login(ctx context.Context, assertion string) (*auth.LoginResult, error) {
	profile, err := a.verifier.Verify(ctx, assertion)
	if err != nil {
		a.logger.Error("Federated login verification failed for %s: %s", a.verifier.Provider(), err)
		return nil, err
	}

	user, err := a.users.GetOrCreate(ctx, a.userFromProfile(profile))
	if err != nil {
		a.logger.Error("Federated login reconciliation failed for %s: %s", profile.Provider, err)
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve federated user")
	}

	token, err := a.tokens.Generate(auth.NewIdentityFromUser(user))
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue token for federated user")
	}

	return &auth.LoginResult{
		Token: token,
		User:  user.Public(),
	}, nil
}

func (a *Authenticator) userFromProfile(profile *Profile) *auth.User {
	user := &auth.User{
		Email:      profile.Email,
		Username:   auth.UsernameFromEmail(profile.Email),
		Name:       profile.Name,
		Avatar:     profile.Avatar,
		ExternalID: profile.Subject,
		Provider:   profile.Provider,
		Role:       a.defaultRole,
	}

	// Deterministic id keeps concurrent first logins for one subject from
	// minting distinct rows before the unique index settles the race.
	if id, err := hashid.NewUUID(profile.Email + ":" + profile.Provider); err == nil {
		user.ID = id
	}

	return user
}

var _ auth.FederatedAuthenticator = (*Authenticator)(nil)
