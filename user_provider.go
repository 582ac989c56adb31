package auth

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// UserStore is the slice of the identity store the provider needs.
type UserStore interface {
	GetLocalByIdentifier(ctx context.Context, identifier string) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
}

// UserProvider resolves identities from the user store and verifies local
// credentials against stored hashes.
type UserProvider struct {
	store  UserStore
	logger Logger
}

// NewUserProvider will create a new UserProvider
func NewUserProvider(store UserStore) *UserProvider {
	return &UserProvider{
		store:  store,
		logger: defLogger{},
	}
}

func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	if l != nil {
		u.logger = l
	}
	return u
}

// VerifyUser will find the local user, compare the password, and return the
// record. Unknown identity and wrong password both resolve to
// ErrInvalidCredentials so callers cannot tell them apart.
func (u UserProvider) VerifyUser(ctx context.Context, identifier, password string) (*User, error) {
	user, err := u.store.GetLocalByIdentifier(ctx, identifier)
	if err != nil {
		if errors.IsNotFound(err) {
			// burn a compare so unknown identifiers cost the same as bad passwords
			ComparePasswordAndHash(password, RandomPasswordHash())
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during verification")
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}

	if !IsValidRole(user.Role) {
		return nil, errors.New("user has an unknown or invalid role", errors.CategoryAuth).
			WithTextCode(TextCodeInvalidRole).
			WithMetadata(map[string]any{"role": user.Role, "user_id": user.ID.String()})
	}

	return user, nil
}

// VerifyIdentity adapts VerifyUser to the IdentityProvider contract.
func (u UserProvider) VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error) {
	user, err := u.VerifyUser(ctx, identifier, password)
	if err != nil {
		return nil, err
	}

	return NewIdentityFromUser(user), nil
}

// FindIdentityByID resolves a token subject to the current user record.
func (u UserProvider) FindIdentityByID(ctx context.Context, id string) (Identity, error) {
	user, err := u.FindUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return NewIdentityFromUser(user), nil
}

// FindUserByID resolves a token subject to the full user record.
func (u UserProvider) FindUserByID(ctx context.Context, id string) (*User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrIdentityNotFound
	}

	user, err := u.store.GetByID(ctx, uid)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}

	return user, nil
}
