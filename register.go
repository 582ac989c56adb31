package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RegisterUserMessage is the typed input for the registration workflow.
// The transport layer validates shape and email format before dispatch.
type RegisterUserMessage struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// RegisterResult carries the issued token and the sanitized view of the
// newly created account.
type RegisterResult struct {
	Token string      `json:"access_token"`
	User  *PublicUser `json:"user"`
}

// RegisterUserHandler creates local-provider accounts. The duplicate probe
// and insert are not atomic against a concurrent registration; the store's
// uniqueness constraint is the authoritative guard, and an insert rejected
// for uniqueness surfaces as the same conflict as the probe.
type RegisterUserHandler struct {
	repo        RepositoryManager
	tokens      TokenService
	defaultRole UserRole
	logger      Logger
}

func NewRegisterUserHandler(repo RepositoryManager, tokens TokenService) *RegisterUserHandler {
	return &RegisterUserHandler{
		repo:        repo,
		tokens:      tokens,
		defaultRole: RolePatient,
		logger:      defLogger{},
	}
}

func (h *RegisterUserHandler) WithLogger(l Logger) *RegisterUserHandler {
	if l != nil {
		h.logger = l
	}
	return h
}

// WithDefaultRole overrides the role stamped on new registrations.
func (h *RegisterUserHandler) WithDefaultRole(role UserRole) *RegisterUserHandler {
	if IsValidRole(role) {
		h.defaultRole = role
	}
	return h
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) (*RegisterResult, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) (*RegisterResult, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	var user *User

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing, err := h.repo.Users().FindRegistrationConflictTx(ctx, tx, event.Email, event.Username)
		if err != nil && !repository.IsRecordNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for existing user")
		}
		if existing != nil {
			return ErrUserExists
		}

		hash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		record := &User{
			Email:        event.Email,
			Username:     getUsername(event.Username, event.Email),
			Name:         event.Name,
			PasswordHash: hash,
			Provider:     ProviderLocal,
			Role:         h.defaultRole,
		}

		if user, err = h.repo.Users().CreateTx(ctx, tx, record); err != nil {
			return err
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}

		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	token, err := h.tokens.Generate(NewIdentityFromUser(user))
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue token for new user")
	}

	return &RegisterResult{
		Token: token,
		User:  user.Public(),
	}, nil
}

func getUsername(username, email string) string {
	if username != "" {
		return username
	}

	return UsernameFromEmail(email)
}
