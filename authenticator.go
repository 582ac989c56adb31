package auth

import (
	"context"
)

// UserVerifier resolves and verifies user records for the authenticator.
type UserVerifier interface {
	VerifyUser(ctx context.Context, identifier, password string) (*User, error)
	FindUserByID(ctx context.Context, id string) (*User, error)
}

// Auther implements the local login workflow and the session guard on top
// of a user verifier and the token service.
type Auther struct {
	provider     UserVerifier
	tokenService TokenService
	logger       Logger
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(provider UserVerifier, cfg Config) *Auther {
	tokenService := NewTokenService(
		[]byte(cfg.GetSigningKey()),
		cfg.GetTokenExpiration(),
		cfg.GetIssuer(),
		cfg.GetAudience(),
		defLogger{},
	)

	return &Auther{
		provider:     provider,
		tokenService: tokenService,
		logger:       defLogger{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithTokenService overrides the token service, e.g. to share one instance
// with the federated workflow.
func (s *Auther) WithTokenService(ts TokenService) *Auther {
	if ts != nil {
		s.tokenService = ts
	}
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Login authenticates an email-or-username plus password and issues a
// bearer token alongside the sanitized user view.
func (s *Auther) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	user, err := s.provider.VerifyUser(ctx, identifier, password)
	if err != nil {
		s.logger.Error("Login verify identity error: %s", err)
		return nil, err
	}

	token, err := s.tokenService.Generate(NewIdentityFromUser(user))
	if err != nil {
		s.logger.Error("Login token generation error: %s", err)
		return nil, err
	}

	return &LoginResult{
		Token: token,
		User:  user.Public(),
	}, nil
}

// SessionFromToken validates a raw token and returns the decoded session.
func (s *Auther) SessionFromToken(raw string) (Session, error) {
	claims, err := s.tokenService.Validate(raw)
	if err != nil {
		s.logger.Error("SessionFromToken validation failed: %s", err)
		return nil, err
	}

	session, err := sessionFromAuthClaims(claims)
	if err != nil {
		s.logger.Error("SessionFromToken failed to create session from claims: %s", err)
		return nil, err
	}

	return session, nil
}

// IdentityFromSession resolves the session subject to the current user
// record. A subject no longer in the store yields ErrIdentityNotFound.
func (s *Auther) IdentityFromSession(ctx context.Context, session Session) (*User, error) {
	user, err := s.provider.FindUserByID(ctx, session.GetUserID())
	if err != nil {
		s.logger.Error("IdentityFromSession find user error: %s", err)
		return nil, err
	}

	return user, nil
}

// CurrentUser is the session guard: it validates the bearer token and
// resolves it to the current public user view.
func (s *Auther) CurrentUser(ctx context.Context, token string) (*PublicUser, error) {
	session, err := s.SessionFromToken(token)
	if err != nil {
		return nil, err
	}

	user, err := s.IdentityFromSession(ctx, session)
	if err != nil {
		return nil, err
	}

	return user.Public(), nil
}

var _ Authenticator = (*Auther)(nil)
