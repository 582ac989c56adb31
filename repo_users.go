package auth

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the identity store adapter. Lookups and inserts map onto one
// keyed collection of user documents; the store's uniqueness constraints
// over (email, provider) and local usernames are the authoritative guard
// against concurrent duplicate creation.
type Users interface {
	repository.Repository[*User]

	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error)
	GetLocalByIdentifier(ctx context.Context, identifier string) (*User, error)
	GetLocalByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string) (*User, error)
	GetByEmailAndProvider(ctx context.Context, email string, provider Provider) (*User, error)
	GetByEmailAndProviderTx(ctx context.Context, tx bun.IDB, email string, provider Provider) (*User, error)
	FindRegistrationConflict(ctx context.Context, email, username string) (*User, error)
	FindRegistrationConflictTx(ctx context.Context, tx bun.IDB, email, username string) (*User, error)

	Register(ctx context.Context, user *User) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	GetOrCreate(ctx context.Context, record *User) (*User, error)
	GetOrCreateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error)
	Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error)
}

type users struct {
	repository.Repository[*User]
	db          *bun.DB
	defaultRole UserRole
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

type UsersOption func(*users)

// WithUsersDefaultRole overrides the role stamped on records created with
// an empty role.
func WithUsersDefaultRole(role UserRole) UsersOption {
	return func(u *users) {
		if role != "" {
			u.defaultRole = role
		}
	}
}

func NewUsersRepository(db *bun.DB, opts ...UsersOption) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	repoUsers := &users{
		Repository:  repo,
		db:          db,
		defaultRole: RolePatient,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repoUsers)
		}
	}

	return repoUsers
}

func (a *users) Register(ctx context.Context, user *User) (*User, error) {
	return a.RegisterTx(ctx, a.db, user)
}

func (a *users) RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	return a.CreateTx(ctx, tx, user)
}

// GetByID resolves any account, regardless of provider, by its store id.
func (a *users) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return a.GetByIDTx(ctx, a.db, id)
}

func (a *users) GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"id": id.String(),
				})
		}
		return nil, err
	}

	return record, nil
}

// GetLocalByIdentifier resolves a local-provider account by email or
// username. Federated rows never match, so a Google account sharing the
// email cannot satisfy a password login.
func (a *users) GetLocalByIdentifier(ctx context.Context, identifier string) (*User, error) {
	return a.GetLocalByIdentifierTx(ctx, a.db, identifier)
}

func (a *users) GetLocalByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string) (*User, error) {
	for _, opt := range resolveUserIdentifier(identifier) {
		record := &User{}
		err := tx.NewSelect().
			Model(record).
			Where(fmt.Sprintf("?TableAlias.%s = ?", opt.column), opt.value).
			Where("?TableAlias.provider = ?", ProviderLocal).
			Limit(1).
			Scan(ctx)

		if err != nil {
			if repository.IsRecordNotFound(err) {
				continue
			}
			return nil, err
		}

		return record, nil
	}

	return nil, repository.NewRecordNotFound().
		WithMetadata(map[string]any{
			"identifier": identifier,
		})
}

func (a *users) GetByEmailAndProvider(ctx context.Context, email string, provider Provider) (*User, error) {
	return a.GetByEmailAndProviderTx(ctx, a.db, email, provider)
}

func (a *users) GetByEmailAndProviderTx(ctx context.Context, tx bun.IDB, email string, provider Provider) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", strings.TrimSpace(email)).
		Where("?TableAlias.provider = ?", provider).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"email":    email,
					"provider": provider,
				})
		}
		return nil, err
	}

	return record, nil
}

// FindRegistrationConflict probes for an account that would collide with a
// new local registration: same email under any provider, or same username
// among local accounts.
func (a *users) FindRegistrationConflict(ctx context.Context, email, username string) (*User, error) {
	return a.FindRegistrationConflictTx(ctx, a.db, email, username)
}

func (a *users) FindRegistrationConflictTx(ctx context.Context, tx bun.IDB, email, username string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("?TableAlias.email = ?", strings.TrimSpace(email)).
				WhereOr("?TableAlias.username = ? AND ?TableAlias.provider = ?", strings.TrimSpace(username), ProviderLocal)
		}).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"email":    email,
					"username": username,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *users) Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	a.prepareUserDefaults(record)

	created, err := a.Repository.CreateTx(ctx, tx, record, criteria...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrUserExists.Clone().WithMetadata(map[string]any{
				"provider": record.Provider,
			})
		}
		return nil, err
	}

	return created, nil
}

// GetOrCreateTx resolves a record by (email, provider), inserting it when
// absent. A concurrent insert losing the race resolves to the winner's row,
// so repeated federated assertions for one subject converge on one user.
func (a *users) GetOrCreate(ctx context.Context, record *User) (*User, error) {
	return a.GetOrCreateTx(ctx, a.db, record)
}

func (a *users) GetOrCreateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error) {
	user, err := a.GetByEmailAndProviderTx(ctx, tx, record.Email, record.Provider)
	if err == nil {
		return user, nil
	}

	if !repository.IsRecordNotFound(err) {
		return nil, err
	}

	created, err := a.CreateTx(ctx, tx, record)
	if err == nil {
		return created, nil
	}

	if IsConflictError(err) {
		return a.GetByEmailAndProviderTx(ctx, tx, record.Email, record.Provider)
	}

	return nil, err
}

func (a *users) prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.Role == "" {
		record.Role = a.defaultRole
	}

	if record.Provider == "" {
		record.Provider = ProviderLocal
	}

	if record.Username == "" {
		record.Username = UsernameFromEmail(record.Email)
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	if IsConflictError(err) {
		return true
	}

	var richErr *goerrors.Error
	msg := err.Error()
	if goerrors.As(err, &richErr) && richErr.Source != nil {
		msg = richErr.Source.Error()
	}

	msg = strings.ToLower(msg)
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation") ||
		strings.Contains(msg, "duplicate key")
}

type identifierOption struct {
	column string
	value  string
}

func resolveUserIdentifier(identifier string) []identifierOption {
	trimmed := strings.TrimSpace(identifier)
	if trimmed == "" {
		return nil
	}

	options := make([]identifierOption, 0, 2)

	if isEmail(trimmed) {
		options = append(options, identifierOption{
			column: "email",
			value:  trimmed,
		})
	}

	options = append(options, identifierOption{
		column: "username",
		value:  trimmed,
	})

	return options
}

func isEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}
