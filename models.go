package auth

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Provider is the credential origin for a user record.
type Provider = string

const (
	// ProviderLocal is a password-based account
	ProviderLocal Provider = "local"
	// ProviderGoogle is a Google federated account
	ProviderGoogle Provider = "google"
)

// Defaults applied to optional profile fields in the public view. The portal
// frontend renders these literals verbatim, so they are part of the contract.
const (
	DefaultBloodType   = "N/A"
	DefaultLastCheckup = "Not Available"
)

// User is the user model. The pair (email, provider) is unique across all
// rows; username is unique among local-provider rows. Both constraints live
// in the store schema, which stays authoritative under concurrent creation.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string     `bun:"email,notnull,unique:users_email_provider" json:"email,omitempty"`
	Provider      Provider   `bun:"provider,notnull,unique:users_email_provider" json:"provider,omitempty"`
	Username      string     `bun:"username" json:"username,omitempty"`
	Name          string     `bun:"name" json:"name,omitempty"`
	Role          UserRole   `bun:"user_role,notnull" json:"user_role,omitempty"`
	PasswordHash  string     `bun:"password_hash" json:"-"`
	ExternalID    string     `bun:"external_id" json:"-"`
	Avatar        string     `bun:"avatar" json:"avatar,omitempty"`
	BloodType     string     `bun:"blood_type" json:"blood_type,omitempty"`
	Weight        string     `bun:"weight" json:"weight,omitempty"`
	Height        string     `bun:"height" json:"height,omitempty"`
	LastCheckup   string     `bun:"last_checkup" json:"last_checkup,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// IsLocal reports whether the account authenticates with a stored credential.
func (u *User) IsLocal() bool {
	return u != nil && u.Provider == ProviderLocal
}

// PublicUser is the canonical sanitized projection of a User. It is the only
// user shape any workflow returns; credential fields have no representation.
type PublicUser struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Username    string `json:"username"`
	Name        string `json:"name"`
	Avatar      string `json:"avatar"`
	BloodType   string `json:"bloodType"`
	Weight      string `json:"weight"`
	Height      string `json:"height"`
	LastCheckup string `json:"lastCheckup"`
	Role        string `json:"role"`
	Provider    string `json:"provider"`
}

// Public projects the user into its sanitized view, applying display
// defaults for unset profile fields.
func (u *User) Public() *PublicUser {
	if u == nil {
		return nil
	}

	view := &PublicUser{
		ID:          u.ID.String(),
		Email:       u.Email,
		Username:    u.Username,
		Name:        u.Name,
		Avatar:      u.Avatar,
		BloodType:   u.BloodType,
		Weight:      u.Weight,
		Height:      u.Height,
		LastCheckup: u.LastCheckup,
		Role:        string(u.Role),
		Provider:    string(u.Provider),
	}

	if view.Name == "" {
		view.Name = u.Username
	}
	if view.BloodType == "" {
		view.BloodType = DefaultBloodType
	}
	if view.LastCheckup == "" {
		view.LastCheckup = DefaultLastCheckup
	}

	return view
}

// UsernameFromEmail derives a default username from the email local part.
func UsernameFromEmail(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}
