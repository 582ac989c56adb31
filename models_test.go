package auth_test

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/medistream/go-identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserPublicAppliesDefaults(t *testing.T) {
	id := uuid.New()
	user := &auth.User{
		ID:       id,
		Email:    "jane@example.com",
		Username: "jane",
		Provider: auth.ProviderLocal,
		Role:     auth.RolePatient,
	}

	view := user.Public()
	require.NotNil(t, view)

	assert.Equal(t, id.String(), view.ID)
	assert.Equal(t, "jane@example.com", view.Email)
	assert.Equal(t, "jane", view.Username)
	assert.Equal(t, "jane", view.Name, "name falls back to username")
	assert.Equal(t, auth.DefaultBloodType, view.BloodType)
	assert.Equal(t, auth.DefaultLastCheckup, view.LastCheckup)
	assert.Empty(t, view.Weight)
	assert.Empty(t, view.Height)
	assert.Equal(t, auth.RolePatient, view.Role)
	assert.Equal(t, auth.ProviderLocal, view.Provider)
}

func TestUserPublicKeepsSetFields(t *testing.T) {
	user := &auth.User{
		ID:          uuid.New(),
		Email:       "jane@example.com",
		Username:    "jane",
		Name:        "Jane Doe",
		BloodType:   "O+",
		Weight:      "60kg",
		Height:      "170cm",
		LastCheckup: "2026-01-15",
	}

	view := user.Public()

	assert.Equal(t, "Jane Doe", view.Name)
	assert.Equal(t, "O+", view.BloodType)
	assert.Equal(t, "60kg", view.Weight)
	assert.Equal(t, "170cm", view.Height)
	assert.Equal(t, "2026-01-15", view.LastCheckup)
}

func TestUserPublicNil(t *testing.T) {
	var user *auth.User
	assert.Nil(t, user.Public())
}

func TestPublicViewNeverCarriesCredentials(t *testing.T) {
	user := &auth.User{
		ID:           uuid.New(),
		Email:        "jane@example.com",
		Username:     "jane",
		PasswordHash: "$2a$14$secret-material",
		ExternalID:   "google-subject-123",
	}

	raw, err := json.Marshal(user.Public())
	require.NoError(t, err)

	assert.NotContains(t, string(raw), "secret-material")
	assert.NotContains(t, string(raw), "google-subject-123")
	assert.NotContains(t, string(raw), "password")
}

func TestUserJSONHidesCredentialFields(t *testing.T) {
	user := &auth.User{
		ID:           uuid.New(),
		Email:        "jane@example.com",
		PasswordHash: "$2a$14$secret-material",
		ExternalID:   "google-subject-123",
	}

	raw, err := json.Marshal(user)
	require.NoError(t, err)

	assert.NotContains(t, string(raw), "secret-material")
	assert.NotContains(t, string(raw), "google-subject-123")
}

func TestUserIsLocal(t *testing.T) {
	assert.True(t, (&auth.User{Provider: auth.ProviderLocal}).IsLocal())
	assert.False(t, (&auth.User{Provider: auth.ProviderGoogle}).IsLocal())

	var user *auth.User
	assert.False(t, user.IsLocal())
}

func TestUsernameFromEmail(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"jane@example.com", "jane"},
		{"jane.doe+tag@example.com", "jane.doe+tag"},
		{"no-at-sign", "no-at-sign"},
		{"@example.com", "@example.com"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, auth.UsernameFromEmail(tt.email), tt.email)
	}
}
