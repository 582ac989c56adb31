package auth

// UserRole is the user's role label. The auth core carries it in claims but
// enforces no permission policy beyond token issuance.
type UserRole = string

const (
	// RolePatient is the base role assigned to new accounts
	RolePatient UserRole = "patient"
	// RoleDoctor is a practitioner account
	RoleDoctor UserRole = "doctor"
	// RoleAdmin is an administrative account
	RoleAdmin UserRole = "admin"
)

var roleHierarchy = map[UserRole]int{
	RolePatient: 0,
	RoleDoctor:  1,
	RoleAdmin:   2,
}

// IsValidRole checks if the role is one of the predefined valid roles
func IsValidRole(r UserRole) bool {
	_, ok := roleHierarchy[r]
	return ok
}

// ParseRole returns the role if valid
func ParseRole(r string) (UserRole, bool) {
	if IsValidRole(r) {
		return r, true
	}
	return "", false
}

// RoleIsAtLeast checks if role meets the minimum required level
func RoleIsAtLeast(role, minRole UserRole) bool {
	a, ok := roleHierarchy[role]
	if !ok {
		return false
	}
	b, ok := roleHierarchy[minRole]
	if !ok {
		return false
	}
	return a >= b
}
