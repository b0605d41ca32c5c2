package auth

// Roles recognized by taskgate. The set is closed: tokens carrying any other
// role value authenticate but are denied by the authorization layer.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleUser    = "user"
)

// ValidRole reports whether role is one of the recognized roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleManager, RoleUser:
		return true
	}
	return false
}

// Identity is the caller resolved from a verified access token. It is
// reconstructed per request and never persisted.
type Identity struct {
	SubjectID string
	Role      string
	Email     string
}

// IsAdmin returns true if the identity carries the admin role.
func (id Identity) IsAdmin() bool {
	return id.Role == RoleAdmin
}
