package access

import "fmt"

// Role represents the caller's permission level.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

var validRoles = []Role{RoleAdmin, RoleUser}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRole converts raw input into a Role.
func ParseRole(value string) (Role, error) {
	for _, candidate := range validRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}

// Scope identifies the caller for read-path filtering. Admins see everything;
// ordinary users only see rows tied to their own username.
type Scope struct {
	Username string
	Role     Role
}

// SelfOnly reports whether reads must be restricted to the caller's own
// lending records.
func (s Scope) SelfOnly() bool {
	return s.Role != RoleAdmin
}

// CanManageCatalog reports whether the role may create, update, or delete
// books.
func (r Role) CanManageCatalog() bool {
	return r == RoleAdmin
}

// CanDeleteLendingRecords reports whether the role may delete ledger history.
func (r Role) CanDeleteLendingRecords() bool {
	return r == RoleAdmin
}
