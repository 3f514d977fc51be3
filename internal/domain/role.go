package domain

// Role is the closed set of roles a user can hold.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleCustomer Role = "customer"
)

// ValidRoles returns every role the service accepts.
func ValidRoles() []Role {
	return []Role{RoleAdmin, RoleManager, RoleCustomer}
}

// IsValid reports whether r is one of the defined roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleCustomer:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}
