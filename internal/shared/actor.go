package shared

// Role is the actor role string supplied by the caller's auth context.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleOwner      Role = "owner"
	RoleAccountant Role = "accountant"
	RoleManager    Role = "manager"
	RoleTechnician Role = "technician"
	RoleDispatcher Role = "dispatcher"
)

// Valid reports whether the role is one of the known workshop roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleOwner, RoleAccountant, RoleManager, RoleTechnician, RoleDispatcher:
		return true
	default:
		return false
	}
}

// Actor identifies the user performing an operation. The engine does no
// authentication; identity arrives from the gateway that fronts it.
type Actor struct {
	UserID string
	Role   Role
	IP     string
}

// AnyRole reports whether the actor's role is in the allowed set.
func (a Actor) AnyRole(allowed ...Role) bool {
	for _, r := range allowed {
		if a.Role == r {
			return true
		}
	}
	return false
}
