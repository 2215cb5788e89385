package domain

// Role is the caller role reported by the auth service.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleDelivery Role = "delivery"
	RoleCustomer Role = "customer"
)

// Identity is the authenticated caller of a request.
type Identity struct {
	ID   string
	Role Role
}

// IsAdmin reports whether the caller has the administrator role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}
