package audit

// Roles understood by the access filter.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Caller identifies the authenticated user performing an operation.
type Caller struct {
	Username string
	Role     string
}

// IsAdmin reports whether the caller holds the admin role. Admins see and
// act on every audit; everyone else is limited to audits they own or
// collaborate on.
func (c Caller) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// CanAccess is the single authorization predicate applied before every
// id-scoped operation.
func CanAccess(c Caller, access Access) bool {
	return c.IsAdmin() || access.Allows(c.Username)
}
