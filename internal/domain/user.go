package domain

// Role type to distinguish between user roles
type Role string

// Define constants for roles
const (
	RoleClient Role = "client"
	RoleCoach  Role = "coach"
	RoleAdmin  Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleClient || r == RoleCoach || r == RoleAdmin
}

// Actor is the authenticated caller of an operation, as resolved by the
// external authentication collaborator.
type Actor struct {
	ID   string
	Role Role
}

// Helper methods
func (a Actor) IsClient() bool {
	return a.Role == RoleClient
}

// IsStaff reports whether the actor is the coach or an admin.
func (a Actor) IsStaff() bool {
	return a.Role == RoleCoach || a.Role == RoleAdmin
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
