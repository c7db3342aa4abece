package user

import "time"

// User is the account record shared by the auth, role and user packages.
type User struct {
	ID           int64
	Username     string
	Email        string
	Name         string
	PasswordHash string
	Role         string
	IsActive     bool
	IsApproved   bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CanBeAssignedRole reports whether the account may hold a role other than the default.
func (u *User) CanBeAssignedRole() bool {
	return u.IsActive && u.IsApproved
}

// Snapshot is the audit-safe view of the account; it never includes the password hash.
func (u *User) Snapshot() map[string]interface{} {
	return map[string]interface{}{
		"id":          u.ID,
		"username":    u.Username,
		"email":       u.Email,
		"name":        u.Name,
		"role":        u.Role,
		"is_active":   u.IsActive,
		"is_approved": u.IsApproved,
	}
}
