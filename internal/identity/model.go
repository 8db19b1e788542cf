package identity

import "time"

// Roles a staff account can hold. Admin accounts bypass per-route role
// checks and may manage other accounts.
const (
	RoleAdmin  = "admin"
	RoleDoctor = "doctor"
	RoleStaff  = "staff"
)

// User is a staff account. The password hash never leaves this package.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Department   string    `json:"department,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleDoctor, RoleStaff:
		return true
	}
	return false
}
