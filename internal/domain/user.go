package domain

import "time"

// Known role tags. Registration stores the role field as provided, so other
// values can exist in the store; ADMIN is the only role the API checks for.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// User represents a registered account.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Role         string
	Enabled      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity is the resolved caller of an authenticated request.
type Identity struct {
	Username string
	Role     string
}

// IsAdmin reports whether the identity carries the administrative role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}
