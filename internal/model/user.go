package model

import "time"

// Staff roles carried in access tokens.
const (
	RoleManager = "MANAGER"
	RoleStaff   = "STAFF"
)

// User represents a back-office operator account as stored in the
// `staff_users` table. The json tags are omitted here because these structs
// are used by the repository layer; handlers define their own response
// types.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Email        – unique email address, stored lower-cased.
//	PasswordHash – bcrypt hashed password.
//	Role         – MANAGER or STAFF.
//	IsActive     – whether the account may log in.
//	CreatedAt    – timestamp of creation.
//	UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // staff_users.id
	Email        string    // staff_users.email
	PasswordHash string    // staff_users.password_hash
	Role         string    // staff_users.role
	IsActive     bool      // staff_users.is_active
	CreatedAt    time.Time // staff_users.created_at
	UpdatedAt    time.Time // staff_users.updated_at
}
