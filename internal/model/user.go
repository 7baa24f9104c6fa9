package model

import "time"

// User represents an application user record as stored in the `users`
// table.  The json tags are omitted because these structs are used by
// the repository and service layers; handlers define their own response
// types so the password hash never leaves the process.
//
// Fields:
//
//	ID               – opaque identifier (UUIDv7 string).
//	Email            – unique email address, compared exactly as stored.
//	PasswordHash     – bcrypt hashed password.
//	RefreshTokenHash – SHA‑256 hex digest of the single live refresh token,
//	                   nil when the user has no session.
//	CreatedAt        – timestamp of creation.
//	UpdatedAt        – timestamp of last update.
type User struct {
	ID               string    // users.id
	Email            string    // users.email
	PasswordHash     string    // users.password_hash
	RefreshTokenHash *string   // users.refresh_token_hash (nullable)
	CreatedAt        time.Time // users.created_at
	UpdatedAt        time.Time // users.updated_at
}
