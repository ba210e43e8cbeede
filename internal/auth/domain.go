package auth

import "time"

// Account is the credential view of an office account.
type Account struct {
	ID           int64
	Email        string
	PasswordHash string
	IsActive     bool
	DateJoined   time.Time
	LastLogin    *time.Time
}
