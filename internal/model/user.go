package model

import "time"

// Roles a user can hold.  Hosts own listings; everyone else is a guest.
const (
	RoleGuest = "guest"
	RoleHost  = "host"
)

// User represents an account as stored in the `users` table.  Any of
// Email, Phone or the provider ids may be empty depending on how the
// account was created (password, phone OTP or OAuth).
//
// Fields:
//
//	PasswordHash – bcrypt hash, empty for phone and OAuth accounts.
//	GoogleID, FacebookID, AppleID – provider subject ids, unique when set.
type User struct {
	ID           uint64    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	GoogleID     string    `json:"-"`
	FacebookID   string    `json:"-"`
	AppleID      string    `json:"-"`
	Avatar       string    `json:"avatar,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UserSummary is the public subset of a user embedded in listing,
// review and conversation responses.
type UserSummary struct {
	ID     uint64 `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}
