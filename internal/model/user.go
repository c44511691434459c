package model

import "time"

// Role separates the admin back office from regular accounts. Guests carry no
// User row at all.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
	// RoleGuest exists only inside tokens; guests never touch Postgres.
	RoleGuest Role = "guest"
)

// User is a registered account.
type User struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// LoginRequest is the payload for account login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}
