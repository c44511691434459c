package model

import "fmt"

// Actor identifies who is taking an exam. Registered users carry a numeric
// account id; guests carry only a random UUID issued with their token.
type Actor struct {
	UserID  *int
	GuestID string
	Role    Role
}

// IsRegistered reports whether the actor has a durable account.
func (a Actor) IsRegistered() bool {
	return a.UserID != nil
}

// Key returns the namespace prefix for this actor's Redis state. User and
// guest keyspaces never collide.
func (a Actor) Key() string {
	if a.UserID != nil {
		return fmt.Sprintf("user:%d", *a.UserID)
	}
	return fmt.Sprintf("guest:%s", a.GuestID)
}
