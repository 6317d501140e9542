package session

import (
	"time"
)

// Session is one connected, identified client. The ID is stable for the
// lifetime of the connection; Name is display-only and not unique.
type Session struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Active   bool      `json:"isActive"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Clone returns a copy that can be mutated independently of the original.
func (s *Session) Clone() *Session {
	c := *s
	return &c
}
