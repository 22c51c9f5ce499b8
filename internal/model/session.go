package model

import "time"

// Session is the authenticated caller, derived from a validated token
// and passed explicitly into services.
type Session struct {
	UserID      string    `json:"userId"`
	Email       string    `json:"email,omitempty"`
	DisplayName string    `json:"displayName,omitempty"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// SessionFromClaims builds a Session from validated token claims
func SessionFromClaims(c *UserClaims) Session {
	s := Session{
		UserID:      c.UserID,
		Email:       c.Email,
		DisplayName: c.DisplayName,
	}
	if s.UserID == "" {
		s.UserID = c.Subject
	}
	if c.ExpiresAt != nil {
		s.ExpiresAt = c.ExpiresAt.Time
	}
	return s
}
