package domain

import "time"

// Credentials is the signed-in session for the hosted auth service.
// Only one session is stored at a time.
type Credentials struct {
	// UserID is the auth service's subject for the user.
	UserID string
	// Email is the address the user signed in with.
	Email string
	// AccessToken is the bearer token for API access.
	AccessToken string
	// RefreshToken is used to obtain new access tokens.
	RefreshToken string
	// ExpiresAt is when the access token expires. Zero means no expiry.
	ExpiresAt time.Time
	// UpdatedAt is when the credentials were last written.
	UpdatedAt time.Time
}

// IsExpired returns true if the access token has expired.
func (c *Credentials) IsExpired() bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(c.ExpiresAt)
}

// Identity returns who the credentials belong to.
func (c *Credentials) Identity() Identity {
	return Identity{UserID: c.UserID, Email: c.Email}
}

// Identity is the user a document session acts for.
// It is built once per session and passed to the services that need it.
type Identity struct {
	UserID string
	Email  string
}

// IsZero reports whether no user is set.
func (i Identity) IsZero() bool {
	return i.UserID == ""
}
