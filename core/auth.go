package core

import "time"

// Challenge represents an outstanding authentication challenge
type Challenge struct {
	Address   string    // Lower-cased wallet address the challenge was issued for
	Nonce     string    // Text the wallet must sign
	IssuedAt  time.Time // When the challenge was created
	ExpiresAt time.Time // When the challenge expires
}

// Expired reports whether the challenge can no longer be used at now.
func (c *Challenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// Session represents an authenticated wallet session
type Session struct {
	ID        string    // Unique session identifier (token jti)
	Address   string    // Lower-cased wallet address of the user
	IsAdmin   bool      // Whether the address is on the admin allow-list
	IssuedAt  time.Time // When the session was created
	ExpiresAt time.Time // When the session token stops being accepted
}
