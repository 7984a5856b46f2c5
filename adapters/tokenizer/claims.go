package tokenizer

import "github.com/golang-jwt/jwt/v5"

// SessionClaims combines standard claims with the admin flag
type SessionClaims struct {
	jwt.RegisteredClaims
	IsAdmin bool `json:"isAdmin"`
}
