package tokenizer

import "github.com/golang-jwt/jwt/v5"

// AccessClaims combines standard claims with the canonical user reference.
// Subject carries the identity key the session was issued for.
type AccessClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
}
