package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// SessionTokenPayload captures the data available when minting a session JWT.
type SessionTokenPayload struct {
	SessionID string
	UserID    string
	Email     string
}

// SessionTokenClaims represents the typed JWT handed to the dashboard.
// The jti is the session id keyed in redis.
type SessionTokenClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}
