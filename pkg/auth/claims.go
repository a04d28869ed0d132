package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/openshelf-labs/openshelf-backend/pkg/access"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID   int
	Username string
	Role     access.Role
	JTI      string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID   int         `json:"user_id"`
	Username string      `json:"username"`
	Role     access.Role `json:"role"`
	jwt.RegisteredClaims
}
