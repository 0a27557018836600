package dto

import "github.com/golang-jwt/jwt/v5"

// Role decides which API routes a token may call.
type Role string

const (
	RoleModerator Role = "moderator"
	RoleApprover  Role = "approver"
	RoleBot       Role = "bot"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleModerator, RoleApprover, RoleBot:
		return true
	}
	return false
}

// AuthClaims defines the custom claims for JWT.
type AuthClaims struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
	jwt.RegisteredClaims
}
