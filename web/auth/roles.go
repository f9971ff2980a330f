package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Roles a user can hold. Every new user starts as RoleUser.
const (
	RoleUser      = "user"
	RoleGuide     = "guide"
	RoleLeadGuide = "lead-guide"
	RoleAdmin     = "admin"
)

// Claims represents the authorization claims transmitted via a JWT
type Claims struct {
	Role string `json:"role"`
	jwt.StandardClaims
}

// NewClaims constructs a Claims value for the identified user
func NewClaims(subject, role string, now time.Time, expires time.Duration) *Claims {
	c := &Claims{
		Role: role,
		StandardClaims: jwt.StandardClaims{
			Subject:   subject,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(expires).Unix(),
		},
	}

	return c
}

// HasRole returns true if the claims role is one of the provided roles.
func (c *Claims) HasRole(roles ...string) bool {
	for _, want := range roles {
		if c.Role == want {
			return true
		}
	}
	return false
}
