package tokens

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Type string

const (
	TypeAccess  Type = "access"
	TypeRefresh Type = "refresh"
)

// Claims is the verified payload of either token type.
type Claims struct {
	Type    Type `json:"type"`
	Fresh   bool `json:"fresh"`
	IsAdmin bool `json:"is_admin"`
	jwt.RegisteredClaims
}

type accessClaims struct {
	Type    Type `json:"type"`
	Fresh   bool `json:"fresh"`
	IsAdmin bool `json:"is_admin"`
	jwt.RegisteredClaims
}

type refreshClaims struct {
	Type Type `json:"type"`
	jwt.RegisteredClaims
}

func (c *Claims) UserID() (uint, error) {
	n, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(n), nil
}

func (c *Claims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Issued is a freshly signed token.
type Issued struct {
	Token     string
	JTI       string
	ExpiresAt time.Time
}
