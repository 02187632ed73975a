package kitsune

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenClaims is the payload embedded in every bearer token: the subject is
// the user identifier carried as a string, the expiry is fixed at issuance.
type TokenClaims struct {
	jwt.RegisteredClaims
}

// NewTokenClaims builds claims for the given subject with expiry at now+ttl.
func NewTokenClaims(subject string, now time.Time, ttl time.Duration, issuer string) *TokenClaims {
	claims := &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	ensureTokenID(&claims.RegisteredClaims)

	return claims
}

// UserID parses the subject claim as a store identifier.
func (c *TokenClaims) UserID() (int64, error) {
	return strconv.ParseInt(c.RegisteredClaims.Subject, 10, 64)
}

// Expires returns the expiration time
func (c *TokenClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}
