package accounts

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenUse distinguishes the two JWT contexts the service mints. Tokens
// from one context never validate in the other.
type TokenUse string

const (
	// TokenUseAccess tokens authenticate API calls
	TokenUseAccess TokenUse = "access"
	// TokenUseRefresh tokens are exchanged for new pairs
	TokenUseRefresh TokenUse = "refresh"
)

// AuthClaims is the read side of a validated token
type AuthClaims interface {
	Subject() string
	AccountID() string
	Email() string
	Role() AccountRole
	Status() AccountStatus
	TokenUse() TokenUse
	Expires() time.Time
	IssuedAt() time.Time
}

// TokenClaims is the concrete claim set carried in minted tokens
type TokenClaims struct {
	jwt.RegisteredClaims
	UID     string        `json:"uid,omitempty"`
	Mail    string        `json:"email,omitempty"`
	AccRole AccountRole   `json:"role,omitempty"`
	State   AccountStatus `json:"status,omitempty"`
	Use     TokenUse      `json:"token_use,omitempty"`
}

// Subject shadows RegisteredClaims to satisfy AuthClaims
func (c *TokenClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// AccountID is the account's UUID; it falls back to the subject when the
// uid claim is absent
func (c *TokenClaims) AccountID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}

func (c *TokenClaims) Email() string {
	return c.Mail
}

func (c *TokenClaims) Role() AccountRole {
	return c.AccRole
}

func (c *TokenClaims) Status() AccountStatus {
	return c.State
}

func (c *TokenClaims) TokenUse() TokenUse {
	return c.Use
}

// Expires returns the zero time when the claim is absent
func (c *TokenClaims) Expires() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// IssuedAt returns the zero time when the claim is absent
func (c *TokenClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt == nil {
		return time.Time{}
	}
	return c.RegisteredClaims.IssuedAt.Time
}

// ensureTokenID fills a random jti so every minted token is distinct even
// within the same second
func ensureTokenID(c *TokenClaims) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
}
