package accounts

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AccountRole is the account's global role
type AccountRole = string

const (
	// RoleUser is a regular account holder
	RoleUser AccountRole = "user"
	// RoleAdmin can run privileged operations
	RoleAdmin AccountRole = "admin"
)

// IsValidRole checks the role against the predefined set
func IsValidRole(role AccountRole) bool {
	switch role {
	case RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}

// AccountStatus is the lifecycle status of an account
type AccountStatus string

const (
	// AccountStatusActive accounts can authenticate
	AccountStatusActive AccountStatus = "active"
	// AccountStatusSuspended accounts are temporarily blocked from logging in
	AccountStatusSuspended AccountStatus = "suspended"
	// AccountStatusDeleted is terminal; the record is soft deleted
	AccountStatusDeleted AccountStatus = "deleted"
)

// Account is the aggregate root for authentication state. Credential and
// token fields are never serialized to callers.
type Account struct {
	bun.BaseModel          `bun:"table:accounts,alias:acc"`
	ID                     uuid.UUID     `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email                  string        `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash           string        `bun:"password_hash,notnull" json:"-"`
	FirstName              string        `bun:"first_name,notnull" json:"first_name,omitempty"`
	LastName               string        `bun:"last_name,notnull" json:"last_name,omitempty"`
	Phone                  string        `bun:"phone_number" json:"phone_number,omitempty"`
	Avatar                 string        `bun:"avatar" json:"avatar,omitempty"`
	Role                   AccountRole   `bun:"account_role,notnull" json:"role,omitempty"`
	Status                 AccountStatus `bun:"status,notnull" json:"status,omitempty"`
	EmailVerified          bool          `bun:"is_email_verified" json:"is_email_verified"`
	EmailVerificationToken *string       `bun:"email_verification_token,nullzero" json:"-"`
	PasswordResetToken     *string       `bun:"password_reset_token,nullzero" json:"-"`
	PasswordResetExpiresAt *time.Time    `bun:"password_reset_expires_at,nullzero" json:"-"`
	LoginAttempts          int           `bun:"login_attempts" json:"-"`
	LoginAttemptAt         *time.Time    `bun:"login_attempt_at,nullzero" json:"-"`
	LastLoginAt            *time.Time    `bun:"last_login_at,nullzero" json:"last_login_at,omitempty"`
	SuspendedAt            *time.Time    `bun:"suspended_at,nullzero" json:"suspended_at,omitempty"`
	CreatedAt              *time.Time    `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt              *time.Time    `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt              *time.Time    `bun:"deleted_at,soft_delete,nullzero" json:"-"`
}

// EnsureStatus backfills the zero value so legacy rows behave as active.
func (a *Account) EnsureStatus() {
	if a.Status == "" {
		a.Status = AccountStatusActive
	}
}

// FullName joins first and last name
func (a *Account) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// HasPendingReset reports whether a reset token pair is currently set.
// The token and its expiry are always set and cleared together.
func (a *Account) HasPendingReset() bool {
	return a.PasswordResetToken != nil && a.PasswordResetExpiresAt != nil
}

// Sanitize returns a copy safe to hand to callers: the credential hash and
// both security tokens are zeroed in addition to being JSON-excluded.
func (a *Account) Sanitize() *Account {
	if a == nil {
		return nil
	}
	out := *a
	out.PasswordHash = ""
	out.EmailVerificationToken = nil
	out.PasswordResetToken = nil
	out.PasswordResetExpiresAt = nil
	return &out
}

// NormalizeEmail lowercases and trims an email identifier. Uniqueness is
// case-insensitive: every write and lookup goes through this.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
