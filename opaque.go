package accounts

import (
	"time"

	"github.com/google/uuid"
)

// PasswordResetTTL is how long a password reset token stays redeemable
const PasswordResetTTL = time.Hour

// PasswordResetRequestedMessage is the response to every forgot-password
// request, whether or not the email exists. Keeping it byte identical in
// both paths is what prevents account enumeration.
const PasswordResetRequestedMessage = "If the email exists, a password reset link has been sent"

// OpaqueTokenGenerator produces the single-use tokens embedded in
// verification and password reset links. Injectable for tests.
type OpaqueTokenGenerator func() string

// NewOpaqueToken is the default generator, a random UUID string
func NewOpaqueToken() string {
	return uuid.NewString()
}

func normalizeTokenGenerator(g OpaqueTokenGenerator) OpaqueTokenGenerator {
	if g == nil {
		return NewOpaqueToken
	}
	return g
}
