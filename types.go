package accounts

import (
	"context"
	"fmt"
	"time"
)

// Logger is the minimal logging surface the package needs. Hosts plug in
// their own, the default prints to stdout.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

type defLogger struct{}

func (defLogger) Debug(format string, args ...any) {
	fmt.Println("[DBG] " + fmt.Sprintf(format, args...))
}

func (defLogger) Info(format string, args ...any) {
	fmt.Println("[INF] " + fmt.Sprintf(format, args...))
}

func (defLogger) Warn(format string, args ...any) {
	fmt.Println("[WRN] " + fmt.Sprintf(format, args...))
}

func (defLogger) Error(format string, args ...any) {
	fmt.Println("[ERR] " + fmt.Sprintf(format, args...))
}

// Identity is the authenticated principal handed to the token service.
// It is deliberately thin, the Account aggregate does not cross this
// boundary.
type Identity interface {
	ID() string
	Email() string
	Role() AccountRole
	Status() AccountStatus
}

// IdentityProvider resolves and verifies identities against a credential
// store. VerifyIdentity checks the password, FindIdentityByIdentifier
// does not.
type IdentityProvider interface {
	VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error)
	FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error)
}

// Session is the view of a validated access token exposed to request
// handlers
type Session interface {
	GetAccountID() string
	GetUserID() string
	GetAudience() []string
	GetIssuer() string
	GetIssuedAt() *time.Time
	GetData() map[string]any
}

// TokenPair is the result of a successful login or refresh
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// Authenticator is the login and session surface of the package
type Authenticator interface {
	Login(ctx context.Context, identifier, password string) (*TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	SessionFromToken(token string) (Session, error)
}
