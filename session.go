package accounts

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

var _ Session = &SessionObject{}

// SessionObject is the concrete Session built from validated access token
// claims.
type SessionObject struct {
	AccountID      string         `json:"account_id,omitempty"`
	Audience       []string       `json:"audience,omitempty"`
	Issuer         string         `json:"issuer,omitempty"`
	IssuedAt       *time.Time     `json:"issued_at,omitempty"`
	ExpirationDate *time.Time     `json:"expiration_date,omitempty"`
	Data           map[string]any `json:"data,omitempty"`
}

func (s *SessionObject) GetAccountID() string {
	return s.AccountID
}

// GetUserID aliases GetAccountID for middleware that expects the generic
// name
func (s *SessionObject) GetUserID() string {
	return s.AccountID
}

func (s *SessionObject) GetAccountUUID() (uuid.UUID, error) {
	return uuid.Parse(s.AccountID)
}

func (s *SessionObject) GetAudience() []string {
	return s.Audience
}

func (s *SessionObject) GetIssuer() string {
	return s.Issuer
}

func (s *SessionObject) GetIssuedAt() *time.Time {
	return s.IssuedAt
}

func (s *SessionObject) GetData() map[string]any {
	return s.Data
}

// Role reads the role stored in session data, defaulting to RoleUser
func (s *SessionObject) Role() AccountRole {
	if s.Data != nil {
		if roleData, exists := s.Data["role"]; exists {
			if roleStr, ok := roleData.(string); ok && IsValidRole(roleStr) {
				return roleStr
			}
		}
	}
	return RoleUser
}

// HasRole checks if the session carries a specific role
func (s *SessionObject) HasRole(role AccountRole) bool {
	return s.Role() == role
}

func (s SessionObject) String() string {
	issuedAt := "<nil>"
	if s.IssuedAt != nil {
		issuedAt = s.IssuedAt.Format(time.RFC1123)
	}
	return fmt.Sprintf(
		"account=%s aud=%v iss=%s iat=%s data=%v",
		s.AccountID,
		s.Audience,
		s.Issuer,
		issuedAt,
		s.Data,
	)
}

// sessionFromAuthClaims creates a SessionObject from validated claims
func sessionFromAuthClaims(claims AuthClaims) (*SessionObject, error) {
	if claims == nil {
		return nil, ErrUnableToDecodeSession
	}

	data := make(map[string]any)
	if role := claims.Role(); role != "" {
		data["role"] = role
	}
	if email := claims.Email(); email != "" {
		data["email"] = email
	}
	if status := claims.Status(); status != "" {
		data["status"] = string(status)
	}

	var audience []string
	var issuer string
	if tc, ok := claims.(*TokenClaims); ok {
		for _, aud := range tc.RegisteredClaims.Audience {
			audience = append(audience, aud)
		}
		issuer = tc.RegisteredClaims.Issuer
	}

	if issuer == "" {
		issuer = claims.Subject()
	}

	issuedAt := claims.IssuedAt()
	expiresAt := claims.Expires()

	return &SessionObject{
		AccountID:      claims.AccountID(),
		Audience:       audience,
		Issuer:         issuer,
		Data:           data,
		IssuedAt:       &issuedAt,
		ExpirationDate: &expiresAt,
	}, nil
}
