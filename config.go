package accounts

import "time"

const (
	// DefaultAccessTokenTTL is one week
	DefaultAccessTokenTTL = 168 * time.Hour
	// DefaultRefreshTokenTTL is thirty days
	DefaultRefreshTokenTTL = 720 * time.Hour
)

// Config provides the settings the service reads at construction time.
// Implementations usually wrap the host application's config layer.
type Config interface {
	GetAccessSigningKey() string
	GetRefreshSigningKey() string
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetIssuer() string
	GetAudience() []string
	GetHashCost() int
	// GetVerificationTokenTTL returns 0 when verification tokens do not
	// expire, which is the default
	GetVerificationTokenTTL() time.Duration
}

// StaticConfig is a plain struct Config for tests and simple hosts
type StaticConfig struct {
	AccessSigningKey     string
	RefreshSigningKey    string
	AccessTokenTTL       time.Duration
	RefreshTokenTTL      time.Duration
	Issuer               string
	Audience             []string
	HashCost             int
	VerificationTokenTTL time.Duration
}

func (c *StaticConfig) GetAccessSigningKey() string {
	return c.AccessSigningKey
}

func (c *StaticConfig) GetRefreshSigningKey() string {
	return c.RefreshSigningKey
}

func (c *StaticConfig) GetAccessTokenTTL() time.Duration {
	if c.AccessTokenTTL == 0 {
		return DefaultAccessTokenTTL
	}
	return c.AccessTokenTTL
}

func (c *StaticConfig) GetRefreshTokenTTL() time.Duration {
	if c.RefreshTokenTTL == 0 {
		return DefaultRefreshTokenTTL
	}
	return c.RefreshTokenTTL
}

func (c *StaticConfig) GetIssuer() string {
	return c.Issuer
}

func (c *StaticConfig) GetAudience() []string {
	return c.Audience
}

func (c *StaticConfig) GetHashCost() int {
	if c.HashCost == 0 {
		return DefaultHashCost
	}
	return c.HashCost
}

func (c *StaticConfig) GetVerificationTokenTTL() time.Duration {
	return c.VerificationTokenTTL
}
