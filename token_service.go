package accounts

import (
	goerrors "errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// TokenService mints and validates the JWT pairs issued at login and
// refresh. Each TokenUse has its own signing secret and lifetime, so an
// access token can never pass refresh validation or vice versa.
type TokenService interface {
	Mint(identity Identity, use TokenUse) (string, time.Time, error)
	Validate(token string, use TokenUse) (AuthClaims, error)
	Decode(token string) (AuthClaims, error)
}

// TokenServiceImpl signs with HMAC-SHA256 using per-context secrets
type TokenServiceImpl struct {
	cfg    Config
	logger Logger
	now    func() time.Time
}

// NewTokenService builds a token service, failing fast on unusable
// secrets rather than minting unverifiable tokens later.
func NewTokenService(cfg Config, logger Logger) (*TokenServiceImpl, error) {
	if cfg == nil {
		return nil, errors.New("token service requires a config", errors.CategoryBadInput)
	}

	if logger == nil {
		logger = defLogger{}
	}

	access, refresh := cfg.GetAccessSigningKey(), cfg.GetRefreshSigningKey()
	if access == "" || refresh == "" {
		return nil, errors.New("signing keys cannot be empty", errors.CategoryBadInput).
			WithTextCode("MISSING_SIGNING_KEY")
	}

	if access == refresh {
		return nil, errors.New("access and refresh signing keys must differ", errors.CategoryBadInput).
			WithTextCode("SHARED_SIGNING_KEY")
	}

	return &TokenServiceImpl{
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}, nil
}

func (s *TokenServiceImpl) keyFor(use TokenUse) ([]byte, time.Duration, error) {
	switch use {
	case TokenUseAccess:
		return []byte(s.cfg.GetAccessSigningKey()), s.cfg.GetAccessTokenTTL(), nil
	case TokenUseRefresh:
		return []byte(s.cfg.GetRefreshSigningKey()), s.cfg.GetRefreshTokenTTL(), nil
	default:
		return nil, 0, errors.New(
			fmt.Sprintf("unknown token use: %s", use),
			errors.CategoryBadInput,
		).WithTextCode("UNKNOWN_TOKEN_USE")
	}
}

// Mint signs a token for the identity in the given context and returns the
// compact form along with its expiry.
func (s *TokenServiceImpl) Mint(identity Identity, use TokenUse) (string, time.Time, error) {
	if identity == nil {
		return "", time.Time{}, errors.New("cannot mint token for nil identity", errors.CategoryBadInput)
	}

	key, ttl, err := s.keyFor(use)
	if err != nil {
		return "", time.Time{}, err
	}

	now := s.now()
	expires := now.Add(ttl)

	claims := &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID(),
			Issuer:    s.cfg.GetIssuer(),
			Audience:  jwt.ClaimStrings(s.cfg.GetAudience()),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		UID:     identity.ID(),
		Mail:    identity.Email(),
		AccRole: identity.Role(),
		State:   identity.Status(),
		Use:     use,
	}
	ensureTokenID(claims)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, errors.CategoryInternal, "failed to sign token")
	}

	return signed, expires, nil
}

// Validate parses and verifies a compact token against the secret and
// lifetime for the given use. Expired tokens map to ErrTokenExpired, any
// other failure to ErrTokenMalformed, and a verified token minted for the
// other context is rejected as malformed.
func (s *TokenServiceImpl) Validate(raw string, use TokenUse) (AuthClaims, error) {
	if raw == "" {
		return nil, ErrNoEmptyString
	}

	key, _, err := s.keyFor(use)
	if err != nil {
		return nil, err
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if iss := s.cfg.GetIssuer(); iss != "" {
		opts = append(opts, jwt.WithIssuer(iss))
	}
	if aud := s.cfg.GetAudience(); len(aud) > 0 {
		opts = append(opts, jwt.WithAudience(aud[0]))
	}

	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return key, nil
	}, opts...)

	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		s.logger.Debug("token validation failed: %v", err)
		return nil, ErrTokenMalformed
	}

	if !token.Valid {
		return nil, ErrTokenMalformed
	}

	if claims.Use != use {
		s.logger.Debug("token use mismatch: have %s want %s", claims.Use, use)
		return nil, ErrTokenMalformed
	}

	return claims, nil
}

// Decode parses the claim set WITHOUT verifying the signature or expiry.
// Diagnostic use only, never trust its output for authorization.
func (s *TokenServiceImpl) Decode(raw string) (AuthClaims, error) {
	if raw == "" {
		return nil, ErrNoEmptyString
	}

	claims := &TokenClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return nil, ErrTokenMalformed
	}

	return claims, nil
}
