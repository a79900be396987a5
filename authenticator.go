package accounts

import (
	"context"
	"reflect"
	"time"

	"github.com/goliatone/go-errors"
)

// Auther runs the credential and token lifecycle: password login, refresh
// exchange, and access token sessions.
type Auther struct {
	provider       IdentityProvider
	tokenService   TokenService
	tokenValidator TokenValidator
	logger         Logger
	activitySink   ActivitySink
}

// NewAuthenticator returns a new Auther wired to the identity provider
func NewAuthenticator(provider IdentityProvider, cfg Config) (*Auther, error) {
	tokenService, err := NewTokenService(cfg, defLogger{})
	if err != nil {
		return nil, err
	}

	return &Auther{
		provider:     provider,
		tokenService: tokenService,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}, nil
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
		if ts, ok := s.tokenService.(*TokenServiceImpl); ok {
			ts.logger = logger
		}
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithTokenValidator sets a custom validator for access tokens, e.g. a
// JWKS-backed one for externally issued tokens.
func (s *Auther) WithTokenValidator(validator TokenValidator) *Auther {
	s.tokenValidator = validator
	return s
}

// WithTokenService swaps the token service, useful for tests that need a
// controllable clock.
func (s *Auther) WithTokenService(ts TokenService) *Auther {
	if ts != nil {
		s.tokenService = ts
	}
	return s
}

// TokenService returns the TokenService instance used by this Auther
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Login verifies credentials and mints a fresh token pair. Credentials are
// checked before the status gate: a wrong password always reads as invalid
// credentials, a right password on a suspended or deleted account reads as
// not active.
func (s *Auther) Login(ctx context.Context, identifier, password string) (*TokenPair, error) {
	identity, err := s.provider.VerifyIdentity(ctx, identifier, password)
	if err != nil {
		s.logger.Error("Login verify identity error: %v", err)
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
			"identifier": identifier,
			"error":      err.Error(),
		})
		return nil, err
	}

	if identity == nil || reflect.ValueOf(identity).IsZero() {
		s.logger.Error("Login identity is nil or zero value")
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
			"identifier": identifier,
			"error":      ErrInvalidCredentials.Error(),
		})
		return nil, ErrInvalidCredentials
	}

	if status, err := s.ensureIdentityActive(identity); err != nil {
		s.logger.Warn("Login blocked due to account status: %s", status)
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, s.actorFromIdentity(identity), identity.ID(), map[string]any{
			"identifier": identifier,
			"error":      err.Error(),
			"status":     status,
		})
		return nil, err
	}

	pair, err := s.mintPair(identity)
	if err != nil {
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, s.actorFromIdentity(identity), identity.ID(), map[string]any{
			"identifier": identifier,
			"error":      err.Error(),
		})
		return nil, err
	}

	s.emitAuthEvent(ctx, ActivityEventLoginSuccess, s.actorFromIdentity(identity), identity.ID(), map[string]any{
		"identifier": identifier,
	})

	return pair, nil
}

// Refresh exchanges a valid refresh token for a brand new pair. The
// account is re-read so revoked or suspended accounts stop refreshing the
// moment their status changes. The old refresh token is not tracked, its
// natural expiry is the only revocation.
func (s *Auther) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokenService.Validate(refreshToken, TokenUseRefresh)
	if err != nil {
		s.logger.Debug("Refresh token validation failed: %v", err)
		return nil, ErrInvalidOrExpiredToken
	}

	identity, err := s.provider.FindIdentityByIdentifier(ctx, claims.AccountID())
	if err != nil {
		if isRecordNotFound(err) {
			return nil, ErrInvalidOrExpiredToken
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to resolve identity during refresh")
	}

	if identity == nil || reflect.ValueOf(identity).IsZero() {
		return nil, ErrInvalidOrExpiredToken
	}

	if status, serr := s.ensureIdentityActive(identity); serr != nil {
		s.logger.Warn("Refresh blocked due to account status: %s", status)
		return nil, ErrInvalidOrExpiredToken
	}

	pair, err := s.mintPair(identity)
	if err != nil {
		return nil, err
	}

	s.emitAuthEvent(ctx, ActivityEventTokenRefreshed, s.actorFromIdentity(identity), identity.ID(), nil)

	return pair, nil
}

// SessionFromToken validates an access token and exposes it as a Session
func (s *Auther) SessionFromToken(raw string) (Session, error) {
	claims, err := s.validateAccess(raw)
	if err != nil {
		s.logger.Debug("SessionFromToken validation failed: %v", err)
		return nil, err
	}

	session, err := sessionFromAuthClaims(claims)
	if err != nil {
		s.logger.Error("SessionFromToken failed to create session from claims: %v", err)
		return nil, err
	}

	return session, nil
}

// IdentityFromSession re-resolves the identity behind a session
func (s *Auther) IdentityFromSession(ctx context.Context, session Session) (Identity, error) {
	identity, err := s.provider.FindIdentityByIdentifier(ctx, session.GetAccountID())
	if err != nil {
		s.logger.Error("IdentityFromSession find identity by identifier: %v", err)
		return nil, err
	}

	return identity, nil
}

func (s *Auther) validateAccess(raw string) (AuthClaims, error) {
	if s.tokenValidator != nil {
		return s.tokenValidator.Validate(raw)
	}
	return s.tokenService.Validate(raw, TokenUseAccess)
}

func (s *Auther) mintPair(identity Identity) (*TokenPair, error) {
	access, accessExp, err := s.tokenService.Mint(identity, TokenUseAccess)
	if err != nil {
		return nil, err
	}

	refresh, refreshExp, err := s.tokenService.Mint(identity, TokenUseRefresh)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (s *Auther) emitAuthEvent(ctx context.Context, eventType ActivityEventType, actor ActorRef, accountID string, metadata map[string]any) {
	sink := normalizeActivitySink(s.activitySink)
	event := ActivityEvent{
		EventType: eventType,
		Actor:     actor,
		AccountID: accountID,
		Metadata:  metadata,
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	if err := sink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error: %v", err)
	}
}

func (s *Auther) actorFromIdentity(identity Identity) ActorRef {
	if identity == nil {
		return ActorRef{Type: "unknown"}
	}

	return ActorRef{
		ID:   identity.ID(),
		Type: "account",
	}
}

func (s *Auther) ensureIdentityActive(identity Identity) (AccountStatus, error) {
	if identity == nil {
		return "", nil
	}

	status := identity.Status()
	if status == "" {
		status = AccountStatusActive
	}

	if status != AccountStatusActive {
		return status, withErrMetadata(ErrAccountNotActive, map[string]any{
			"status": status,
		})
	}

	return status, nil
}

var _ Authenticator = (*Auther)(nil)
