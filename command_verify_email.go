package accounts

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
)

// VerifyEmailMessage redeems an emailed verification token
type VerifyEmailMessage struct {
	Token string `json:"token"`
	// OnResponse receives the verified account
	OnResponse func(account *Account)
}

func (e VerifyEmailMessage) Type() string { return "account.verify_email" }

func (e VerifyEmailMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Token, validation.Required),
	)
}

// VerifyEmailHandler marks the account's email as verified. The token is
// consumed by a single conditional update so it can only ever be redeemed
// once, concurrent requests race for the same row and exactly one wins.
type VerifyEmailHandler struct {
	repo     RepositoryManager
	cfg      Config
	activity ActivitySink
	logger   Logger
	now      func() time.Time
}

// NewVerifyEmailHandler creates a handler with sane defaults.
func NewVerifyEmailHandler(repo RepositoryManager, cfg Config) *VerifyEmailHandler {
	return &VerifyEmailHandler{
		repo:     repo,
		cfg:      cfg,
		activity: noopActivitySink{},
		logger:   defLogger{},
		now:      time.Now,
	}
}

// WithActivitySink sets the sink used to emit verification events.
func (h *VerifyEmailHandler) WithActivitySink(sink ActivitySink) *VerifyEmailHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *VerifyEmailHandler) WithLogger(logger Logger) *VerifyEmailHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithClock injects a custom clock (useful for tests).
func (h *VerifyEmailHandler) WithClock(clock func() time.Time) *VerifyEmailHandler {
	if clock != nil {
		h.now = clock
	}
	return h
}

func (h *VerifyEmailHandler) Execute(ctx context.Context, event VerifyEmailMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during email verification",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *VerifyEmailHandler) execute(ctx context.Context, event VerifyEmailMessage) error {
	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid verification payload")
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if ttl := h.cfg.GetVerificationTokenTTL(); ttl > 0 {
		if err := h.checkTokenAge(ctx, event.Token, ttl); err != nil {
			return err
		}
	}

	account, err := h.repo.Accounts().ConsumeVerificationToken(ctx, event.Token)
	if err != nil {
		if isRecordNotFound(err) {
			return ErrInvalidOrExpiredToken
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to consume verification token")
	}

	h.recordActivity(ctx, account)

	if event.OnResponse != nil {
		event.OnResponse(account.Sanitize())
	}

	return nil
}

// checkTokenAge enforces the optional verification token lifetime against
// the account's creation time. Tokens have no expiry column of their own.
func (h *VerifyEmailHandler) checkTokenAge(ctx context.Context, token string, ttl time.Duration) error {
	account, err := h.repo.Accounts().GetByVerificationToken(ctx, token)
	if err != nil {
		if isRecordNotFound(err) {
			return ErrInvalidOrExpiredToken
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up verification token")
	}

	if account.CreatedAt != nil && h.now().Sub(*account.CreatedAt) > ttl {
		return ErrInvalidOrExpiredToken
	}

	return nil
}

func (h *VerifyEmailHandler) recordActivity(ctx context.Context, account *Account) {
	if account == nil {
		return
	}

	event := ActivityEvent{
		EventType: ActivityEventEmailVerified,
		Actor: ActorRef{
			ID:   account.ID.String(),
			Type: "account",
		},
		AccountID:  account.ID.String(),
		OccurredAt: h.now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during email verification: %v", err)
	}
}
