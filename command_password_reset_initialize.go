package accounts

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
)

// InitializePasswordResetMessage starts the forgot-password flow
type InitializePasswordResetMessage struct {
	Email string `json:"email"`
	// OnResponse always receives the same response whether or not the
	// email matched an account
	OnResponse func(resp *InitializePasswordResetResponse)
}

func (e InitializePasswordResetMessage) Type() string { return "account.password_reset.initialize" }

func (e InitializePasswordResetMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Email, validation.Required, is.Email),
	)
}

// InitializePasswordResetResponse is deliberately identical for known and
// unknown emails.
type InitializePasswordResetResponse struct {
	Message string `json:"message"`
}

// InitializePasswordResetHandler stores a single-use reset token and mails
// it out. Unknown emails complete with the exact same response, timing
// aside there is nothing to distinguish the two paths.
type InitializePasswordResetHandler struct {
	repo     RepositoryManager
	notifier Notifier
	activity ActivitySink
	logger   Logger
	tokenGen OpaqueTokenGenerator
	now      func() time.Time
}

// NewInitializePasswordResetHandler creates a handler with sane defaults.
func NewInitializePasswordResetHandler(repo RepositoryManager) *InitializePasswordResetHandler {
	return &InitializePasswordResetHandler{
		repo:     repo,
		notifier: noopNotifier{},
		activity: noopActivitySink{},
		logger:   defLogger{},
		tokenGen: NewOpaqueToken,
		now:      time.Now,
	}
}

// WithNotifier sets the mailer used for the reset link.
func (h *InitializePasswordResetHandler) WithNotifier(n Notifier) *InitializePasswordResetHandler {
	h.notifier = normalizeNotifier(n)
	return h
}

// WithActivitySink sets the sink used to emit reset events.
func (h *InitializePasswordResetHandler) WithActivitySink(sink ActivitySink) *InitializePasswordResetHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *InitializePasswordResetHandler) WithLogger(logger Logger) *InitializePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithTokenGenerator overrides how reset tokens are produced.
func (h *InitializePasswordResetHandler) WithTokenGenerator(g OpaqueTokenGenerator) *InitializePasswordResetHandler {
	h.tokenGen = normalizeTokenGenerator(g)
	return h
}

// WithClock injects a custom clock (useful for tests).
func (h *InitializePasswordResetHandler) WithClock(clock func() time.Time) *InitializePasswordResetHandler {
	if clock != nil {
		h.now = clock
	}
	return h
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset initialization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) error {
	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid password reset payload")
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	account, err := h.repo.Accounts().GetByEmail(ctx, event.Email)
	if err != nil {
		if isRecordNotFound(err) {
			// same response as the happy path, see type doc
			h.respond(event)
			return nil
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account for password reset")
	}

	token := h.tokenGen()
	expiresAt := h.now().Add(PasswordResetTTL)

	if err := h.repo.Accounts().SetResetToken(ctx, account.ID, token, expiresAt); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store password reset token")
	}

	if err := h.notifier.SendPasswordReset(ctx, account.Email, token); err != nil {
		h.logger.Error("failed to send password reset email to %s: %v", account.Email, err)
	}

	h.recordActivity(ctx, account)
	h.respond(event)

	return nil
}

func (h *InitializePasswordResetHandler) respond(event InitializePasswordResetMessage) {
	if event.OnResponse != nil {
		event.OnResponse(&InitializePasswordResetResponse{
			Message: PasswordResetRequestedMessage,
		})
	}
}

func (h *InitializePasswordResetHandler) recordActivity(ctx context.Context, account *Account) {
	event := ActivityEvent{
		EventType: ActivityEventPasswordResetRequested,
		Actor:     SystemActor,
		AccountID: account.ID.String(),
		Metadata: map[string]any{
			"email": account.Email,
		},
		OccurredAt: h.now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during password reset request: %v", err)
	}
}
