package accounts

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

// RegisterAccountMessage carries a new registration request
type RegisterAccountMessage struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Password  string `json:"password"`
	Role      string `json:"role"`
	UseHashid bool
	// OnResponse receives the sanitized account after the transaction
	// commits
	OnResponse func(account *Account)
}

func (e RegisterAccountMessage) Type() string { return "account.register" }

// Validate checks the payload before any storage work happens
func (e RegisterAccountMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&e.LastName, validation.Required, validation.Length(1, 200)),
		validation.Field(&e.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&e.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(&e.Role, validation.In(RoleUser, RoleAdmin)),
	)
}

// RegisterAccountHandler creates the account, stores the credential hash,
// and issues the email verification token.
type RegisterAccountHandler struct {
	repo     RepositoryManager
	hasher   *Hasher
	notifier Notifier
	activity ActivitySink
	logger   Logger
	tokenGen OpaqueTokenGenerator
}

// NewRegisterAccountHandler creates a handler with sane defaults.
func NewRegisterAccountHandler(repo RepositoryManager, hasher *Hasher) *RegisterAccountHandler {
	return &RegisterAccountHandler{
		repo:     repo,
		hasher:   hasher,
		notifier: noopNotifier{},
		activity: noopActivitySink{},
		logger:   defLogger{},
		tokenGen: NewOpaqueToken,
	}
}

// WithNotifier sets the mailer used for welcome and verification email.
func (h *RegisterAccountHandler) WithNotifier(n Notifier) *RegisterAccountHandler {
	h.notifier = normalizeNotifier(n)
	return h
}

// WithActivitySink sets the sink used to emit registration events.
func (h *RegisterAccountHandler) WithActivitySink(sink ActivitySink) *RegisterAccountHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *RegisterAccountHandler) WithLogger(logger Logger) *RegisterAccountHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithTokenGenerator overrides how verification tokens are produced.
func (h *RegisterAccountHandler) WithTokenGenerator(g OpaqueTokenGenerator) *RegisterAccountHandler {
	h.tokenGen = normalizeTokenGenerator(g)
	return h
}

func (h *RegisterAccountHandler) Execute(ctx context.Context, event RegisterAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterAccountHandler) execute(ctx context.Context, event RegisterAccountMessage) error {
	// normalize ahead of validation so padded or cased emails pass the
	// format rule and the stored value is always canonical
	email := NormalizeEmail(event.Email)
	event.Email = email

	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid registration payload")
	}

	account := &Account{}
	verificationToken := h.tokenGen()

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if existing, err := h.repo.Accounts().GetByEmailTx(ctx, tx, email); err == nil && existing != nil {
			return withErrMetadata(ErrDuplicateAccount, map[string]any{
				"email": email,
			})
		} else if err != nil && !isRecordNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for existing account")
		}

		hash, err := h.hasher.Hash(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		account.PasswordHash = hash
		account.Email = email
		account.Phone = normalizePhone(event.Phone)
		account.FirstName = event.FirstName
		account.LastName = event.LastName
		account.Role = event.Role
		account.Status = AccountStatusActive
		account.EmailVerified = false
		account.EmailVerificationToken = &verificationToken

		if event.UseHashid {
			if id, err := hashid.NewUUID(email); err == nil {
				account.ID = id
			}
		}

		if account, err = h.repo.Accounts().CreateTx(ctx, tx, account); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create account")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "account registration transaction failed")
	}

	// Email delivery problems never unwind a committed registration, the
	// account exists either way and verification can be re-requested.
	if err := h.notifier.SendWelcome(ctx, account.Email, account.FirstName); err != nil {
		h.logger.Error("failed to send welcome email to %s: %v", account.Email, err)
	}
	if err := h.notifier.SendVerification(ctx, account.Email, verificationToken); err != nil {
		h.logger.Error("failed to send verification email to %s: %v", account.Email, err)
	}

	h.recordActivity(ctx, account)

	if event.OnResponse != nil {
		event.OnResponse(account.Sanitize())
	}

	return nil
}

func (h *RegisterAccountHandler) recordActivity(ctx context.Context, account *Account) {
	event := ActivityEvent{
		EventType: ActivityEventAccountRegistered,
		Actor: ActorRef{
			ID:   account.ID.String(),
			Type: "account",
		},
		AccountID: account.ID.String(),
		Metadata: map[string]any{
			"email": account.Email,
		},
		OccurredAt: time.Now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during registration: %v", err)
	}
}
