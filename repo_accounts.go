package accounts

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ConsumeVerificationTokenSQL flips verification state in a single
// conditional update. Zero rows back means the token was unknown or
// already spent, there is no read-then-write window.
var ConsumeVerificationTokenSQL = `UPDATE "accounts" AS "acc"
SET
	"is_email_verified" = TRUE,
	"email_verification_token" = NULL
WHERE
	"acc"."deleted_at" IS NULL
AND (
	"acc"."email_verification_token" = ?
) RETURNING *;`

// ConsumeResetTokenSQL redeems a password reset token and installs the new
// credential hash in the same statement. The expiry predicate keeps stale
// tokens from ever matching.
var ConsumeResetTokenSQL = `UPDATE "accounts" AS "acc"
SET
	"password_hash" = ?,
	"password_reset_token" = NULL,
	"password_reset_expires_at" = NULL
WHERE
	"acc"."deleted_at" IS NULL
AND "acc"."password_reset_token" = ?
AND "acc"."password_reset_expires_at" > ?
RETURNING *;`

// SetResetTokenSQL stores a fresh reset token pair, replacing any
// outstanding one so only the latest emailed link works.
var SetResetTokenSQL = `UPDATE "accounts" AS "acc"
SET
	"password_reset_token" = ?,
	"password_reset_expires_at" = ?
WHERE
	"acc"."deleted_at" IS NULL
AND (
	"acc"."id" = ?
) RETURNING *;`

type Accounts interface {
	repository.Repository[*Account]

	TrackAttemptedLogin(ctx context.Context, account *Account) error
	TrackAttemptedLoginTx(ctx context.Context, tx bun.IDB, account *Account) error
	TrackSuccessfulLogin(ctx context.Context, account *Account) error
	TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, account *Account) error

	Register(ctx context.Context, account *Account) (*Account, error)
	RegisterTx(ctx context.Context, tx bun.IDB, account *Account) (*Account, error)
	Create(ctx context.Context, record *Account, criteria ...repository.InsertCriteria) (*Account, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Account, criteria ...repository.InsertCriteria) (*Account, error)
	GetByEmail(ctx context.Context, email string, criteria ...repository.SelectCriteria) (*Account, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string, criteria ...repository.SelectCriteria) (*Account, error)

	UpdateStatus(ctx context.Context, id uuid.UUID, status AccountStatus, opts ...StatusUpdateOption) (*Account, error)
	UpdateStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, status AccountStatus, opts ...StatusUpdateOption) (*Account, error)
	Suspend(ctx context.Context, actor ActorRef, account *Account, opts ...TransitionOption) (*Account, error)
	Reinstate(ctx context.Context, actor ActorRef, account *Account, opts ...TransitionOption) (*Account, error)
	Remove(ctx context.Context, actor ActorRef, account *Account, opts ...TransitionOption) (*Account, error)

	SetResetToken(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time) error
	SetResetTokenTx(ctx context.Context, tx bun.IDB, id uuid.UUID, token string, expiresAt time.Time) error
	ConsumeVerificationToken(ctx context.Context, token string) (*Account, error)
	ConsumeVerificationTokenTx(ctx context.Context, tx bun.IDB, token string) (*Account, error)
	ConsumeResetToken(ctx context.Context, token, passwordHash string, now time.Time) (*Account, error)
	ConsumeResetTokenTx(ctx context.Context, tx bun.IDB, token, passwordHash string, now time.Time) (*Account, error)
	GetByVerificationToken(ctx context.Context, token string) (*Account, error)
	GetByResetToken(ctx context.Context, token string) (*Account, error)
}

type accountsRepo struct {
	repository.Repository[*Account]
	db                  *bun.DB
	stateMachine        AccountStateMachine
	stateMachineOptions []StateMachineOption
}

var (
	_ Accounts                        = (*accountsRepo)(nil)
	_ repository.Repository[*Account] = (*accountsRepo)(nil)
)

type AccountsOption func(*accountsRepo)

func NewAccountsRepository(db *bun.DB, opts ...AccountsOption) Accounts {
	repo := repository.NewRepository[*Account](db, repository.ModelHandlers[*Account]{
		NewRecord: func() *Account { return &Account{} },
		GetID: func(a *Account) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Account, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
	})

	repoAccounts := &accountsRepo{
		Repository: repo,
		db:         db,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repoAccounts)
		}
	}

	return repoAccounts
}

func WithAccountsStateMachineOptions(options ...StateMachineOption) AccountsOption {
	return func(a *accountsRepo) {
		if len(options) == 0 {
			return
		}
		a.stateMachineOptions = append(a.stateMachineOptions, options...)
		a.stateMachine = nil
	}
}

func WithAccountsStateMachine(sm AccountStateMachine) AccountsOption {
	return func(a *accountsRepo) {
		a.stateMachine = sm
	}
}

func (a *accountsRepo) Register(ctx context.Context, account *Account) (*Account, error) {
	return a.RegisterTx(ctx, a.db, account)
}

func (a *accountsRepo) RegisterTx(ctx context.Context, tx bun.IDB, account *Account) (*Account, error) {
	return a.CreateTx(ctx, tx, account)
}

func (a *accountsRepo) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*Account, error) {
	return a.GetByIdentifierTx(ctx, a.db, identifier, criteria...)
}

func (a *accountsRepo) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (*Account, error) {
	options := resolveAccountIdentifier(identifier)
	if len(options) == 0 {
		options = []identifierOption{
			{
				column: "id",
				value:  strings.TrimSpace(identifier),
			},
		}
	}

	for _, opt := range options {
		record := &Account{}
		q := tx.NewSelect().Model(record)

		for _, c := range criteria {
			q.Apply(c)
		}

		err := q.
			Where(fmt.Sprintf("?TableAlias.%s = ?", opt.column), opt.value).
			Limit(1).
			Scan(ctx)

		if err != nil {
			if repository.IsRecordNotFound(err) {
				continue
			}
			return nil, err
		}

		return record, nil
	}

	return nil, repository.NewRecordNotFound().
		WithMetadata(map[string]any{
			"identifier": identifier,
		})
}

func (a *accountsRepo) GetByEmail(ctx context.Context, email string, criteria ...repository.SelectCriteria) (*Account, error) {
	return a.GetByEmailTx(ctx, a.db, email, criteria...)
}

func (a *accountsRepo) GetByEmailTx(ctx context.Context, tx bun.IDB, email string, criteria ...repository.SelectCriteria) (*Account, error) {
	record := &Account{}
	q := tx.NewSelect().Model(record)

	for _, c := range criteria {
		q.Apply(c)
	}

	err := q.
		Where("?TableAlias.email = ?", NormalizeEmail(email)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"email": NormalizeEmail(email),
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *accountsRepo) Create(ctx context.Context, record *Account, criteria ...repository.InsertCriteria) (*Account, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *accountsRepo) CreateTx(ctx context.Context, tx bun.IDB, record *Account, criteria ...repository.InsertCriteria) (*Account, error) {
	prepareAccountDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *accountsRepo) SetResetToken(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time) error {
	return a.SetResetTokenTx(ctx, a.db, id, token, expiresAt)
}

func (a *accountsRepo) SetResetTokenTx(ctx context.Context, tx bun.IDB, id uuid.UUID, token string, expiresAt time.Time) error {
	res, err := a.Repository.RawTx(ctx, tx, SetResetTokenSQL, token, expiresAt, id.String())
	if err != nil {
		return err
	}

	if len(res) == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return nil
}

func (a *accountsRepo) ConsumeVerificationToken(ctx context.Context, token string) (*Account, error) {
	return a.ConsumeVerificationTokenTx(ctx, a.db, token)
}

func (a *accountsRepo) ConsumeVerificationTokenTx(ctx context.Context, tx bun.IDB, token string) (*Account, error) {
	if token == "" {
		return nil, ErrNoEmptyString
	}

	res, err := a.Repository.RawTx(ctx, tx, ConsumeVerificationTokenSQL, token)
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"reason": "verification token unknown or already used",
			})
	}

	return res[0], nil
}

func (a *accountsRepo) ConsumeResetToken(ctx context.Context, token, passwordHash string, now time.Time) (*Account, error) {
	return a.ConsumeResetTokenTx(ctx, a.db, token, passwordHash, now)
}

func (a *accountsRepo) ConsumeResetTokenTx(ctx context.Context, tx bun.IDB, token, passwordHash string, now time.Time) (*Account, error) {
	if token == "" || passwordHash == "" {
		return nil, ErrNoEmptyString
	}

	res, err := a.Repository.RawTx(ctx, tx, ConsumeResetTokenSQL, passwordHash, token, now)
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"reason": "reset token unknown, expired, or already used",
			})
	}

	return res[0], nil
}

func (a *accountsRepo) GetByVerificationToken(ctx context.Context, token string) (*Account, error) {
	if token == "" {
		return nil, ErrNoEmptyString
	}

	record := &Account{}
	err := a.db.NewSelect().Model(record).
		Where("?TableAlias.email_verification_token = ?", token).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound()
		}
		return nil, err
	}

	return record, nil
}

func (a *accountsRepo) GetByResetToken(ctx context.Context, token string) (*Account, error) {
	if token == "" {
		return nil, ErrNoEmptyString
	}

	record := &Account{}
	err := a.db.NewSelect().Model(record).
		Where("?TableAlias.password_reset_token = ?", token).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound()
		}
		return nil, err
	}

	return record, nil
}

func (a *accountsRepo) TrackSuccessfulLogin(ctx context.Context, account *Account) error {
	return a.TrackSuccessfulLoginTx(ctx, a.db, account)
}

func (a *accountsRepo) TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, account *Account) error {
	// NOTE: Updating using the ORM wont reset the nullable
	// login_attempt_at column, so we go raw here.
	loggedInAt := time.Now()
	_, err := tx.NewRaw(`
		UPDATE "accounts" AS "acc"
		SET
			"last_login_at" = ?,
			"login_attempt_at" = NULL,
			"login_attempts" = 0
		WHERE
			("acc".id = ?)
			AND "acc"."deleted_at" IS NULL;
	`, loggedInAt, account.ID).Exec(ctx)

	return err
}

func (a *accountsRepo) TrackAttemptedLogin(ctx context.Context, account *Account) error {
	return a.TrackAttemptedLoginTx(ctx, a.db, account)
}

func (a *accountsRepo) TrackAttemptedLoginTx(ctx context.Context, tx bun.IDB, account *Account) error {
	criteria := []repository.UpdateCriteria{
		repository.UpdateByID(account.ID.String()),
	}

	record := &Account{}
	record.ID = account.ID
	record.LoginAttempts = account.LoginAttempts + 1
	now := time.Now()
	record.LoginAttemptAt = &now

	_, err := a.Repository.UpdateTx(ctx, tx, record, criteria...)

	return err
}

func (a *accountsRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status AccountStatus, opts ...StatusUpdateOption) (*Account, error) {
	return a.UpdateStatusTx(ctx, a.db, id, status, opts...)
}

func (a *accountsRepo) UpdateStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, status AccountStatus, opts ...StatusUpdateOption) (*Account, error) {
	record := &Account{
		ID:     id,
		Status: status,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(record)
		}
	}

	return a.Repository.UpdateTx(ctx, tx, record, repository.UpdateByID(id.String()))
}

func (a *accountsRepo) Suspend(ctx context.Context, actor ActorRef, account *Account, opts ...TransitionOption) (*Account, error) {
	return a.lifecycleMachine().Transition(ctx, actor, account, AccountStatusSuspended, opts...)
}

func (a *accountsRepo) Reinstate(ctx context.Context, actor ActorRef, account *Account, opts ...TransitionOption) (*Account, error) {
	return a.lifecycleMachine().Transition(ctx, actor, account, AccountStatusActive, opts...)
}

// Remove transitions the account to deleted and soft deletes the row
func (a *accountsRepo) Remove(ctx context.Context, actor ActorRef, account *Account, opts ...TransitionOption) (*Account, error) {
	updated, err := a.lifecycleMachine().Transition(ctx, actor, account, AccountStatusDeleted, opts...)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if _, err := a.db.NewRaw(`
		UPDATE "accounts" AS "acc"
		SET "deleted_at" = ?
		WHERE ("acc".id = ?) AND "acc"."deleted_at" IS NULL;
	`, now, updated.ID).Exec(ctx); err != nil {
		return nil, err
	}

	updated.DeletedAt = &now
	return updated, nil
}

// StatusUpdateOption allows callers to mutate the record before persisting status changes.
type StatusUpdateOption func(*Account)

// WithSuspendedAt sets the SuspendedAt timestamp during a status transition.
func WithSuspendedAt(at *time.Time) StatusUpdateOption {
	return func(a *Account) {
		a.SuspendedAt = at
	}
}

func prepareAccountDefaults(record *Account) {
	if record == nil {
		return
	}

	if record.Role == "" {
		record.Role = RoleUser
	}

	record.EnsureStatus()
	record.Email = NormalizeEmail(record.Email)

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}

type identifierOption struct {
	column string
	value  string
}

func resolveAccountIdentifier(identifier string) []identifierOption {
	trimmed := strings.TrimSpace(identifier)
	if trimmed == "" {
		return nil
	}

	options := make([]identifierOption, 0, 2)

	if isUUID(trimmed) {
		options = append(options, identifierOption{
			column: "id",
			value:  trimmed,
		})
	}

	if isEmail(trimmed) {
		options = append(options, identifierOption{
			column: "email",
			value:  NormalizeEmail(trimmed),
		})
	}

	return options
}

func isEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

func isUUID(identifier string) bool {
	_, err := uuid.Parse(identifier)
	return err == nil
}

func (a *accountsRepo) lifecycleMachine() AccountStateMachine {
	if a.stateMachine == nil {
		a.stateMachine = NewAccountStateMachine(a, a.stateMachineOptions...)
	}
	return a.stateMachine
}
