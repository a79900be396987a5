package accounts_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	accounts "github.com/castlefield/go-accounts"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const sqliteCreateAccounts = `CREATE TABLE accounts (
    id TEXT NOT NULL PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL DEFAULT '',
    first_name TEXT NOT NULL DEFAULT '',
    last_name TEXT NOT NULL DEFAULT '',
    phone_number TEXT,
    avatar TEXT,
    account_role TEXT NOT NULL DEFAULT 'user',
    status TEXT NOT NULL DEFAULT 'active',
    is_email_verified BOOLEAN NOT NULL DEFAULT FALSE,
    email_verification_token TEXT,
    password_reset_token TEXT,
    password_reset_expires_at TIMESTAMP NULL,
    login_attempts INTEGER NOT NULL DEFAULT 0,
    login_attempt_at TIMESTAMP NULL,
    last_login_at TIMESTAMP NULL,
    suspended_at TIMESTAMP NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP,
    deleted_at TIMESTAMP NULL
);`

func setupAccountsRepo(t *testing.T) (accounts.RepositoryManager, func()) {
	t.Helper()

	db, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	bunDB := bun.NewDB(db, sqlitedialect.New())

	_, err = bunDB.Exec(sqliteCreateAccounts)
	require.NoError(t, err)

	cleanup := func() {
		_ = bunDB.Close()
		_ = db.Close()
	}

	return accounts.NewRepositoryManager(bunDB), cleanup
}

func createTestAccount(t *testing.T, repo accounts.RepositoryManager, email string) *accounts.Account {
	t.Helper()

	account, err := repo.Accounts().Create(context.Background(), &accounts.Account{
		Email:        email,
		PasswordHash: "stored-hash",
		FirstName:    "Test",
		LastName:     "Er",
	})
	require.NoError(t, err)
	require.NotNil(t, account)

	return account
}

func TestAccountsRepositoryCreateAppliesDefaults(t *testing.T) {
	repo, cleanup := setupAccountsRepo(t)
	defer cleanup()

	account := createTestAccount(t, repo, "  User@Example.COM ")

	assert.NotEmpty(t, account.ID)
	assert.Equal(t, "user@example.com", account.Email)
	assert.Equal(t, accounts.RoleUser, account.Role)
	assert.Equal(t, accounts.AccountStatusActive, account.Status)
}

func TestAccountsRepositoryGetByEmailIsCaseInsensitive(t *testing.T) {
	repo, cleanup := setupAccountsRepo(t)
	defer cleanup()

	created := createTestAccount(t, repo, "tester@example.com")

	found, err := repo.Accounts().GetByEmail(context.Background(), "  TESTER@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = repo.Accounts().GetByEmail(context.Background(), "nobody@example.com")
	assert.True(t, repository.IsRecordNotFound(err))
}

func TestAccountsRepositoryGetByIdentifier(t *testing.T) {
	repo, cleanup := setupAccountsRepo(t)
	defer cleanup()

	created := createTestAccount(t, repo, "tester@example.com")
	ctx := context.Background()

	byID, err := repo.Accounts().GetByIdentifier(ctx, created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, created.Email, byID.Email)

	byEmail, err := repo.Accounts().GetByIdentifier(ctx, "tester@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	_, err = repo.Accounts().GetByIdentifier(ctx, "nobody@example.com")
	assert.True(t, repository.IsRecordNotFound(err))
}

func TestAccountsRepositoryVerificationTokenIsSingleUse(t *testing.T) {
	repo, cleanup := setupAccountsRepo(t)
	defer cleanup()
	ctx := context.Background()

	token := "verify-me"
	created, err := repo.Accounts().Create(ctx, &accounts.Account{
		Email:                  "tester@example.com",
		PasswordHash:           "stored-hash",
		EmailVerificationToken: &token,
	})
	require.NoError(t, err)

	verified, err := repo.Accounts().ConsumeVerificationToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, created.ID, verified.ID)
	assert.True(t, verified.EmailVerified)
	assert.Nil(t, verified.EmailVerificationToken)

	// the first redemption spent the token
	_, err = repo.Accounts().ConsumeVerificationToken(ctx, token)
	assert.True(t, repository.IsRecordNotFound(err))

	_, err = repo.Accounts().ConsumeVerificationToken(ctx, "never-issued")
	assert.True(t, repository.IsRecordNotFound(err))

	_, err = repo.Accounts().ConsumeVerificationToken(ctx, "")
	assert.ErrorIs(t, err, accounts.ErrNoEmptyString)
}

func TestAccountsRepositoryGetByVerificationToken(t *testing.T) {
	repo, cleanup := setupAccountsRepo(t)
	defer cleanup()
	ctx := context.Background()

	token := "verify-me"
	created, err := repo.Accounts().Create(ctx, &accounts.Account{
		Email:                  "tester@example.com",
		PasswordHash:           "stored-hash",
		EmailVerificationToken: &token,
	})
	require.NoError(t, err)

	found, err := repo.Accounts().GetByVerificationToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = repo.Accounts().GetByVerificationToken(ctx, "never-issued")
	assert.True(t, repository.IsRecordNotFound(err))
}

func TestAccountsRepositoryResetTokenLifecycle(t *testing.T) {
	repo, cleanup := setupAccountsRepo(t)
	defer cleanup()
	ctx := context.Background()

	created := createTestAccount(t, repo, "tester@example.com")
	now := time.Now()

	require.NoError(t, repo.Accounts().SetResetToken(ctx, created.ID, "reset-token", now.Add(time.Hour)))

	updated, err := repo.Accounts().ConsumeResetToken(ctx, "reset-token", "new-hash", now)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "new-hash", updated.PasswordHash)
	assert.Nil(t, updated.PasswordResetToken)
	assert.Nil(t, updated.PasswordResetExpiresAt)

	// single use: the winning update cleared the token
	_, err = repo.Accounts().ConsumeResetToken(ctx, "reset-token", "another-hash", now)
	assert.True(t, repository.IsRecordNotFound(err))
}

func TestAccountsRepositoryGetByResetToken(t *testing.T) {
	repo, cleanup := setupAccountsRepo(t)
	defer cleanup()
	ctx := context.Background()

	created := createTestAccount(t, repo, "tester@example.com")
	now := time.Now()

	require.NoError(t, repo.Accounts().SetResetToken(ctx, created.ID, "reset-token", now.Add(time.Hour)))

	found, err := repo.Accounts().GetByResetToken(ctx, "reset-token")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = repo.Accounts().GetByResetToken(ctx, "unknown-token")
	assert.True(t, repository.IsRecordNotFound(err))

	_, err = repo.Accounts().GetByResetToken(ctx, "")
	assert.ErrorIs(t, err, accounts.ErrNoEmptyString)
}

func TestAccountsRepositoryResetTokenExpiry(t *testing.T) {
	repo, cleanup := setupAccountsRepo(t)
	defer cleanup()
	ctx := context.Background()

	created := createTestAccount(t, repo, "tester@example.com")
	now := time.Now()

	require.NoError(t, repo.Accounts().SetResetToken(ctx, created.ID, "stale-token", now.Add(-time.Minute)))

	// the expiry predicate keeps the row from matching
	_, err := repo.Accounts().ConsumeResetToken(ctx, "stale-token", "new-hash", now)
	assert.True(t, repository.IsRecordNotFound(err))

	// the stored credential never changed
	account, err := repo.Accounts().GetByIdentifier(ctx, created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "stored-hash", account.PasswordHash)
}

func TestAccountsRepositorySetResetTokenReplacesPrevious(t *testing.T) {
	repo, cleanup := setupAccountsRepo(t)
	defer cleanup()
	ctx := context.Background()

	created := createTestAccount(t, repo, "tester@example.com")
	now := time.Now()

	require.NoError(t, repo.Accounts().SetResetToken(ctx, created.ID, "first-token", now.Add(time.Hour)))
	require.NoError(t, repo.Accounts().SetResetToken(ctx, created.ID, "second-token", now.Add(time.Hour)))

	// only the latest emailed link works
	_, err := repo.Accounts().ConsumeResetToken(ctx, "first-token", "new-hash", now)
	assert.True(t, repository.IsRecordNotFound(err))

	_, err = repo.Accounts().ConsumeResetToken(ctx, "second-token", "new-hash", now)
	assert.NoError(t, err)
}

func TestAccountsRepositoryLoginTracking(t *testing.T) {
	repo, cleanup := setupAccountsRepo(t)
	defer cleanup()
	ctx := context.Background()

	created := createTestAccount(t, repo, "tester@example.com")

	require.NoError(t, repo.Accounts().TrackAttemptedLogin(ctx, created))

	account, err := repo.Accounts().GetByIdentifier(ctx, created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 1, account.LoginAttempts)
	assert.NotNil(t, account.LoginAttemptAt)

	require.NoError(t, repo.Accounts().TrackAttemptedLogin(ctx, account))

	account, err = repo.Accounts().GetByIdentifier(ctx, created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 2, account.LoginAttempts)

	require.NoError(t, repo.Accounts().TrackSuccessfulLogin(ctx, account))

	account, err = repo.Accounts().GetByIdentifier(ctx, created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 0, account.LoginAttempts)
	assert.Nil(t, account.LoginAttemptAt)
	assert.NotNil(t, account.LastLoginAt)
}

func TestAccountsRepositoryLifecycle(t *testing.T) {
	repo, cleanup := setupAccountsRepo(t)
	defer cleanup()
	ctx := context.Background()

	created := createTestAccount(t, repo, "tester@example.com")

	suspended, err := repo.Accounts().Suspend(ctx, accounts.SystemActor, created)
	require.NoError(t, err)
	assert.Equal(t, accounts.AccountStatusSuspended, suspended.Status)

	account, err := repo.Accounts().GetByIdentifier(ctx, created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, accounts.AccountStatusSuspended, account.Status)
	assert.NotNil(t, account.SuspendedAt)

	reinstated, err := repo.Accounts().Reinstate(ctx, accounts.SystemActor, account)
	require.NoError(t, err)
	assert.Equal(t, accounts.AccountStatusActive, reinstated.Status)

	account, err = repo.Accounts().GetByIdentifier(ctx, created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, accounts.AccountStatusActive, account.Status)

	removed, err := repo.Accounts().Remove(ctx, accounts.SystemActor, account)
	require.NoError(t, err)
	assert.Equal(t, accounts.AccountStatusDeleted, removed.Status)
	assert.NotNil(t, removed.DeletedAt)

	// soft deleted rows are invisible to every lookup
	_, err = repo.Accounts().GetByIdentifier(ctx, created.ID.String())
	assert.True(t, repository.IsRecordNotFound(err))
}

func TestAccountsRepositoryRemoveIsTerminal(t *testing.T) {
	repo, cleanup := setupAccountsRepo(t)
	defer cleanup()
	ctx := context.Background()

	created := createTestAccount(t, repo, "tester@example.com")

	removed, err := repo.Accounts().Remove(ctx, accounts.SystemActor, created)
	require.NoError(t, err)

	_, err = repo.Accounts().Reinstate(ctx, accounts.SystemActor, removed)
	assert.ErrorIs(t, err, accounts.ErrTerminalState)
}

func TestRepositoryManager(t *testing.T) {
	repo, cleanup := setupAccountsRepo(t)
	defer cleanup()

	assert.NoError(t, repo.Validate())

	ran := false
	err := repo.RunInTx(context.Background(), nil, func(ctx context.Context, tx bun.Tx) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	err = repo.RunInTx(cancelled, nil, func(ctx context.Context, tx bun.Tx) error {
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
