package accounts_test

import (
	"context"
	"database/sql"
	"sync"
	"time"

	accounts "github.com/castlefield/go-accounts"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"
)

// MockAccounts mocks the repository surface the handlers and the state
// machine exercise. The embedded interface covers the methods tests never
// touch.
type MockAccounts struct {
	mock.Mock
	accounts.Accounts
}

func accountReturn(args mock.Arguments) (*accounts.Account, error) {
	var acc *accounts.Account
	if v := args.Get(0); v != nil {
		acc = v.(*accounts.Account)
	}
	return acc, args.Error(1)
}

func (m *MockAccounts) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*accounts.Account, error) {
	return accountReturn(m.Called(ctx, identifier, criteria))
}

func (m *MockAccounts) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*accounts.Account, error) {
	return accountReturn(m.Called(ctx, id, criteria))
}

func (m *MockAccounts) Update(ctx context.Context, record *accounts.Account, criteria ...repository.UpdateCriteria) (*accounts.Account, error) {
	return accountReturn(m.Called(ctx, record, criteria))
}

func (m *MockAccounts) GetByEmail(ctx context.Context, email string, criteria ...repository.SelectCriteria) (*accounts.Account, error) {
	return accountReturn(m.Called(ctx, email, criteria))
}

func (m *MockAccounts) GetByEmailTx(ctx context.Context, tx bun.IDB, email string, criteria ...repository.SelectCriteria) (*accounts.Account, error) {
	return accountReturn(m.Called(ctx, tx, email, criteria))
}

func (m *MockAccounts) CreateTx(ctx context.Context, tx bun.IDB, record *accounts.Account, criteria ...repository.InsertCriteria) (*accounts.Account, error) {
	return accountReturn(m.Called(ctx, tx, record, criteria))
}

func (m *MockAccounts) UpdateStatus(ctx context.Context, id uuid.UUID, status accounts.AccountStatus, opts ...accounts.StatusUpdateOption) (*accounts.Account, error) {
	return accountReturn(m.Called(ctx, id, status, opts))
}

func (m *MockAccounts) Suspend(ctx context.Context, actor accounts.ActorRef, account *accounts.Account, opts ...accounts.TransitionOption) (*accounts.Account, error) {
	return accountReturn(m.Called(ctx, actor, account, opts))
}

func (m *MockAccounts) Reinstate(ctx context.Context, actor accounts.ActorRef, account *accounts.Account, opts ...accounts.TransitionOption) (*accounts.Account, error) {
	return accountReturn(m.Called(ctx, actor, account, opts))
}

func (m *MockAccounts) Remove(ctx context.Context, actor accounts.ActorRef, account *accounts.Account, opts ...accounts.TransitionOption) (*accounts.Account, error) {
	return accountReturn(m.Called(ctx, actor, account, opts))
}

func (m *MockAccounts) SetResetToken(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time) error {
	return m.Called(ctx, id, token, expiresAt).Error(0)
}

func (m *MockAccounts) ConsumeVerificationToken(ctx context.Context, token string) (*accounts.Account, error) {
	return accountReturn(m.Called(ctx, token))
}

func (m *MockAccounts) ConsumeResetToken(ctx context.Context, token, passwordHash string, now time.Time) (*accounts.Account, error) {
	return accountReturn(m.Called(ctx, token, passwordHash, now))
}

func (m *MockAccounts) GetByVerificationToken(ctx context.Context, token string) (*accounts.Account, error) {
	return accountReturn(m.Called(ctx, token))
}

func (m *MockAccounts) TrackAttemptedLogin(ctx context.Context, account *accounts.Account) error {
	return m.Called(ctx, account).Error(0)
}

func (m *MockAccounts) TrackSuccessfulLogin(ctx context.Context, account *accounts.Account) error {
	return m.Called(ctx, account).Error(0)
}

// stubRepoManager runs transaction closures inline so command handlers can
// be tested without a database.
type stubRepoManager struct {
	accounts accounts.Accounts
}

func newStubRepoManager(repo accounts.Accounts) *stubRepoManager {
	return &stubRepoManager{accounts: repo}
}

func (s *stubRepoManager) Accounts() accounts.Accounts {
	return s.accounts
}

func (s *stubRepoManager) Validate() error {
	return nil
}

func (s *stubRepoManager) MustValidate() {}

func (s *stubRepoManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	return f(ctx, bun.Tx{})
}

// MockAccountStore mocks the narrow store the identity provider depends on
type MockAccountStore struct {
	mock.Mock
}

func (m *MockAccountStore) GetByIdentifier(ctx context.Context, identifier string) (*accounts.Account, error) {
	return accountReturn(m.Called(ctx, identifier))
}

func (m *MockAccountStore) TrackAttemptedLogin(ctx context.Context, account *accounts.Account) error {
	return m.Called(ctx, account).Error(0)
}

func (m *MockAccountStore) TrackSuccessfulLogin(ctx context.Context, account *accounts.Account) error {
	return m.Called(ctx, account).Error(0)
}

// MockIdentityProvider implements accounts.IdentityProvider
type MockIdentityProvider struct {
	mock.Mock
}

func identityReturn(args mock.Arguments) (accounts.Identity, error) {
	var identity accounts.Identity
	if v := args.Get(0); v != nil {
		identity = v.(accounts.Identity)
	}
	return identity, args.Error(1)
}

func (m *MockIdentityProvider) VerifyIdentity(ctx context.Context, identifier, password string) (accounts.Identity, error) {
	return identityReturn(m.Called(ctx, identifier, password))
}

func (m *MockIdentityProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (accounts.Identity, error) {
	return identityReturn(m.Called(ctx, identifier))
}

// MockNotifier implements accounts.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendWelcome(ctx context.Context, email, firstName string) error {
	return m.Called(ctx, email, firstName).Error(0)
}

func (m *MockNotifier) SendVerification(ctx context.Context, email, token string) error {
	return m.Called(ctx, email, token).Error(0)
}

func (m *MockNotifier) SendPasswordReset(ctx context.Context, email, token string) error {
	return m.Called(ctx, email, token).Error(0)
}

// capturingSink collects activity events for assertions
type capturingSink struct {
	mu     sync.Mutex
	events []accounts.ActivityEvent
	fail   error
}

func (c *capturingSink) Record(ctx context.Context, event accounts.ActivityEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return c.fail
	}
	c.events = append(c.events, event)
	return nil
}

func (c *capturingSink) Events() []accounts.ActivityEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]accounts.ActivityEvent, len(c.events))
	copy(out, c.events)
	return out
}

func (c *capturingSink) Last() (accounts.ActivityEvent, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.events) == 0 {
		return accounts.ActivityEvent{}, false
	}
	return c.events[len(c.events)-1], true
}

// testIdentity is a fixed Identity fixture
type testIdentity struct {
	id     string
	email  string
	role   accounts.AccountRole
	status accounts.AccountStatus
}

func (i testIdentity) ID() string                     { return i.id }
func (i testIdentity) Email() string                  { return i.email }
func (i testIdentity) Role() accounts.AccountRole     { return i.role }
func (i testIdentity) Status() accounts.AccountStatus { return i.status }

func activeIdentity() testIdentity {
	return testIdentity{
		id:     uuid.NewString(),
		email:  "tester@example.com",
		role:   accounts.RoleUser,
		status: accounts.AccountStatusActive,
	}
}

// testLogger swallows log output during tests
type testLogger struct{}

func (testLogger) Debug(format string, args ...any) {}
func (testLogger) Info(format string, args ...any)  {}
func (testLogger) Warn(format string, args ...any)  {}
func (testLogger) Error(format string, args ...any) {}

func newTokenConfig() *accounts.StaticConfig {
	return &accounts.StaticConfig{
		AccessSigningKey:  "access-secret",
		RefreshSigningKey: "refresh-secret",
		Issuer:            "go-accounts-test",
		Audience:          []string{"api"},
		AccessTokenTTL:    time.Hour,
		RefreshTokenTTL:   2 * time.Hour,
		HashCost:          bcrypt.MinCost,
	}
}

func newTestHasher() *accounts.Hasher {
	h, err := accounts.NewHasher(bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return h
}

var _ accounts.Accounts = (*MockAccounts)(nil)
var _ accounts.RepositoryManager = (*stubRepoManager)(nil)
var _ accounts.AccountStore = (*MockAccountStore)(nil)
var _ accounts.IdentityProvider = (*MockIdentityProvider)(nil)
var _ accounts.Notifier = (*MockNotifier)(nil)
var _ accounts.ActivitySink = (*capturingSink)(nil)
var _ accounts.Identity = testIdentity{}
var _ accounts.Logger = testLogger{}
