package accounts

import (
	"context"

	"github.com/goliatone/go-errors"
)

// AccountStore is the slice of the repository the provider needs to verify
// credentials and track attempts.
type AccountStore interface {
	GetByIdentifier(ctx context.Context, identifier string) (*Account, error)
	TrackAttemptedLogin(ctx context.Context, account *Account) error
	TrackSuccessfulLogin(ctx context.Context, account *Account) error
}

type repoAccountStore struct {
	repo Accounts
}

// NewAccountStore adapts the full repository to the provider's store
// surface.
func NewAccountStore(repo Accounts) AccountStore {
	return repoAccountStore{repo: repo}
}

func (s repoAccountStore) GetByIdentifier(ctx context.Context, identifier string) (*Account, error) {
	return s.repo.GetByIdentifier(ctx, identifier)
}

func (s repoAccountStore) TrackAttemptedLogin(ctx context.Context, account *Account) error {
	return s.repo.TrackAttemptedLogin(ctx, account)
}

func (s repoAccountStore) TrackSuccessfulLogin(ctx context.Context, account *Account) error {
	return s.repo.TrackSuccessfulLogin(ctx, account)
}

// dummyPasswordHash is compared against when the identifier resolves no
// account, so unknown identifiers cost the same as wrong passwords.
const dummyPasswordHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

// MaxLoginAttempts is the maximum number of failed attempts an account
// gets in a cool down period
var MaxLoginAttempts = 5

// CoolDownPeriod is the window in which failed attempts accumulate
var CoolDownPeriod = "24h"

// AccountProvider resolves identities against the account store. It checks
// credentials and throttling only, lifecycle status is the
// authenticator's concern so that correct credentials against a suspended
// account surface as not-active rather than invalid.
type AccountProvider struct {
	store     AccountStore
	hasher    *Hasher
	Validator func(*Account) error
	logger    Logger
}

// NewAccountProvider will create a new AccountProvider
func NewAccountProvider(store AccountStore, hasher *Hasher) *AccountProvider {
	return &AccountProvider{
		store:     store,
		hasher:    hasher,
		logger:    defLogger{},
		Validator: defaultAccountValidator,
	}
}

func (p *AccountProvider) WithLogger(l Logger) *AccountProvider {
	if l != nil {
		p.logger = l
	}
	return p
}

func (p *AccountProvider) validate(account *Account) error {
	if p.Validator != nil {
		return p.Validator(account)
	}
	return defaultAccountValidator(account)
}

// VerifyIdentity finds the account, compares the password, and returns
// the identity. Unknown identifiers and wrong passwords both come back as
// ErrInvalidCredentials.
func (p *AccountProvider) VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error) {
	account, err := p.store.GetByIdentifier(ctx, identifier)
	if err != nil {
		if isRecordNotFound(err) {
			p.hasher.Verify(password, dummyPasswordHash)
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve account during verification")
	}

	account.EnsureStatus()

	if account.LoginAttemptAt != nil {
		expired, err := IsOutsideThresholdPeriod(*account.LoginAttemptAt, CoolDownPeriod)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to calculate login attempt cooldown")
		}

		if expired {
			account.LoginAttempts = 0
		}
	}

	// too many attempts in the window, cool off
	if account.LoginAttempts > MaxLoginAttempts {
		return nil, ErrTooManyLoginAttempts
	}

	if !p.hasher.Verify(password, account.PasswordHash) {
		if err2 := p.store.TrackAttemptedLogin(ctx, account); err2 != nil {
			return nil, errors.Wrap(err2, errors.CategoryInternal, "failed to track login attempt")
		}

		return nil, ErrInvalidCredentials
	}

	// only a login that can actually complete counts as successful, a
	// non-active account keeps its counters and last_login_at untouched
	if account.Status == AccountStatusActive {
		if err := p.store.TrackSuccessfulLogin(ctx, account); err != nil {
			p.logger.Error("failed to track successful login: %v", err)
		}
	}

	if err := p.validate(account); err != nil {
		return nil, err
	}

	return identityFromAccount(account), nil
}

// FindIdentityByIdentifier resolves an identity without checking
// credentials, used by refresh and session lookups.
func (p *AccountProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error) {
	account, err := p.store.GetByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}

	account.EnsureStatus()

	if err := p.validate(account); err != nil {
		return nil, err
	}

	return identityFromAccount(account), nil
}

type accountIdentity struct {
	id     string
	email  string
	role   AccountRole
	status AccountStatus
}

func identityFromAccount(account *Account) accountIdentity {
	return accountIdentity{
		id:     account.ID.String(),
		email:  account.Email,
		role:   account.Role,
		status: account.Status,
	}
}

func (a accountIdentity) ID() string {
	return a.id
}

func (a accountIdentity) Email() string {
	return a.email
}

func (a accountIdentity) Role() AccountRole {
	return a.role
}

func (a accountIdentity) Status() AccountStatus {
	if a.status == "" {
		return AccountStatusActive
	}
	return a.status
}

var _ Identity = accountIdentity{}

func defaultAccountValidator(a *Account) error {
	if IsValidRole(a.Role) {
		return nil
	}
	return errors.New("account has an unknown or invalid role", errors.CategoryAuth).
		WithTextCode("INVALID_ROLE").
		WithMetadata(map[string]any{"role": a.Role, "account_id": a.ID.String()})
}

var _ IdentityProvider = (*AccountProvider)(nil)
