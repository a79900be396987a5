package accounts

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
)

// ProfileUpdate carries the mutable profile fields. Nil pointers leave the
// stored value untouched, email and credential fields are not updatable
// through the profile surface.
type ProfileUpdate struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Phone     *string `json:"phone_number,omitempty"`
	Avatar    *string `json:"avatar,omitempty"`
}

func (p ProfileUpdate) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.FirstName, validation.Length(1, 200)),
		validation.Field(&p.LastName, validation.Length(1, 200)),
	)
}

// ProfileService reads and mutates the account's own profile. Every result
// is sanitized, credential hashes and security tokens never leave the
// package through this surface.
type ProfileService struct {
	repo   RepositoryManager
	logger Logger
}

func NewProfileService(repo RepositoryManager) *ProfileService {
	return &ProfileService{
		repo:   repo,
		logger: defLogger{},
	}
}

func (s *ProfileService) WithLogger(logger Logger) *ProfileService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Get returns the sanitized profile for an account id
func (s *ProfileService) Get(ctx context.Context, accountID string) (*Account, error) {
	account, err := s.load(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return account.Sanitize(), nil
}

// Update applies a partial profile update and returns the result
func (s *ProfileService) Update(ctx context.Context, accountID string, update ProfileUpdate) (*Account, error) {
	if err := update.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid profile update")
	}

	account, err := s.load(ctx, accountID)
	if err != nil {
		return nil, err
	}

	record := &Account{ID: account.ID}
	if update.FirstName != nil {
		record.FirstName = *update.FirstName
	}
	if update.LastName != nil {
		record.LastName = *update.LastName
	}
	if update.Phone != nil {
		record.Phone = normalizePhone(*update.Phone)
	}
	if update.Avatar != nil {
		record.Avatar = *update.Avatar
	}
	now := time.Now()
	record.UpdatedAt = &now

	updated, err := s.repo.Accounts().Update(ctx, record, repository.UpdateByID(account.ID.String()))
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update profile")
	}

	return updated.Sanitize(), nil
}

// Delete soft deletes the account and moves it to the deleted status
func (s *ProfileService) Delete(ctx context.Context, accountID string) error {
	account, err := s.load(ctx, accountID)
	if err != nil {
		return err
	}

	actor := ActorRef{ID: account.ID.String(), Type: "account"}
	if _, err := s.repo.Accounts().Remove(ctx, actor, account, WithTransitionReason("profile delete")); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete account")
	}

	return nil
}

func (s *ProfileService) load(ctx context.Context, accountID string) (*Account, error) {
	if _, err := uuid.Parse(accountID); err != nil {
		return nil, withErrMetadata(ErrAccountNotFound, map[string]any{
			"account_id": accountID,
		})
	}

	account, err := s.repo.Accounts().GetByID(ctx, accountID)
	if err != nil {
		if isRecordNotFound(err) {
			return nil, withErrMetadata(ErrAccountNotFound, map[string]any{
				"account_id": accountID,
			})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load account")
	}

	return account, nil
}

// normalizePhone formats international numbers to E.164. Inputs that do
// not parse come back unchanged, phone is a best-effort field.
func normalizePhone(phone string) string {
	if phone == "" {
		return ""
	}

	num, err := phonenumbers.Parse(phone, "US")
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return phone
	}

	return phonenumbers.Format(num, phonenumbers.E164)
}
