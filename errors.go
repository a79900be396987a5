package accounts

import (
	goerrors "errors"

	"github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
)

var (
	// ErrDuplicateAccount means the email is already registered
	ErrDuplicateAccount = errors.New("account already registered", errors.CategoryConflict).
				WithTextCode("DUPLICATE_ACCOUNT").
				WithCode(errors.CodeConflict)

	// ErrInvalidCredentials covers both unknown identifier and bad password,
	// the response never reveals which
	ErrInvalidCredentials = errors.New("invalid credentials", errors.CategoryAuth).
				WithTextCode("INVALID_CREDENTIALS").
				WithCode(errors.CodeUnauthorized)

	// ErrAccountNotActive means credentials were correct but the account
	// status does not permit login
	ErrAccountNotActive = errors.New("account is not active", errors.CategoryAuth).
				WithTextCode("ACCOUNT_NOT_ACTIVE").
				WithCode(errors.CodeForbidden)

	// ErrInvalidOrExpiredToken covers unknown, consumed, and expired
	// single-use tokens, and refresh tokens that fail verification
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token", errors.CategoryAuth).
					WithTextCode("INVALID_OR_EXPIRED_TOKEN").
					WithCode(errors.CodeUnauthorized)

	// ErrAccountNotFound is returned by profile operations
	ErrAccountNotFound = errors.New("account not found", errors.CategoryNotFound).
				WithTextCode("ACCOUNT_NOT_FOUND").
				WithCode(errors.CodeNotFound)

	// ErrTooManyLoginAttempts means the account is in its cool down window
	ErrTooManyLoginAttempts = errors.New("too many login attempts", errors.CategoryAuth).
				WithTextCode("TOO_MANY_LOGIN_ATTEMPTS").
				WithCode(errors.CodeUnauthorized)

	// ErrTokenExpired means a JWT was well formed but past its expiry
	ErrTokenExpired = errors.New("token expired", errors.CategoryAuth).
			WithTextCode("TOKEN_EXPIRED").
			WithCode(errors.CodeUnauthorized)

	// ErrTokenMalformed means a JWT could not be parsed or verified
	ErrTokenMalformed = errors.New("token malformed", errors.CategoryAuth).
				WithTextCode("TOKEN_MALFORMED").
				WithCode(errors.CodeUnauthorized)

	// ErrUnableToDecodeSession means a validated token could not be turned
	// into a session view
	ErrUnableToDecodeSession = errors.New("unable to decode session", errors.CategoryAuth).
					WithTextCode("UNDECODABLE_SESSION").
					WithCode(errors.CodeUnauthorized)

	// ErrNoEmptyString guards required string arguments
	ErrNoEmptyString = errors.New("value cannot be empty", errors.CategoryBadInput).
				WithTextCode("EMPTY_VALUE").
				WithCode(errors.CodeBadRequest)
)

// isRecordNotFound classifies repository misses. go-repository-bun tags
// its record-not-found errors with its own category, so the generic
// CategoryNotFound check alone will not match them.
func isRecordNotFound(err error) bool {
	return repository.IsRecordNotFound(err) || errors.IsNotFound(err)
}

// withErrMetadata attaches metadata to a copy of a sentinel error. The
// sentinels above are shared package state, so the caller gets a clone
// carrying the sentinel as its source.
func withErrMetadata(sentinel *errors.Error, metadata map[string]any) error {
	clone := sentinel.Clone()
	if clone == nil {
		return sentinel
	}
	clone.Source = sentinel
	return clone.WithMetadata(metadata)
}

// IsTokenExpiredError reports whether err is the expiry sentinel
func IsTokenExpiredError(err error) bool {
	return goerrors.Is(err, ErrTokenExpired)
}

// IsMalformedError reports whether err is the malformed token sentinel
func IsMalformedError(err error) bool {
	return goerrors.Is(err, ErrTokenMalformed)
}
