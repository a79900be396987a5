package accounts

import (
	"fmt"

	"github.com/goliatone/go-errors"
	"golang.org/x/crypto/bcrypt"
)

// DefaultHashCost is the bcrypt work factor used when no cost is configured
const DefaultHashCost = 12

// Hasher derives and verifies password hashes using bcrypt with a fixed
// work factor. The zero value is not usable, construct with NewHasher.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher with the given bcrypt cost. Costs outside the
// range bcrypt supports are rejected at construction, not at first use.
func NewHasher(cost int) (*Hasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, errors.New(
			fmt.Sprintf("hash cost %d outside supported range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost),
			errors.CategoryBadInput,
		).WithTextCode("INVALID_HASH_COST")
	}
	return &Hasher{cost: cost}, nil
}

// Cost exposes the configured work factor
func (h *Hasher) Cost() int {
	return h.cost
}

// Hash derives a salted hash from the plaintext password. The same password
// hashed twice yields different strings, comparison goes through Verify.
func (h *Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to hash password")
	}
	return string(b), nil
}

// Verify reports whether plaintext matches the stored hash. Malformed or
// empty hashes verify as false, never as an error.
func (h *Hasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
