package password

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"golang.org/x/crypto/bcrypt"
)

// MaxBytes is the longest password (UTF-8 bytes) bcrypt digests without
// truncation.
const MaxBytes = 72

var (
	// ErrPasswordTooLong is returned by Hash for input over MaxBytes. Longer
	// passwords are rejected rather than silently truncated.
	ErrPasswordTooLong = fmt.Errorf("password must not exceed %d bytes", MaxBytes)
	// ErrEmptyPassword is returned by Hash for an empty password.
	ErrEmptyPassword = errors.New("password cannot be empty")
)

// Hasher produces and checks bcrypt digests. Every digest embeds its own
// random salt and cost.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher using cost; zero selects bcrypt.DefaultCost.
func NewHasher(cost int) (*Hasher, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &Hasher{cost: cost}, nil
}

// Hash returns a new digest for password. Unexpected bcrypt failures are
// wrapped in common.ErrHashingFailure.
func (h *Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	if len(password) > MaxBytes {
		return "", ErrPasswordTooLong
	}

	digest, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrPasswordTooLong
		}
		return "", fmt.Errorf("%w: %v", common.ErrHashingFailure, err)
	}
	return string(digest), nil
}

// Verify reports whether password matches digest. It never fails: empty or
// over-long input, malformed digests and library errors all yield false.
func (h *Hasher) Verify(password, digest string) bool {
	if password == "" || digest == "" || len(password) > MaxBytes {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}

// NeedsRehash reports whether digest was produced with a lower cost than the
// Hasher's current one. Malformed digests need a rehash.
func (h *Hasher) NeedsRehash(digest string) bool {
	cost, err := bcrypt.Cost([]byte(digest))
	if err != nil {
		return true
	}
	return cost < h.cost
}
