package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/orgchat-service/internal/config"
)

// ErrPasswordMismatch is returned when a plaintext does not match its hash.
var ErrPasswordMismatch = errors.New("password does not match")

// PasswordHasher hashes account passwords at the cost set by AUTH_BCRYPT_COST.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher reads the bcrypt cost from cfg. Zero selects bcrypt's
// default; anything else is clamped to the range bcrypt accepts.
func NewPasswordHasher(cfg config.AuthConfig) PasswordHasher {
	cost := cfg.BcryptCost
	switch {
	case cost == 0:
		cost = bcrypt.DefaultCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return PasswordHasher{cost: cost}
}

// Cost is the effective bcrypt cost.
func (h PasswordHasher) Cost() int { return h.cost }

func (h PasswordHasher) Hash(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify checks plain against a stored hash. A wrong password yields
// ErrPasswordMismatch; a corrupt hash yields bcrypt's own error.
func (h PasswordHasher) Verify(hashed, plain string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}
