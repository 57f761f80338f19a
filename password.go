package authist

import (
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// HashingAlgorithm selects how stored passwords are encoded.
type HashingAlgorithm string

const (
	HashBcrypt    HashingAlgorithm = "bcrypt"
	HashPlaintext HashingAlgorithm = "plaintext"
)

// DefaultBcryptCost is used when PasswordProviderOptions.BcryptCost is 0.
const DefaultBcryptCost = 12

func (o *PasswordProviderOptions) algorithm() HashingAlgorithm {
	if o == nil || o.HashingAlgorithm == "" {
		return HashBcrypt
	}
	return o.HashingAlgorithm
}

func (o *PasswordProviderOptions) cost() int {
	if o == nil || o.BcryptCost == 0 {
		return DefaultBcryptCost
	}
	return o.BcryptCost
}

// HashPassword encodes password using the configured algorithm.
func (o *PasswordProviderOptions) HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrPasswordRequired
	}
	if o.algorithm() == HashPlaintext {
		return password, nil
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), o.cost())
	return string(h), err
}

// ComparePassword checks password against stored. A mismatch returns
// ErrPasswordMismatch.
func (o *PasswordProviderOptions) ComparePassword(password, stored string) error {
	if o.algorithm() == HashPlaintext {
		if subtle.ConstantTimeCompare([]byte(password), []byte(stored)) != 1 {
			return ErrPasswordMismatch
		}
		return nil
	}

	if err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		// a malformed stored hash can never match
		return ErrPasswordMismatch.Wrap(err)
	}
	return nil
}
