package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

// ErrInvalidCredentials is returned when the passphrase does not match
var ErrInvalidCredentials = errors.New("invalid credentials")

// PassphraseAuthenticator checks the owner passphrase against a bcrypt hash
type PassphraseAuthenticator struct {
	hash []byte
}

// NewPassphraseAuthenticator hashes passphrase so the plaintext is not kept
func NewPassphraseAuthenticator(passphrase string) (*PassphraseAuthenticator, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("passphrase is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(passphrase), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash passphrase: %w", err)
	}
	return &PassphraseAuthenticator{hash: hash}, nil
}

// NewPassphraseAuthenticatorFromHash uses an existing bcrypt hash
func NewPassphraseAuthenticatorFromHash(hash string) (*PassphraseAuthenticator, error) {
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("invalid bcrypt hash: %w", err)
	}
	return &PassphraseAuthenticator{hash: []byte(hash)}, nil
}

// Authenticate compares passphrase with the stored hash
func (pa *PassphraseAuthenticator) Authenticate(passphrase string) error {
	if err := bcrypt.CompareHashAndPassword(pa.hash, []byte(passphrase)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}
