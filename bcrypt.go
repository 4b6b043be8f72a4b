package auth

import (
	"errors"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt cost used by HashPassword.
var PasswordCost = 12

// HashPassword will generate a password hash
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	return string(h), err
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return err
	}
	return nil
}

// RandomPasswordHash hashes a random secret nobody knows, leaving the
// account without a usable local password. An invalid PasswordCost falls
// back to bcrypt.DefaultCost.
func RandomPasswordHash() string {
	pwd := []byte(uuid.New().String())

	h, err := bcrypt.GenerateFromPassword(pwd, PasswordCost)
	if err != nil {
		h, _ = bcrypt.GenerateFromPassword(pwd, bcrypt.DefaultCost)
	}

	return string(h)
}
