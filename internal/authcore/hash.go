package authcore

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const passwordHashCost = 10

// ErrPasswordMismatch indicates the candidate password does not match the stored hash.
var ErrPasswordMismatch = errors.New("authcore.password_mismatch")

// HashPassword produces a bcrypt hash of the plaintext password.
func HashPassword(password string) (string, error) {
	hashed, hashErr := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost)
	if hashErr != nil {
		return "", fmt.Errorf("authcore.hash_password: %w", hashErr)
	}
	return string(hashed), nil
}

// VerifyPassword compares a candidate password against a stored bcrypt hash.
func VerifyPassword(storedHash string, password string) error {
	compareErr := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(password))
	if compareErr != nil {
		if errors.Is(compareErr, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("authcore.verify_password: %w", compareErr)
	}
	return nil
}
