// Package passwords hashes and verifies account passwords with bcrypt.
package passwords

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/vidtube/backend/internal/models"
)

// MaxBytes is the longest password bcrypt accepts.
const MaxBytes = 72

var (
	// ErrEmptyPassword is returned when hashing an empty password.
	ErrEmptyPassword = errors.New("password must not be empty")
	// ErrTooLong is returned when a password exceeds MaxBytes.
	ErrTooLong = errors.New("password exceeds 72 bytes")
)

// Cost is the bcrypt work factor used for new hashes.
var Cost = bcrypt.DefaultCost

// Hash returns the bcrypt hash of plain.
func Hash(plain string) (string, error) {
	if plain == "" {
		return "", ErrEmptyPassword
	}
	if !Fits(plain) {
		return "", ErrTooLong
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), Cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// Fits reports whether plain is short enough to be hashed.
func Fits(plain string) bool {
	return len(plain) <= MaxBytes
}

// Verify reports whether candidate matches the password stored on user.
func Verify(user models.User, candidate string) bool {
	if user.Password == "" || candidate == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(candidate)) == nil
}
