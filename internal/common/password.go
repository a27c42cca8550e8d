package common

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword expects a password that already passed ValidatePassword.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// PasswordMatches treats a malformed hash as a mismatch.
func PasswordMatches(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
