package engine

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns nil for an empty password.
func HashPassword(password string, cost int) ([]byte, error) {
	if password == "" {
		return nil, nil
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, fmt.Errorf("hash room password: %w", err)
	}
	return hash, nil
}

// VerifyPassword checks password against a hash from HashPassword. A room
// without a hash only accepts the empty password.
func VerifyPassword(hash []byte, password string) error {
	if len(hash) == 0 {
		if password == "" {
			return nil
		}
		return ErrWrongPassword
	}
	if bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil {
		return ErrWrongPassword
	}
	return nil
}
