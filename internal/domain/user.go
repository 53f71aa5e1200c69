package domain

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 8
	bcryptCost        = 12
)

var ErrPasswordTooShort = errors.New("password must be at least 8 characters")

// User is the identity referenced by ownership, rating and bookmark facts.
type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	Username       string    `json:"username"`
	CredentialHash string    `json:"credentialHash,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// SetPassword hashes password with bcrypt.
func (u *User) SetPassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	u.CredentialHash = string(hash)
	return nil
}

// VerifyPassword compares password against the stored hash in constant time.
func (u *User) VerifyPassword(password string) bool {
	if u.CredentialHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.CredentialHash), []byte(password)) == nil
}

// Public strips the credential hash.
func (u *User) Public() *User {
	c := *u
	c.CredentialHash = ""
	return &c
}

// Identity is the authenticated caller of a mutating operation.
type Identity struct {
	UserID   string
	Username string
	Admin    bool
}
