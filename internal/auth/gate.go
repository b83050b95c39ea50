// Package auth checks demo credentials and issues API tokens.
package auth

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"hanzi-quiz-service/internal/domain"
)

// Credential is one configured login. PasswordHash, when set, is a bcrypt hash
// and takes precedence over Password.
type Credential struct {
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	PasswordHash string `yaml:"password_hash"`
}

// DefaultCredentials are the demo accounts shown on the login screen.
func DefaultCredentials() []Credential {
	return []Credential{
		{Username: "student1", Password: "password1"},
		{Username: "student2", Password: "password2"},
	}
}

// Gate authenticates usernames against a fixed credential list.
type Gate struct {
	users map[string]Credential
}

func NewGate(creds []Credential) *Gate {
	users := make(map[string]Credential, len(creds))
	for _, c := range creds {
		users[c.Username] = c
	}
	return &Gate{users: users}
}

// Authenticate returns the username on success and ErrInvalidCredentials otherwise.
func (g *Gate) Authenticate(username, password string) (string, error) {
	c, ok := g.users[username]
	if !ok || username == "" {
		return "", domain.ErrInvalidCredentials
	}
	if c.PasswordHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)); err != nil {
			return "", domain.ErrInvalidCredentials
		}
		return c.Username, nil
	}
	if subtle.ConstantTimeCompare([]byte(c.Password), []byte(password)) != 1 {
		return "", domain.ErrInvalidCredentials
	}
	return c.Username, nil
}

// HashPassword produces a bcrypt hash suitable for Credential.PasswordHash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
