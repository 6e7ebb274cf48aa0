package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials indicates an unknown username or a wrong password.
// The two cases are deliberately indistinguishable.
var ErrInvalidCredentials = errors.New("invalid username or password")

// User is one account from the static registry.
type User struct {
	ID           string
	Username     string
	PasswordHash string
}

// Registry authenticates logins against a fixed set of users loaded from
// configuration. There is no signup: accounts are provisioned by operators.
type Registry struct {
	byUsername map[string]User
}

// NewRegistry builds a registry from configured users. Later duplicates of a
// username win.
func NewRegistry(users []User) *Registry {
	byUsername := make(map[string]User, len(users))
	for _, u := range users {
		byUsername[u.Username] = u
	}
	return &Registry{byUsername: byUsername}
}

// Authenticate checks a username/password pair and returns the matching
// user, or ErrInvalidCredentials.
func (r *Registry) Authenticate(username, password string) (*User, error) {
	u, ok := r.byUsername[username]
	if !ok {
		// Burn a comparison anyway so a missing user costs the same as a
		// wrong password.
		_ = bcrypt.CompareHashAndPassword([]byte("$2a$10$0000000000000000000000"), []byte(password))
		return nil, ErrInvalidCredentials
	}
	if !CheckPassword(password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return &u, nil
}

// HashPassword hashes a plaintext password with bcrypt at the default cost.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the bcrypt hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
