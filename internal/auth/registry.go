package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for unknown accounts and wrong passwords alike.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Admin is a teacher account allowed to issue QR codes.
type Admin struct {
	Email        string `json:"email"`
	PasswordHash string `json:"password_hash"`
	Subject      string `json:"subject"`
}

// Registry is the read-only set of teacher accounts, keyed by lower-cased email.
type Registry struct {
	admins map[string]Admin
}

// NewRegistry builds a registry, rejecting blank or duplicate emails.
func NewRegistry(admins []Admin) (*Registry, error) {
	r := &Registry{admins: make(map[string]Admin, len(admins))}
	for _, a := range admins {
		key := normalize(a.Email)
		if key == "" {
			return nil, errors.New("admin email required")
		}
		if _, dup := r.admins[key]; dup {
			return nil, fmt.Errorf("duplicate admin %s", a.Email)
		}
		if a.PasswordHash == "" {
			return nil, fmt.Errorf("admin %s has no password hash", a.Email)
		}
		a.Email = key
		r.admins[key] = a
	}
	return r, nil
}

// LoadRegistry reads a JSON array of admins from path. An empty path yields an empty registry.
func LoadRegistry(path string) (*Registry, error) {
	if path == "" {
		return NewRegistry(nil)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read admins: %w", err)
	}
	var admins []Admin
	if err := json.Unmarshal(raw, &admins); err != nil {
		return nil, fmt.Errorf("parse admins: %w", err)
	}
	return NewRegistry(admins)
}

// Lookup finds a teacher by email.
func (r *Registry) Lookup(email string) (Admin, bool) {
	a, ok := r.admins[normalize(email)]
	return a, ok
}

// IsAdmin reports whether email belongs to a teacher.
func (r *Registry) IsAdmin(email string) bool {
	_, ok := r.Lookup(email)
	return ok
}

// Authenticate checks a teacher's password.
func (r *Registry) Authenticate(email, password string) (Admin, error) {
	a, ok := r.Lookup(email)
	if !ok || !CheckPassword(a.PasswordHash, password) {
		return Admin{}, ErrInvalidCredentials
	}
	return a, nil
}

// Len is the number of teacher accounts.
func (r *Registry) Len() int { return len(r.admins) }

// HashPassword returns a bcrypt hash.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(b), err
}

// CheckPassword compares a bcrypt hash with a candidate password.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
