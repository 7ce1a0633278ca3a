package profile

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// ErrExists is returned when a profile for the student already exists.
var ErrExists = errors.New("profile already exists")

// Profile is a student's registration record.
type Profile struct {
	StudentID    string    `json:"student_id"`
	DisplayName  string    `json:"name"`
	RollNumber   string    `json:"roll_number"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Complete reports whether the profile carries the fields attendance needs.
func (p Profile) Complete() bool {
	return strings.TrimSpace(p.DisplayName) != "" && strings.TrimSpace(p.RollNumber) != ""
}

// Store looks up and creates student profiles.
// Get returns nil, nil when no profile exists.
type Store interface {
	Get(ctx context.Context, studentID string) (*Profile, error)
	Create(ctx context.Context, p Profile) error
}

// MemoryStore keeps profiles in process memory for dev and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]Profile
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]Profile)}
}

// Get returns a copy of the stored profile.
func (s *MemoryStore) Get(ctx context.Context, studentID string) (*Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[studentID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// Create inserts a profile, failing with ErrExists on duplicates.
func (s *MemoryStore) Create(ctx context.Context, p Profile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.StudentID == "" {
		return errors.New("student id required")
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[p.StudentID]; ok {
		return ErrExists
	}
	s.profiles[p.StudentID] = p
	return nil
}
