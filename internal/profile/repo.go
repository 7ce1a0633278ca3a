package profile

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// Repository persists student profiles in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Get returns the profile or nil when none exists.
func (r *Repository) Get(ctx context.Context, studentID string) (*Profile, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT student_id, display_name, roll_number, password_hash, created_at
		FROM student_profiles WHERE student_id = $1
	`, studentID)
	var p Profile
	if err := row.Scan(&p.StudentID, &p.DisplayName, &p.RollNumber, &p.PasswordHash, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// Create inserts a new profile.
func (r *Repository) Create(ctx context.Context, p Profile) error {
	if p.StudentID == "" {
		return errors.New("student id required")
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO student_profiles (student_id, display_name, roll_number, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, p.StudentID, p.DisplayName, p.RollNumber, p.PasswordHash, p.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrExists
	}
	return err
}
