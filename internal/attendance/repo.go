package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Repository persists attendance events in Postgres.
// A unique index on (subject, issuer, student_id, local_date) backs the once-per-day rule.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// ListEvents returns all events recorded for the subject/issuer pair.
func (r *Repository) ListEvents(ctx context.Context, subject, issuer string) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, subject, issuer, student_id, student_name, roll_number, latitude, longitude, inside_campus, created_at
		FROM attendance_events
		WHERE subject = $1 AND issuer = $2
	`, subject, issuer)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []Event{}
	for rows.Next() {
		var evt Event
		if err := rows.Scan(&evt.ID, &evt.Subject, &evt.Issuer, &evt.StudentID, &evt.StudentName, &evt.RollNumber,
			&evt.Latitude, &evt.Longitude, &evt.InsideCampus, &evt.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, evt)
	}
	return res, rows.Err()
}

// Append inserts evt. The local_date column takes the calendar date of evt.CreatedAt as given,
// so callers pass CreatedAt in the campus time zone.
func (r *Repository) Append(ctx context.Context, subject, issuer string, evt Event) (string, error) {
	if evt.CreatedAt.IsZero() {
		return "", errors.New("event created_at required")
	}
	id, err := NewEventID()
	if err != nil {
		return "", err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO attendance_events
			(id, subject, issuer, student_id, student_name, roll_number, latitude, longitude, inside_campus, created_at, local_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, id, subject, issuer, evt.StudentID, evt.StudentName, evt.RollNumber,
		evt.Latitude, evt.Longitude, evt.InsideCampus, evt.CreatedAt, evt.CreatedAt.Format(DateLayout))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return "", fmt.Errorf("%w: %s", ErrAlreadyMarked, pgErr.ConstraintName)
		}
		return "", err
	}
	return id, nil
}
