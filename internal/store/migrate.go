package store

import (
	"context"
	"database/sql"
	"log"
	"time"
)

const schema = `
CREATE TABLE IF NOT EXISTS student_profiles (
	student_id    TEXT PRIMARY KEY,
	display_name  TEXT NOT NULL DEFAULT '',
	roll_number   TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS attendance_events (
	id            TEXT PRIMARY KEY,
	subject       TEXT NOT NULL,
	issuer        TEXT NOT NULL,
	student_id    TEXT NOT NULL,
	student_name  TEXT NOT NULL,
	roll_number   TEXT NOT NULL,
	latitude      DOUBLE PRECISION NOT NULL,
	longitude     DOUBLE PRECISION NOT NULL,
	inside_campus BOOLEAN NOT NULL DEFAULT TRUE,
	created_at    TIMESTAMPTZ NOT NULL,
	local_date    DATE NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS attendance_events_once_per_day
	ON attendance_events (subject, issuer, student_id, local_date);
CREATE INDEX IF NOT EXISTS attendance_events_pair
	ON attendance_events (subject, issuer);
`

// Migrate creates the tables the service needs. It is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}

// MigrateWhenReady pings db every interval until it answers, then runs Migrate.
// It returns ctx.Err() if ctx ends first.
func MigrateWhenReady(ctx context.Context, db *sql.DB, every time.Duration) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		err := db.PingContext(ctx)
		if err == nil {
			return Migrate(ctx, db)
		}
		log.Printf("db not ready, schema migration pending: %v", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
