package attendance

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var eventColumns = []string{"id", "subject", "issuer", "student_id", "student_name", "roll_number",
	"latitude", "longitude", "inside_campus", "created_at"}

func TestRepositoryListEvents(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	created := time.Date(2026, 10, 18, 4, 30, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM attendance_events`)).
		WithArgs("Math", "teacher@x.com").
		WillReturnRows(sqlmock.NewRows(eventColumns).
			AddRow("0192a1", "Math", "teacher@x.com", "asha@x.com", "Asha", "21CS01", 28.72353, 77.22076, true, created))

	events, err := NewRepository(db).ListEvents(context.Background(), "Math", "teacher@x.com")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "asha@x.com", events[0].StudentID)
	assert.True(t, events[0].InsideCampus)
	assert.True(t, events[0].CreatedAt.Equal(created))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryListEventsEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM attendance_events`)).
		WillReturnRows(sqlmock.NewRows(eventColumns))

	events, err := NewRepository(db).ListEvents(context.Background(), "Math", "teacher@x.com")
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestRepositoryAppend(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	created := time.Date(2026, 10, 18, 0, 10, 0, 0, ist)
	evt := Event{StudentID: "asha@x.com", StudentName: "Asha", RollNumber: "21CS01",
		Latitude: 28.72353, Longitude: 77.22076, InsideCampus: true, CreatedAt: created}

	insert := regexp.QuoteMeta(`INSERT INTO attendance_events`)
	mock.ExpectExec(insert).
		WithArgs(sqlmock.AnyArg(), "Math", "teacher@x.com", "asha@x.com", "Asha", "21CS01",
			28.72353, 77.22076, true, created, "2026-10-18").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insert).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "attendance_events_once_per_day"})
	mock.ExpectExec(insert).
		WillReturnError(errors.New("conn refused"))

	repo := NewRepository(db)
	id, err := repo.Append(context.Background(), "Math", "teacher@x.com", evt)
	require.NoError(t, err)
	assert.Len(t, id, 36)

	_, err = repo.Append(context.Background(), "Math", "teacher@x.com", evt)
	assert.ErrorIs(t, err, ErrAlreadyMarked)

	_, err = repo.Append(context.Background(), "Math", "teacher@x.com", evt)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrAlreadyMarked)

	_, err = repo.Append(context.Background(), "Math", "teacher@x.com", Event{})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
