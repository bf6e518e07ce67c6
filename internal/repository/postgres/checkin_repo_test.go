package postgres_test

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"alcyxob/checkin-scheduler/internal/domain"
	"alcyxob/checkin-scheduler/internal/repository"
	"alcyxob/checkin-scheduler/internal/repository/postgres"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

var slotAt = time.Date(2026, time.March, 11, 14, 0, 0, 0, time.UTC)

var columns = []string{
	"id", "client_id", "scheduled_at", "status", "session_type", "client_notes", "coach_notes", "feedback",
	"rescheduled_from", "rescheduled_to", "created_at", "updated_at", "completed_at",
}

func checkInRow(id string, status domain.CheckInStatus) []driver.Value {
	created := slotAt.Add(-48 * time.Hour)
	return []driver.Value{id, "client-1", slotAt, string(status), "video", "notes", "", "", nil, nil, created, created, nil}
}

func newRepo(t *testing.T) (repository.CheckInRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return postgres.NewPostgresCheckInRepository(sqlx.NewDb(db, "sqlmock")), mock
}

func TestPostgresCheckInRepository_Create(t *testing.T) {
	r, mock := newRepo(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO check_ins`)).
		WithArgs(sqlmock.AnyArg(), "client-1", slotAt, "scheduled", "video", "first session", nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	checkIn := &domain.CheckIn{
		ClientID:    "client-1",
		ScheduledAt: slotAt,
		SessionType: domain.SessionVideo,
		ClientNotes: "first session",
	}
	id, err := r.Create(context.Background(), checkIn)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.Equal(t, id, checkIn.ID)
	require.Equal(t, domain.StatusScheduled, checkIn.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCheckInRepository_Create_SlotTaken(t *testing.T) {
	r, mock := newRepo(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO check_ins`)).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "uniq_scheduled_slot"})

	_, err := r.Create(context.Background(), &domain.CheckIn{ClientID: "client-2", ScheduledAt: slotAt})
	require.ErrorIs(t, err, repository.ErrSlotTaken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCheckInRepository_GetByID(t *testing.T) {
	r, mock := newRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM check_ins WHERE id = $1`)).
		WithArgs("abc").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(checkInRow("abc", domain.StatusScheduled)...))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM check_ins WHERE id = $1`)).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(columns))

	checkIn, err := r.GetByID(context.Background(), "abc")
	require.NoError(t, err)
	require.Equal(t, domain.StatusScheduled, checkIn.Status)
	require.Equal(t, domain.SessionVideo, checkIn.SessionType)
	require.Nil(t, checkIn.RescheduledFrom)
	require.Nil(t, checkIn.CompletedAt)

	_, err = r.GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, repository.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCheckInRepository_List(t *testing.T) {
	r, mock := newRepo(t)
	from := slotAt.Add(-24 * time.Hour)
	to := slotAt.Add(24 * time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE client_id = $1 AND scheduled_at >= $2 AND scheduled_at < $3 AND status IN ($4, $5) ORDER BY scheduled_at, created_at`)).
		WithArgs("client-1", from, to, "scheduled", "completed").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(checkInRow("a", domain.StatusScheduled)...).
			AddRow(checkInRow("b", domain.StatusCompleted)...))

	checkIns, err := r.List(context.Background(), repository.CheckInFilter{
		ClientID: "client-1",
		From:     &from,
		To:       &to,
		Statuses: []domain.CheckInStatus{domain.StatusScheduled, domain.StatusCompleted},
	})
	require.NoError(t, err)
	require.Len(t, checkIns, 2)
	require.Equal(t, domain.StatusCompleted, checkIns[1].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCheckInRepository_Update(t *testing.T) {
	r, mock := newRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE check_ins SET coach_notes = $1, feedback = $2, updated_at = $3 WHERE id = $4 RETURNING`)).
		WithArgs("Add mobility work", "Solid week", sqlmock.AnyArg(), "abc").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(checkInRow("abc", domain.StatusCompleted)...))

	coachNotes, feedback := "Add mobility work", "Solid week"
	_, err := r.Update(context.Background(), "abc", repository.CheckInPatch{CoachNotes: &coachNotes, Feedback: &feedback})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCheckInRepository_TransitionStatus(t *testing.T) {
	change := repository.StatusChange{From: domain.StatusScheduled, To: domain.StatusCompleted, At: slotAt}

	t.Run("applies", func(t *testing.T) {
		r, mock := newRepo(t)
		row := checkInRow("abc", domain.StatusCompleted)
		row[12] = slotAt
		mock.ExpectQuery(regexp.QuoteMeta(`UPDATE check_ins`)).
			WithArgs("completed", slotAt, slotAt, "abc", "scheduled").
			WillReturnRows(sqlmock.NewRows(columns).AddRow(row...))

		updated, err := r.TransitionStatus(context.Background(), "abc", change)
		require.NoError(t, err)
		require.Equal(t, domain.StatusCompleted, updated.Status)
		require.NotNil(t, updated.CompletedAt)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("conflict", func(t *testing.T) {
		r, mock := newRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(`UPDATE check_ins`)).WillReturnRows(sqlmock.NewRows(columns))
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS`)).WithArgs("abc").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		_, err := r.TransitionStatus(context.Background(), "abc", change)
		require.ErrorIs(t, err, repository.ErrStatusConflict)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown", func(t *testing.T) {
		r, mock := newRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(`UPDATE check_ins`)).WillReturnRows(sqlmock.NewRows(columns))
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS`)).WithArgs("nope").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		_, err := r.TransitionStatus(context.Background(), "nope", change)
		require.ErrorIs(t, err, repository.ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresCheckInRepository_DeleteMany(t *testing.T) {
	r, mock := newRepo(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM check_ins WHERE id = $1`)).WithArgs("a").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM check_ins WHERE id = $1`)).WithArgs("b").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM check_ins WHERE id = $1`)).WithArgs("c").WillReturnError(errors.New("connection reset"))

	result := r.DeleteMany(context.Background(), []string{"a", "b", "c"})
	require.Equal(t, 3, result.Requested)
	require.Equal(t, []string{"a"}, result.Deleted)
	require.Len(t, result.Failed, 2)
	require.Equal(t, repository.ErrNotFound.Error(), result.Failed[0].Reason)
	require.Equal(t, "connection reset", result.Failed[1].Reason)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCheckInRepository_RunAtomic(t *testing.T) {
	t.Run("commits under the client lock", func(t *testing.T) {
		r, mock := newRepo(t)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`SELECT pg_advisory_xact_lock(hashtext($1))`)).
			WithArgs("checkins:client-1").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO check_ins`)).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := r.RunAtomic(context.Background(), "client-1", func(ctx context.Context, tx repository.CheckInRepository) error {
			_, err := tx.Create(ctx, &domain.CheckIn{ClientID: "client-1", ScheduledAt: slotAt})
			return err
		})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		r, mock := newRepo(t)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`pg_advisory_xact_lock`)).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO check_ins`)).
			WillReturnError(&pgconn.PgError{Code: "23505"})
		mock.ExpectRollback()

		err := r.RunAtomic(context.Background(), "client-1", func(ctx context.Context, tx repository.CheckInRepository) error {
			_, err := tx.Create(ctx, &domain.CheckIn{ClientID: "client-1", ScheduledAt: slotAt})
			return err
		})
		require.ErrorIs(t, err, repository.ErrSlotTaken)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresSubscriptionRepository_GetByClientID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	r := postgres.NewPostgresSubscriptionRepository(sqlx.NewDb(db, "sqlmock"))

	anchor := time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM subscriptions WHERE client_id = $1`)).
		WithArgs("client-1").
		WillReturnRows(sqlmock.NewRows([]string{"client_id", "plan_tier", "cycle_anchor_date"}).AddRow("client-1", "elite", anchor))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM subscriptions WHERE client_id = $1`)).
		WithArgs("nobody").
		WillReturnRows(sqlmock.NewRows([]string{"client_id", "plan_tier", "cycle_anchor_date"}))

	sub, err := r.GetByClientID(context.Background(), "client-1")
	require.NoError(t, err)
	require.Equal(t, domain.PlanElite, sub.PlanTier)
	require.Equal(t, 31, sub.CycleAnchorDate.Day())

	_, err = r.GetByClientID(context.Background(), "nobody")
	require.ErrorIs(t, err, repository.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
