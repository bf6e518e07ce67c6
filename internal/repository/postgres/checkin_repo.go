package postgres

import (
	"alcyxob/checkin-scheduler/internal/domain"
	"alcyxob/checkin-scheduler/internal/repository"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
)

const uniqueViolation = "23505"

const checkInColumns = `id, client_id, scheduled_at, status, session_type, client_notes, coach_notes, feedback,
		rescheduled_from, rescheduled_to, created_at, updated_at, completed_at`

// querier is satisfied by both *sqlx.DB and *sqlx.Tx.
type querier interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

type postgresCheckInRepository struct {
	db *sqlx.DB
	q  querier
	tx *sqlx.Tx
}

func NewPostgresCheckInRepository(db *sqlx.DB) repository.CheckInRepository {
	return &postgresCheckInRepository{db: db, q: db}
}

func (r *postgresCheckInRepository) Create(ctx context.Context, checkIn *domain.CheckIn) (string, error) {
	if checkIn.ClientID == "" || checkIn.ScheduledAt.IsZero() {
		return "", errors.New("check-in requires client_id and scheduled_at")
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	status := checkIn.Status
	if status == "" {
		status = domain.StatusScheduled
	}

	query := `
		INSERT INTO check_ins (id, client_id, scheduled_at, status, session_type, client_notes, rescheduled_from, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
	`
	_, err := r.q.ExecContext(ctx, query,
		id, checkIn.ClientID, checkIn.ScheduledAt.UTC(), status, checkIn.SessionType, checkIn.ClientNotes, checkIn.RescheduledFrom, now)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return "", repository.ErrSlotTaken
		}
		return "", err
	}

	checkIn.ID = id
	checkIn.Status = status
	checkIn.CreatedAt = now
	checkIn.UpdatedAt = now
	return id, nil
}

func (r *postgresCheckInRepository) GetByID(ctx context.Context, id string) (*domain.CheckIn, error) {
	var checkIn domain.CheckIn
	query := `SELECT ` + checkInColumns + ` FROM check_ins WHERE id = $1`
	if err := r.q.GetContext(ctx, &checkIn, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &checkIn, nil
}

func (r *postgresCheckInRepository) List(ctx context.Context, filter repository.CheckInFilter) ([]domain.CheckIn, error) {
	query, args := listQuery(filter)

	checkIns := make([]domain.CheckIn, 0)
	if err := r.q.SelectContext(ctx, &checkIns, query, args...); err != nil {
		return nil, err
	}
	return checkIns, nil
}

func listQuery(f repository.CheckInFilter) (string, []interface{}) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.ClientID != "" {
		where = append(where, "client_id = "+arg(f.ClientID))
	}
	if f.From != nil {
		where = append(where, "scheduled_at >= "+arg(f.From.UTC()))
	}
	if f.To != nil {
		where = append(where, "scheduled_at < "+arg(f.To.UTC()))
	}
	if len(f.Statuses) > 0 {
		placeholders := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			placeholders[i] = arg(string(s))
		}
		where = append(where, "status IN ("+strings.Join(placeholders, ", ")+")")
	}

	query := `SELECT ` + checkInColumns + ` FROM check_ins`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY scheduled_at, created_at`
	return query, args
}

func (r *postgresCheckInRepository) Update(ctx context.Context, id string, patch repository.CheckInPatch) (*domain.CheckIn, error) {
	var (
		set  []string
		args []interface{}
	)
	add := func(column string, v interface{}) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.ClientNotes != nil {
		add("client_notes", *patch.ClientNotes)
	}
	if patch.CoachNotes != nil {
		add("coach_notes", *patch.CoachNotes)
	}
	if patch.Feedback != nil {
		add("feedback", *patch.Feedback)
	}
	if patch.RescheduledTo != nil {
		add("rescheduled_to", *patch.RescheduledTo)
	}
	add("updated_at", time.Now().UTC())
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE check_ins SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(set, ", "), len(args), checkInColumns)

	var checkIn domain.CheckIn
	if err := r.q.GetContext(ctx, &checkIn, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &checkIn, nil
}

func (r *postgresCheckInRepository) TransitionStatus(ctx context.Context, id string, change repository.StatusChange) (*domain.CheckIn, error) {
	at := change.At.UTC()
	var completedAt *time.Time
	if change.To == domain.StatusCompleted {
		completedAt = &at
	}

	query := `
		UPDATE check_ins
		SET status = $1, updated_at = $2, completed_at = COALESCE($3, completed_at)
		WHERE id = $4 AND status = $5
		RETURNING ` + checkInColumns

	var checkIn domain.CheckIn
	err := r.q.GetContext(ctx, &checkIn, query, change.To, at, completedAt, id, change.From)
	if err == nil {
		return &checkIn, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	var exists bool
	if err := r.q.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM check_ins WHERE id = $1)`, id); err != nil {
		return nil, err
	}
	if !exists {
		return nil, repository.ErrNotFound
	}
	return nil, repository.ErrStatusConflict
}

func (r *postgresCheckInRepository) Delete(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM check_ins WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *postgresCheckInRepository) DeleteMany(ctx context.Context, ids []string) repository.BulkDeleteResult {
	result := repository.BulkDeleteResult{Requested: len(ids), Deleted: []string{}, Failed: []repository.DeleteFailure{}}
	for _, id := range ids {
		if err := r.Delete(ctx, id); err != nil {
			result.Failed = append(result.Failed, repository.DeleteFailure{ID: id, Reason: err.Error()})
			continue
		}
		result.Deleted = append(result.Deleted, id)
	}
	return result
}

// RunAtomic runs fn in a transaction holding a per-client advisory lock, so
// units for the same client run one after another. Units racing for the same
// slot are settled by the partial unique index on scheduled_at.
func (r *postgresCheckInRepository) RunAtomic(ctx context.Context, clientID string, fn func(ctx context.Context, tx repository.CheckInRepository) error) (err error) {
	if r.tx != nil {
		return fn(ctx, r)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "checkins:"+clientID); err != nil {
		return err
	}

	if err = fn(ctx, &postgresCheckInRepository{db: r.db, q: tx, tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}
