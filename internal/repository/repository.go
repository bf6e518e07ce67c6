package repository

import (
	"alcyxob/checkin-scheduler/internal/domain"
	"context"
	"time"
)

// Error constants for repository layer
var (
	ErrNotFound       = RepositoryError("not found")
	ErrSlotTaken      = RepositoryError("slot already holds a scheduled check-in")
	ErrStatusConflict = RepositoryError("check-in status changed concurrently")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// CheckInFilter narrows List results. Zero-valued fields are ignored.
// The date range is half-open: From <= scheduledAt < To.
type CheckInFilter struct {
	ClientID string
	From     *time.Time
	To       *time.Time
	Statuses []domain.CheckInStatus
}

// CheckInPatch holds the fields Update may change. Nil pointers are left untouched.
// Status moves only through TransitionStatus.
type CheckInPatch struct {
	ClientNotes   *string
	CoachNotes    *string
	Feedback      *string
	RescheduledTo *string
}

// StatusChange is a compare-and-swap on a check-in's status.
// CompletedAt is stamped with At when To is completed.
type StatusChange struct {
	From domain.CheckInStatus
	To   domain.CheckInStatus
	At   time.Time
}

// DeleteFailure records why a single id could not be deleted.
type DeleteFailure struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// BulkDeleteResult is the per-item tally of a bulk delete.
type BulkDeleteResult struct {
	Requested int             `json:"requested"`
	Deleted   []string        `json:"deleted"`
	Failed    []DeleteFailure `json:"failed"`
}

// CheckInRepository defines the interface for interacting with check-in data.
type CheckInRepository interface {
	// Create inserts a new check-in and returns its generated ID. It returns
	// ErrSlotTaken when another scheduled check-in already holds ScheduledAt.
	Create(ctx context.Context, checkIn *domain.CheckIn) (string, error)
	GetByID(ctx context.Context, id string) (*domain.CheckIn, error)
	// List returns matching check-ins ordered by scheduledAt ascending.
	List(ctx context.Context, filter CheckInFilter) ([]domain.CheckIn, error)
	Update(ctx context.Context, id string, patch CheckInPatch) (*domain.CheckIn, error)
	// TransitionStatus applies change only if the stored status still equals
	// change.From. ErrStatusConflict otherwise, ErrNotFound for unknown ids.
	TransitionStatus(ctx context.Context, id string, change StatusChange) (*domain.CheckIn, error)
	Delete(ctx context.Context, id string) error
	// DeleteMany hard-deletes each id independently and reports a tally.
	DeleteMany(ctx context.Context, ids []string) BulkDeleteResult
	// RunAtomic runs fn as one atomic unit scoped to a client. Reads and writes
	// made through the repository handed to fn commit together or not at all,
	// and concurrent units for the same client are serialized.
	RunAtomic(ctx context.Context, clientID string, fn func(ctx context.Context, tx CheckInRepository) error) error
}

// SubscriptionRepository is the read-only view of the external billing collaborator.
type SubscriptionRepository interface {
	GetByClientID(ctx context.Context, clientID string) (*domain.ClientSubscription, error)
}
