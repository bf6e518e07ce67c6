// Package memory is an in-process implementation of the repository interfaces.
// It backs the "memory" database driver for local runs and the service tests.
package memory

import (
	"alcyxob/checkin-scheduler/internal/domain"
	"alcyxob/checkin-scheduler/internal/repository"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store holds check-ins and subscriptions behind a single mutex. The single
// lock stands in for the shared coach calendar: atomic units never interleave.
type Store struct {
	mu            sync.Mutex
	checkIns      map[string]domain.CheckIn
	subscriptions map[string]domain.ClientSubscription
	now           func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		checkIns:      make(map[string]domain.CheckIn),
		subscriptions: make(map[string]domain.ClientSubscription),
		now:           time.Now,
	}
}

// PutSubscription seeds or replaces a client's subscription.
func (s *Store) PutSubscription(sub domain.ClientSubscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptions[sub.ClientID] = sub
}

// CheckIns returns the check-in repository view of the store.
func (s *Store) CheckIns() repository.CheckInRepository {
	return &checkInRepo{store: s}
}

// Subscriptions returns the subscription repository view of the store.
func (s *Store) Subscriptions() repository.SubscriptionRepository {
	return &subscriptionRepo{store: s}
}

type subscriptionRepo struct {
	store *Store
}

func (r *subscriptionRepo) GetByClientID(_ context.Context, clientID string) (*domain.ClientSubscription, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	sub, ok := r.store.subscriptions[clientID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &sub, nil
}

// checkInRepo implements repository.CheckInRepository. When held is true the
// store mutex is already owned by an enclosing RunAtomic call.
type checkInRepo struct {
	store *Store
	held  bool
}

func (r *checkInRepo) lock() func() {
	if r.held {
		return func() {}
	}
	r.store.mu.Lock()
	return r.store.mu.Unlock
}

func (r *checkInRepo) Create(_ context.Context, checkIn *domain.CheckIn) (string, error) {
	defer r.lock()()

	if checkIn.Status == "" {
		checkIn.Status = domain.StatusScheduled
	}
	if checkIn.Status == domain.StatusScheduled {
		for _, existing := range r.store.checkIns {
			if existing.Status == domain.StatusScheduled && existing.ScheduledAt.Equal(checkIn.ScheduledAt) {
				return "", repository.ErrSlotTaken
			}
		}
	}

	checkIn.ID = uuid.NewString()
	now := r.store.now().UTC()
	checkIn.CreatedAt = now
	checkIn.UpdatedAt = now
	r.store.checkIns[checkIn.ID] = *checkIn
	return checkIn.ID, nil
}

func (r *checkInRepo) GetByID(_ context.Context, id string) (*domain.CheckIn, error) {
	defer r.lock()()
	c, ok := r.store.checkIns[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r *checkInRepo) List(_ context.Context, filter repository.CheckInFilter) ([]domain.CheckIn, error) {
	defer r.lock()()

	out := make([]domain.CheckIn, 0)
	for _, c := range r.store.checkIns {
		if matches(c, filter) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ScheduledAt.Equal(out[j].ScheduledAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ScheduledAt.Before(out[j].ScheduledAt)
	})
	return out, nil
}

func matches(c domain.CheckIn, f repository.CheckInFilter) bool {
	if f.ClientID != "" && c.ClientID != f.ClientID {
		return false
	}
	if f.From != nil && c.ScheduledAt.Before(*f.From) {
		return false
	}
	if f.To != nil && !c.ScheduledAt.Before(*f.To) {
		return false
	}
	if len(f.Statuses) > 0 {
		for _, s := range f.Statuses {
			if c.Status == s {
				return true
			}
		}
		return false
	}
	return true
}

func (r *checkInRepo) Update(_ context.Context, id string, patch repository.CheckInPatch) (*domain.CheckIn, error) {
	defer r.lock()()

	c, ok := r.store.checkIns[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if patch.ClientNotes != nil {
		c.ClientNotes = *patch.ClientNotes
	}
	if patch.CoachNotes != nil {
		c.CoachNotes = *patch.CoachNotes
	}
	if patch.Feedback != nil {
		c.Feedback = *patch.Feedback
	}
	if patch.RescheduledTo != nil {
		to := *patch.RescheduledTo
		c.RescheduledTo = &to
	}
	c.UpdatedAt = r.store.now().UTC()
	r.store.checkIns[id] = c
	return &c, nil
}

func (r *checkInRepo) TransitionStatus(_ context.Context, id string, change repository.StatusChange) (*domain.CheckIn, error) {
	defer r.lock()()

	c, ok := r.store.checkIns[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if c.Status != change.From {
		return nil, repository.ErrStatusConflict
	}
	c.Status = change.To
	c.UpdatedAt = change.At.UTC()
	if change.To == domain.StatusCompleted {
		at := change.At.UTC()
		c.CompletedAt = &at
	}
	r.store.checkIns[id] = c
	return &c, nil
}

func (r *checkInRepo) Delete(_ context.Context, id string) error {
	defer r.lock()()
	if _, ok := r.store.checkIns[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.store.checkIns, id)
	return nil
}

func (r *checkInRepo) DeleteMany(ctx context.Context, ids []string) repository.BulkDeleteResult {
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

// RunAtomic holds the store lock for the whole unit and restores the previous
// state if fn fails.
func (r *checkInRepo) RunAtomic(ctx context.Context, _ string, fn func(ctx context.Context, tx repository.CheckInRepository) error) error {
	if r.held {
		return fn(ctx, r)
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	snapshot := make(map[string]domain.CheckIn, len(r.store.checkIns))
	for id, c := range r.store.checkIns {
		snapshot[id] = c
	}

	if err := fn(ctx, &checkInRepo{store: r.store, held: true}); err != nil {
		r.store.checkIns = snapshot
		return err
	}
	return nil
}
