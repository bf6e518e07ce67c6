package service

import (
	"alcyxob/checkin-scheduler/internal/domain"
	"alcyxob/checkin-scheduler/internal/repository"
	"alcyxob/checkin-scheduler/internal/schedule"
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// QuotaSummary is the booking UI's view of a client's current cycle.
type QuotaSummary struct {
	ClientID  string          `json:"clientId"`
	PlanTier  domain.PlanTier `json:"planTier"`
	Limit     int             `json:"limit"`
	Used      int             `json:"used"`
	Remaining int             `json:"remaining"`
	Cycle     schedule.Cycle  `json:"cycle"`
	ResetsOn  schedule.Date   `json:"resetsOn"`
}

// QuotaService computes how many more check-ins a client may book.
type QuotaService interface {
	// Remaining returns max(0, limit - used) for the cycle containing now.
	Remaining(ctx context.Context, clientID string, tier domain.PlanTier, anchor *time.Time, now time.Time) (int, error)
	// HasQuota is a display helper. Booking re-checks quota inside its own atomic unit.
	HasQuota(ctx context.Context, clientID string, tier domain.PlanTier, anchor *time.Time, now time.Time) (bool, error)
	// Summary loads the client's subscription and reports the current cycle.
	Summary(ctx context.Context, clientID string) (*QuotaSummary, error)
}

type quotaService struct {
	checkInRepo repository.CheckInRepository
	subRepo     repository.SubscriptionRepository
	clock       *schedule.OperatingClock
}

// NewQuotaService creates a new QuotaService.
func NewQuotaService(checkInRepo repository.CheckInRepository, subRepo repository.SubscriptionRepository, clock *schedule.OperatingClock) QuotaService {
	return &quotaService{checkInRepo: checkInRepo, subRepo: subRepo, clock: clock}
}

func (s *quotaService) Remaining(ctx context.Context, clientID string, tier domain.PlanTier, anchor *time.Time, now time.Time) (_ int, err error) {
	ctx, span := tracer.Start(ctx, "QuotaService.Remaining")
	span.SetAttributes(attribute.String("client_id", clientID), attribute.String("plan_tier", string(tier)))
	defer func() { finishSpan(span, err) }()

	if clientID == "" {
		return 0, fmt.Errorf("%w: client id is required", ErrInvalidRequest)
	}
	if !tier.Valid() {
		return 0, fmt.Errorf("%w: unknown plan tier %q", ErrNoSubscription, tier)
	}

	used, _, err := cycleUsage(ctx, s.checkInRepo, clientID, anchor, s.clock.Normalize(now), "")
	if err != nil {
		return 0, err
	}
	return remainingOf(tier.CycleLimit(), used), nil
}

func (s *quotaService) HasQuota(ctx context.Context, clientID string, tier domain.PlanTier, anchor *time.Time, now time.Time) (bool, error) {
	remaining, err := s.Remaining(ctx, clientID, tier, anchor, now)
	if err != nil {
		return false, err
	}
	return remaining > 0, nil
}

func (s *quotaService) Summary(ctx context.Context, clientID string) (_ *QuotaSummary, err error) {
	ctx, span := tracer.Start(ctx, "QuotaService.Summary")
	span.SetAttributes(attribute.String("client_id", clientID))
	defer func() { finishSpan(span, err) }()

	sub, err := loadSubscription(ctx, s.subRepo, clientID)
	if err != nil {
		return nil, err
	}

	used, cycle, err := cycleUsage(ctx, s.checkInRepo, clientID, sub.CycleAnchorDate, s.clock.Now(), "")
	if err != nil {
		return nil, err
	}

	limit := sub.PlanTier.CycleLimit()
	return &QuotaSummary{
		ClientID:  clientID,
		PlanTier:  sub.PlanTier,
		Limit:     limit,
		Used:      used,
		Remaining: remainingOf(limit, used),
		Cycle:     cycle,
		ResetsOn:  cycle.ResetsOn(),
	}, nil
}

// loadSubscription maps a missing or unusable subscription to ErrNoSubscription.
func loadSubscription(ctx context.Context, subRepo repository.SubscriptionRepository, clientID string) (*domain.ClientSubscription, error) {
	if clientID == "" {
		return nil, fmt.Errorf("%w: client id is required", ErrInvalidRequest)
	}
	sub, err := subRepo.GetByClientID(ctx, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoSubscription
		}
		return nil, fmt.Errorf("load subscription: %w", err)
	}
	if !sub.PlanTier.Valid() {
		return nil, fmt.Errorf("%w: unknown plan tier %q", ErrNoSubscription, sub.PlanTier)
	}
	return sub, nil
}

// cycleUsage counts the client's quota-consuming check-ins in the cycle that
// contains at. excludeID is left out of the count (the record being rescheduled).
func cycleUsage(ctx context.Context, repo repository.CheckInRepository, clientID string, anchor *time.Time, at time.Time, excludeID string) (int, schedule.Cycle, error) {
	cycle := schedule.CurrentCycle(anchor, at)
	from, to := cycle.Window(at.Location())

	counted, err := repo.List(ctx, repository.CheckInFilter{
		ClientID: clientID,
		From:     &from,
		To:       &to,
		Statuses: []domain.CheckInStatus{domain.StatusScheduled, domain.StatusCompleted},
	})
	if err != nil {
		return 0, cycle, fmt.Errorf("count cycle check-ins: %w", err)
	}

	used := 0
	for _, c := range counted {
		if c.ID != excludeID && c.Status.CountsTowardQuota() {
			used++
		}
	}
	return used, cycle, nil
}

func remainingOf(limit, used int) int {
	if used >= limit {
		return 0
	}
	return limit - used
}
