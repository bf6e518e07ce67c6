package service

import (
	"alcyxob/checkin-scheduler/internal/domain"
	"alcyxob/checkin-scheduler/internal/repository"
	"alcyxob/checkin-scheduler/internal/schedule"
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// SlotService answers which time-of-day slots are still open on a date.
type SlotService interface {
	// ListOpenSlots returns the grid slots of date that no scheduled check-in
	// holds, in grid order. It always reads the store.
	ListOpenSlots(ctx context.Context, date schedule.Date) ([]schedule.TimeOfDay, error)
}

type slotService struct {
	checkInRepo repository.CheckInRepository
	grid        schedule.Grid
	clock       *schedule.OperatingClock
}

// NewSlotService creates a new SlotService.
func NewSlotService(checkInRepo repository.CheckInRepository, grid schedule.Grid, clock *schedule.OperatingClock) SlotService {
	return &slotService{checkInRepo: checkInRepo, grid: grid, clock: clock}
}

func (s *slotService) ListOpenSlots(ctx context.Context, date schedule.Date) (_ []schedule.TimeOfDay, err error) {
	ctx, span := tracer.Start(ctx, "SlotService.ListOpenSlots")
	span.SetAttributes(attribute.String("date", date.String()))
	defer func() { finishSpan(span, err) }()

	if date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", ErrInvalidRequest)
	}

	loc := s.clock.Location()
	from := date.Midnight(loc)
	to := date.AddDays(1).Midnight(loc)

	booked, err := s.checkInRepo.List(ctx, repository.CheckInFilter{
		From:     &from,
		To:       &to,
		Statuses: []domain.CheckInStatus{domain.StatusScheduled},
	})
	if err != nil {
		return nil, fmt.Errorf("list booked slots: %w", err)
	}

	taken := make(map[schedule.TimeOfDay]struct{}, len(booked))
	for _, c := range booked {
		tod, _ := schedule.TimeOfDayOf(c.ScheduledAt.In(loc))
		taken[tod] = struct{}{}
	}

	open := make([]schedule.TimeOfDay, 0, s.grid.Len())
	for _, slot := range s.grid.Slots() {
		if _, ok := taken[slot]; !ok {
			open = append(open, slot)
		}
	}
	return open, nil
}

// slotTaken reports whether a scheduled check-in other than excludeID holds at.
// Called inside an atomic unit with the unit's repository.
func slotTaken(ctx context.Context, repo repository.CheckInRepository, at time.Time, excludeID string) (bool, error) {
	until := at.Add(time.Minute)
	existing, err := repo.List(ctx, repository.CheckInFilter{
		From:     &at,
		To:       &until,
		Statuses: []domain.CheckInStatus{domain.StatusScheduled},
	})
	if err != nil {
		return false, err
	}
	for _, c := range existing {
		if c.ID != excludeID && c.ScheduledAt.Equal(at) {
			return true, nil
		}
	}
	return false, nil
}
