package service

import (
	"alcyxob/checkin-scheduler/internal/domain"
	"alcyxob/checkin-scheduler/internal/notify"
	"alcyxob/checkin-scheduler/internal/repository"
	"alcyxob/checkin-scheduler/internal/schedule"
	"alcyxob/checkin-scheduler/internal/telemetry"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
)

// ScheduleRequest is the input of BookingService.Schedule. ClientID may be
// left empty when a client books for themselves.
type ScheduleRequest struct {
	ClientID    string
	Date        schedule.Date
	Time        schedule.TimeOfDay
	SessionType domain.SessionType
	ClientNotes string
}

// ListFilter narrows BookingService.List. Dates are inclusive.
type ListFilter struct {
	ClientID string
	From     *schedule.Date
	To       *schedule.Date
	Status   domain.CheckInStatus
}

// RescheduleResult pairs the retired record with its replacement.
type RescheduleResult struct {
	Original    domain.CheckIn `json:"original"`
	Replacement domain.CheckIn `json:"replacement"`
}

// BookingService owns the check-in lifecycle.
type BookingService interface {
	Schedule(ctx context.Context, actor domain.Actor, req ScheduleRequest) (*domain.CheckIn, error)
	// Cancel moves a scheduled check-in to cancelled. Cancelling a cancelled
	// check-in returns it unchanged.
	Cancel(ctx context.Context, actor domain.Actor, checkInID string) (*domain.CheckIn, error)
	// MarkCompleted is the session-completion hook. Completing a completed
	// check-in returns it unchanged.
	MarkCompleted(ctx context.Context, checkInID string) (*domain.CheckIn, error)
	// Reschedule retires the original as rescheduled and books the new slot in
	// one atomic unit. On failure the original is left scheduled.
	Reschedule(ctx context.Context, actor domain.Actor, checkInID string, date schedule.Date, tod schedule.TimeOfDay) (*RescheduleResult, error)
	Get(ctx context.Context, actor domain.Actor, checkInID string) (*domain.CheckIn, error)
	List(ctx context.Context, actor domain.Actor, filter ListFilter) ([]domain.CheckIn, error)
}

type bookingService struct {
	checkInRepo repository.CheckInRepository
	subRepo     repository.SubscriptionRepository
	grid        schedule.Grid
	clock       *schedule.OperatingClock
	notifier    notify.Dispatcher
}

// NewBookingService creates a new BookingService. A nil notifier logs confirmations only.
func NewBookingService(
	checkInRepo repository.CheckInRepository,
	subRepo repository.SubscriptionRepository,
	grid schedule.Grid,
	clock *schedule.OperatingClock,
	notifier notify.Dispatcher,
) BookingService {
	if notifier == nil {
		notifier = notify.LogDispatcher{}
	}
	return &bookingService{
		checkInRepo: checkInRepo,
		subRepo:     subRepo,
		grid:        grid,
		clock:       clock,
		notifier:    notifier,
	}
}

// === Scheduling ===

func (s *bookingService) Schedule(ctx context.Context, actor domain.Actor, req ScheduleRequest) (_ *domain.CheckIn, err error) {
	ctx, span := tracer.Start(ctx, "BookingService.Schedule")
	defer func() { finishSpan(span, err) }()
	defer func() { telemetry.BookingsTotal.WithLabelValues("schedule", bookingOutcome(err)).Inc() }()

	// 1. Resolve who the booking is for
	clientID, err := bookingClient(actor, req.ClientID)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("client_id", clientID))

	// 2. Validate input
	sessionType := req.SessionType
	if sessionType == "" {
		sessionType = domain.SessionRegular
	}
	if !sessionType.Valid() {
		return nil, fmt.Errorf("%w: unknown session type %q", ErrInvalidRequest, sessionType)
	}
	if err := checkNotesLength(req.ClientNotes); err != nil {
		return nil, err
	}
	at, err := s.validSlot(req.Date, req.Time)
	if err != nil {
		return nil, err
	}

	sub, err := loadSubscription(ctx, s.subRepo, clientID)
	if err != nil {
		return nil, err
	}

	// 3. Slot check, quota check and insert as one unit
	checkIn := &domain.CheckIn{
		ClientID:    clientID,
		ScheduledAt: at,
		Status:      domain.StatusScheduled,
		SessionType: sessionType,
		ClientNotes: req.ClientNotes,
	}
	err = s.checkInRepo.RunAtomic(ctx, clientID, func(ctx context.Context, tx repository.CheckInRepository) error {
		if err := s.ensureBookable(ctx, tx, sub, at, ""); err != nil {
			return err
		}
		_, err := tx.Create(ctx, checkIn)
		return err
	})
	if err != nil {
		return nil, mapRepoError(err)
	}

	slog.InfoContext(ctx, "Check-in scheduled",
		"checkin_id", checkIn.ID,
		"client_id", clientID,
		"scheduled_at", at,
		"booked_by", actor.ID,
	)

	// 4. Confirmation after commit; never affects the result
	s.confirm(ctx, *checkIn)

	booked := checkIn.In(s.clock.Location())
	return &booked, nil
}

// bookingClient returns the client a booking is made for. Clients book for
// themselves; the coach or an admin books on behalf of a named client.
func bookingClient(actor domain.Actor, requested string) (string, error) {
	switch {
	case actor.IsClient():
		if requested != "" && requested != actor.ID {
			return "", ErrUnauthorized
		}
		return actor.ID, nil
	case actor.IsStaff():
		if requested == "" {
			return "", fmt.Errorf("%w: client id is required", ErrInvalidRequest)
		}
		return requested, nil
	default:
		return "", ErrUnauthorized
	}
}

// validSlot builds the instant for date+tod and checks it is a future grid slot.
func (s *bookingService) validSlot(date schedule.Date, tod schedule.TimeOfDay) (time.Time, error) {
	if date.IsZero() {
		return time.Time{}, fmt.Errorf("%w: date is required", ErrInvalidRequest)
	}
	at := s.clock.At(date, tod)
	if err := s.grid.ValidateInstant(at, s.clock.Now()); err != nil {
		return time.Time{}, &InvalidSlotError{At: at, Reason: err}
	}
	return at, nil
}

// ensureBookable re-checks the slot and the quota against the unit's view of the store.
func (s *bookingService) ensureBookable(ctx context.Context, tx repository.CheckInRepository, sub *domain.ClientSubscription, at time.Time, excludeID string) error {
	taken, err := slotTaken(ctx, tx, at, excludeID)
	if err != nil {
		return fmt.Errorf("check slot: %w", err)
	}
	if taken {
		return ErrSlotUnavailable
	}

	used, cycle, err := cycleUsage(ctx, tx, sub.ClientID, sub.CycleAnchorDate, at, excludeID)
	if err != nil {
		return err
	}
	if limit := sub.PlanTier.CycleLimit(); used >= limit {
		return &QuotaExceededError{ClientID: sub.ClientID, Limit: limit, Used: used, Cycle: cycle}
	}
	return nil
}

func (s *bookingService) confirm(ctx context.Context, checkIn domain.CheckIn) {
	if err := s.notifier.SendConfirmation(ctx, checkIn); err != nil {
		telemetry.NotificationFailuresTotal.Inc()
		slog.WarnContext(ctx, "Confirmation not sent", "checkin_id", checkIn.ID, "error", err)
	}
}

// === Status transitions ===

func (s *bookingService) Cancel(ctx context.Context, actor domain.Actor, checkInID string) (_ *domain.CheckIn, err error) {
	ctx, span := tracer.Start(ctx, "BookingService.Cancel")
	span.SetAttributes(attribute.String("checkin_id", checkInID))
	defer func() { finishSpan(span, err) }()

	checkIn, err := loadCheckIn(ctx, s.checkInRepo, checkInID)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, checkIn) {
		return nil, ErrUnauthorized
	}

	cancelled, changed, err := s.transition(ctx, checkIn, domain.StatusCancelled)
	if err != nil {
		return nil, err
	}
	if changed {
		telemetry.CancellationsTotal.Inc()
		slog.InfoContext(ctx, "Check-in cancelled", "checkin_id", checkInID, "cancelled_by", actor.ID)
	}
	return s.present(actor, cancelled), nil
}

func (s *bookingService) MarkCompleted(ctx context.Context, checkInID string) (_ *domain.CheckIn, err error) {
	ctx, span := tracer.Start(ctx, "BookingService.MarkCompleted")
	span.SetAttributes(attribute.String("checkin_id", checkInID))
	defer func() { finishSpan(span, err) }()

	checkIn, err := loadCheckIn(ctx, s.checkInRepo, checkInID)
	if err != nil {
		return nil, err
	}

	completed, changed, err := s.transition(ctx, checkIn, domain.StatusCompleted)
	if err != nil {
		return nil, err
	}
	if changed {
		telemetry.CompletionsTotal.Inc()
		slog.InfoContext(ctx, "Check-in completed", "checkin_id", checkInID)
	}
	normalized := completed.In(s.clock.Location())
	return &normalized, nil
}

// transition moves checkIn from scheduled to target. A record already in
// target is returned as is with changed=false.
func (s *bookingService) transition(ctx context.Context, checkIn *domain.CheckIn, target domain.CheckInStatus) (_ *domain.CheckIn, changed bool, err error) {
	if checkIn.Status == target {
		return checkIn, false, nil
	}
	if !domain.CanTransition(checkIn.Status, target) {
		return nil, false, fmt.Errorf("%w: %s check-in cannot become %s", ErrInvalidTransition, checkIn.Status, target)
	}

	updated, err := s.checkInRepo.TransitionStatus(ctx, checkIn.ID, repository.StatusChange{
		From: domain.StatusScheduled,
		To:   target,
		At:   s.clock.Now(),
	})
	if err == nil {
		return updated, true, nil
	}
	if !errors.Is(err, repository.ErrStatusConflict) {
		return nil, false, mapRepoError(err)
	}

	// Lost a race: settle on whatever the winner wrote.
	current, err := loadCheckIn(ctx, s.checkInRepo, checkIn.ID)
	if err != nil {
		return nil, false, err
	}
	if current.Status == target {
		return current, false, nil
	}
	return nil, false, fmt.Errorf("%w: %s check-in cannot become %s", ErrInvalidTransition, current.Status, target)
}

// === Rescheduling ===

func (s *bookingService) Reschedule(ctx context.Context, actor domain.Actor, checkInID string, date schedule.Date, tod schedule.TimeOfDay) (_ *RescheduleResult, err error) {
	ctx, span := tracer.Start(ctx, "BookingService.Reschedule")
	span.SetAttributes(attribute.String("checkin_id", checkInID))
	defer func() { finishSpan(span, err) }()
	defer func() { telemetry.BookingsTotal.WithLabelValues("reschedule", bookingOutcome(err)).Inc() }()

	original, err := loadCheckIn(ctx, s.checkInRepo, checkInID)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, original) {
		return nil, ErrUnauthorized
	}
	if original.Status != domain.StatusScheduled {
		return nil, fmt.Errorf("%w: %s check-in cannot be rescheduled", ErrInvalidTransition, original.Status)
	}

	at, err := s.validSlot(date, tod)
	if err != nil {
		return nil, err
	}
	if at.Equal(original.ScheduledAt) {
		return nil, fmt.Errorf("%w: check-in is already booked for that slot", ErrInvalidRequest)
	}

	sub, err := loadSubscription(ctx, s.subRepo, original.ClientID)
	if err != nil {
		return nil, err
	}

	var result RescheduleResult
	err = s.checkInRepo.RunAtomic(ctx, original.ClientID, func(ctx context.Context, tx repository.CheckInRepository) error {
		current, err := loadCheckIn(ctx, tx, checkInID)
		if err != nil {
			return err
		}
		if current.Status != domain.StatusScheduled {
			return fmt.Errorf("%w: %s check-in cannot be rescheduled", ErrInvalidTransition, current.Status)
		}

		if err := s.ensureBookable(ctx, tx, sub, at, current.ID); err != nil {
			return err
		}

		// Release the original first so the new slot never collides with it.
		if _, err := tx.TransitionStatus(ctx, current.ID, repository.StatusChange{
			From: domain.StatusScheduled,
			To:   domain.StatusRescheduled,
			At:   s.clock.Now(),
		}); err != nil {
			return err
		}

		replacement := &domain.CheckIn{
			ClientID:        current.ClientID,
			ScheduledAt:     at,
			Status:          domain.StatusScheduled,
			SessionType:     current.SessionType,
			ClientNotes:     current.ClientNotes,
			RescheduledFrom: &current.ID,
		}
		newID, err := tx.Create(ctx, replacement)
		if err != nil {
			return err
		}

		retired, err := tx.Update(ctx, current.ID, repository.CheckInPatch{RescheduledTo: &newID})
		if err != nil {
			return err
		}

		result.Original = *retired
		result.Replacement = *replacement
		return nil
	})
	if err != nil {
		return nil, mapRepoError(err)
	}

	slog.InfoContext(ctx, "Check-in rescheduled",
		"checkin_id", checkInID,
		"replacement_id", result.Replacement.ID,
		"scheduled_at", at,
		"rescheduled_by", actor.ID,
	)
	s.confirm(ctx, result.Replacement)

	result.Original = *s.present(actor, &result.Original)
	result.Replacement = *s.present(actor, &result.Replacement)
	return &result, nil
}

// === Queries ===

func (s *bookingService) Get(ctx context.Context, actor domain.Actor, checkInID string) (*domain.CheckIn, error) {
	checkIn, err := loadCheckIn(ctx, s.checkInRepo, checkInID)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, checkIn) {
		return nil, ErrUnauthorized
	}
	return s.present(actor, checkIn), nil
}

func (s *bookingService) List(ctx context.Context, actor domain.Actor, filter ListFilter) (_ []domain.CheckIn, err error) {
	ctx, span := tracer.Start(ctx, "BookingService.List")
	defer func() { finishSpan(span, err) }()

	repoFilter := repository.CheckInFilter{ClientID: filter.ClientID}
	switch {
	case actor.IsClient():
		if filter.ClientID != "" && filter.ClientID != actor.ID {
			return nil, ErrUnauthorized
		}
		repoFilter.ClientID = actor.ID
	case !actor.IsStaff():
		return nil, ErrUnauthorized
	}

	loc := s.clock.Location()
	if filter.From != nil {
		from := filter.From.Midnight(loc)
		repoFilter.From = &from
	}
	if filter.To != nil {
		to := filter.To.AddDays(1).Midnight(loc)
		repoFilter.To = &to
	}
	if filter.Status != "" {
		if !filter.Status.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidRequest, filter.Status)
		}
		repoFilter.Statuses = []domain.CheckInStatus{filter.Status}
	}

	checkIns, err := s.checkInRepo.List(ctx, repoFilter)
	if err != nil {
		return nil, fmt.Errorf("list check-ins: %w", err)
	}
	for i := range checkIns {
		checkIns[i] = *s.present(actor, &checkIns[i])
	}
	return checkIns, nil
}

// === Helpers ===

// present normalizes timestamps and hides fields the actor may not read.
func (s *bookingService) present(actor domain.Actor, checkIn *domain.CheckIn) *domain.CheckIn {
	out := checkIn.In(s.clock.Location())
	if !actor.IsStaff() {
		out.Feedback = ""
	}
	return &out
}

func loadCheckIn(ctx context.Context, repo repository.CheckInRepository, checkInID string) (*domain.CheckIn, error) {
	if checkInID == "" {
		return nil, ErrCheckInNotFound
	}
	checkIn, err := repo.GetByID(ctx, checkInID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCheckInNotFound
		}
		return nil, fmt.Errorf("load check-in %s: %w", checkInID, err)
	}
	return checkIn, nil
}

// canManage: staff manage every check-in, clients only their own.
func canManage(actor domain.Actor, checkIn *domain.CheckIn) bool {
	if actor.IsStaff() {
		return true
	}
	return actor.IsClient() && checkIn.OwnedBy(actor.ID)
}

// mapRepoError turns repository conflicts that escaped an atomic unit into service kinds.
func mapRepoError(err error) error {
	switch {
	case errors.Is(err, repository.ErrSlotTaken):
		return ErrSlotUnavailable
	case errors.Is(err, repository.ErrNotFound):
		return ErrCheckInNotFound
	case errors.Is(err, repository.ErrStatusConflict):
		return fmt.Errorf("%w: %v", ErrInvalidTransition, err)
	}
	return err
}

func bookingOutcome(err error) string {
	switch {
	case err == nil:
		return telemetry.OutcomeBooked
	case errors.Is(err, ErrSlotUnavailable):
		return telemetry.OutcomeSlotUnavailable
	case errors.Is(err, ErrQuotaExceeded):
		return telemetry.OutcomeQuotaExceeded
	case errors.Is(err, ErrInvalidSlot):
		return telemetry.OutcomeInvalidSlot
	}
	return telemetry.OutcomeError
}

func checkNotesLength(notes string) error {
	if utf8.RuneCountInString(notes) > MaxNotesLength {
		return ErrNotesTooLong
	}
	return nil
}
