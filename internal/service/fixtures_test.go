package service

import (
	"alcyxob/checkin-scheduler/internal/domain"
	"alcyxob/checkin-scheduler/internal/repository/memory"
	"alcyxob/checkin-scheduler/internal/schedule"
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// The coach works at UTC-05:00. "Now" is Tuesday 2026-03-10 09:15 local.
var (
	operatingZone = time.FixedZone("UTC-05:00", -5*3600)
	fixedNow      = time.Date(2026, time.March, 10, 9, 15, 0, 0, operatingZone)
	signupAnchor  = time.Date(2025, time.November, 5, 0, 0, 0, 0, time.UTC) // cycle Mar 5 .. Apr 4
)

var (
	coach = domain.Actor{ID: "coach-1", Role: domain.RoleCoach}
	admin = domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}
)

func clientActor(id string) domain.Actor {
	return domain.Actor{ID: id, Role: domain.RoleClient}
}

func date(y int, m time.Month, d int) schedule.Date {
	return schedule.Date{Year: y, Month: m, Day: d}
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []domain.CheckIn
	err  error
}

func (n *recordingNotifier) SendConfirmation(_ context.Context, c domain.CheckIn) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, c)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type fixture struct {
	store    *memory.Store
	clock    *schedule.OperatingClock
	notifier *recordingNotifier
	slots    SlotService
	quota    QuotaService
	booking  BookingService
	notes    NotesService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	clock := schedule.NewOperatingClock(operatingZone).WithNow(func() time.Time { return fixedNow })
	notifier := &recordingNotifier{}
	grid := schedule.DefaultGrid()

	return &fixture{
		store:    store,
		clock:    clock,
		notifier: notifier,
		slots:    NewSlotService(store.CheckIns(), grid, clock),
		quota:    NewQuotaService(store.CheckIns(), store.Subscriptions(), clock),
		booking:  NewBookingService(store.CheckIns(), store.Subscriptions(), grid, clock, notifier),
		notes:    NewNotesService(store.CheckIns()),
	}
}

func (f *fixture) subscribe(clientID string, tier domain.PlanTier) {
	anchor := signupAnchor
	f.store.PutSubscription(domain.ClientSubscription{ClientID: clientID, PlanTier: tier, CycleAnchorDate: &anchor})
}

func (f *fixture) book(t *testing.T, clientID string, d schedule.Date, hour, minute int) *domain.CheckIn {
	t.Helper()
	checkIn, err := f.booking.Schedule(context.Background(), clientActor(clientID), ScheduleRequest{
		Date: d,
		Time: schedule.TimeOf(hour, minute),
	})
	if err != nil {
		t.Fatalf("book %s %s %02d:%02d: %v", clientID, d, hour, minute, err)
	}
	return checkIn
}

var errBrokerDown = errors.New("broker down")
