package notify

import (
	"alcyxob/checkin-scheduler/internal/domain"
	"alcyxob/checkin-scheduler/internal/telemetry"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultTimeout bounds a single hand-off when none is configured.
const DefaultTimeout = 5 * time.Second

// Dispatcher delivers booking confirmations. Callers treat failures as
// loggable events only; a booking is never rolled back because of one.
type Dispatcher interface {
	SendConfirmation(ctx context.Context, checkIn domain.CheckIn) error
}

// LogDispatcher records confirmations in the log. Used when no broker is configured.
type LogDispatcher struct{}

func (LogDispatcher) SendConfirmation(ctx context.Context, checkIn domain.CheckIn) error {
	slog.InfoContext(ctx, "Confirmation (log only)",
		"checkin_id", checkIn.ID,
		"client_id", checkIn.ClientID,
		"scheduled_at", checkIn.ScheduledAt,
	)
	return nil
}

// Async hands confirmations to next on a background goroutine so the booking
// path never waits on the broker. The caller's context is detached so the
// hand-off survives the end of the request.
type Async struct {
	next    Dispatcher
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewAsync wraps next. A non-positive timeout uses DefaultTimeout.
func NewAsync(next Dispatcher, timeout time.Duration) *Async {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Async{next: next, timeout: timeout}
}

// SendConfirmation always returns nil; failures are logged and counted.
func (a *Async) SendConfirmation(ctx context.Context, checkIn domain.CheckIn) error {
	detached := context.WithoutCancel(ctx)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				telemetry.NotificationFailuresTotal.Inc()
				slog.ErrorContext(detached, "Confirmation dispatcher panicked", "checkin_id", checkIn.ID, "panic", fmt.Sprint(r))
			}
		}()

		sendCtx, cancel := context.WithTimeout(detached, a.timeout)
		defer cancel()

		if err := a.next.SendConfirmation(sendCtx, checkIn); err != nil {
			telemetry.NotificationFailuresTotal.Inc()
			slog.WarnContext(sendCtx, "Failed to send confirmation", "checkin_id", checkIn.ID, "error", err)
		}
	}()
	return nil
}

// Wait blocks until every in-flight hand-off has finished. Called on shutdown.
func (a *Async) Wait() {
	a.wg.Wait()
}
