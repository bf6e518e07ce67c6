package service

import (
	"alcyxob/checkin-scheduler/internal/schedule"
	"errors"
	"fmt"
	"time"
)

// --- Error Definitions ---
var (
	ErrInvalidSlot       = errors.New("invalid slot")
	ErrSlotUnavailable   = errors.New("slot is no longer available")
	ErrQuotaExceeded     = errors.New("check-in quota exceeded for this billing cycle")
	ErrCheckInNotFound   = errors.New("check-in not found")
	ErrUnauthorized      = errors.New("not allowed to perform this action")
	ErrInvalidTransition = errors.New("check-in status does not allow this action")
	ErrNoSubscription    = errors.New("client has no active subscription")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrNotesTooLong      = fmt.Errorf("notes exceed %d characters", MaxNotesLength)
)

// InvalidSlotError says which slot was rejected and why.
type InvalidSlotError struct {
	At     time.Time
	Reason error
}

func (e *InvalidSlotError) Error() string {
	return fmt.Sprintf("invalid slot %s: %v", e.At.Format("2006-01-02 15:04"), e.Reason)
}

// Unwrap exposes both ErrInvalidSlot and the underlying grid error.
func (e *InvalidSlotError) Unwrap() []error {
	return []error{ErrInvalidSlot, e.Reason}
}

// QuotaExceededError carries what the caller needs to tell the client when
// they can book again.
type QuotaExceededError struct {
	ClientID string
	Limit    int
	Used     int
	Cycle    schedule.Cycle
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("client %s used %d of %d check-ins for cycle %s..%s",
		e.ClientID, e.Used, e.Limit, e.Cycle.Start, e.Cycle.End)
}

// ResetsOn is the first day the client regains quota.
func (e *QuotaExceededError) ResetsOn() schedule.Date {
	return e.Cycle.ResetsOn()
}

func (e *QuotaExceededError) Unwrap() error {
	return ErrQuotaExceeded
}
