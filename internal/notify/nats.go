package notify

import (
	"alcyxob/checkin-scheduler/internal/domain"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// EventScheduled is the event type published for every new scheduled check-in.
const EventScheduled = "checkin.scheduled"

// publisher is the subset of *nats.Conn the dispatcher needs.
type publisher interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
}

// NatsDispatcher publishes confirmations to NATS for the delivery worker.
type NatsDispatcher struct {
	conn    publisher
	close   func()
	subject string
}

// CheckInScheduledEvent is the wire payload of EventScheduled.
type CheckInScheduledEvent struct {
	EventID         uuid.UUID          `json:"event_id"`
	EventType       string             `json:"event_type"`
	CheckInID       string             `json:"checkin_id"`
	ClientID        string             `json:"client_id"`
	ScheduledAt     time.Time          `json:"scheduled_at"`
	SessionType     domain.SessionType `json:"session_type"`
	RescheduledFrom *string            `json:"rescheduled_from,omitempty"`
	OccurredAt      time.Time          `json:"occurred_at"`
}

// NewNatsDispatcher connects to natsURL. Events go to "<prefix>.scheduled".
func NewNatsDispatcher(natsURL, subjectPrefix string) (*NatsDispatcher, error) {
	nc, err := nats.Connect(natsURL, nats.Name("checkin-scheduler"))
	if err != nil {
		return nil, err
	}
	return newNatsDispatcher(nc, nc.Close, subjectPrefix), nil
}

func newNatsDispatcher(conn publisher, closeFn func(), subjectPrefix string) *NatsDispatcher {
	if closeFn == nil {
		closeFn = func() {}
	}
	return &NatsDispatcher{conn: conn, close: closeFn, subject: scheduledSubject(subjectPrefix)}
}

func scheduledSubject(prefix string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		return EventScheduled
	}
	return prefix + ".scheduled"
}

// SendConfirmation publishes the event and flushes so the server has it before returning.
func (d *NatsDispatcher) SendConfirmation(ctx context.Context, checkIn domain.CheckIn) error {
	event := CheckInScheduledEvent{
		EventID:         uuid.New(),
		EventType:       EventScheduled,
		CheckInID:       checkIn.ID,
		ClientID:        checkIn.ClientID,
		ScheduledAt:     checkIn.ScheduledAt,
		SessionType:     checkIn.SessionType,
		RescheduledFrom: checkIn.RescheduledFrom,
		OccurredAt:      time.Now().UTC(),
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", EventScheduled, err)
	}

	if err := d.conn.Publish(d.subject, eventJSON); err != nil {
		return fmt.Errorf("publish to %s: %w", d.subject, err)
	}
	if err := d.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush %s: %w", d.subject, err)
	}

	slog.DebugContext(ctx, "Published event to NATS", "subject", d.subject, "checkin_id", checkIn.ID)
	return nil
}

// Close closes the NATS connection.
func (d *NatsDispatcher) Close() {
	d.close()
}
