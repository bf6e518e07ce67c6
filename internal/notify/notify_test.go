package notify

import (
	"alcyxob/checkin-scheduler/internal/domain"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubPublisher struct {
	subject    string
	data       []byte
	publishErr error
	flushErr   error
}

func (p *stubPublisher) Publish(subject string, data []byte) error {
	p.subject = subject
	p.data = data
	return p.publishErr
}

func (p *stubPublisher) FlushWithContext(context.Context) error {
	return p.flushErr
}

func sampleCheckIn() domain.CheckIn {
	from := "orig-1"
	return domain.CheckIn{
		ID:              "ci-1",
		ClientID:        "client-1",
		ScheduledAt:     time.Date(2026, time.October, 20, 9, 0, 0, 0, time.UTC),
		Status:          domain.StatusScheduled,
		SessionType:     domain.SessionVideo,
		RescheduledFrom: &from,
	}
}

func TestNatsDispatcher_PublishesScheduledEvent(t *testing.T) {
	pub := &stubPublisher{}
	d := newNatsDispatcher(pub, nil, "coach.checkins.")

	require.NoError(t, d.SendConfirmation(context.Background(), sampleCheckIn()))
	require.Equal(t, "coach.checkins.scheduled", pub.subject)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(pub.data, &decoded))
	require.Equal(t, EventScheduled, decoded["event_type"])
	require.Equal(t, "ci-1", decoded["checkin_id"])
	require.Equal(t, "client-1", decoded["client_id"])
	require.Equal(t, "video", decoded["session_type"])
	require.Equal(t, "orig-1", decoded["rescheduled_from"])
	require.NotEmpty(t, decoded["event_id"])
}

func TestNatsDispatcher_DefaultSubjectAndErrors(t *testing.T) {
	pub := &stubPublisher{publishErr: errors.New("nats: connection closed")}
	d := newNatsDispatcher(pub, nil, "")

	err := d.SendConfirmation(context.Background(), sampleCheckIn())
	require.Error(t, err)
	require.Equal(t, EventScheduled, pub.subject)

	pub.publishErr = nil
	pub.flushErr = context.DeadlineExceeded
	err = d.SendConfirmation(context.Background(), sampleCheckIn())
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

type recordingDispatcher struct {
	mu      sync.Mutex
	calls   []string
	err     error
	release chan struct{}
	ctxErr  error
}

func (r *recordingDispatcher) SendConfirmation(ctx context.Context, c domain.CheckIn) error {
	if r.release != nil {
		<-r.release
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c.ID)
	r.ctxErr = ctx.Err()
	return r.err
}

func TestAsync_ReturnsBeforeDeliveryAndSurvivesRequestCancel(t *testing.T) {
	next := &recordingDispatcher{release: make(chan struct{})}
	async := NewAsync(next, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, async.SendConfirmation(ctx, sampleCheckIn()))
	cancel()

	close(next.release)
	async.Wait()

	require.Equal(t, []string{"ci-1"}, next.calls)
	require.NoError(t, next.ctxErr)
}

func TestAsync_SwallowsFailures(t *testing.T) {
	next := &recordingDispatcher{err: errors.New("broker down")}
	async := NewAsync(next, 0)

	require.NoError(t, async.SendConfirmation(context.Background(), sampleCheckIn()))
	async.Wait()
	require.Len(t, next.calls, 1)
}
