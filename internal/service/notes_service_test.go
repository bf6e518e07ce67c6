package service

import (
	"alcyxob/checkin-scheduler/internal/domain"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestNotes_ClientWritesOwnNotesUntilCompleted(t *testing.T) {
	f := newFixture(t)
	f.subscribe("c1", domain.PlanElite)
	ctx := context.Background()
	checkIn := f.book(t, "c1", date(2026, time.March, 11), 9, 0)

	notes, err := f.notes.UpdateClientNotes(ctx, clientActor("c1"), checkIn.ID, "Knee still sore after squats")
	require.NoError(t, err)
	require.Equal(t, "Knee still sore after squats", notes.ClientNotes)
	require.Equal(t, domain.StatusScheduled, notes.Status)

	_, err = f.notes.UpdateClientNotes(ctx, clientActor("c2"), checkIn.ID, "not mine")
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.notes.UpdateClientNotes(ctx, coach, checkIn.ID, "coach cannot write client notes")
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.booking.MarkCompleted(ctx, checkIn.ID)
	require.NoError(t, err)

	_, err = f.notes.UpdateClientNotes(ctx, clientActor("c1"), checkIn.ID, "too late")
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestNotes_CoachWritesNotesAndFeedback(t *testing.T) {
	f := newFixture(t)
	f.subscribe("c1", domain.PlanElite)
	ctx := context.Background()
	checkIn := f.book(t, "c1", date(2026, time.March, 11), 9, 0)
	_, err := f.booking.MarkCompleted(ctx, checkIn.ID)
	require.NoError(t, err)

	notes, err := f.notes.UpdateCoachNotes(ctx, coach, checkIn.ID, strPtr("Add mobility work"), strPtr("Great progress"))
	require.NoError(t, err)
	require.Equal(t, "Add mobility work", notes.CoachNotes)
	require.Equal(t, "Great progress", notes.Feedback)
	require.Equal(t, domain.StatusCompleted, notes.Status)

	// Only feedback; coach notes stay.
	notes, err = f.notes.UpdateCoachNotes(ctx, admin, checkIn.ID, nil, strPtr("Reviewed by admin"))
	require.NoError(t, err)
	require.Equal(t, "Add mobility work", notes.CoachNotes)
	require.Equal(t, "Reviewed by admin", notes.Feedback)

	_, err = f.notes.UpdateCoachNotes(ctx, clientActor("c1"), checkIn.ID, strPtr("self review"), nil)
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.notes.UpdateCoachNotes(ctx, coach, checkIn.ID, nil, nil)
	require.ErrorIs(t, err, ErrInvalidRequest)

	_, err = f.notes.UpdateCoachNotes(ctx, coach, "missing", strPtr("x"), nil)
	require.ErrorIs(t, err, ErrCheckInNotFound)

	_, err = f.notes.UpdateCoachNotes(ctx, coach, checkIn.ID, strPtr(strings.Repeat("a", MaxNotesLength+1)), nil)
	require.ErrorIs(t, err, ErrNotesTooLong)
}

func TestNotes_ReadVisibility(t *testing.T) {
	f := newFixture(t)
	f.subscribe("c1", domain.PlanElite)
	ctx := context.Background()
	checkIn := f.book(t, "c1", date(2026, time.March, 11), 9, 0)
	_, err := f.notes.UpdateCoachNotes(ctx, coach, checkIn.ID, strPtr("Bring food log"), strPtr("internal feedback"))
	require.NoError(t, err)

	asClient, err := f.notes.GetNotes(ctx, clientActor("c1"), checkIn.ID)
	require.NoError(t, err)
	require.Equal(t, "Bring food log", asClient.CoachNotes)
	require.Empty(t, asClient.Feedback)

	asCoach, err := f.notes.GetNotes(ctx, coach, checkIn.ID)
	require.NoError(t, err)
	require.Equal(t, "internal feedback", asCoach.Feedback)

	_, err = f.notes.GetNotes(ctx, clientActor("c2"), checkIn.ID)
	require.ErrorIs(t, err, ErrUnauthorized)

	viaBooking, err := f.booking.Get(ctx, clientActor("c1"), checkIn.ID)
	require.NoError(t, err)
	require.Empty(t, viaBooking.Feedback)
	require.Equal(t, domain.StatusScheduled, viaBooking.Status)
}
