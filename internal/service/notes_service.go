package service

import (
	"alcyxob/checkin-scheduler/internal/domain"
	"alcyxob/checkin-scheduler/internal/repository"
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
)

// MaxNotesLength caps every free-text field, counted in characters.
const MaxNotesLength = 4000

// Notes is the free text attached to a check-in. Feedback is empty for clients.
type Notes struct {
	CheckInID   string               `json:"checkInId"`
	Status      domain.CheckInStatus `json:"status"`
	ClientNotes string               `json:"clientNotes"`
	CoachNotes  string               `json:"coachNotes"`
	Feedback    string               `json:"feedback,omitempty"`
}

// NotesService gates who may read and write each notes field. It never
// touches status.
type NotesService interface {
	GetNotes(ctx context.Context, actor domain.Actor, checkInID string) (*Notes, error)
	// UpdateClientNotes is for the owning client, until the session is completed.
	UpdateClientNotes(ctx context.Context, actor domain.Actor, checkInID, clientNotes string) (*Notes, error)
	// UpdateCoachNotes is for the coach or an admin. Nil fields are left as they are.
	UpdateCoachNotes(ctx context.Context, actor domain.Actor, checkInID string, coachNotes, feedback *string) (*Notes, error)
}

type notesService struct {
	checkInRepo repository.CheckInRepository
}

// NewNotesService creates a new NotesService.
func NewNotesService(checkInRepo repository.CheckInRepository) NotesService {
	return &notesService{checkInRepo: checkInRepo}
}

func (s *notesService) GetNotes(ctx context.Context, actor domain.Actor, checkInID string) (*Notes, error) {
	checkIn, err := loadCheckIn(ctx, s.checkInRepo, checkInID)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, checkIn) {
		return nil, ErrUnauthorized
	}
	return notesFor(actor, checkIn), nil
}

func (s *notesService) UpdateClientNotes(ctx context.Context, actor domain.Actor, checkInID, clientNotes string) (_ *Notes, err error) {
	ctx, span := tracer.Start(ctx, "NotesService.UpdateClientNotes")
	span.SetAttributes(attribute.String("checkin_id", checkInID))
	defer func() { finishSpan(span, err) }()

	if err := checkNotesLength(clientNotes); err != nil {
		return nil, err
	}

	checkIn, err := loadCheckIn(ctx, s.checkInRepo, checkInID)
	if err != nil {
		return nil, err
	}
	if !actor.IsClient() || !checkIn.OwnedBy(actor.ID) {
		return nil, ErrUnauthorized
	}
	if checkIn.Status == domain.StatusCompleted {
		return nil, fmt.Errorf("%w: notes are locked once the session is completed", ErrInvalidTransition)
	}

	updated, err := s.checkInRepo.Update(ctx, checkInID, repository.CheckInPatch{ClientNotes: &clientNotes})
	if err != nil {
		return nil, mapRepoError(err)
	}

	slog.InfoContext(ctx, "Client notes updated", "checkin_id", checkInID, "client_id", actor.ID)
	return notesFor(actor, updated), nil
}

func (s *notesService) UpdateCoachNotes(ctx context.Context, actor domain.Actor, checkInID string, coachNotes, feedback *string) (_ *Notes, err error) {
	ctx, span := tracer.Start(ctx, "NotesService.UpdateCoachNotes")
	span.SetAttributes(attribute.String("checkin_id", checkInID))
	defer func() { finishSpan(span, err) }()

	if !actor.IsStaff() {
		return nil, ErrUnauthorized
	}
	if coachNotes == nil && feedback == nil {
		return nil, fmt.Errorf("%w: nothing to update", ErrInvalidRequest)
	}
	for _, text := range []*string{coachNotes, feedback} {
		if text != nil {
			if err := checkNotesLength(*text); err != nil {
				return nil, err
			}
		}
	}

	updated, err := s.checkInRepo.Update(ctx, checkInID, repository.CheckInPatch{
		CoachNotes: coachNotes,
		Feedback:   feedback,
	})
	if err != nil {
		return nil, mapRepoError(err)
	}

	slog.InfoContext(ctx, "Coach notes updated", "checkin_id", checkInID, "author_id", actor.ID)
	return notesFor(actor, updated), nil
}

func notesFor(actor domain.Actor, checkIn *domain.CheckIn) *Notes {
	notes := &Notes{
		CheckInID:   checkIn.ID,
		Status:      checkIn.Status,
		ClientNotes: checkIn.ClientNotes,
		CoachNotes:  checkIn.CoachNotes,
	}
	if actor.IsStaff() {
		notes.Feedback = checkIn.Feedback
	}
	return notes
}
