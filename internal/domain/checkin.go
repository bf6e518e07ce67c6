package domain

import (
	"time"
)

// CheckInStatus type for check-in lifecycle
type CheckInStatus string

const (
	StatusScheduled   CheckInStatus = "scheduled"
	StatusCompleted   CheckInStatus = "completed"
	StatusCancelled   CheckInStatus = "cancelled"
	StatusRescheduled CheckInStatus = "rescheduled" // Terminal on the original record, paired with a new scheduled one
)

// Valid reports whether s is one of the known statuses.
func (s CheckInStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled, StatusRescheduled:
		return true
	}
	return false
}

// Terminal reports whether no further status transition is allowed from s.
func (s CheckInStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusRescheduled
}

// CountsTowardQuota reports whether a check-in in this status consumes the client's cycle quota.
func (s CheckInStatus) CountsTowardQuota() bool {
	return s == StatusScheduled || s == StatusCompleted
}

// CanTransition reports whether the state machine allows from -> to.
// Only scheduled records move, and they never move back to scheduled.
func CanTransition(from, to CheckInStatus) bool {
	if from != StatusScheduled {
		return false
	}
	switch to {
	case StatusCompleted, StatusCancelled, StatusRescheduled:
		return true
	}
	return false
}

// SessionType tags the format/purpose of a check-in. Presentational only.
type SessionType string

const (
	SessionRegular        SessionType = "regular"
	SessionProgressReview SessionType = "progress-review"
	SessionVideo          SessionType = "video"
	SessionPhone          SessionType = "phone"
	SessionInPerson       SessionType = "in-person"
)

// Valid reports whether t is one of the known session types.
func (t SessionType) Valid() bool {
	switch t {
	case SessionRegular, SessionProgressReview, SessionVideo, SessionPhone, SessionInPerson:
		return true
	}
	return false
}

// CheckIn is one coaching session booking between a client and the coach.
type CheckIn struct {
	ID              string        `bson:"_id" json:"id" db:"id"`
	ClientID        string        `bson:"clientId" json:"clientId" db:"client_id"`
	ScheduledAt     time.Time     `bson:"scheduledAt" json:"scheduledAt" db:"scheduled_at"` // Absolute instant in the operating offset
	Status          CheckInStatus `bson:"status" json:"status" db:"status"`
	SessionType     SessionType   `bson:"sessionType" json:"sessionType" db:"session_type"`
	ClientNotes     string        `bson:"clientNotes,omitempty" json:"clientNotes,omitempty" db:"client_notes"` // Client-authored at booking time
	CoachNotes      string        `bson:"coachNotes,omitempty" json:"coachNotes,omitempty" db:"coach_notes"`    // Coach/admin-authored, client-readable
	Feedback        string        `bson:"feedback,omitempty" json:"feedback,omitempty" db:"feedback"`           // Post-session, coach-authored
	RescheduledFrom *string       `bson:"rescheduledFrom,omitempty" json:"rescheduledFrom,omitempty" db:"rescheduled_from"`
	RescheduledTo   *string       `bson:"rescheduledTo,omitempty" json:"rescheduledTo,omitempty" db:"rescheduled_to"`
	CreatedAt       time.Time     `bson:"createdAt" json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time     `bson:"updatedAt" json:"updatedAt" db:"updated_at"`
	CompletedAt     *time.Time    `bson:"completedAt,omitempty" json:"completedAt,omitempty" db:"completed_at"`
}

// OwnedBy reports whether the check-in belongs to clientID.
func (c *CheckIn) OwnedBy(clientID string) bool {
	return c.ClientID != "" && c.ClientID == clientID
}

// In returns a copy with every timestamp expressed in loc.
func (c CheckIn) In(loc *time.Location) CheckIn {
	c.ScheduledAt = c.ScheduledAt.In(loc)
	c.CreatedAt = c.CreatedAt.In(loc)
	c.UpdatedAt = c.UpdatedAt.In(loc)
	if c.CompletedAt != nil {
		t := c.CompletedAt.In(loc)
		c.CompletedAt = &t
	}
	return c
}
