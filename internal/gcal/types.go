package gcal

import (
	"strings"
	"time"
)

// Attendee response statuses as reported by Google Calendar.
const (
	StatusAccepted    = "accepted"
	StatusDeclined    = "declined"
	StatusTentative   = "tentative"
	StatusNeedsAction = "needsAction"
	StatusUnknown     = "unknown"
)

// EventStatusCancelled is the event-level status marker for cancelled events.
const EventStatusCancelled = "cancelled"

type Attendee struct {
	Email          string
	ResponseStatus string
}

// Event is the subset of a calendar event the booking core cares about.
type Event struct {
	ID        string
	Status    string
	Summary   string
	Start     time.Time
	End       time.Time
	Attendees []Attendee
}

// GuestStatus returns the response status of the attendee matching email
// (case-insensitive), or StatusNeedsAction when the attendee is absent or
// has no recorded response.
func (e Event) GuestStatus(email string) string {
	for _, a := range e.Attendees {
		if strings.EqualFold(a.Email, email) {
			if a.ResponseStatus == "" {
				return StatusNeedsAction
			}
			return a.ResponseStatus
		}
	}
	return StatusNeedsAction
}

// BusyInterval is an externally sourced blocking range. Ephemeral: fetched
// per request, never persisted.
type BusyInterval struct {
	Start        time.Time
	End          time.Time
	AccountEmail string
	Title        string
}

// InsertRequest describes a calendar event to create for a new booking.
type InsertRequest struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	HostEmail   string
	GuestEmail  string
}

// CreatedEvent is the result of a successful event insert.
type CreatedEvent struct {
	ID       string
	MeetLink string
}
