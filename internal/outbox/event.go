package outbox

import (
	"encoding/json"
	"time"
)

// Topic names double as event types: one event kind per topic.
const (
	EventBookingCreated   = "booking.created.v1"
	EventBookingCancelled = "booking.cancelled.v1"
)

// Event is the domain event envelope written to the outbox table inside the
// same transaction as the state change it describes.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

type bookingPayload struct {
	BookingID     string    `json:"booking_id"`
	HostID        string    `json:"host_id"`
	GuestEmail    string    `json:"guest_email"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	GoogleEventID string    `json:"google_event_id,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// BookingCreated builds the event emitted when a booking is persisted.
func BookingCreated(bookingID, hostID, guestEmail string, start, end time.Time, googleEventID string) (Event, error) {
	payload, err := json.Marshal(bookingPayload{
		BookingID:     bookingID,
		HostID:        hostID,
		GuestEmail:    guestEmail,
		StartTime:     start,
		EndTime:       end,
		GoogleEventID: googleEventID,
		OccurredAt:    time.Now().UTC(),
	})
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: "booking",
		AggregateID:   bookingID,
		EventType:     EventBookingCreated,
		Payload:       payload,
	}, nil
}

// BookingCancelled builds the event emitted when a booking is removed,
// whether by host action or by reconciliation against the external calendar.
func BookingCancelled(bookingID, hostID, guestEmail string, start, end time.Time) (Event, error) {
	payload, err := json.Marshal(bookingPayload{
		BookingID:  bookingID,
		HostID:     hostID,
		GuestEmail: guestEmail,
		StartTime:  start,
		EndTime:    end,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: "booking",
		AggregateID:   bookingID,
		EventType:     EventBookingCancelled,
		Payload:       payload,
	}, nil
}
