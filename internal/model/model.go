package model

import "time"

// Host owns availability and receives bookings. Slug is the public booking
// page identifier.
type Host struct {
	ID                   string
	Slug                 string
	Name                 string
	Email                string
	Plan                 string // free | starter | pro; authoritative tier may come from Stripe
	StripeSubscriptionID string
	CreatedAt            time.Time
}

// AvailabilityWindow is a contiguous period the host is willing to be
// booked. The set is replaced wholesale on every save; windows are merged
// client-side before persistence but readers must tolerate overlap.
type AvailabilityWindow struct {
	Key   string
	Start time.Time
	End   time.Time
}

// ConnectedAccount is an external calendar account linked to a host. At most
// one per host should be default; when data drift produces several, the
// first found wins.
type ConnectedAccount struct {
	Key          string
	HostID       string
	AccountID    string
	Email        string
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
	IsDefault    bool
}

// HasTokens reports whether the account can be used against the external
// calendar API.
func (a *ConnectedAccount) HasTokens() bool {
	return a != nil && a.AccessToken != "" && a.RefreshToken != ""
}

type MeetingType struct {
	ID           string
	HostID       string
	Name         string
	Slug         string
	Description  string
	DurationMins int
	IsDefault    bool
	CreatedAt    time.Time
}

// Booking is an internal booking record. The external calendar is the
// source of truth for cancellation: cancelled bookings are deleted outright,
// never flagged.
type Booking struct {
	ID            string
	HostID        string
	MeetingTypeID string
	GuestName     string
	GuestEmail    string
	Start         time.Time
	End           time.Time
	GoogleEventID string
	MeetLink      string
	Notes         string
	Status        string
	CreatedAt     time.Time
}
