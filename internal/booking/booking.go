// Package booking is the core: slot computation for public pages, the
// booking lifecycle, monthly quota enforcement, and reconciliation of
// internal records against the external calendar.
package booking

import (
	"context"
	"time"

	"github.com/arefin-dev/slotbook/internal/gcal"
	"github.com/arefin-dev/slotbook/internal/model"
)

// Calendar is the external calendar surface the core needs. Satisfied by
// *gcal.Client.
type Calendar interface {
	GetEvent(ctx context.Context, account model.ConnectedAccount, eventID string) (gcal.Event, error)
	InsertEvent(ctx context.Context, account model.ConnectedAccount, req gcal.InsertRequest) (gcal.CreatedEvent, error)
	DeleteEvent(ctx context.Context, account model.ConnectedAccount, eventID string) error
	BusyIntervals(ctx context.Context, accounts []model.ConnectedAccount, from, to time.Time) []gcal.BusyInterval
}

type HostStore interface {
	GetBySlug(ctx context.Context, slug string) (model.Host, error)
	GetByID(ctx context.Context, id string) (model.Host, error)
	ListAvailability(ctx context.Context, hostID string) ([]model.AvailabilityWindow, error)
}

type BookingStore interface {
	CreateWithEvent(ctx context.Context, b *model.Booking) (string, error)
	DeleteWithEvent(ctx context.Context, b model.Booking) error
	Get(ctx context.Context, id string) (model.Booking, error)
	ListInRange(ctx context.Context, hostID string, start, end time.Time) ([]model.Booking, error)
	ListUpcoming(ctx context.Context, hostID string, now time.Time) ([]model.Booking, error)
	CountInMonth(ctx context.Context, hostID string, monthStart, monthEnd time.Time) (int, error)
}

type AccountStore interface {
	ListByHost(ctx context.Context, hostID string) ([]model.ConnectedAccount, error)
	DefaultForHost(ctx context.Context, hostID string) (model.ConnectedAccount, error)
}

type MeetingTypeStore interface {
	GetBySlugs(ctx context.Context, hostSlug, typeSlug string) (model.MeetingType, error)
	ListByHost(ctx context.Context, hostID string) ([]model.MeetingType, error)
}
