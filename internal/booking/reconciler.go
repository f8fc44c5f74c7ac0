package booking

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/arefin-dev/slotbook/internal/gcal"
	"github.com/arefin-dev/slotbook/internal/model"
)

// Cancellation reasons attached to classified bookings.
const (
	ReasonEventGone      = "event_gone"
	ReasonEventCancelled = "event_cancelled"
	ReasonGuestDeclined  = "guest_declined"
)

// Status is the classification of one booking against the external
// calendar. GuestResponse carries the guest attendee's latest response for
// bookings that remain active.
type Status struct {
	Active        bool
	Reason        string
	GuestResponse string
}

// Reconciler lazily synchronizes internal bookings with the external
// calendar: a booking whose event is gone, cancelled, or declined by the
// guest is considered cancelled and is deleted on the next read that
// touches it.
type Reconciler struct {
	cal      Calendar
	bookings BookingStore
	logger   *slog.Logger
}

func NewReconciler(cal Calendar, bookings BookingStore, logger *slog.Logger) *Reconciler {
	return &Reconciler{cal: cal, bookings: bookings, logger: logger}
}

// Classify queries the external event for each booking concurrently and
// reports which are still active. It never mutates anything.
//
// Failure posture is deliberately asymmetric: without usable credentials
// every booking is treated as active (a booking must never stop blocking
// its slot because we cannot check), and a transient lookup error also
// leaves the booking active. Only a definitive signal (event gone, event
// cancelled, guest declined) marks a booking cancelled.
func (r *Reconciler) Classify(ctx context.Context, account model.ConnectedAccount, bookings []model.Booking) map[string]Status {
	statuses := make(map[string]Status, len(bookings))
	if !account.HasTokens() {
		for _, b := range bookings {
			statuses[b.ID] = Status{Active: true}
		}
		return statuses
	}

	// Bookings that never got an event cannot be checked; keep them. Fill
	// these before spawning anything so the map is only written under mu
	// once goroutines exist.
	for _, b := range bookings {
		if b.GoogleEventID == "" {
			statuses[b.ID] = Status{Active: true}
		}
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, b := range bookings {
		if b.GoogleEventID == "" {
			continue
		}
		wg.Add(1)
		go func(b model.Booking) {
			defer wg.Done()
			st := r.classifyOne(ctx, account, b)
			mu.Lock()
			statuses[b.ID] = st
			mu.Unlock()
		}(b)
	}
	wg.Wait()
	return statuses
}

func (r *Reconciler) classifyOne(ctx context.Context, account model.ConnectedAccount, b model.Booking) Status {
	ev, err := r.cal.GetEvent(ctx, account, b.GoogleEventID)
	if err != nil {
		if errors.Is(err, gcal.ErrEventGone) {
			return Status{Reason: ReasonEventGone}
		}
		r.logger.Warn("event check failed, keeping booking", "err", err, "booking_id", b.ID)
		return Status{Active: true}
	}
	if ev.Status == gcal.EventStatusCancelled {
		return Status{Reason: ReasonEventCancelled}
	}
	guest := ev.GuestStatus(b.GuestEmail)
	if guest == gcal.StatusDeclined {
		return Status{Reason: ReasonGuestDeclined}
	}
	return Status{Active: true, GuestResponse: guest}
}

// Reconcile deletes the bookings Classify marked cancelled and returns the
// survivors. The external event is removed first, best effort, then the
// internal record; either failure is logged and swallowed so one bad
// booking never poisons a read path.
func (r *Reconciler) Reconcile(ctx context.Context, account model.ConnectedAccount, bookings []model.Booking, statuses map[string]Status) []model.Booking {
	active := bookings[:0:0]
	for _, b := range bookings {
		st, ok := statuses[b.ID]
		if !ok || st.Active {
			active = append(active, b)
			continue
		}

		// Event already confirmed gone for ReasonEventGone; skip the delete.
		if st.Reason != ReasonEventGone && b.GoogleEventID != "" {
			if err := r.cal.DeleteEvent(ctx, account, b.GoogleEventID); err != nil {
				r.logger.Warn("cancelled event cleanup failed", "err", err, "booking_id", b.ID)
			}
		}
		if err := r.bookings.DeleteWithEvent(ctx, b); err != nil {
			r.logger.Warn("cancelled booking cleanup failed", "err", err, "booking_id", b.ID)
			// Keep blocking the slot until the delete succeeds.
			active = append(active, b)
			continue
		}
		r.logger.Info("booking reconciled away", "booking_id", b.ID, "reason", st.Reason)
	}
	return active
}

// ActiveBookingIDs classifies and reconciles in one pass, returning the ids
// that still block their slots.
func (r *Reconciler) ActiveBookingIDs(ctx context.Context, account model.ConnectedAccount, bookings []model.Booking) map[string]bool {
	statuses := r.Classify(ctx, account, bookings)
	remaining := r.Reconcile(ctx, account, bookings, statuses)
	ids := make(map[string]bool, len(remaining))
	for _, b := range remaining {
		ids[b.ID] = true
	}
	return ids
}
