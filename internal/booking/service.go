package booking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/arefin-dev/slotbook/internal/availability"
	"github.com/arefin-dev/slotbook/internal/gcal"
	"github.com/arefin-dev/slotbook/internal/interval"
	"github.com/arefin-dev/slotbook/internal/model"
	"github.com/arefin-dev/slotbook/internal/plans"
)

// DefaultDuration applies when a booking request names no meeting type.
const DefaultDuration = 30 * time.Minute

type Service struct {
	hosts        HostStore
	bookings     BookingStore
	accounts     AccountStore
	meetingTypes MeetingTypeStore
	cal          Calendar
	plans        plans.Provider
	rec          *Reconciler
	logger       *slog.Logger
	now          func() time.Time
}

func NewService(hosts HostStore, bookings BookingStore, accounts AccountStore, meetingTypes MeetingTypeStore, cal Calendar, plansProvider plans.Provider, logger *slog.Logger) *Service {
	return &Service{
		hosts:        hosts,
		bookings:     bookings,
		accounts:     accounts,
		meetingTypes: meetingTypes,
		cal:          cal,
		plans:        plansProvider,
		rec:          NewReconciler(cal, bookings, logger),
		logger:       logger,
		now:          time.Now,
	}
}

// defaultAccount resolves the host's default connected account. Any lookup
// failure yields a zero account, which downstream code treats as "cannot
// check the calendar": bookings keep blocking and no busy time is fetched.
func (s *Service) defaultAccount(ctx context.Context, hostID string) model.ConnectedAccount {
	account, err := s.accounts.DefaultForHost(ctx, hostID)
	if err != nil {
		return model.ConnectedAccount{}
	}
	return account
}

func (s *Service) tokenAccounts(ctx context.Context, hostID string) []model.ConnectedAccount {
	accounts, err := s.accounts.ListByHost(ctx, hostID)
	if err != nil {
		s.logger.Warn("account list failed", "err", err, "host_id", hostID)
		return nil
	}
	usable := accounts[:0]
	for _, a := range accounts {
		if a.HasTokens() {
			usable = append(usable, a)
		}
	}
	return usable
}

// blockers returns everything that blocks slots in [from, to): internal
// bookings that survive reconciliation, plus busy time from every connected
// account.
func (s *Service) blockers(ctx context.Context, hostID string, from, to time.Time) ([]interval.Interval, error) {
	bookings, err := s.bookings.ListInRange(ctx, hostID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}

	account := s.defaultAccount(ctx, hostID)
	activeIDs := s.rec.ActiveBookingIDs(ctx, account, bookings)

	var blockers []interval.Interval
	for _, b := range bookings {
		if activeIDs[b.ID] {
			blockers = append(blockers, interval.Interval{Start: b.Start, End: b.End})
		}
	}
	for _, busy := range s.cal.BusyIntervals(ctx, s.tokenAccounts(ctx, hostID), from, to) {
		blockers = append(blockers, interval.Interval{Start: busy.Start, End: busy.End})
	}
	return blockers, nil
}

func (s *Service) windowIntervals(ctx context.Context, hostID string) ([]interval.Interval, error) {
	windows, err := s.hosts.ListAvailability(ctx, hostID)
	if err != nil {
		return nil, fmt.Errorf("list availability: %w", err)
	}
	ivs := make([]interval.Interval, 0, len(windows))
	for _, w := range windows {
		ivs = append(ivs, interval.Interval{Start: w.Start, End: w.End})
	}
	return ivs, nil
}

// durationFor resolves the slot duration for an optional meeting type slug.
// Unknown or missing types fall back to the default duration rather than
// failing the request.
func (s *Service) durationFor(ctx context.Context, hostSlug, typeSlug string) (time.Duration, model.MeetingType) {
	if typeSlug == "" {
		return DefaultDuration, model.MeetingType{}
	}
	mt, err := s.meetingTypes.GetBySlugs(ctx, hostSlug, typeSlug)
	if err != nil {
		s.logger.Warn("meeting type lookup failed, using default duration", "err", err, "host", hostSlug, "type", typeSlug)
		return DefaultDuration, model.MeetingType{}
	}
	if mt.DurationMins <= 0 {
		return DefaultDuration, mt
	}
	return time.Duration(mt.DurationMins) * time.Minute, mt
}

// AvailableSlots computes the bookable slots for one calendar day in the
// guest's timezone.
func (s *Service) AvailableSlots(ctx context.Context, hostSlug, typeSlug, date, tz string) ([]interval.Interval, error) {
	host, err := s.hosts.GetBySlug(ctx, hostSlug)
	if err != nil {
		return nil, ErrNotFound
	}

	loc := availability.Location(tz)
	dayStart, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return nil, fmt.Errorf("parse date %q: %w", date, err)
	}
	dayEnd := dayStart.AddDate(0, 0, 1)

	windows, err := s.windowIntervals(ctx, host.ID)
	if err != nil {
		return nil, err
	}
	dur, _ := s.durationFor(ctx, hostSlug, typeSlug)

	slots := availability.SlotsForDay(windows, dayStart, dur)
	slots = availability.FilterPast(slots, s.now())
	if len(slots) == 0 {
		return nil, nil
	}

	blockers, err := s.blockers(ctx, host.ID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	return availability.FilterConflicts(slots, blockers), nil
}

// AvailableDates lists the dates in [from, to] (inclusive, guest-local)
// that still have at least one free slot.
func (s *Service) AvailableDates(ctx context.Context, hostSlug, typeSlug, from, to, tz string) ([]string, error) {
	host, err := s.hosts.GetBySlug(ctx, hostSlug)
	if err != nil {
		return nil, ErrNotFound
	}

	loc := availability.Location(tz)
	fromDay, err := time.ParseInLocation("2006-01-02", from, loc)
	if err != nil {
		return nil, fmt.Errorf("parse date %q: %w", from, err)
	}
	toDay, err := time.ParseInLocation("2006-01-02", to, loc)
	if err != nil {
		return nil, fmt.Errorf("parse date %q: %w", to, err)
	}

	windows, err := s.windowIntervals(ctx, host.ID)
	if err != nil {
		return nil, err
	}
	dur, _ := s.durationFor(ctx, hostSlug, typeSlug)

	blockers, err := s.blockers(ctx, host.ID, fromDay, toDay.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	return availability.AvailableDates(windows, blockers, fromDay, toDay, loc, dur, s.now()), nil
}

// HostPageDays is the initial date range a public booking page shows.
const HostPageDays = 14

// HostPage bundles what a public booking page needs on first load.
type HostPage struct {
	Host           model.Host
	MeetingTypes   []model.MeetingType
	AvailableDates []string
}

// LoadHostPage resolves a host by slug together with their meeting types
// and the dates with free slots over the next two weeks.
func (s *Service) LoadHostPage(ctx context.Context, hostSlug, tz string) (HostPage, error) {
	host, err := s.hosts.GetBySlug(ctx, hostSlug)
	if err != nil {
		return HostPage{}, ErrNotFound
	}

	types, err := s.meetingTypes.ListByHost(ctx, host.ID)
	if err != nil {
		return HostPage{}, fmt.Errorf("list meeting types: %w", err)
	}

	loc := availability.Location(tz)
	from := availability.StartOfDay(s.now(), loc)
	to := from.AddDate(0, 0, HostPageDays-1)

	windows, err := s.windowIntervals(ctx, host.ID)
	if err != nil {
		return HostPage{}, err
	}
	blockers, err := s.blockers(ctx, host.ID, from, to.AddDate(0, 0, 1))
	if err != nil {
		return HostPage{}, err
	}
	return HostPage{
		Host:           host,
		MeetingTypes:   types,
		AvailableDates: availability.AvailableDates(windows, blockers, from, to, loc, DefaultDuration, s.now()),
	}, nil
}

type CreateRequest struct {
	HostSlug   string
	TypeSlug   string
	GuestName  string
	GuestEmail string
	Notes      string
	Start      time.Time
	// Timezone is the IANA zone the guest browsed slots in. The slot grid
	// is phased by local day, so the re-verify must rebuild it in the same
	// zone; without it the zone of the submitted timestamp is used.
	Timezone string
}

// Create books a slot. The slot is re-verified against availability,
// surviving bookings, and calendar busy time immediately before persisting,
// which closes most of the window between a guest seeing a slot and taking
// it. Persisting is last; a booking row always reflects a slot that was
// free at decision time.
func (s *Service) Create(ctx context.Context, req CreateRequest) (model.Booking, error) {
	host, err := s.hosts.GetBySlug(ctx, req.HostSlug)
	if err != nil {
		return model.Booking{}, ErrNotFound
	}

	if err := s.checkQuota(ctx, host); err != nil {
		return model.Booking{}, err
	}

	dur, mt := s.durationFor(ctx, req.HostSlug, req.TypeSlug)
	now := s.now()
	slot := interval.Interval{Start: req.Start, End: req.Start.Add(dur)}
	if slot.Start.Before(now) {
		return model.Booking{}, ErrSlotUnavailable
	}

	loc := slot.Start.Location()
	if req.Timezone != "" {
		loc = availability.Location(req.Timezone)
	}
	if err := s.verifySlot(ctx, host.ID, slot, dur, loc); err != nil {
		return model.Booking{}, err
	}

	b := model.Booking{
		HostID:        host.ID,
		MeetingTypeID: mt.ID,
		GuestName:     req.GuestName,
		GuestEmail:    req.GuestEmail,
		Start:         slot.Start,
		End:           slot.End,
		Notes:         req.Notes,
		Status:        "confirmed",
	}

	// Event creation is best effort: a calendar outage downgrades the
	// booking (no invite, no Meet link) instead of refusing it.
	account := s.defaultAccount(ctx, host.ID)
	if account.HasTokens() {
		summary := fmt.Sprintf("%s and %s", host.Name, req.GuestName)
		if mt.Name != "" {
			summary = fmt.Sprintf("%s: %s and %s", mt.Name, host.Name, req.GuestName)
		}
		created, err := s.cal.InsertEvent(ctx, account, gcal.InsertRequest{
			Summary:     summary,
			Description: req.Notes,
			Start:       slot.Start,
			End:         slot.End,
			HostEmail:   account.Email,
			GuestEmail:  req.GuestEmail,
		})
		if err != nil {
			s.logger.Warn("calendar event creation failed, booking without event", "err", err, "host_id", host.ID)
		} else {
			b.GoogleEventID = created.ID
			b.MeetLink = created.MeetLink
		}
	}

	id, err := s.bookings.CreateWithEvent(ctx, &b)
	if err != nil {
		return model.Booking{}, fmt.Errorf("persist booking: %w", err)
	}
	b.ID = id
	b.CreatedAt = now
	return b, nil
}

// verifySlot confirms the requested interval is one of the slots the host's
// windows produce for the slot's calendar day in loc, and that nothing
// blocks it. loc must be the zone the slots were listed in: day clamping
// phases the grid, so rebuilding it in a different zone can shift every
// candidate off the offered starts.
func (s *Service) verifySlot(ctx context.Context, hostID string, slot interval.Interval, dur time.Duration, loc *time.Location) error {
	windows, err := s.windowIntervals(ctx, hostID)
	if err != nil {
		return err
	}

	dayStart := availability.StartOfDay(slot.Start, loc)
	offered := false
	for _, candidate := range availability.SlotsForDay(windows, dayStart, dur) {
		if candidate.Start.Equal(slot.Start) && candidate.End.Equal(slot.End) {
			offered = true
			break
		}
	}
	if !offered {
		return ErrSlotUnavailable
	}

	blockers, err := s.blockers(ctx, hostID, slot.Start, slot.End)
	if err != nil {
		return err
	}
	for _, blocker := range blockers {
		if interval.Overlaps(slot, blocker) {
			return ErrSlotUnavailable
		}
	}
	return nil
}

// Cancel removes a booking on behalf of its host, cleaning up the calendar
// event first.
func (s *Service) Cancel(ctx context.Context, hostID, bookingID string) error {
	b, err := s.bookings.Get(ctx, bookingID)
	if err != nil {
		return ErrNotFound
	}
	if b.HostID != hostID {
		return ErrUnauthorized
	}

	if b.GoogleEventID != "" {
		account := s.defaultAccount(ctx, hostID)
		if account.HasTokens() {
			if err := s.cal.DeleteEvent(ctx, account, b.GoogleEventID); err != nil {
				s.logger.Warn("event delete failed during cancel", "err", err, "booking_id", b.ID)
			}
		}
	}
	if err := s.bookings.DeleteWithEvent(ctx, b); err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	return nil
}

// ListHostBookings returns the host's upcoming bookings, reconciling away
// any the external calendar says are cancelled. Each surviving booking's
// Status reflects the guest's current response.
func (s *Service) ListHostBookings(ctx context.Context, hostID string) ([]model.Booking, error) {
	bookings, err := s.bookings.ListUpcoming(ctx, hostID, s.now())
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	account := s.defaultAccount(ctx, hostID)
	statuses := s.rec.Classify(ctx, account, bookings)
	active := s.rec.Reconcile(ctx, account, bookings, statuses)
	for i := range active {
		if st, ok := statuses[active[i].ID]; ok {
			active[i].Status = guestStatusLabel(st.GuestResponse)
		}
	}
	return active, nil
}

func guestStatusLabel(response string) string {
	switch response {
	case gcal.StatusTentative:
		return "tentative"
	case gcal.StatusNeedsAction:
		return "pending"
	default:
		return "confirmed"
	}
}

type Quota struct {
	Tier      string
	Limit     int
	Used      int
	Unlimited bool
}

func (q Quota) Exceeded() bool {
	return !q.Unlimited && q.Used >= q.Limit
}

// QuotaStatus reports the host's booking usage for the current calendar
// month.
func (s *Service) QuotaStatus(ctx context.Context, hostID string) (Quota, error) {
	host, err := s.hosts.GetByID(ctx, hostID)
	if err != nil {
		return Quota{}, ErrNotFound
	}
	return s.quotaFor(ctx, host)
}

func (s *Service) checkQuota(ctx context.Context, host model.Host) error {
	q, err := s.quotaFor(ctx, host)
	if err != nil {
		return err
	}
	if q.Exceeded() {
		return ErrQuotaExceeded
	}
	return nil
}

func (s *Service) quotaFor(ctx context.Context, host model.Host) (Quota, error) {
	limits, err := s.plans.LimitsForHost(ctx, host)
	if err != nil {
		return Quota{}, fmt.Errorf("resolve plan: %w", err)
	}
	monthStart, monthEnd := monthBounds(s.now())
	used, err := s.bookings.CountInMonth(ctx, host.ID, monthStart, monthEnd)
	if err != nil {
		return Quota{}, fmt.Errorf("count bookings: %w", err)
	}
	return Quota{
		Tier:      limits.Tier,
		Limit:     limits.MonthlyBookings,
		Used:      used,
		Unlimited: limits.Unlimited(),
	}, nil
}

// monthBounds returns the current calendar month as [start, end) in the
// clock's location.
func monthBounds(now time.Time) (time.Time, time.Time) {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return start, start.AddDate(0, 1, 0)
}
