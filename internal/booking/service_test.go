package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arefin-dev/slotbook/internal/gcal"
	"github.com/arefin-dev/slotbook/internal/model"
	"github.com/arefin-dev/slotbook/internal/plans"
)

type fakeHostStore struct {
	host    model.Host
	windows []model.AvailabilityWindow
}

func (s *fakeHostStore) GetBySlug(_ context.Context, slug string) (model.Host, error) {
	if slug != s.host.Slug {
		return model.Host{}, errors.New("no rows")
	}
	return s.host, nil
}

func (s *fakeHostStore) GetByID(_ context.Context, id string) (model.Host, error) {
	if id != s.host.ID {
		return model.Host{}, errors.New("no rows")
	}
	return s.host, nil
}

func (s *fakeHostStore) ListAvailability(_ context.Context, _ string) ([]model.AvailabilityWindow, error) {
	return s.windows, nil
}

type fakeAccountStore struct {
	accounts []model.ConnectedAccount
}

func (s *fakeAccountStore) ListByHost(_ context.Context, _ string) ([]model.ConnectedAccount, error) {
	return s.accounts, nil
}

func (s *fakeAccountStore) DefaultForHost(_ context.Context, _ string) (model.ConnectedAccount, error) {
	for _, a := range s.accounts {
		if a.IsDefault {
			return a, nil
		}
	}
	return model.ConnectedAccount{}, errors.New("no rows")
}

type fakeMeetingTypeStore struct {
	types map[string]model.MeetingType
}

func (s *fakeMeetingTypeStore) GetBySlugs(_ context.Context, _, typeSlug string) (model.MeetingType, error) {
	mt, ok := s.types[typeSlug]
	if !ok {
		return model.MeetingType{}, errors.New("no rows")
	}
	return mt, nil
}

func (s *fakeMeetingTypeStore) ListByHost(_ context.Context, _ string) ([]model.MeetingType, error) {
	var out []model.MeetingType
	for _, mt := range s.types {
		out = append(out, mt)
	}
	return out, nil
}

var testNow = time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)

func day(h, m int) time.Time {
	return time.Date(2024, 3, 15, h, m, 0, 0, time.UTC)
}

type testEnv struct {
	svc      *Service
	cal      *fakeCalendar
	store    *fakeBookingStore
	hosts    *fakeHostStore
	accounts *fakeAccountStore
}

func newTestEnv(plan string) *testEnv {
	hosts := &fakeHostStore{
		host: model.Host{ID: "host-1", Slug: "alice", Name: "Alice", Email: "alice@example.com", Plan: plan},
		windows: []model.AvailabilityWindow{
			{Key: "w1", Start: day(9, 0), End: day(17, 0)},
		},
	}
	accounts := &fakeAccountStore{accounts: []model.ConnectedAccount{tokenAccount}}
	types := &fakeMeetingTypeStore{types: map[string]model.MeetingType{
		"intro": {ID: "mt-1", HostID: "host-1", Name: "Intro Call", Slug: "intro", DurationMins: 30},
	}}
	cal := newFakeCalendar()
	store := newFakeBookingStore()

	svc := NewService(hosts, store, accounts, types, cal, plans.NewStaticProvider(), testLogger())
	svc.now = func() time.Time { return testNow }
	return &testEnv{svc: svc, cal: cal, store: store, hosts: hosts, accounts: accounts}
}

func TestCreateBooksFreeSlot(t *testing.T) {
	env := newTestEnv("pro")
	b, err := env.svc.Create(context.Background(), CreateRequest{
		HostSlug:   "alice",
		TypeSlug:   "intro",
		GuestName:  "Bob",
		GuestEmail: "bob@example.com",
		Start:      day(10, 0),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if b.ID == "" {
		t.Fatal("booking id not assigned")
	}
	if !b.End.Equal(day(10, 30)) {
		t.Fatalf("end = %v, want 10:30", b.End)
	}
	if b.GoogleEventID == "" || b.MeetLink == "" {
		t.Fatalf("expected calendar event and meet link, got %+v", b)
	}
	if env.cal.inserted != 1 {
		t.Fatalf("inserted %d events, want 1", env.cal.inserted)
	}
}

func TestCreateSurvivesCalendarOutage(t *testing.T) {
	env := newTestEnv("pro")
	env.cal.insertErr = errors.New("calendar down")

	b, err := env.svc.Create(context.Background(), CreateRequest{
		HostSlug:   "alice",
		GuestName:  "Bob",
		GuestEmail: "bob@example.com",
		Start:      day(10, 0),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if b.GoogleEventID != "" {
		t.Fatal("booking should have no event id when event creation fails")
	}
}

func TestCreateRejectsTakenSlot(t *testing.T) {
	env := newTestEnv("pro")
	env.cal.events["ev-live"] = gcal.Event{ID: "ev-live", Status: "confirmed"}
	env.store.add(model.Booking{HostID: "host-1", GoogleEventID: "ev-live", Start: day(10, 0), End: day(10, 30)})

	_, err := env.svc.Create(context.Background(), CreateRequest{
		HostSlug:   "alice",
		GuestName:  "Bob",
		GuestEmail: "bob@example.com",
		Start:      day(10, 0),
	})
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("err = %v, want ErrSlotUnavailable", err)
	}
}

func TestCreateAllowsSlotFreedByCancelledEvent(t *testing.T) {
	env := newTestEnv("pro")
	env.cal.gone["ev-dead"] = true
	env.store.add(model.Booking{HostID: "host-1", GoogleEventID: "ev-dead", Start: day(10, 0), End: day(10, 30)})

	_, err := env.svc.Create(context.Background(), CreateRequest{
		HostSlug:   "alice",
		GuestName:  "Bob",
		GuestEmail: "bob@example.com",
		Start:      day(10, 0),
	})
	if err != nil {
		t.Fatalf("Create: %v (cancelled event should free the slot)", err)
	}
}

func TestCreateRejectsBusyCalendarTime(t *testing.T) {
	env := newTestEnv("pro")
	env.cal.busy = []gcal.BusyInterval{{Start: day(9, 45), End: day(10, 15), AccountEmail: "host@example.com"}}

	_, err := env.svc.Create(context.Background(), CreateRequest{
		HostSlug:   "alice",
		GuestName:  "Bob",
		GuestEmail: "bob@example.com",
		Start:      day(10, 0),
	})
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("err = %v, want ErrSlotUnavailable", err)
	}
}

func TestCreateRejectsPastSlot(t *testing.T) {
	env := newTestEnv("pro")
	_, err := env.svc.Create(context.Background(), CreateRequest{
		HostSlug:   "alice",
		GuestName:  "Bob",
		GuestEmail: "bob@example.com",
		Start:      day(7, 0),
	})
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("err = %v, want ErrSlotUnavailable", err)
	}
}

func TestCreateRejectsMisalignedSlot(t *testing.T) {
	env := newTestEnv("pro")
	_, err := env.svc.Create(context.Background(), CreateRequest{
		HostSlug:   "alice",
		GuestName:  "Bob",
		GuestEmail: "bob@example.com",
		Start:      day(10, 10),
	})
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("err = %v, want ErrSlotUnavailable", err)
	}
}

func TestCreateRejectsOutsideWindows(t *testing.T) {
	env := newTestEnv("pro")
	_, err := env.svc.Create(context.Background(), CreateRequest{
		HostSlug:   "alice",
		GuestName:  "Bob",
		GuestEmail: "bob@example.com",
		Start:      day(18, 0),
	})
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("err = %v, want ErrSlotUnavailable", err)
	}
}

func TestCreateEnforcesFreeQuota(t *testing.T) {
	env := newTestEnv("free")
	env.cal.events["ev-a"] = gcal.Event{ID: "ev-a", Status: "confirmed"}
	env.cal.events["ev-b"] = gcal.Event{ID: "ev-b", Status: "confirmed"}
	env.store.add(model.Booking{HostID: "host-1", GoogleEventID: "ev-a", Start: day(9, 0), End: day(9, 30)})
	env.store.add(model.Booking{HostID: "host-1", GoogleEventID: "ev-b", Start: day(9, 30), End: day(10, 0)})

	_, err := env.svc.Create(context.Background(), CreateRequest{
		HostSlug:   "alice",
		GuestName:  "Bob",
		GuestEmail: "bob@example.com",
		Start:      day(11, 0),
	})
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("err = %v, want ErrQuotaExceeded (free tier allows 2/month)", err)
	}
}

func TestCreateQuotaIgnoresOtherMonths(t *testing.T) {
	env := newTestEnv("free")
	lastMonth := time.Date(2024, 2, 10, 10, 0, 0, 0, time.UTC)
	env.store.add(model.Booking{HostID: "host-1", Start: lastMonth, End: lastMonth.Add(30 * time.Minute)})
	env.store.add(model.Booking{HostID: "host-1", Start: lastMonth.Add(time.Hour), End: lastMonth.Add(90 * time.Minute)})

	_, err := env.svc.Create(context.Background(), CreateRequest{
		HostSlug:   "alice",
		GuestName:  "Bob",
		GuestEmail: "bob@example.com",
		Start:      day(11, 0),
	})
	if err != nil {
		t.Fatalf("Create: %v (last month's bookings must not count)", err)
	}
}

func TestCreateProIsUnlimited(t *testing.T) {
	env := newTestEnv("pro")
	for i := 0; i < 20; i++ {
		start := day(9, 0).Add(time.Duration(i) * time.Hour * 24)
		env.store.add(model.Booking{HostID: "host-1", Start: start, End: start.Add(30 * time.Minute)})
	}
	_, err := env.svc.Create(context.Background(), CreateRequest{
		HostSlug:   "alice",
		GuestName:  "Bob",
		GuestEmail: "bob@example.com",
		Start:      day(11, 0),
	})
	if err != nil {
		t.Fatalf("Create: %v (pro tier has no monthly cap)", err)
	}
}

func TestCancelChecksOwnership(t *testing.T) {
	env := newTestEnv("pro")
	b := env.store.add(model.Booking{HostID: "host-1", GoogleEventID: "ev-1", Start: day(10, 0), End: day(10, 30)})

	if err := env.svc.Cancel(context.Background(), "someone-else", b.ID); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
	if err := env.svc.Cancel(context.Background(), "host-1", "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCancelDeletesEventAndRecord(t *testing.T) {
	env := newTestEnv("pro")
	b := env.store.add(model.Booking{HostID: "host-1", GoogleEventID: "ev-1", Start: day(10, 0), End: day(10, 30)})

	if err := env.svc.Cancel(context.Background(), "host-1", b.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if len(env.cal.deleted) != 1 || env.cal.deleted[0] != "ev-1" {
		t.Fatalf("external deletes = %v, want [ev-1]", env.cal.deleted)
	}
	if _, err := env.store.Get(context.Background(), b.ID); err == nil {
		t.Fatal("booking record still present after cancel")
	}
}

func TestListHostBookingsReconciles(t *testing.T) {
	env := newTestEnv("pro")
	env.cal.gone["ev-dead"] = true
	env.cal.events["ev-live"] = gcal.Event{ID: "ev-live", Status: "confirmed"}
	dead := env.store.add(model.Booking{HostID: "host-1", GoogleEventID: "ev-dead", Start: day(10, 0), End: day(10, 30)})
	live := env.store.add(model.Booking{HostID: "host-1", GoogleEventID: "ev-live", Start: day(11, 0), End: day(11, 30)})

	got, err := env.svc.ListHostBookings(context.Background(), "host-1")
	if err != nil {
		t.Fatalf("ListHostBookings: %v", err)
	}
	if len(got) != 1 || got[0].ID != live.ID {
		t.Fatalf("got %v, want only %s", got, live.ID)
	}
	if _, err := env.store.Get(context.Background(), dead.ID); err == nil {
		t.Fatal("dead booking not lazily deleted")
	}
}

func TestAvailableSlotsExcludesBlockedTime(t *testing.T) {
	env := newTestEnv("pro")
	env.cal.events["ev-live"] = gcal.Event{ID: "ev-live", Status: "confirmed"}
	env.store.add(model.Booking{HostID: "host-1", GoogleEventID: "ev-live", Start: day(10, 0), End: day(10, 30)})
	env.cal.busy = []gcal.BusyInterval{{Start: day(14, 0), End: day(15, 0)}}

	slots, err := env.svc.AvailableSlots(context.Background(), "alice", "intro", "2024-03-15", "UTC")
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}
	for _, s := range slots {
		if s.Start.Equal(day(10, 0)) {
			t.Fatal("booked slot offered")
		}
		if !s.Start.Before(day(14, 0)) && s.Start.Before(day(15, 0)) {
			t.Fatalf("slot %v overlaps calendar busy time", s)
		}
	}
	// 09:00-17:00 yields 16 half-hour slots; minus 1 booked, minus 2 busy.
	if len(slots) != 13 {
		t.Fatalf("len(slots) = %d, want 13", len(slots))
	}
}

func TestAvailableSlotsUnknownHost(t *testing.T) {
	env := newTestEnv("pro")
	_, err := env.svc.AvailableSlots(context.Background(), "nobody", "", "2024-03-15", "UTC")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestAvailableDates(t *testing.T) {
	env := newTestEnv("pro")
	dates, err := env.svc.AvailableDates(context.Background(), "alice", "", "2024-03-14", "2024-03-16", "UTC")
	if err != nil {
		t.Fatalf("AvailableDates: %v", err)
	}
	// Windows exist only on the 15th; the 14th is in the past anyway.
	if len(dates) != 1 || dates[0] != "2024-03-15" {
		t.Fatalf("dates = %v, want [2024-03-15]", dates)
	}
}

func TestQuotaStatus(t *testing.T) {
	env := newTestEnv("free")
	env.store.add(model.Booking{HostID: "host-1", Start: day(9, 0), End: day(9, 30)})

	q, err := env.svc.QuotaStatus(context.Background(), "host-1")
	if err != nil {
		t.Fatalf("QuotaStatus: %v", err)
	}
	if q.Tier != plans.TierFree || q.Limit != 2 || q.Used != 1 || q.Unlimited {
		t.Fatalf("quota = %+v, want free 1/2", q)
	}
	if q.Exceeded() {
		t.Fatal("1/2 should not be exceeded")
	}
}

func TestLoadHostPage(t *testing.T) {
	env := newTestEnv("pro")
	page, err := env.svc.LoadHostPage(context.Background(), "alice", "UTC")
	if err != nil {
		t.Fatalf("LoadHostPage: %v", err)
	}
	if page.Host.Slug != "alice" {
		t.Fatalf("host = %+v", page.Host)
	}
	if len(page.MeetingTypes) != 1 || page.MeetingTypes[0].Slug != "intro" {
		t.Fatalf("meeting types = %v", page.MeetingTypes)
	}
	// Windows exist only on 2024-03-15, which is inside the two-week range.
	if len(page.AvailableDates) != 1 || page.AvailableDates[0] != "2024-03-15" {
		t.Fatalf("dates = %v, want [2024-03-15]", page.AvailableDates)
	}
}

func TestLoadHostPageUnknownHost(t *testing.T) {
	env := newTestEnv("pro")
	if _, err := env.svc.LoadHostPage(context.Background(), "nobody", "UTC"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListHostBookingsCarriesGuestStatus(t *testing.T) {
	env := newTestEnv("pro")
	env.cal.events["ev-tent"] = gcal.Event{
		ID:     "ev-tent",
		Status: "confirmed",
		Attendees: []gcal.Attendee{
			{Email: "bob@x.com", ResponseStatus: gcal.StatusTentative},
		},
	}
	env.store.add(model.Booking{HostID: "host-1", GoogleEventID: "ev-tent", GuestEmail: "bob@x.com", Start: day(10, 0), End: day(10, 30), Status: "confirmed"})

	got, err := env.svc.ListHostBookings(context.Background(), "host-1")
	if err != nil {
		t.Fatalf("ListHostBookings: %v", err)
	}
	if len(got) != 1 || got[0].Status != "tentative" {
		t.Fatalf("got %+v, want one tentative booking", got)
	}
}

func TestCreateHonorsListingTimezoneAcrossMidnight(t *testing.T) {
	env := newTestEnv("pro")
	// An evening window for a US-based guest crosses midnight UTC. Slots
	// listed in the guest's zone are phased from 23:10Z; the same grid must
	// be rebuilt at commit even though the submitted timestamp is UTC.
	env.hosts.windows = []model.AvailabilityWindow{
		{Key: "w1", Start: day(23, 10), End: time.Date(2024, 3, 16, 2, 0, 0, 0, time.UTC)},
	}

	slots, err := env.svc.AvailableSlots(context.Background(), "alice", "intro", "2024-03-15", "America/New_York")
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}
	want := time.Date(2024, 3, 16, 0, 10, 0, 0, time.UTC)
	offered := false
	for _, s := range slots {
		if s.Start.Equal(want) {
			offered = true
		}
	}
	if !offered {
		t.Fatalf("slot starting %v not offered: %v", want, slots)
	}

	if _, err := env.svc.Create(context.Background(), CreateRequest{
		HostSlug:   "alice",
		TypeSlug:   "intro",
		GuestName:  "Bob",
		GuestEmail: "bob@example.com",
		Start:      want,
		Timezone:   "America/New_York",
	}); err != nil {
		t.Fatalf("Create rejected an offered slot: %v", err)
	}
}
