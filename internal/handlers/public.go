// Package handlers holds the HTTP surface: public booking-page endpoints
// and JWT-protected host endpoints. Routes use query parameters and
// method checks, one handler method per endpoint.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/arefin-dev/slotbook/internal/booking"
	"github.com/arefin-dev/slotbook/internal/interval"
	"github.com/arefin-dev/slotbook/internal/model"
)

// BookingService is the slice of the booking core the HTTP layer needs.
type BookingService interface {
	AvailableSlots(ctx context.Context, hostSlug, typeSlug, date, tz string) ([]interval.Interval, error)
	AvailableDates(ctx context.Context, hostSlug, typeSlug, from, to, tz string) ([]string, error)
	Create(ctx context.Context, req booking.CreateRequest) (model.Booking, error)
	Cancel(ctx context.Context, hostID, bookingID string) error
	ListHostBookings(ctx context.Context, hostID string) ([]model.Booking, error)
	QuotaStatus(ctx context.Context, hostID string) (booking.Quota, error)
	LoadHostPage(ctx context.Context, hostSlug, tz string) (booking.HostPage, error)
}

type PublicHandler struct {
	svc    BookingService
	logger *slog.Logger
}

func NewPublicHandler(svc BookingService, logger *slog.Logger) *PublicHandler {
	return &PublicHandler{svc: svc, logger: logger}
}

type slotItem struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type slotsResponse struct {
	Date  string     `json:"date"`
	Slots []slotItem `json:"slots"`
}

type datesResponse struct {
	Dates []string `json:"dates"`
}

type createBookingRequest struct {
	Host       string `json:"host"`
	Type       string `json:"type"`
	GuestName  string `json:"guest_name"`
	GuestEmail string `json:"guest_email"`
	Notes      string `json:"notes"`
	StartTime  string `json:"start_time"`
	Timezone   string `json:"tz"`
}

type bookingItem struct {
	BookingID  string `json:"booking_id"`
	GuestName  string `json:"guest_name"`
	GuestEmail string `json:"guest_email"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	MeetLink   string `json:"meet_link,omitempty"`
	Notes      string `json:"notes,omitempty"`
	Status     string `json:"status"`
}

func toBookingItem(b model.Booking) bookingItem {
	return bookingItem{
		BookingID:  b.ID,
		GuestName:  b.GuestName,
		GuestEmail: b.GuestEmail,
		StartTime:  b.Start.Format(time.RFC3339),
		EndTime:    b.End.Format(time.RFC3339),
		MeetLink:   b.MeetLink,
		Notes:      b.Notes,
		Status:     b.Status,
	}
}

// Slots serves GET /api/v1/public/slots?host=&type=&date=&tz=.
func (h *PublicHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	host := strings.TrimSpace(q.Get("host"))
	date := strings.TrimSpace(q.Get("date"))
	if host == "" || date == "" {
		http.Error(w, "host and date are required", http.StatusBadRequest)
		return
	}

	slots, err := h.svc.AvailableSlots(r.Context(), host, strings.TrimSpace(q.Get("type")), date, q.Get("tz"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := slotsResponse{Date: date, Slots: make([]slotItem, 0, len(slots))}
	for _, s := range slots {
		resp.Slots = append(resp.Slots, slotItem{
			StartTime: s.Start.Format(time.RFC3339),
			EndTime:   s.End.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// Dates serves GET /api/v1/public/dates?host=&type=&from=&to=&tz=.
func (h *PublicHandler) Dates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	host := strings.TrimSpace(q.Get("host"))
	from := strings.TrimSpace(q.Get("from"))
	to := strings.TrimSpace(q.Get("to"))
	if host == "" || from == "" || to == "" {
		http.Error(w, "host, from and to are required", http.StatusBadRequest)
		return
	}

	dates, err := h.svc.AvailableDates(r.Context(), host, strings.TrimSpace(q.Get("type")), from, to, q.Get("tz"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if dates == nil {
		dates = []string{}
	}
	writeJSON(w, http.StatusOK, datesResponse{Dates: dates})
}

type hostPageResponse struct {
	Name           string            `json:"name"`
	Slug           string            `json:"slug"`
	MeetingTypes   []meetingTypeItem `json:"meeting_types"`
	AvailableDates []string          `json:"available_dates"`
}

// HostPage serves GET /api/v1/public/host?slug=&tz=, the initial payload
// for a booking page.
func (h *PublicHandler) HostPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	slug := strings.TrimSpace(r.URL.Query().Get("slug"))
	if slug == "" {
		http.Error(w, "slug is required", http.StatusBadRequest)
		return
	}

	page, err := h.svc.LoadHostPage(r.Context(), slug, r.URL.Query().Get("tz"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := hostPageResponse{
		Name:           page.Host.Name,
		Slug:           page.Host.Slug,
		MeetingTypes:   make([]meetingTypeItem, 0, len(page.MeetingTypes)),
		AvailableDates: page.AvailableDates,
	}
	if resp.AvailableDates == nil {
		resp.AvailableDates = []string{}
	}
	for _, mt := range page.MeetingTypes {
		resp.MeetingTypes = append(resp.MeetingTypes, meetingTypeItem{
			ID:           mt.ID,
			Name:         mt.Name,
			Slug:         mt.Slug,
			Description:  mt.Description,
			DurationMins: mt.DurationMins,
			IsDefault:    mt.IsDefault,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// Book serves POST /api/v1/public/book.
func (h *PublicHandler) Book(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	req.Host = strings.TrimSpace(req.Host)
	req.GuestName = strings.TrimSpace(req.GuestName)
	req.GuestEmail = strings.TrimSpace(req.GuestEmail)
	if req.Host == "" || req.GuestName == "" || req.GuestEmail == "" {
		http.Error(w, "missing required fields", http.StatusBadRequest)
		return
	}

	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		http.Error(w, "invalid start_time", http.StatusBadRequest)
		return
	}

	b, err := h.svc.Create(r.Context(), booking.CreateRequest{
		HostSlug:   req.Host,
		TypeSlug:   strings.TrimSpace(req.Type),
		GuestName:  req.GuestName,
		GuestEmail: req.GuestEmail,
		Notes:      req.Notes,
		Start:      start,
		Timezone:   req.Timezone,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBookingItem(b))
}

func (h *PublicHandler) writeError(w http.ResponseWriter, err error) {
	writeServiceError(w, h.logger, err)
}

func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, booking.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, booking.ErrUnauthorized):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, booking.ErrSlotUnavailable):
		http.Error(w, "slot no longer available", http.StatusConflict)
	case errors.Is(err, booking.ErrQuotaExceeded):
		http.Error(w, "monthly booking limit reached", http.StatusPaymentRequired)
	default:
		logger.Error("request failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
