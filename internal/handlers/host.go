package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arefin-dev/slotbook/internal/interval"
	"github.com/arefin-dev/slotbook/internal/model"
	"github.com/arefin-dev/slotbook/internal/storage"
	"github.com/arefin-dev/slotbook/libs/auth"
)

// TokenRevoker invalidates an external account's access token on
// disconnect. Satisfied by *gcal.Client.
type TokenRevoker interface {
	RevokeToken(ctx context.Context, accessToken string) error
}

type HostHandler struct {
	svc          BookingService
	hosts        *storage.HostRepository
	accounts     *storage.AccountRepository
	meetingTypes *storage.MeetingTypeRepository
	revoker      TokenRevoker
	jwtSecret    string
	logger       *slog.Logger
}

func NewHostHandler(svc BookingService, hosts *storage.HostRepository, accounts *storage.AccountRepository, meetingTypes *storage.MeetingTypeRepository, revoker TokenRevoker, jwtSecret string, logger *slog.Logger) *HostHandler {
	return &HostHandler{
		svc:          svc,
		hosts:        hosts,
		accounts:     accounts,
		meetingTypes: meetingTypes,
		revoker:      revoker,
		jwtSecret:    jwtSecret,
		logger:       logger,
	}
}

// hostID authenticates the request and returns the caller's host id, or ""
// after writing a 401.
func (h *HostHandler) hostID(w http.ResponseWriter, r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		http.Error(w, "missing or invalid Authorization header", http.StatusUnauthorized)
		return ""
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	claims, err := auth.ParseAndVerifyHS256(token, h.jwtSecret)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return ""
	}
	return claims.Sub
}

// Bookings serves GET /api/v1/bookings. The list is reconciled against the
// external calendar on every read.
func (h *HostHandler) Bookings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	hostID := h.hostID(w, r)
	if hostID == "" {
		return
	}

	bookings, err := h.svc.ListHostBookings(r.Context(), hostID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	items := make([]bookingItem, 0, len(bookings))
	for _, b := range bookings {
		items = append(items, toBookingItem(b))
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": items})
}

type cancelRequest struct {
	BookingID string `json:"booking_id"`
}

// CancelBooking serves POST /api/v1/bookings/cancel.
func (h *HostHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	hostID := h.hostID(w, r)
	if hostID == "" {
		return
	}

	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.BookingID) == "" {
		http.Error(w, "booking_id is required", http.StatusBadRequest)
		return
	}
	if err := h.svc.Cancel(r.Context(), hostID, strings.TrimSpace(req.BookingID)); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"booking_id": req.BookingID, "status": "cancelled"})
}

type windowItem struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type availabilityPayload struct {
	Windows []windowItem `json:"windows"`
}

// Availability serves GET and PUT /api/v1/availability. PUT replaces the
// whole window set; overlapping and touching windows are merged before
// persisting.
func (h *HostHandler) Availability(w http.ResponseWriter, r *http.Request) {
	hostID := h.hostID(w, r)
	if hostID == "" {
		return
	}

	switch r.Method {
	case http.MethodGet:
		windows, err := h.hosts.ListAvailability(r.Context(), hostID)
		if err != nil {
			h.logger.Error("availability list failed", "err", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		payload := availabilityPayload{Windows: make([]windowItem, 0, len(windows))}
		for _, win := range windows {
			payload.Windows = append(payload.Windows, windowItem{
				StartTime: win.Start.Format(time.RFC3339),
				EndTime:   win.End.Format(time.RFC3339),
			})
		}
		writeJSON(w, http.StatusOK, payload)

	case http.MethodPut:
		var payload availabilityPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}

		ivs := make([]interval.Interval, 0, len(payload.Windows))
		for _, win := range payload.Windows {
			start, err := time.Parse(time.RFC3339, win.StartTime)
			if err != nil {
				http.Error(w, "invalid start_time", http.StatusBadRequest)
				return
			}
			end, err := time.Parse(time.RFC3339, win.EndTime)
			if err != nil {
				http.Error(w, "invalid end_time", http.StatusBadRequest)
				return
			}
			if !end.After(start) {
				http.Error(w, "end_time must be after start_time", http.StatusBadRequest)
				return
			}
			ivs = append(ivs, interval.Interval{Start: start, End: end})
		}

		merged := interval.MergeAll(ivs)
		windows := make([]model.AvailabilityWindow, 0, len(merged))
		for _, iv := range merged {
			windows = append(windows, model.AvailabilityWindow{
				Key:   uuid.NewString(),
				Start: iv.Start,
				End:   iv.End,
			})
		}
		if err := h.hosts.ReplaceAvailability(r.Context(), hostID, windows); err != nil {
			h.logger.Error("availability replace failed", "err", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"saved": len(windows)})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// Quota serves GET /api/v1/quota.
func (h *HostHandler) Quota(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	hostID := h.hostID(w, r)
	if hostID == "" {
		return
	}

	q, err := h.svc.QuotaStatus(r.Context(), hostID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	remaining := 0
	if !q.Unlimited && q.Limit > q.Used {
		remaining = q.Limit - q.Used
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tier":      q.Tier,
		"limit":     q.Limit,
		"used":      q.Used,
		"remaining": remaining,
		"unlimited": q.Unlimited,
		"exceeded":  q.Exceeded(),
	})
}

type accountItem struct {
	Key       string `json:"key"`
	Email     string `json:"email"`
	IsDefault bool   `json:"is_default"`
	Connected bool   `json:"connected"`
}

// Accounts serves GET /api/v1/accounts.
func (h *HostHandler) Accounts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	hostID := h.hostID(w, r)
	if hostID == "" {
		return
	}

	accounts, err := h.accounts.ListByHost(r.Context(), hostID)
	if err != nil {
		h.logger.Error("account list failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	items := make([]accountItem, 0, len(accounts))
	for i := range accounts {
		a := accounts[i]
		items = append(items, accountItem{
			Key:       a.Key,
			Email:     a.Email,
			IsDefault: a.IsDefault,
			Connected: a.HasTokens(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"accounts": items})
}

type accountKeyRequest struct {
	Key string `json:"key"`
}

// SetDefaultAccount serves POST /api/v1/accounts/default.
func (h *HostHandler) SetDefaultAccount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	hostID := h.hostID(w, r)
	if hostID == "" {
		return
	}

	var req accountKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Key) == "" {
		http.Error(w, "key is required", http.StatusBadRequest)
		return
	}
	if _, err := h.accounts.Get(r.Context(), hostID, req.Key); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "account not found", http.StatusNotFound)
			return
		}
		h.logger.Error("account lookup failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if err := h.accounts.SetDefault(r.Context(), hostID, req.Key); err != nil {
		h.logger.Error("set default account failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"default": req.Key})
}

// DisconnectAccount serves POST /api/v1/accounts/disconnect. The token is
// revoked best effort before the record is removed; if the account was the
// default, the oldest remaining one is promoted.
func (h *HostHandler) DisconnectAccount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	hostID := h.hostID(w, r)
	if hostID == "" {
		return
	}

	var req accountKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Key) == "" {
		http.Error(w, "key is required", http.StatusBadRequest)
		return
	}

	account, err := h.accounts.Get(r.Context(), hostID, req.Key)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "account not found", http.StatusNotFound)
			return
		}
		h.logger.Error("account lookup failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if account.AccessToken != "" && h.revoker != nil {
		if err := h.revoker.RevokeToken(r.Context(), account.AccessToken); err != nil {
			h.logger.Warn("token revoke failed", "err", err, "account", account.Email)
		}
	}
	if err := h.accounts.Delete(r.Context(), hostID, req.Key); err != nil {
		h.logger.Error("account delete failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"disconnected": req.Key})
}

func allowedDuration(mins int) bool {
	switch mins {
	case 15, 30, 45, 60, 90:
		return true
	}
	return false
}

type meetingTypeItem struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	Description  string `json:"description,omitempty"`
	DurationMins int    `json:"duration_mins"`
	IsDefault    bool   `json:"is_default"`
}

type createMeetingTypeRequest struct {
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	Description  string `json:"description"`
	DurationMins int    `json:"duration_mins"`
	IsDefault    bool   `json:"is_default"`
}

// MeetingTypes serves GET and POST /api/v1/meeting-types.
func (h *HostHandler) MeetingTypes(w http.ResponseWriter, r *http.Request) {
	hostID := h.hostID(w, r)
	if hostID == "" {
		return
	}

	switch r.Method {
	case http.MethodGet:
		types, err := h.meetingTypes.ListByHost(r.Context(), hostID)
		if err != nil {
			h.logger.Error("meeting type list failed", "err", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		items := make([]meetingTypeItem, 0, len(types))
		for _, mt := range types {
			items = append(items, meetingTypeItem{
				ID:           mt.ID,
				Name:         mt.Name,
				Slug:         mt.Slug,
				Description:  mt.Description,
				DurationMins: mt.DurationMins,
				IsDefault:    mt.IsDefault,
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"meeting_types": items})

	case http.MethodPost:
		var req createMeetingTypeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		req.Slug = strings.TrimSpace(req.Slug)
		if req.Name == "" || req.Slug == "" {
			http.Error(w, "name and slug are required", http.StatusBadRequest)
			return
		}
		if !allowedDuration(req.DurationMins) {
			http.Error(w, "duration_mins must be one of 15, 30, 45, 60, 90", http.StatusBadRequest)
			return
		}
		mt := &model.MeetingType{
			HostID:       hostID,
			Name:         req.Name,
			Slug:         req.Slug,
			Description:  strings.TrimSpace(req.Description),
			DurationMins: req.DurationMins,
			IsDefault:    req.IsDefault,
		}
		id, err := h.meetingTypes.Create(r.Context(), mt)
		if err != nil {
			h.logger.Error("meeting type create failed", "err", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": id})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
