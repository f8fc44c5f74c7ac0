// Package gcal is the Google Calendar collaborator: event queries, event
// lifecycle, busy-time aggregation, and token refresh for connected
// accounts. Everything here treats the remote API as fallible; callers
// decide which failures are fatal.
package gcal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/arefin-dev/slotbook/internal/model"
)

// ErrEventGone marks an event that no longer exists upstream (deleted or
// expired). Callers distinguish it from transient failures via errors.Is.
var ErrEventGone = errors.New("calendar event gone")

const (
	calendarID         = "primary"
	tokenRefreshLeeway = time.Minute
	revokeURL          = "https://oauth2.googleapis.com/revoke"
)

// TokenStore persists refreshed access tokens for a connected account.
type TokenStore interface {
	SaveTokens(ctx context.Context, accountKey, accessToken string, expiry time.Time) error
}

type Client struct {
	clientID     string
	clientSecret string
	tokens       TokenStore
	logger       *slog.Logger
}

func New(clientID, clientSecret string, tokens TokenStore, logger *slog.Logger) *Client {
	return &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		tokens:       tokens,
		logger:       logger,
	}
}

func (c *Client) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.clientID,
		ClientSecret: c.clientSecret,
		Endpoint:     google.Endpoint,
		Scopes: []string{
			calendar.CalendarReadonlyScope,
			calendar.CalendarEventsScope,
		},
	}
}

// service builds an authenticated calendar service for the account,
// refreshing the access token when it is within a minute of expiry and
// persisting the refreshed token.
func (c *Client) service(ctx context.Context, account model.ConnectedAccount) (*calendar.Service, error) {
	tok := &oauth2.Token{
		AccessToken:  account.AccessToken,
		RefreshToken: account.RefreshToken,
		Expiry:       account.Expiry,
	}

	if !account.Expiry.IsZero() && time.Until(account.Expiry) < tokenRefreshLeeway {
		fresh, err := c.oauthConfig().TokenSource(ctx, tok).Token()
		if err != nil {
			return nil, fmt.Errorf("refresh token for %s: %w", account.Email, err)
		}
		if fresh.AccessToken != account.AccessToken && c.tokens != nil {
			if err := c.tokens.SaveTokens(ctx, account.Key, fresh.AccessToken, fresh.Expiry); err != nil {
				c.logger.Warn("failed to persist refreshed token", "err", err, "account", account.Email)
			}
		}
		tok = fresh
	}

	return calendar.NewService(ctx, option.WithTokenSource(oauth2.StaticTokenSource(tok)))
}

// ListEvents returns the account's non-all-day events in [timeMin, timeMax).
func (c *Client) ListEvents(ctx context.Context, account model.ConnectedAccount, timeMin, timeMax time.Time) ([]Event, error) {
	svc, err := c.service(ctx, account)
	if err != nil {
		return nil, err
	}

	resp, err := svc.Events.List(calendarID).
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		SingleEvents(true).
		ShowDeleted(false).
		OrderBy("startTime").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("list events for %s: %w", account.Email, err)
	}

	var events []Event
	for _, item := range resp.Items {
		// All-day events carry Date instead of DateTime and do not block slots.
		if item.Start == nil || item.Start.DateTime == "" || item.End == nil || item.End.DateTime == "" {
			continue
		}
		start, err := time.Parse(time.RFC3339, item.Start.DateTime)
		if err != nil {
			continue
		}
		end, err := time.Parse(time.RFC3339, item.End.DateTime)
		if err != nil {
			continue
		}
		events = append(events, Event{
			ID:      item.Id,
			Status:  item.Status,
			Summary: item.Summary,
			Start:   start,
			End:     end,
		})
	}
	return events, nil
}

// GetEvent fetches a single event. Deleted events yield an error wrapping
// ErrEventGone.
func (c *Client) GetEvent(ctx context.Context, account model.ConnectedAccount, eventID string) (Event, error) {
	svc, err := c.service(ctx, account)
	if err != nil {
		return Event{}, err
	}

	item, err := svc.Events.Get(calendarID, eventID).Context(ctx).Do()
	if err != nil {
		if isGoneStatus(err) {
			return Event{}, fmt.Errorf("event %s: %w", eventID, ErrEventGone)
		}
		return Event{}, fmt.Errorf("get event %s: %w", eventID, err)
	}

	ev := Event{
		ID:      item.Id,
		Status:  item.Status,
		Summary: item.Summary,
	}
	for _, a := range item.Attendees {
		ev.Attendees = append(ev.Attendees, Attendee{
			Email:          a.Email,
			ResponseStatus: a.ResponseStatus,
		})
	}
	return ev, nil
}

// InsertEvent creates a calendar event with a Meet conference request. The
// host attends pre-accepted (they are the organizer); the guest receives an
// invite via sendUpdates.
func (c *Client) InsertEvent(ctx context.Context, account model.ConnectedAccount, req InsertRequest) (CreatedEvent, error) {
	svc, err := c.service(ctx, account)
	if err != nil {
		return CreatedEvent{}, err
	}

	ev := &calendar.Event{
		Summary:     req.Summary,
		Description: req.Description,
		Start:       &calendar.EventDateTime{DateTime: req.Start.Format(time.RFC3339)},
		End:         &calendar.EventDateTime{DateTime: req.End.Format(time.RFC3339)},
		Attendees: []*calendar.EventAttendee{
			{Email: req.HostEmail, ResponseStatus: StatusAccepted},
			{Email: req.GuestEmail},
		},
		ConferenceData: &calendar.ConferenceData{
			CreateRequest: &calendar.CreateConferenceRequest{
				RequestId:             "booking-" + uuid.NewString(),
				ConferenceSolutionKey: &calendar.ConferenceSolutionKey{Type: "hangoutsMeet"},
			},
		},
	}

	created, err := svc.Events.Insert(calendarID, ev).
		SendUpdates("all").
		ConferenceDataVersion(1).
		Context(ctx).Do()
	if err != nil {
		return CreatedEvent{}, fmt.Errorf("insert event: %w", err)
	}
	return CreatedEvent{ID: created.Id, MeetLink: created.HangoutLink}, nil
}

// DeleteEvent removes the event, sending cancellation updates to attendees.
// Deleting an already-gone event is a no-op.
func (c *Client) DeleteEvent(ctx context.Context, account model.ConnectedAccount, eventID string) error {
	svc, err := c.service(ctx, account)
	if err != nil {
		return err
	}

	err = svc.Events.Delete(calendarID, eventID).SendUpdates("all").Context(ctx).Do()
	if err != nil && !isGoneStatus(err) {
		return fmt.Errorf("delete event %s: %w", eventID, err)
	}
	return nil
}

// BusyIntervals aggregates busy time across the given accounts. Accounts
// without usable tokens are skipped; per-account fetch failures are logged
// and skipped rather than failing the whole aggregation.
func (c *Client) BusyIntervals(ctx context.Context, accounts []model.ConnectedAccount, from, to time.Time) []BusyInterval {
	var busy []BusyInterval
	for _, account := range accounts {
		if !account.HasTokens() {
			continue
		}
		events, err := c.ListEvents(ctx, account, from, to)
		if err != nil {
			c.logger.Warn("busy interval fetch failed", "err", err, "account", account.Email)
			continue
		}
		for _, ev := range events {
			title := ev.Summary
			if title == "" {
				title = "Busy"
			}
			busy = append(busy, BusyInterval{
				Start:        ev.Start,
				End:          ev.End,
				AccountEmail: account.Email,
				Title:        title,
			})
		}
	}
	return busy
}

// RevokeToken invalidates an access token with Google. Best effort; the
// token expires on its own if revocation fails.
func (c *Client) RevokeToken(ctx context.Context, accessToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		revokeURL+"?token="+url.QueryEscape(accessToken), nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	return nil
}

func isGoneStatus(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone
	}
	return false
}
