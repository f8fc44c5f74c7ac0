package storage

import (
	"context"
	"time"

	"github.com/arefin-dev/slotbook/internal/model"
	"github.com/arefin-dev/slotbook/internal/outbox"
	"github.com/arefin-dev/slotbook/libs/db"
)

type BookingRepository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewBookingRepository(pool *db.Pool, outboxRepo *outbox.Repository) *BookingRepository {
	return &BookingRepository{pool: pool, outbox: outboxRepo}
}

const bookingColumns = `id, host_id, COALESCE(meeting_type_id::text, ''), guest_name, guest_email,
	start_time, end_time, COALESCE(google_event_id, ''), COALESCE(meet_link, ''), COALESCE(notes, ''), status, created_at`

func scanBooking(row interface{ Scan(...any) error }) (model.Booking, error) {
	var b model.Booking
	err := row.Scan(&b.ID, &b.HostID, &b.MeetingTypeID, &b.GuestName, &b.GuestEmail,
		&b.Start, &b.End, &b.GoogleEventID, &b.MeetLink, &b.Notes, &b.Status, &b.CreatedAt)
	return b, err
}

// CreateWithEvent persists the booking and its created event in one
// transaction, returning the new booking id.
func (r *BookingRepository) CreateWithEvent(ctx context.Context, b *model.Booking) (string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id string
	err = tx.QueryRow(ctx, `
		INSERT INTO bookings
			(host_id, meeting_type_id, guest_name, guest_email, start_time, end_time, google_event_id, meet_link, notes, status)
		VALUES ($1, NULLIF($2, '')::uuid, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''), $10)
		RETURNING id
	`, b.HostID, b.MeetingTypeID, b.GuestName, b.GuestEmail, b.Start, b.End,
		b.GoogleEventID, b.MeetLink, b.Notes, b.Status).Scan(&id)
	if err != nil {
		return "", err
	}

	evt, err := outbox.BookingCreated(id, b.HostID, b.GuestEmail, b.Start, b.End, b.GoogleEventID)
	if err != nil {
		return "", err
	}
	if err := r.outbox.Insert(ctx, tx, evt); err != nil {
		return "", err
	}
	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return id, nil
}

// DeleteWithEvent removes the booking row and records the cancellation
// event in the same transaction. Deleting a row that is already gone is a
// no-op and emits nothing.
func (r *BookingRepository) DeleteWithEvent(ctx context.Context, b model.Booking) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `DELETE FROM bookings WHERE id = $1`, b.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return tx.Commit(ctx)
	}

	evt, err := outbox.BookingCancelled(b.ID, b.HostID, b.GuestEmail, b.Start, b.End)
	if err != nil {
		return err
	}
	if err := r.outbox.Insert(ctx, tx, evt); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *BookingRepository) Get(ctx context.Context, id string) (model.Booking, error) {
	return scanBooking(r.pool.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE id = $1
	`, id))
}

// ListInRange returns bookings overlapping [start, end).
func (r *BookingRepository) ListInRange(ctx context.Context, hostID string, start, end time.Time) ([]model.Booking, error) {
	return r.list(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE host_id = $1
			AND start_time < $3
			AND end_time > $2
		ORDER BY start_time ASC
	`, hostID, start, end)
}

func (r *BookingRepository) ListUpcoming(ctx context.Context, hostID string, now time.Time) ([]model.Booking, error) {
	return r.list(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE host_id = $1 AND end_time > $2
		ORDER BY start_time ASC
	`, hostID, now)
}

// CountInMonth counts bookings whose start falls in [monthStart, monthEnd).
func (r *BookingRepository) CountInMonth(ctx context.Context, hostID string, monthStart, monthEnd time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM bookings
		WHERE host_id = $1
			AND start_time >= $2
			AND start_time < $3
	`, hostID, monthStart, monthEnd).Scan(&n)
	return n, err
}

func (r *BookingRepository) list(ctx context.Context, query string, args ...any) ([]model.Booking, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return bookings, nil
}
