package storage

import (
	"context"

	"github.com/arefin-dev/slotbook/internal/model"
	"github.com/arefin-dev/slotbook/libs/db"
)

type HostRepository struct {
	pool *db.Pool
}

func NewHostRepository(pool *db.Pool) *HostRepository {
	return &HostRepository{pool: pool}
}

const hostColumns = `id, slug, name, email, plan, COALESCE(stripe_subscription_id, ''), created_at`

func (r *HostRepository) GetBySlug(ctx context.Context, slug string) (model.Host, error) {
	var h model.Host
	err := r.pool.QueryRow(ctx, `
		SELECT `+hostColumns+`
		FROM hosts
		WHERE slug = $1
	`, slug).Scan(&h.ID, &h.Slug, &h.Name, &h.Email, &h.Plan, &h.StripeSubscriptionID, &h.CreatedAt)
	if err != nil {
		return model.Host{}, err
	}
	return h, nil
}

func (r *HostRepository) GetByID(ctx context.Context, id string) (model.Host, error) {
	var h model.Host
	err := r.pool.QueryRow(ctx, `
		SELECT `+hostColumns+`
		FROM hosts
		WHERE id = $1
	`, id).Scan(&h.ID, &h.Slug, &h.Name, &h.Email, &h.Plan, &h.StripeSubscriptionID, &h.CreatedAt)
	if err != nil {
		return model.Host{}, err
	}
	return h, nil
}

func (r *HostRepository) ListAvailability(ctx context.Context, hostID string) ([]model.AvailabilityWindow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT key, start_time, end_time
		FROM availability_windows
		WHERE host_id = $1
		ORDER BY start_time ASC
	`, hostID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var windows []model.AvailabilityWindow
	for rows.Next() {
		var w model.AvailabilityWindow
		if err := rows.Scan(&w.Key, &w.Start, &w.End); err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return windows, nil
}

// ReplaceAvailability swaps the host's full window set in one transaction.
// Saves are whole-set: the caller merges before persisting.
func (r *HostRepository) ReplaceAvailability(ctx context.Context, hostID string, windows []model.AvailabilityWindow) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM availability_windows WHERE host_id = $1`, hostID); err != nil {
		return err
	}
	for _, w := range windows {
		_, err := tx.Exec(ctx, `
			INSERT INTO availability_windows (key, host_id, start_time, end_time)
			VALUES ($1, $2, $3, $4)
		`, w.Key, hostID, w.Start, w.End)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
