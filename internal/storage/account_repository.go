package storage

import (
	"context"
	"time"

	"github.com/arefin-dev/slotbook/internal/model"
	"github.com/arefin-dev/slotbook/libs/db"
)

type AccountRepository struct {
	pool *db.Pool
}

func NewAccountRepository(pool *db.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

const accountColumns = `key, host_id, account_id, email, COALESCE(access_token, ''), COALESCE(refresh_token, ''), COALESCE(token_expiry, 'epoch'::timestamptz), is_default`

func scanAccount(row interface{ Scan(...any) error }) (model.ConnectedAccount, error) {
	var a model.ConnectedAccount
	err := row.Scan(&a.Key, &a.HostID, &a.AccountID, &a.Email, &a.AccessToken, &a.RefreshToken, &a.Expiry, &a.IsDefault)
	return a, err
}

func (r *AccountRepository) ListByHost(ctx context.Context, hostID string) ([]model.ConnectedAccount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+accountColumns+`
		FROM connected_accounts
		WHERE host_id = $1
		ORDER BY created_at ASC
	`, hostID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []model.ConnectedAccount
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return accounts, nil
}

// DefaultForHost returns the host's default account. When drift has left
// several rows flagged default, the oldest wins.
func (r *AccountRepository) DefaultForHost(ctx context.Context, hostID string) (model.ConnectedAccount, error) {
	return scanAccount(r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM connected_accounts
		WHERE host_id = $1 AND is_default = true
		ORDER BY created_at ASC
		LIMIT 1
	`, hostID))
}

func (r *AccountRepository) Get(ctx context.Context, hostID, key string) (model.ConnectedAccount, error) {
	return scanAccount(r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM connected_accounts
		WHERE host_id = $1 AND key = $2
	`, hostID, key))
}

// SetDefault flips the default flag to the given account. The two updates
// run without a transaction; a failure between them leaves no default,
// which readers must already tolerate.
func (r *AccountRepository) SetDefault(ctx context.Context, hostID, key string) error {
	if _, err := r.pool.Exec(ctx, `
		UPDATE connected_accounts SET is_default = false
		WHERE host_id = $1 AND is_default = true
	`, hostID); err != nil {
		return err
	}
	_, err := r.pool.Exec(ctx, `
		UPDATE connected_accounts SET is_default = true
		WHERE host_id = $1 AND key = $2
	`, hostID, key)
	return err
}

// Delete removes the account. If it was the default, the oldest remaining
// account is promoted.
func (r *AccountRepository) Delete(ctx context.Context, hostID, key string) error {
	var wasDefault bool
	err := r.pool.QueryRow(ctx, `
		DELETE FROM connected_accounts
		WHERE host_id = $1 AND key = $2
		RETURNING is_default
	`, hostID, key).Scan(&wasDefault)
	if err != nil {
		return err
	}
	if !wasDefault {
		return nil
	}
	_, err = r.pool.Exec(ctx, `
		UPDATE connected_accounts SET is_default = true
		WHERE key = (
			SELECT key FROM connected_accounts
			WHERE host_id = $1
			ORDER BY created_at ASC
			LIMIT 1
		)
	`, hostID)
	return err
}

// SaveTokens persists a refreshed access token. Implements the calendar
// client's token store.
func (r *AccountRepository) SaveTokens(ctx context.Context, accountKey, accessToken string, expiry time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE connected_accounts
		SET access_token = $2,
			token_expiry = $3,
			updated_at = now()
		WHERE key = $1
	`, accountKey, accessToken, expiry)
	return err
}
