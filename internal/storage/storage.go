// Package storage holds the pgx-backed repositories. Each repository owns
// one aggregate; transactions that span aggregates (booking + outbox) are
// opened and committed inside the repository that anchors the write.
package storage

import (
	"errors"

	"github.com/jackc/pgx/v5"
)

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
