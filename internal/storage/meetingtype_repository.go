package storage

import (
	"context"

	"github.com/arefin-dev/slotbook/internal/model"
	"github.com/arefin-dev/slotbook/libs/db"
)

type MeetingTypeRepository struct {
	pool *db.Pool
}

func NewMeetingTypeRepository(pool *db.Pool) *MeetingTypeRepository {
	return &MeetingTypeRepository{pool: pool}
}

const meetingTypeColumns = `id, host_id, name, slug, COALESCE(description, ''), duration_mins, is_default, created_at`

func scanMeetingType(row interface{ Scan(...any) error }) (model.MeetingType, error) {
	var mt model.MeetingType
	err := row.Scan(&mt.ID, &mt.HostID, &mt.Name, &mt.Slug, &mt.Description, &mt.DurationMins, &mt.IsDefault, &mt.CreatedAt)
	return mt, err
}

func (r *MeetingTypeRepository) Create(ctx context.Context, mt *model.MeetingType) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO meeting_types (host_id, name, slug, description, duration_mins, is_default)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)
		RETURNING id
	`, mt.HostID, mt.Name, mt.Slug, mt.Description, mt.DurationMins, mt.IsDefault).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *MeetingTypeRepository) ListByHost(ctx context.Context, hostID string) ([]model.MeetingType, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+meetingTypeColumns+`
		FROM meeting_types
		WHERE host_id = $1
		ORDER BY created_at ASC
	`, hostID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var types []model.MeetingType
	for rows.Next() {
		mt, err := scanMeetingType(rows)
		if err != nil {
			return nil, err
		}
		types = append(types, mt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return types, nil
}

func (r *MeetingTypeRepository) GetBySlugs(ctx context.Context, hostSlug, typeSlug string) (model.MeetingType, error) {
	return scanMeetingType(r.pool.QueryRow(ctx, `
		SELECT mt.id, mt.host_id, mt.name, mt.slug, COALESCE(mt.description, ''), mt.duration_mins, mt.is_default, mt.created_at
		FROM meeting_types mt
		JOIN hosts h ON h.id = mt.host_id
		WHERE h.slug = $1 AND mt.slug = $2
	`, hostSlug, typeSlug))
}
