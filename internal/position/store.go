// Package position is the append-only log of drone position samples.
package position

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/skyguard/fleet-backend/internal/db"
	"github.com/skyguard/fleet-backend/internal/errs"
)

// Postgres resolves the latest row per entity with DISTINCT ON, then orders
// the survivors freshest first.
const latestPostgres = `
SELECT * FROM (
	SELECT DISTINCT ON (entity_id) id, entity_id, latitude, longitude, created_at, pilot_id
	FROM drones
	ORDER BY entity_id, created_at DESC, id DESC
) latest
ORDER BY created_at DESC, id DESC`

// A row is latest when no row of the same entity is newer, or equally new
// and inserted later.
const latestPortable = `
SELECT d.id, d.entity_id, d.latitude, d.longitude, d.created_at, d.pilot_id
FROM drones d
WHERE NOT EXISTS (
	SELECT 1 FROM drones n
	WHERE n.entity_id = d.entity_id
	  AND (n.created_at > d.created_at OR (n.created_at = d.created_at AND n.id > d.id))
)
ORDER BY d.created_at DESC, d.id DESC`

// Store is safe for concurrent use; uniqueness of (entity_id, created_at) is
// enforced by the database.
type Store struct {
	db      *gorm.DB
	timeout time.Duration
	latest  string
}

// NewStore wraps gdb. Each call runs under timeout when it is positive.
func NewStore(gdb *gorm.DB, timeout time.Duration) *Store {
	latest := latestPortable
	if db.IsPostgres(gdb) {
		latest = latestPostgres
	}
	return &Store{db: gdb, timeout: timeout, latest: latest}
}

// Migrate creates the drones table and its indexes.
func (s *Store) Migrate(ctx context.Context) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return errs.FromStore("migrate drones", s.db.WithContext(ctx).AutoMigrate(&Drone{}))
}

// Append inserts sample. A sample whose (entity, observed_at) already exists
// is ignored and reported with inserted == false.
func (s *Store) Append(ctx context.Context, sample Sample) (inserted bool, err error) {
	if err := sample.Validate(); err != nil {
		return false, err
	}
	row := Drone{
		EntityID:  strings.TrimSpace(sample.EntityID),
		Latitude:  sample.Latitude,
		Longitude: sample.Longitude,
		CreatedAt: NormalizeTime(sample.ObservedAt),
		PilotID:   sample.PilotID,
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "entity_id"}, {Name: "created_at"}},
			DoNothing: true,
		}).
		Create(&row)
	if res.Error != nil {
		return false, errs.FromStore("append sample", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// LatestByEntity returns the newest sample of every entity, freshest first.
func (s *Store) LatestByEntity(ctx context.Context) ([]Sample, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var rows []Drone
	if err := s.db.WithContext(ctx).Raw(s.latest).Scan(&rows).Error; err != nil {
		return nil, errs.FromStore("latest positions", err)
	}
	return samples(rows), nil
}

// History returns the samples of one entity, newest first. limit <= 0
// returns all of them.
func (s *Store) History(ctx context.Context, entityID string, limit int) ([]Sample, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	q := s.db.WithContext(ctx).
		Where("entity_id = ?", strings.TrimSpace(entityID)).
		Order("created_at DESC").
		Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []Drone
	if err := q.Find(&rows).Error; err != nil {
		return nil, errs.FromStore("drone history", err)
	}
	return samples(rows), nil
}

// RemoveEntity deletes every sample of entityID and reports how many were
// removed. Removing an unknown entity is not an error.
func (s *Store) RemoveEntity(ctx context.Context, entityID string) (int64, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	res := s.db.WithContext(ctx).
		Where("entity_id = ?", strings.TrimSpace(entityID)).
		Delete(&Drone{})
	if res.Error != nil {
		return 0, errs.FromStore("remove drone", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *Store) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func samples(rows []Drone) []Sample {
	out := make([]Sample, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.sample())
	}
	return out
}
