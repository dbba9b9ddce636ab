// Package fleet composes the position store, pilot registry and zone catalog
// into the fleet view, and is the only write path into the stores.
package fleet

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/skyguard/fleet-backend/internal/config"
	"github.com/skyguard/fleet-backend/internal/errs"
	"github.com/skyguard/fleet-backend/internal/freshness"
	"github.com/skyguard/fleet-backend/internal/geofence"
	"github.com/skyguard/fleet-backend/internal/pilot"
	"github.com/skyguard/fleet-backend/internal/position"
)

// Cache keys for the two cached views.
const (
	KeyLatest = "fleet:latest"
	KeyPilots = "pilots:all"
)

type PositionStore interface {
	Append(ctx context.Context, s position.Sample) (bool, error)
	LatestByEntity(ctx context.Context) ([]position.Sample, error)
	History(ctx context.Context, entityID string, limit int) ([]position.Sample, error)
	RemoveEntity(ctx context.Context, entityID string) (int64, error)
}

type PilotRegistry interface {
	Register(ctx context.Context, in pilot.Registration) (uuid.UUID, bool, error)
	ListAll(ctx context.Context) ([]pilot.Pilot, error)
	GetByID(ctx context.Context, id uuid.UUID) (pilot.Pilot, error)
}

type ZoneCatalog interface {
	geofence.Evaluator
	Zones() []geofence.Zone
}

// DroneInput is a position report submitted by an operator.
type DroneInput struct {
	EntityID  string     `json:"entity_id"`
	Latitude  *float64   `json:"latitude"`
	Longitude *float64   `json:"longitude"`
	PilotID   *uuid.UUID `json:"pilot_id,omitempty"`
}

// Service is safe for concurrent use.
type Service struct {
	positions PositionStore
	pilots    PilotRegistry
	zones     ZoneCatalog
	cache     *freshness.Cache

	ttl time.Duration
	now func() time.Time
	log *slog.Logger
}

type Option func(*Service)

// WithTTL sets how old a cached view may be when served.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) { s.ttl = ttl }
}

// WithClock replaces time.Now for stamping new samples.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(lg *slog.Logger) Option {
	return func(s *Service) { s.log = lg }
}

func NewService(positions PositionStore, pilots PilotRegistry, zones ZoneCatalog, cache *freshness.Cache, opts ...Option) *Service {
	s := &Service{
		positions: positions,
		pilots:    pilots,
		zones:     zones,
		cache:     cache,
		ttl:       config.DefaultCacheTTL,
		now:       time.Now,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "fleet")
	return s
}

// FleetView returns the latest position of every drone, freshest first, with
// its pilot and violated zones. Both inputs come through the cache.
//
// If the pilot list cannot be loaded the view is still returned, without
// pilot details; only a position failure fails the call.
func (s *Service) FleetView(ctx context.Context) ([]Entry, error) {
	latest, err := freshness.Fetch(ctx, s.cache, KeyLatest, s.ttl, s.positions.LatestByEntity)
	if err != nil {
		return nil, err
	}
	pilots, err := s.listPilots(ctx)
	if err != nil {
		s.log.Warn("fleet view without pilot details", "error", err)
		pilots = nil
	}
	return BuildView(latest, pilots, s.zones), nil
}

// PilotOptions returns every pilot's summary in name order.
func (s *Service) PilotOptions(ctx context.Context) ([]pilot.Summary, error) {
	pilots, err := s.listPilots(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]pilot.Summary, 0, len(pilots))
	for _, p := range pilots {
		out = append(out, p.Summary())
	}
	return out, nil
}

func (s *Service) listPilots(ctx context.Context) ([]pilot.Pilot, error) {
	return freshness.Fetch(ctx, s.cache, KeyPilots, s.ttl, s.pilots.ListAll)
}

// AddDrone records a position observed now. A pilot reference must name a
// registered pilot.
func (s *Service) AddDrone(ctx context.Context, in DroneInput) (position.Sample, error) {
	// A missing coordinate must not decode into a real position at 0.
	if in.Latitude == nil {
		return position.Sample{}, errs.Invalid("latitude", "is required")
	}
	if in.Longitude == nil {
		return position.Sample{}, errs.Invalid("longitude", "is required")
	}
	sample := position.Sample{
		EntityID:   strings.TrimSpace(in.EntityID),
		Latitude:   *in.Latitude,
		Longitude:  *in.Longitude,
		ObservedAt: position.NormalizeTime(s.now()),
		PilotID:    in.PilotID,
	}
	if err := sample.Validate(); err != nil {
		return position.Sample{}, err
	}
	if in.PilotID != nil {
		if _, err := s.pilots.GetByID(ctx, *in.PilotID); err != nil {
			return position.Sample{}, err
		}
	}

	inserted, err := s.positions.Append(ctx, sample)
	if err != nil {
		return position.Sample{}, err
	}
	s.cache.Invalidate(KeyLatest)
	s.log.Info("drone position recorded",
		"entity_id", sample.EntityID,
		"lat", sample.Latitude,
		"lon", sample.Longitude,
		"inserted", inserted,
	)
	return sample, nil
}

// RemoveDrone deletes all history of entityID. Removing an unknown drone
// succeeds.
func (s *Service) RemoveDrone(ctx context.Context, entityID string) error {
	entityID = strings.TrimSpace(entityID)
	if entityID == "" {
		return errs.Invalid("entity_id", "must not be empty")
	}
	n, err := s.positions.RemoveEntity(ctx, entityID)
	if err != nil {
		return err
	}
	s.cache.Invalidate(KeyLatest)
	s.log.Info("drone removed", "entity_id", entityID, "samples", n)
	return nil
}

// RegisterPilot registers a pilot, or returns the id already held by the
// email.
func (s *Service) RegisterPilot(ctx context.Context, in pilot.Registration) (uuid.UUID, bool, error) {
	id, created, err := s.pilots.Register(ctx, in)
	if err != nil {
		return uuid.Nil, false, err
	}
	if created {
		s.cache.Invalidate(KeyPilots)
		s.log.Info("pilot registered", "pilot_id", id)
	}
	return id, created, nil
}

func (s *Service) Pilot(ctx context.Context, id uuid.UUID) (pilot.Pilot, error) {
	return s.pilots.GetByID(ctx, id)
}

// DroneHistory returns up to limit samples of entityID, newest first.
func (s *Service) DroneHistory(ctx context.Context, entityID string, limit int) ([]position.Sample, error) {
	entityID = strings.TrimSpace(entityID)
	if entityID == "" {
		return nil, errs.Invalid("entity_id", "must not be empty")
	}
	return s.positions.History(ctx, entityID, limit)
}

// Zones returns the restricted zone catalog for map overlays.
func (s *Service) Zones() []geofence.Zone {
	return s.zones.Zones()
}

// Refresh drops every cached view.
func (s *Service) Refresh() {
	s.cache.InvalidateAll()
	s.log.Info("cached views dropped")
}

// ViewAge reports how old the cached fleet view is.
func (s *Service) ViewAge() (time.Duration, bool) {
	return s.cache.Age(KeyLatest)
}
