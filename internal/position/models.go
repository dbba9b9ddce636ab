package position

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/skyguard/fleet-backend/internal/errs"
)

const maxEntityIDLen = 50

// Sample is one timestamped position report for a drone.
type Sample struct {
	EntityID   string     `json:"entity_id"`
	Latitude   float64    `json:"latitude"`
	Longitude  float64    `json:"longitude"`
	ObservedAt time.Time  `json:"observed_at"`
	PilotID    *uuid.UUID `json:"pilot_id,omitempty"`
}

// Validate checks the write-boundary rules for a sample.
func (s Sample) Validate() error {
	id := strings.TrimSpace(s.EntityID)
	if id == "" {
		return errs.Invalid("entity_id", "must not be empty")
	}
	if utf8.RuneCountInString(id) > maxEntityIDLen {
		return errs.Invalid("entity_id", "longer than %d characters", maxEntityIDLen)
	}
	if math.IsNaN(s.Latitude) || s.Latitude < -90 || s.Latitude > 90 {
		return errs.Invalid("latitude", "%v is outside [-90, 90]", s.Latitude)
	}
	if math.IsNaN(s.Longitude) || s.Longitude < -180 || s.Longitude > 180 {
		return errs.Invalid("longitude", "%v is outside [-180, 180]", s.Longitude)
	}
	if s.ObservedAt.IsZero() {
		return errs.Invalid("observed_at", "must be set")
	}
	return nil
}

// NormalizeTime maps t onto the precision stored in the drones table, so
// the same instant always produces the same uniqueness key.
func NormalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// Drone is one row of the drones table. ID is the insertion sequence and
// only breaks ties between samples with equal timestamps.
type Drone struct {
	ID        uint64     `gorm:"primaryKey;autoIncrement"`
	EntityID  string     `gorm:"column:entity_id;size:50;not null;uniqueIndex:idx_drones_entity_created,priority:1"`
	Latitude  float64    `gorm:"not null"`
	Longitude float64    `gorm:"not null"`
	CreatedAt time.Time  `gorm:"column:created_at;not null;autoCreateTime:false;uniqueIndex:idx_drones_entity_created,priority:2"`
	PilotID   *uuid.UUID `gorm:"type:uuid;index"`
}

func (Drone) TableName() string { return "drones" }

func (d Drone) sample() Sample {
	return Sample{
		EntityID:   d.EntityID,
		Latitude:   d.Latitude,
		Longitude:  d.Longitude,
		ObservedAt: d.CreatedAt.UTC(),
		PilotID:    d.PilotID,
	}
}
