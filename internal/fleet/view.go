package fleet

import (
	"time"

	"github.com/google/uuid"

	"github.com/skyguard/fleet-backend/internal/geofence"
	"github.com/skyguard/fleet-backend/internal/pilot"
	"github.com/skyguard/fleet-backend/internal/position"
)

// Entry is one drone in the fleet view.
type Entry struct {
	EntityID   string         `json:"entity_id"`
	Latitude   float64        `json:"latitude"`
	Longitude  float64        `json:"longitude"`
	ObservedAt time.Time      `json:"observed_at"`
	Pilot      *pilot.Summary `json:"pilot,omitempty"`

	// ViolatedZones holds the ids of every zone containing the position,
	// in catalog order. Severity is the highest among them.
	ViolatedZones []string          `json:"violated_zones"`
	Severity      geofence.Severity `json:"severity,omitempty"`
}

// InViolation reports whether the drone is inside any restricted zone.
func (e Entry) InViolation() bool { return len(e.ViolatedZones) > 0 }

// BuildView joins the latest samples with their pilots and zone membership.
// Entries keep the order of latest. A sample whose pilot is not in pilots is
// shown without one.
func BuildView(latest []position.Sample, pilots []pilot.Pilot, zones geofence.Evaluator) []Entry {
	byID := make(map[uuid.UUID]pilot.Summary, len(pilots))
	for _, p := range pilots {
		byID[p.ID] = p.Summary()
	}

	entries := make([]Entry, 0, len(latest))
	for _, s := range latest {
		e := Entry{
			EntityID:      s.EntityID,
			Latitude:      s.Latitude,
			Longitude:     s.Longitude,
			ObservedAt:    s.ObservedAt,
			ViolatedZones: []string{},
		}
		if s.PilotID != nil {
			if summary, ok := byID[*s.PilotID]; ok {
				e.Pilot = &summary
			}
		}
		hits := zones.ZonesContaining(s.Latitude, s.Longitude)
		for _, z := range hits {
			e.ViolatedZones = append(e.ViolatedZones, z.ID)
		}
		if sev, ok := geofence.HighestSeverity(hits); ok {
			e.Severity = sev
		}
		entries = append(entries, e)
	}
	return entries
}
