// Package seeds generates synthetic pilots and drone positions around Astana
// for demos and local development.
package seeds

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/skyguard/fleet-backend/internal/pilot"
	"github.com/skyguard/fleet-backend/internal/position"
)

// Astana city centre; drones are scattered within ±spread degrees of it.
const (
	baseLat = 51.1694
	baseLon = 71.4491
	spread  = 0.1

	// Seeded samples are stamped within this window before now.
	recentWindow = 5 * time.Minute
)

var firstNames = []string{
	"Azamat", "Aibek", "Almas", "Askhat", "Baurzhan", "Damir", "Erlan", "Zhandar", "Kairat", "Marat",
	"Nurlan", "Rakhat", "Serik", "Talgat", "Shyngys", "Aigul", "Ainur", "Altynai", "Gulnara", "Dinara",
	"Zhanna", "Zukhra", "Kunsulu", "Maira", "Nazgul", "Samal", "Saltanat", "Sholpan",
}

var lastNames = []string{
	"Abdullaev", "Akhmetov", "Baimukhanov", "Bektaev", "Dosmagambetov", "Ermekov", "Zhakiev", "Ibraev",
	"Karimov", "Kuanyshev", "Mamaev", "Nurmagambetov", "Omarov", "Rakhimov", "Sadykov", "Temirbaev",
	"Ualiev", "Khasanov", "Sharipov", "Yskakov",
}

type PilotRegistry interface {
	Register(ctx context.Context, in pilot.Registration) (uuid.UUID, bool, error)
	ListAll(ctx context.Context) ([]pilot.Pilot, error)
}

type PositionStore interface {
	Append(ctx context.Context, s position.Sample) (bool, error)
}

// Result counts what a seeding run did. Duplicates are attempts that hit an
// existing row and changed nothing.
type Result struct {
	Attempted int
	Inserted  int
}

func (r Result) Duplicates() int { return r.Attempted - r.Inserted }

func (r Result) String() string {
	return fmt.Sprintf("%d attempted, %d inserted, %d duplicates", r.Attempted, r.Inserted, r.Duplicates())
}

// GeneratePilots returns n random pilots. Emails are derived from the names,
// so larger n produces duplicates that register as no-ops.
func GeneratePilots(rng *rand.Rand, n int) []pilot.Registration {
	lower := cases.Lower(language.Und)
	out := make([]pilot.Registration, 0, n)
	for i := 0; i < n; i++ {
		first := firstNames[rng.Intn(len(firstNames))]
		last := lastNames[rng.Intn(len(lastNames))]
		out = append(out, pilot.Registration{
			FirstName:   first,
			LastName:    last,
			PhoneNumber: fmt.Sprintf("+7700%07d", 1_000_000+rng.Intn(9_000_000)),
			Email:       lower.String(first + "." + last + "@example.com"),
		})
	}
	return out
}

// GenerateDrones returns n samples DRONE-001..DRONE-n near Astana, observed
// within the five minutes before now. When pilotIDs is non-empty every drone
// gets a random pilot.
func GenerateDrones(rng *rand.Rand, n int, now time.Time, pilotIDs []uuid.UUID) []position.Sample {
	out := make([]position.Sample, 0, n)
	for i := 0; i < n; i++ {
		s := position.Sample{
			EntityID:   fmt.Sprintf("DRONE-%03d", i+1),
			Latitude:   baseLat + (rng.Float64()*2-1)*spread,
			Longitude:  baseLon + (rng.Float64()*2-1)*spread,
			ObservedAt: now.Add(-time.Duration(rng.Int63n(int64(recentWindow)))),
		}
		if len(pilotIDs) > 0 {
			id := pilotIDs[rng.Intn(len(pilotIDs))]
			s.PilotID = &id
		}
		out = append(out, s)
	}
	return out
}

// SeedPilots registers n generated pilots. It stops at the first failure;
// rows already written stay, and re-running is safe.
func SeedPilots(ctx context.Context, reg PilotRegistry, rng *rand.Rand, n int) (Result, error) {
	var res Result
	for _, in := range GeneratePilots(rng, n) {
		res.Attempted++
		_, created, err := reg.Register(ctx, in)
		if err != nil {
			return res, fmt.Errorf("register pilot %s: %w", in.Email, err)
		}
		if created {
			res.Inserted++
		}
	}
	return res, nil
}

// SeedDrones appends n generated samples, assigning registered pilots when
// withPilots is set. Like SeedPilots it stops at the first failure.
func SeedDrones(ctx context.Context, store PositionStore, reg PilotRegistry, rng *rand.Rand, n int, now time.Time, withPilots bool) (Result, error) {
	var pilotIDs []uuid.UUID
	if withPilots {
		pilots, err := reg.ListAll(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("list pilots: %w", err)
		}
		if len(pilots) == 0 {
			return Result{}, errors.New("no pilots registered; seed pilots first")
		}
		for _, p := range pilots {
			pilotIDs = append(pilotIDs, p.ID)
		}
	}

	var res Result
	for _, s := range GenerateDrones(rng, n, now, pilotIDs) {
		res.Attempted++
		inserted, err := store.Append(ctx, s)
		if err != nil {
			return res, fmt.Errorf("append %s: %w", s.EntityID, err)
		}
		if inserted {
			res.Inserted++
		}
	}
	return res, nil
}
