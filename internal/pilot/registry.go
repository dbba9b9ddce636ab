// Package pilot is the registry of drone operators, unique by email.
package pilot

import (
	"cmp"
	"context"
	"net/mail"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/skyguard/fleet-backend/internal/errs"
)

// Registry is safe for concurrent use; email uniqueness is enforced by the
// database.
type Registry struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewRegistry(gdb *gorm.DB, timeout time.Duration) *Registry {
	return &Registry{db: gdb, timeout: timeout}
}

// Migrate creates the pilots table.
func (r *Registry) Migrate(ctx context.Context) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()
	return errs.FromStore("migrate pilots", r.db.WithContext(ctx).AutoMigrate(&Pilot{}))
}

// Register stores a new pilot and returns its id. If the email is already
// registered the existing id is returned and created is false.
func (r *Registry) Register(ctx context.Context, in Registration) (id uuid.UUID, created bool, err error) {
	p, err := normalize(in)
	if err != nil {
		return uuid.Nil, false, err
	}
	p.ID = uuid.New()

	ctx, cancel := r.bound(ctx)
	defer cancel()

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "email"}}, DoNothing: true}).
		Create(&p)
	if res.Error != nil {
		return uuid.Nil, false, errs.FromStore("register pilot", res.Error)
	}
	if res.RowsAffected > 0 {
		return p.ID, true, nil
	}

	var existing Pilot
	if err := r.db.WithContext(ctx).Select("id").Where("email = ?", p.Email).Take(&existing).Error; err != nil {
		return uuid.Nil, false, errs.FromStore("register pilot", err)
	}
	return existing.ID, false, nil
}

// ListAll returns every pilot ordered by first then last name, compared
// byte-wise so the order does not depend on database collation.
func (r *Registry) ListAll(ctx context.Context) ([]Pilot, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	// The database collation may fold case, so the byte-wise sort below has
	// the final say.
	pilots := []Pilot{}
	if err := r.db.WithContext(ctx).Order("first_name, last_name").Find(&pilots).Error; err != nil {
		return nil, errs.FromStore("list pilots", err)
	}
	slices.SortStableFunc(pilots, func(a, b Pilot) int {
		return cmp.Or(
			strings.Compare(a.FirstName, b.FirstName),
			strings.Compare(a.LastName, b.LastName),
			strings.Compare(a.Email, b.Email),
		)
	})
	return pilots, nil
}

// GetByID returns the pilot with id or an error matching errs.ErrNotFound.
func (r *Registry) GetByID(ctx context.Context, id uuid.UUID) (Pilot, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	var p Pilot
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&p).Error; err != nil {
		return Pilot{}, errs.FromStore("get pilot", err)
	}
	return p, nil
}

func (r *Registry) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

var fieldLimits = []struct {
	name string
	max  int
}{
	{"first_name", 50},
	{"last_name", 50},
	{"phone_number", 20},
	{"email", 100},
}

// NormalizeEmail trims and case-folds an address so that lookups and the
// unique index agree on what a duplicate is.
func NormalizeEmail(email string) string {
	// A Caser is stateful, so each call gets its own.
	return cases.Fold().String(strings.TrimSpace(email))
}

func normalize(in Registration) (Pilot, error) {
	p := Pilot{
		FirstName:   strings.TrimSpace(in.FirstName),
		LastName:    strings.TrimSpace(in.LastName),
		PhoneNumber: strings.TrimSpace(in.PhoneNumber),
		Email:       NormalizeEmail(in.Email),
	}
	values := []string{p.FirstName, p.LastName, p.PhoneNumber, p.Email}
	for i, f := range fieldLimits {
		if values[i] == "" {
			return Pilot{}, errs.Invalid(f.name, "must not be empty")
		}
		if utf8.RuneCountInString(values[i]) > f.max {
			return Pilot{}, errs.Invalid(f.name, "longer than %d characters", f.max)
		}
	}
	if err := checkEmail(p.Email); err != nil {
		return Pilot{}, err
	}
	return p, nil
}

func checkEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return errs.Invalid("email", "%q is not an email address", email)
	}
	// ParseAddress also accepts "Name <addr>" forms.
	if addr.Address != email {
		return errs.Invalid("email", "%q must be a bare address", email)
	}
	local, domain, _ := strings.Cut(email, "@")
	if local == "" || !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return errs.Invalid("email", "%q is not an email address", email)
	}
	return nil
}
