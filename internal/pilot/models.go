package pilot

import (
	"time"

	"github.com/google/uuid"
)

// Pilot is a registered drone operator.
type Pilot struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FirstName   string    `gorm:"size:50;not null" json:"first_name"`
	LastName    string    `gorm:"size:50;not null" json:"last_name"`
	PhoneNumber string    `gorm:"size:20;not null" json:"phone_number"`
	Email       string    `gorm:"size:100;not null;uniqueIndex" json:"email"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Pilot) TableName() string { return "pilots" }

// Summary is the part of a pilot shown next to a drone.
type Summary struct {
	ID          uuid.UUID `json:"id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	PhoneNumber string    `json:"phone_number"`
}

func (p Pilot) Summary() Summary {
	return Summary{ID: p.ID, FirstName: p.FirstName, LastName: p.LastName, PhoneNumber: p.PhoneNumber}
}

// FullName is "First Last", as shown in operator pickers.
func (p Pilot) FullName() string {
	return p.FirstName + " " + p.LastName
}

// Registration is the input to Register.
type Registration struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email"`
}
