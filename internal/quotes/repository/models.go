package repository

import (
	"time"

	"github.com/google/uuid"
)

// Status is the quote lifecycle status.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusSent      Status = "SENT"
	StatusAccepted  Status = "ACCEPTED"
	StatusExpired   Status = "EXPIRED"
	StatusCancelled Status = "CANCELLED"
)

// Installment is one entry of a payment schedule. Amount is in minor units.
type Installment struct {
	Amount      int64  `json:"amount"`
	DueDate     string `json:"dueDate"`
	Description string `json:"description"`
}

// Quote is the database model for a quote. Money fields are minor units and
// TotalAmount always equals the sum of the four cost components.
type Quote struct {
	ID                uuid.UUID     `db:"id"`
	JourneyID         uuid.UUID     `db:"journey_id"`
	HospitalID        uuid.UUID     `db:"hospital_id"`
	TreatmentID       uuid.UUID     `db:"treatment_id"`
	TreatmentCost     int64         `db:"treatment_cost"`
	AccommodationCost int64         `db:"accommodation_cost"`
	TransportCost     int64         `db:"transport_cost"`
	MiscCost          int64         `db:"misc_cost"`
	TotalAmount       int64         `db:"total_amount"`
	Currency          string        `db:"currency"`
	PaymentSchedule   []Installment `db:"payment_schedule"`
	Notes             *string       `db:"notes"`
	Status            Status        `db:"status"`
	ValidUntil        time.Time     `db:"valid_until"`
	Version           int           `db:"version"`
	SentAt            *time.Time    `db:"sent_at"`
	AcceptedAt        *time.Time    `db:"accepted_at"`
	CreatedAt         time.Time     `db:"created_at"`
	UpdatedAt         time.Time     `db:"updated_at"`
}
