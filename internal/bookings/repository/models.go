package repository

import (
	"time"

	"github.com/google/uuid"
)

// Status is the booking payment and fulfilment status.
type Status string

const (
	StatusPendingPayment Status = "PENDING_PAYMENT"
	StatusDepositPaid    Status = "DEPOSIT_PAID"
	StatusConfirmed      Status = "CONFIRMED"
	StatusCancelled      Status = "CANCELLED"
	StatusCompleted      Status = "COMPLETED"
)

var statusTransitions = map[Status][]Status{
	StatusPendingPayment: {StatusDepositPaid, StatusConfirmed, StatusCancelled},
	StatusDepositPaid:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:      {StatusCompleted, StatusCancelled},
	StatusCancelled:      {},
	StatusCompleted:      {},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// IsTerminal reports whether no further changes are allowed.
func (s Status) IsTerminal() bool {
	return len(statusTransitions[s]) == 0
}

// CanMoveTo reports whether the status may change from s to next.
func (s Status) CanMoveTo(next Status) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Installment mirrors the quote payment schedule entry. Amount is in minor units.
type Installment struct {
	Amount      int64  `json:"amount"`
	DueDate     string `json:"dueDate"`
	Description string `json:"description"`
}

// Travel holds the patient's flight plan.
type Travel struct {
	ArrivalDate   *time.Time
	DepartureDate *time.Time
	FlightDetails *string
}

// Accommodation holds where the patient stays.
type Accommodation struct {
	Name     *string
	Address  *string
	CheckIn  *time.Time
	CheckOut *time.Time
}

// EmergencyContact is reachable while the patient is abroad. Phone is E.164.
type EmergencyContact struct {
	Name  *string
	Phone *string
}

// Booking is the database model for a booking created from an accepted quote.
type Booking struct {
	ID                  uuid.UUID
	QuoteID             uuid.UUID
	JourneyID           uuid.UUID
	HospitalID          uuid.UUID
	TreatmentID         uuid.UUID
	TotalAmount         int64
	Currency            string
	PaymentSchedule     []Installment
	Status              Status
	Travel              Travel
	Accommodation       Accommodation
	EmergencyContact    EmergencyContact
	SpecialRequirements *string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// ListParams filters the booking listing.
type ListParams struct {
	JourneyID *uuid.UUID
	Status    *Status
	Limit     int
	Offset    int
}
