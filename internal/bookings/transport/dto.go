// Package transport holds the booking request and response payloads.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// TravelRequest updates the flight plan. Dates are YYYY-MM-DD.
type TravelRequest struct {
	ArrivalDate   *string `json:"arrivalDate" validate:"omitempty,datetime=2006-01-02"`
	DepartureDate *string `json:"departureDate" validate:"omitempty,datetime=2006-01-02"`
	FlightDetails *string `json:"flightDetails" validate:"omitempty,max=1000"`
}

// AccommodationRequest updates where the patient stays.
type AccommodationRequest struct {
	Name     *string `json:"name" validate:"omitempty,max=200"`
	Address  *string `json:"address" validate:"omitempty,max=500"`
	CheckIn  *string `json:"checkIn" validate:"omitempty,datetime=2006-01-02"`
	CheckOut *string `json:"checkOut" validate:"omitempty,datetime=2006-01-02"`
}

// EmergencyContactRequest updates the emergency contact. Phone may be national
// format; it is stored as E.164.
type EmergencyContactRequest struct {
	Name  *string `json:"name" validate:"omitempty,max=200"`
	Phone *string `json:"phone" validate:"omitempty,max=32"`
}

// UpdateBookingRequest patches a booking. Nil sections are left unchanged.
type UpdateBookingRequest struct {
	Status              *string                  `json:"status" validate:"omitempty,oneof=PENDING_PAYMENT DEPOSIT_PAID CONFIRMED CANCELLED COMPLETED"`
	Travel              *TravelRequest           `json:"travel"`
	Accommodation       *AccommodationRequest    `json:"accommodation"`
	EmergencyContact    *EmergencyContactRequest `json:"emergencyContact"`
	SpecialRequirements *string                  `json:"specialRequirements" validate:"omitempty,max=5000"`
}

// ListBookingsRequest binds the listing query string.
type ListBookingsRequest struct {
	JourneyID string `form:"journeyId" validate:"omitempty,uuid"`
	Status    string `form:"status" validate:"omitempty,oneof=PENDING_PAYMENT DEPOSIT_PAID CONFIRMED CANCELLED COMPLETED"`
	Limit     int    `form:"limit" validate:"omitempty,min=1,max=100"`
	Offset    int    `form:"offset" validate:"omitempty,min=0"`
}

// InstallmentResponse is one payment schedule entry in major units.
type InstallmentResponse struct {
	Amount      float64 `json:"amount"`
	DueDate     string  `json:"dueDate"`
	Description string  `json:"description"`
}

type TravelResponse struct {
	ArrivalDate   *string `json:"arrivalDate"`
	DepartureDate *string `json:"departureDate"`
	FlightDetails *string `json:"flightDetails"`
}

type AccommodationResponse struct {
	Name     *string `json:"name"`
	Address  *string `json:"address"`
	CheckIn  *string `json:"checkIn"`
	CheckOut *string `json:"checkOut"`
}

type EmergencyContactResponse struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
}

// BookingResponse is the full booking.
type BookingResponse struct {
	ID                  uuid.UUID                `json:"id"`
	QuoteID             uuid.UUID                `json:"quoteId"`
	JourneyID           uuid.UUID                `json:"journeyId"`
	HospitalID          uuid.UUID                `json:"hospitalId"`
	TreatmentID         uuid.UUID                `json:"treatmentId"`
	TotalAmount         float64                  `json:"totalAmount"`
	Currency            string                   `json:"currency"`
	PaymentSchedule     []InstallmentResponse    `json:"paymentSchedule"`
	Status              string                   `json:"status"`
	Travel              TravelResponse           `json:"travel"`
	Accommodation       AccommodationResponse    `json:"accommodation"`
	EmergencyContact    EmergencyContactResponse `json:"emergencyContact"`
	SpecialRequirements *string                  `json:"specialRequirements"`
	CreatedAt           time.Time                `json:"createdAt"`
	UpdatedAt           time.Time                `json:"updatedAt"`
}

// BookingListResponse is a page of bookings.
type BookingListResponse struct {
	Items  []BookingResponse `json:"items"`
	Total  int               `json:"total"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
}
