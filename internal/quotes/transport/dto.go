// Package transport holds the quote request and response payloads. Amounts on
// the wire are major units (3000.50); storage uses minor units.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// InstallmentRequest is one payment schedule entry.
type InstallmentRequest struct {
	Amount      float64 `json:"amount" validate:"gt=0"`
	DueDate     string  `json:"dueDate" validate:"required,datetime=2006-01-02"`
	Description string  `json:"description" validate:"required,max=500"`
}

// CreateQuoteRequest creates a DRAFT quote.
type CreateQuoteRequest struct {
	JourneyID         uuid.UUID            `json:"journeyId" validate:"required"`
	HospitalID        uuid.UUID            `json:"hospitalId" validate:"required"`
	TreatmentID       uuid.UUID            `json:"treatmentId" validate:"required"`
	TreatmentCost     float64              `json:"treatmentCost" validate:"gt=0"`
	AccommodationCost float64              `json:"accommodationCost" validate:"gte=0"`
	TransportCost     float64              `json:"transportCost" validate:"gte=0"`
	MiscCost          float64              `json:"miscCost" validate:"gte=0"`
	Currency          string               `json:"currency" validate:"omitempty,len=3"`
	ValidUntil        *time.Time           `json:"validUntil"`
	PaymentSchedule   []InstallmentRequest `json:"paymentSchedule" validate:"omitempty,max=24,dive"`
	Notes             *string              `json:"notes" validate:"omitempty,max=5000"`
}

// UpdateQuoteRequest changes a DRAFT or SENT quote. Nil fields are left as is;
// a non-nil PaymentSchedule replaces the stored one.
type UpdateQuoteRequest struct {
	TreatmentCost     *float64             `json:"treatmentCost" validate:"omitempty,gt=0"`
	AccommodationCost *float64             `json:"accommodationCost" validate:"omitempty,gte=0"`
	TransportCost     *float64             `json:"transportCost" validate:"omitempty,gte=0"`
	MiscCost          *float64             `json:"miscCost" validate:"omitempty,gte=0"`
	ValidUntil        *time.Time           `json:"validUntil"`
	PaymentSchedule   []InstallmentRequest `json:"paymentSchedule" validate:"omitempty,max=24,dive"`
	Notes             *string              `json:"notes" validate:"omitempty,max=5000"`
}

// ListQuotesRequest binds the listing query string.
type ListQuotesRequest struct {
	JourneyID string `form:"journeyId" validate:"omitempty,uuid"`
}

// InstallmentResponse is one payment schedule entry.
type InstallmentResponse struct {
	Amount      float64 `json:"amount"`
	DueDate     string  `json:"dueDate"`
	Description string  `json:"description"`
}

// QuoteResponse is the full quote.
type QuoteResponse struct {
	ID                uuid.UUID             `json:"id"`
	JourneyID         uuid.UUID             `json:"journeyId"`
	HospitalID        uuid.UUID             `json:"hospitalId"`
	TreatmentID       uuid.UUID             `json:"treatmentId"`
	TreatmentCost     float64               `json:"treatmentCost"`
	AccommodationCost float64               `json:"accommodationCost"`
	TransportCost     float64               `json:"transportCost"`
	MiscCost          float64               `json:"miscCost"`
	TotalAmount       float64               `json:"totalAmount"`
	Currency          string                `json:"currency"`
	PaymentSchedule   []InstallmentResponse `json:"paymentSchedule"`
	Notes             *string               `json:"notes"`
	Status            string                `json:"status"`
	ValidUntil        time.Time             `json:"validUntil"`
	Version           int                   `json:"version"`
	SentAt            *time.Time            `json:"sentAt"`
	AcceptedAt        *time.Time            `json:"acceptedAt"`
	CreatedAt         time.Time             `json:"createdAt"`
	UpdatedAt         time.Time             `json:"updatedAt"`
}

// PartialFailure names the acceptance step that failed after the quote was
// already accepted.
type PartialFailure struct {
	Step    string `json:"step"`
	Message string `json:"message"`
}

// AcceptQuoteResponse is returned by accept. BookingID is nil when booking
// creation failed.
type AcceptQuoteResponse struct {
	Quote          QuoteResponse   `json:"quote"`
	BookingID      *uuid.UUID      `json:"bookingId"`
	PartialFailure *PartialFailure `json:"partialFailure,omitempty"`
}

// QuoteListResponse lists quotes newest first.
type QuoteListResponse struct {
	Items []QuoteResponse `json:"items"`
}

// PDFLinkResponse is a presigned download link for the quote document.
type PDFLinkResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}
