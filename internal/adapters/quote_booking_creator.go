package adapters

import (
	"context"

	bookingrepo "medtour_backend/internal/bookings/repository"
	bookingsvc "medtour_backend/internal/bookings/service"
	quotesvc "medtour_backend/internal/quotes/service"

	"github.com/google/uuid"
)

// QuoteBookingCreator lets the quotes module create bookings without importing
// the bookings module.
type QuoteBookingCreator struct {
	bookings *bookingsvc.Service
}

// NewQuoteBookingCreator wraps the booking service.
func NewQuoteBookingCreator(bookings *bookingsvc.Service) *QuoteBookingCreator {
	return &QuoteBookingCreator{bookings: bookings}
}

// CreateFromQuote copies the accepted quote's terms into a new booking.
func (a *QuoteBookingCreator) CreateFromQuote(ctx context.Context, req quotesvc.BookingRequest) (uuid.UUID, error) {
	schedule := make([]bookingrepo.Installment, 0, len(req.PaymentSchedule))
	for _, item := range req.PaymentSchedule {
		schedule = append(schedule, bookingrepo.Installment{
			Amount:      item.Amount,
			DueDate:     item.DueDate,
			Description: item.Description,
		})
	}
	return a.bookings.CreateFromQuote(ctx, bookingsvc.CreateInput{
		QuoteID:         req.QuoteID,
		JourneyID:       req.JourneyID,
		HospitalID:      req.HospitalID,
		TreatmentID:     req.TreatmentID,
		TotalAmount:     req.TotalAmount,
		Currency:        req.Currency,
		PaymentSchedule: schedule,
	})
}

var _ quotesvc.BookingCreator = (*QuoteBookingCreator)(nil)
