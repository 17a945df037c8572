package service

import (
	"time"

	"medtour_backend/internal/bookings/repository"
	"medtour_backend/internal/bookings/transport"
	"medtour_backend/platform/money"
)

// ToResponse maps the stored booking to its wire form.
func ToResponse(b *repository.Booking) transport.BookingResponse {
	schedule := make([]transport.InstallmentResponse, 0, len(b.PaymentSchedule))
	for _, item := range b.PaymentSchedule {
		schedule = append(schedule, transport.InstallmentResponse{
			Amount:      money.ToMajor(item.Amount),
			DueDate:     item.DueDate,
			Description: item.Description,
		})
	}
	return transport.BookingResponse{
		ID:              b.ID,
		QuoteID:         b.QuoteID,
		JourneyID:       b.JourneyID,
		HospitalID:      b.HospitalID,
		TreatmentID:     b.TreatmentID,
		TotalAmount:     money.ToMajor(b.TotalAmount),
		Currency:        b.Currency,
		PaymentSchedule: schedule,
		Status:          string(b.Status),
		Travel: transport.TravelResponse{
			ArrivalDate:   formatDate(b.Travel.ArrivalDate),
			DepartureDate: formatDate(b.Travel.DepartureDate),
			FlightDetails: b.Travel.FlightDetails,
		},
		Accommodation: transport.AccommodationResponse{
			Name:     b.Accommodation.Name,
			Address:  b.Accommodation.Address,
			CheckIn:  formatDate(b.Accommodation.CheckIn),
			CheckOut: formatDate(b.Accommodation.CheckOut),
		},
		EmergencyContact: transport.EmergencyContactResponse{
			Name:  b.EmergencyContact.Name,
			Phone: b.EmergencyContact.Phone,
		},
		SpecialRequirements: b.SpecialRequirements,
		CreatedAt:           b.CreatedAt,
		UpdatedAt:           b.UpdatedAt,
	}
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.DateOnly)
	return &s
}
