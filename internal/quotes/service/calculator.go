package service

import (
	"fmt"
	"math"
	"time"

	"medtour_backend/internal/quotes/repository"
	"medtour_backend/internal/quotes/transport"
	"medtour_backend/platform/apperr"
	"medtour_backend/platform/money"
)

// Costs holds the four quote cost components in minor units.
type Costs struct {
	Treatment     int64
	Accommodation int64
	Transport     int64
	Misc          int64
}

// Total sums the components. Callers validate first so the sum cannot overflow.
func (c Costs) Total() int64 {
	return c.Treatment + c.Accommodation + c.Transport + c.Misc
}

// costsFromMajor converts wire amounts and enforces treatment > 0 and every
// other component >= 0.
func costsFromMajor(treatment, accommodation, transportCost, misc float64) (Costs, error) {
	var (
		c   Costs
		err error
	)
	fields := []struct {
		name string
		in   float64
		out  *int64
	}{
		{"treatmentCost", treatment, &c.Treatment},
		{"accommodationCost", accommodation, &c.Accommodation},
		{"transportCost", transportCost, &c.Transport},
		{"miscCost", misc, &c.Misc},
	}
	for _, f := range fields {
		if *f.out, err = money.FromMajor(f.in); err != nil {
			return Costs{}, apperr.Validation(fmt.Sprintf("%s is not a valid amount", f.name))
		}
	}
	return c, validateCosts(c)
}

func validateCosts(c Costs) error {
	if c.Treatment <= 0 {
		return apperr.Validation("treatmentCost must be greater than zero")
	}
	if c.Accommodation < 0 || c.Transport < 0 || c.Misc < 0 {
		return apperr.Validation("costs cannot be negative")
	}
	if c.Treatment > math.MaxInt64/4 || c.Accommodation > math.MaxInt64/4 ||
		c.Transport > math.MaxInt64/4 || c.Misc > math.MaxInt64/4 {
		return apperr.Validation("costs are out of range")
	}
	return nil
}

func applyCosts(q *repository.Quote, c Costs) {
	q.TreatmentCost = c.Treatment
	q.AccommodationCost = c.Accommodation
	q.TransportCost = c.Transport
	q.MiscCost = c.Misc
	q.TotalAmount = c.Total()
}

func costsOf(q *repository.Quote) Costs {
	return Costs{Treatment: q.TreatmentCost, Accommodation: q.AccommodationCost, Transport: q.TransportCost, Misc: q.MiscCost}
}

func scheduleFromRequest(items []transport.InstallmentRequest) ([]repository.Installment, error) {
	out := make([]repository.Installment, 0, len(items))
	for i, item := range items {
		amount, err := money.FromMajor(item.Amount)
		if err != nil || amount <= 0 {
			return nil, apperr.Validation(fmt.Sprintf("paymentSchedule[%d].amount must be greater than zero", i))
		}
		if _, err := time.Parse(time.DateOnly, item.DueDate); err != nil {
			return nil, apperr.Validation(fmt.Sprintf("paymentSchedule[%d].dueDate must be YYYY-MM-DD", i))
		}
		out = append(out, repository.Installment{Amount: amount, DueDate: item.DueDate, Description: item.Description})
	}
	return out, nil
}

// ToResponse converts a stored quote to its wire form.
func ToResponse(q *repository.Quote) transport.QuoteResponse {
	schedule := make([]transport.InstallmentResponse, 0, len(q.PaymentSchedule))
	for _, item := range q.PaymentSchedule {
		schedule = append(schedule, transport.InstallmentResponse{
			Amount:      money.ToMajor(item.Amount),
			DueDate:     item.DueDate,
			Description: item.Description,
		})
	}
	return transport.QuoteResponse{
		ID:                q.ID,
		JourneyID:         q.JourneyID,
		HospitalID:        q.HospitalID,
		TreatmentID:       q.TreatmentID,
		TreatmentCost:     money.ToMajor(q.TreatmentCost),
		AccommodationCost: money.ToMajor(q.AccommodationCost),
		TransportCost:     money.ToMajor(q.TransportCost),
		MiscCost:          money.ToMajor(q.MiscCost),
		TotalAmount:       money.ToMajor(q.TotalAmount),
		Currency:          q.Currency,
		PaymentSchedule:   schedule,
		Notes:             q.Notes,
		Status:            string(q.Status),
		ValidUntil:        q.ValidUntil,
		Version:           q.Version,
		SentAt:            q.SentAt,
		AcceptedAt:        q.AcceptedAt,
		CreatedAt:         q.CreatedAt,
		UpdatedAt:         q.UpdatedAt,
	}
}
