// Package service implements booking creation from accepted quotes and the
// coordinator edits that follow.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"medtour_backend/internal/bookings/repository"
	"medtour_backend/internal/bookings/transport"
	"medtour_backend/internal/notification/outbox"
	"medtour_backend/platform/apperr"
	"medtour_backend/platform/logger"
	"medtour_backend/platform/money"
	"medtour_backend/platform/phone"
	"medtour_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	maxRequirementsLength = 5000
	maxListLimit          = 100
)

// Repository is the booking persistence the service needs.
type Repository interface {
	CreateFromQuote(ctx context.Context, b *repository.Booking) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (*repository.Booking, error)
	List(ctx context.Context, p repository.ListParams) ([]repository.Booking, int, error)
	Update(ctx context.Context, b *repository.Booking, expected repository.Status, task *outbox.Task) (*repository.Booking, error)
}

// Config provides the region used to read national phone numbers.
type Config interface {
	GetDefaultPhoneRegion() string
}

// CreateInput carries the financial terms of an accepted quote.
type CreateInput struct {
	QuoteID         uuid.UUID
	JourneyID       uuid.UUID
	HospitalID      uuid.UUID
	TreatmentID     uuid.UUID
	TotalAmount     int64
	Currency        string
	PaymentSchedule []repository.Installment
}

// ListInput filters the booking listing.
type ListInput struct {
	JourneyID *uuid.UUID
	Status    string
	Limit     int
	Offset    int
}

// Service provides booking business operations.
type Service struct {
	repo Repository
	cfg  Config
	log  *logger.Logger
	now  func() time.Time
}

// New creates a new booking service.
func New(repo Repository, cfg Config, log *logger.Logger) *Service {
	return &Service{repo: repo, cfg: cfg, log: log, now: time.Now}
}

// SetClock replaces the time source. Used by tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// CreateFromQuote creates the PENDING_PAYMENT booking for an accepted quote,
// copying the total, currency and payment schedule verbatim.
func (s *Service) CreateFromQuote(ctx context.Context, in CreateInput) (uuid.UUID, error) {
	if in.QuoteID == uuid.Nil || in.JourneyID == uuid.Nil {
		return uuid.Nil, apperr.Validation("quote and journey are required")
	}
	if in.TotalAmount < 0 {
		return uuid.Nil, apperr.Validation("total amount cannot be negative")
	}

	now := s.now().UTC()
	id, err := s.repo.CreateFromQuote(ctx, &repository.Booking{
		ID:              uuid.New(),
		QuoteID:         in.QuoteID,
		JourneyID:       in.JourneyID,
		HospitalID:      in.HospitalID,
		TreatmentID:     in.TreatmentID,
		TotalAmount:     in.TotalAmount,
		Currency:        in.Currency,
		PaymentSchedule: in.PaymentSchedule,
		Status:          repository.StatusPendingPayment,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		return uuid.Nil, err
	}

	s.log.WithContext(ctx).Info("booking created", "booking_id", id, "quote_id", in.QuoteID, "journey_id", in.JourneyID)
	return id, nil
}

// GetByID returns one booking.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.BookingResponse, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.BookingResponse{}, err
	}
	return ToResponse(b), nil
}

// List returns bookings newest first.
func (s *Service) List(ctx context.Context, in ListInput) (transport.BookingListResponse, error) {
	params := repository.ListParams{JourneyID: in.JourneyID, Limit: in.Limit, Offset: max(in.Offset, 0)}
	if params.Limit < 1 || params.Limit > maxListLimit {
		params.Limit = 20
	}
	if in.Status != "" {
		status := repository.Status(in.Status)
		if !status.Valid() {
			return transport.BookingListResponse{}, apperr.Validation(fmt.Sprintf("unknown booking status %q", in.Status))
		}
		params.Status = &status
	}

	items, total, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.BookingListResponse{}, err
	}
	resp := transport.BookingListResponse{
		Items:  make([]transport.BookingResponse, 0, len(items)),
		Total:  total,
		Limit:  params.Limit,
		Offset: params.Offset,
	}
	for i := range items {
		resp.Items = append(resp.Items, ToResponse(&items[i]))
	}
	return resp, nil
}

// Update patches travel, accommodation, emergency contact, special
// requirements and status. Confirming a booking or recording the deposit
// enqueues the matching patient notification.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateBookingRequest) (transport.BookingResponse, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.BookingResponse{}, err
	}
	if b.Status.IsTerminal() {
		return transport.BookingResponse{}, apperr.InvalidState("booking is "+string(b.Status)).
			WithDetails(map[string]any{"status": string(b.Status)})
	}
	expected := b.Status

	var task *outbox.Task
	if req.Status != nil && repository.Status(*req.Status) != b.Status {
		next := repository.Status(*req.Status)
		if !b.Status.CanMoveTo(next) {
			return transport.BookingResponse{}, apperr.InvalidState(fmt.Sprintf("cannot move booking from %s to %s", b.Status, next)).
				WithDetails(map[string]any{"status": string(b.Status)})
		}
		b.Status = next
		task = statusNotification(b)
	}

	if err := s.applyDetails(b, req); err != nil {
		return transport.BookingResponse{}, err
	}
	b.UpdatedAt = s.now().UTC()

	updated, err := s.repo.Update(ctx, b, expected, task)
	if errors.Is(err, repository.ErrStatusChanged) {
		return transport.BookingResponse{}, apperr.Conflict("booking was modified concurrently; reload and retry").
			WithDetails(map[string]any{"reason": "stale_status"})
	}
	if err != nil {
		return transport.BookingResponse{}, err
	}

	if expected != updated.Status {
		s.log.WithContext(ctx).Info("booking status changed", "booking_id", id, "from", expected, "to", updated.Status)
	}
	return ToResponse(updated), nil
}

func (s *Service) applyDetails(b *repository.Booking, req transport.UpdateBookingRequest) error {
	if t := req.Travel; t != nil {
		if err := setDate(&b.Travel.ArrivalDate, t.ArrivalDate, "travel.arrivalDate"); err != nil {
			return err
		}
		if err := setDate(&b.Travel.DepartureDate, t.DepartureDate, "travel.departureDate"); err != nil {
			return err
		}
		if t.FlightDetails != nil {
			b.Travel.FlightDetails = sanitize.TextPtr(t.FlightDetails)
		}
		if before(b.Travel.DepartureDate, b.Travel.ArrivalDate) {
			return apperr.Validation("departure date cannot be before arrival date")
		}
	}

	if a := req.Accommodation; a != nil {
		if a.Name != nil {
			b.Accommodation.Name = sanitize.TextPtr(a.Name)
		}
		if a.Address != nil {
			b.Accommodation.Address = sanitize.TextPtr(a.Address)
		}
		if err := setDate(&b.Accommodation.CheckIn, a.CheckIn, "accommodation.checkIn"); err != nil {
			return err
		}
		if err := setDate(&b.Accommodation.CheckOut, a.CheckOut, "accommodation.checkOut"); err != nil {
			return err
		}
		if before(b.Accommodation.CheckOut, b.Accommodation.CheckIn) {
			return apperr.Validation("check-out cannot be before check-in")
		}
	}

	if ec := req.EmergencyContact; ec != nil {
		if ec.Name != nil {
			b.EmergencyContact.Name = sanitize.TextPtr(ec.Name)
		}
		if ec.Phone != nil {
			normalized, err := phone.ParseE164(*ec.Phone, s.cfg.GetDefaultPhoneRegion())
			if err != nil {
				return apperr.Validation("emergencyContact.phone is not a valid phone number")
			}
			b.EmergencyContact.Phone = &normalized
		}
	}

	if req.SpecialRequirements != nil {
		if cleaned := sanitize.TextPtr(req.SpecialRequirements); cleaned != nil {
			truncated := sanitize.Truncate(*cleaned, maxRequirementsLength)
			b.SpecialRequirements = &truncated
		} else {
			b.SpecialRequirements = nil
		}
	}
	return nil
}

func statusNotification(b *repository.Booking) *outbox.Task {
	var template string
	switch b.Status {
	case repository.StatusConfirmed:
		template = outbox.TemplateBookingConfirmed
	case repository.StatusDepositPaid:
		template = outbox.TemplatePaymentReceived
	default:
		return nil
	}
	return &outbox.Task{
		JourneyID:    b.JourneyID,
		TemplateName: template,
		Channel:      outbox.ChannelEmail,
		Priority:     outbox.PriorityNormal,
		Data: map[string]any{
			"booking_id":   b.ID.String(),
			"total_amount": money.ToMajor(b.TotalAmount),
			"currency":     b.Currency,
			"hospital_id":  b.HospitalID.String(),
		},
	}
}

// setDate parses raw into dst. An empty string clears the date.
func setDate(dst **time.Time, raw *string, field string) error {
	if raw == nil {
		return nil
	}
	if *raw == "" {
		*dst = nil
		return nil
	}
	d, err := time.Parse(time.DateOnly, *raw)
	if err != nil {
		return apperr.Validation(field + " must be YYYY-MM-DD")
	}
	*dst = &d
	return nil
}

func before(a, b *time.Time) bool {
	return a != nil && b != nil && a.Before(*b)
}
