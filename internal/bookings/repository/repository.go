// Package repository persists bookings.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"medtour_backend/internal/notification/outbox"
	"medtour_backend/platform/apperr"
	"medtour_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	bookingNotFoundMsg = "booking not found"
	bookingColumns     = `id, quote_id, journey_id, hospital_id, treatment_id, total_amount, currency,
		payment_schedule, status, travel_arrival_date, travel_departure_date, travel_flight_details,
		accommodation_name, accommodation_address, accommodation_check_in, accommodation_check_out,
		emergency_contact_name, emergency_contact_phone, special_requirements, created_at, updated_at`
	defaultPageLimit = 50
)

// ErrStatusChanged is returned when the booking status moved between read and write.
var ErrStatusChanged = errors.New("booking status changed concurrently")

// Repository provides database operations for bookings.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new bookings repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateFromQuote inserts the booking for a quote. The unique quote_id makes a
// repeated call return the existing booking id instead of a second row.
func (r *Repository) CreateFromQuote(ctx context.Context, b *Booking) (uuid.UUID, error) {
	schedule, err := json.Marshal(nonNilSchedule(b.PaymentSchedule))
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal payment schedule: %w", err)
	}

	var id uuid.UUID
	err = r.pool.QueryRow(ctx, `
		INSERT INTO bookings (id, quote_id, journey_id, hospital_id, treatment_id, total_amount, currency,
			payment_schedule, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (quote_id) DO NOTHING
		RETURNING id`,
		b.ID, b.QuoteID, b.JourneyID, b.HospitalID, b.TreatmentID, b.TotalAmount, b.Currency,
		schedule, string(b.Status), b.CreatedAt, b.UpdatedAt,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return r.idForQuote(ctx, b.QuoteID)
	}
	if db.IsForeignKeyViolation(err, "") {
		return uuid.Nil, apperr.NotFound("quote or journey not found")
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("create booking: %w", db.Classify("bookings.CreateFromQuote", err))
	}
	return id, nil
}

func (r *Repository) idForQuote(ctx context.Context, quoteID uuid.UUID) (uuid.UUID, error) {
	var id uuid.UUID
	if err := r.pool.QueryRow(ctx, `SELECT id FROM bookings WHERE quote_id = $1`, quoteID).Scan(&id); err != nil {
		return uuid.Nil, fmt.Errorf("load booking for quote: %w", db.Classify("bookings.idForQuote", err))
	}
	return id, nil
}

// GetByID loads one booking.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	b, err := scanBooking(r.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound(bookingNotFoundMsg)
	}
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", db.Classify("bookings.GetByID", err))
	}
	return b, nil
}

// List returns bookings newest first and the total match count.
func (r *Repository) List(ctx context.Context, p ListParams) ([]Booking, int, error) {
	if p.Limit < 1 {
		p.Limit = defaultPageLimit
	}

	var (
		where []string
		args  []any
	)
	if p.JourneyID != nil {
		args = append(args, *p.JourneyID)
		where = append(where, fmt.Sprintf("journey_id = $%d", len(args)))
	}
	if p.Status != nil {
		args = append(args, string(*p.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM bookings `+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count bookings: %w", db.Classify("bookings.List", err))
	}

	args = append(args, p.Limit, max(p.Offset, 0))
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM bookings %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		bookingColumns, whereClause, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", db.Classify("bookings.List", err))
	}
	defer rows.Close()

	items := make([]Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan booking: %w", err)
		}
		items = append(items, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate bookings: %w", db.Classify("bookings.List", err))
	}
	return items, total, nil
}

// Update writes the editable fields, guarded by the status the caller read.
// A non-nil task is enqueued in the same transaction.
func (r *Repository) Update(ctx context.Context, b *Booking, expected Status, task *outbox.Task) (*Booking, error) {
	var updated *Booking
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			UPDATE bookings SET
				status = $3,
				travel_arrival_date = $4,
				travel_departure_date = $5,
				travel_flight_details = $6,
				accommodation_name = $7,
				accommodation_address = $8,
				accommodation_check_in = $9,
				accommodation_check_out = $10,
				emergency_contact_name = $11,
				emergency_contact_phone = $12,
				special_requirements = $13,
				updated_at = $14
			WHERE id = $1 AND status = $2
			RETURNING `+bookingColumns,
			b.ID, string(expected), string(b.Status),
			b.Travel.ArrivalDate, b.Travel.DepartureDate, b.Travel.FlightDetails,
			b.Accommodation.Name, b.Accommodation.Address, b.Accommodation.CheckIn, b.Accommodation.CheckOut,
			b.EmergencyContact.Name, b.EmergencyContact.Phone, b.SpecialRequirements, b.UpdatedAt,
		)
		saved, err := scanBooking(row)
		if err != nil {
			return err
		}
		if task != nil {
			if _, err := outbox.Insert(ctx, tx, *task); err != nil {
				return err
			}
		}
		updated = saved
		return nil
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrStatusChanged
	}
	if err != nil {
		return nil, fmt.Errorf("update booking: %w", db.Classify("bookings.Update", err))
	}
	return updated, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(s rowScanner) (*Booking, error) {
	var (
		b           Booking
		status      string
		rawSchedule []byte
	)
	if err := s.Scan(&b.ID, &b.QuoteID, &b.JourneyID, &b.HospitalID, &b.TreatmentID, &b.TotalAmount, &b.Currency,
		&rawSchedule, &status, &b.Travel.ArrivalDate, &b.Travel.DepartureDate, &b.Travel.FlightDetails,
		&b.Accommodation.Name, &b.Accommodation.Address, &b.Accommodation.CheckIn, &b.Accommodation.CheckOut,
		&b.EmergencyContact.Name, &b.EmergencyContact.Phone, &b.SpecialRequirements, &b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return nil, err
	}
	b.Status = Status(status)
	b.Currency = strings.TrimSpace(b.Currency)
	if len(rawSchedule) > 0 {
		if err := json.Unmarshal(rawSchedule, &b.PaymentSchedule); err != nil {
			return nil, fmt.Errorf("decode payment schedule: %w", err)
		}
	}
	return &b, nil
}

func nonNilSchedule(s []Installment) []Installment {
	if s == nil {
		return []Installment{}
	}
	return s
}
