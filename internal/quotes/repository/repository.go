package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"medtour_backend/internal/eventlog"
	"medtour_backend/internal/notification/outbox"
	"medtour_backend/platform/apperr"
	"medtour_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	quoteNotFoundMsg = "quote not found"
	quoteColumns     = `id, journey_id, hospital_id, treatment_id, treatment_cost, accommodation_cost,
		transport_cost, misc_cost, total_amount, currency, payment_schedule, notes, status, valid_until,
		version, sent_at, accepted_at, created_at, updated_at`
)

// ErrStatusChanged is returned when a status compare-and-set matched no row
// because the quote is no longer in the expected status.
var ErrStatusChanged = errors.New("quote status changed concurrently")

// Repository provides database operations for quotes.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new quotes repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a quote and its QUOTE_CREATED event in a single transaction.
func (r *Repository) Create(ctx context.Context, q *Quote, created eventlog.Entry) error {
	schedule, err := json.Marshal(nonNilSchedule(q.PaymentSchedule))
	if err != nil {
		return fmt.Errorf("marshal payment schedule: %w", err)
	}

	err = db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO quotes (
				id, journey_id, hospital_id, treatment_id,
				treatment_cost, accommodation_cost, transport_cost, misc_cost, total_amount,
				currency, payment_schedule, notes, status, valid_until, version, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
			q.ID, q.JourneyID, q.HospitalID, q.TreatmentID,
			q.TreatmentCost, q.AccommodationCost, q.TransportCost, q.MiscCost, q.TotalAmount,
			q.Currency, schedule, q.Notes, string(q.Status), q.ValidUntil, q.Version, q.CreatedAt, q.UpdatedAt,
		); err != nil {
			return err
		}
		_, err := eventlog.Insert(ctx, tx, created)
		return err
	})
	switch {
	case err == nil:
		return nil
	case db.IsForeignKeyViolation(err, ""):
		return apperr.NotFound("journey not found")
	default:
		return fmt.Errorf("create quote: %w", db.Classify("quotes.Create", err))
	}
}

// GetByID loads one quote.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Quote, error) {
	q, err := scanQuote(r.pool.QueryRow(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound(quoteNotFoundMsg)
	}
	if err != nil {
		return nil, fmt.Errorf("get quote: %w", db.Classify("quotes.GetByID", err))
	}
	return q, nil
}

// List returns quotes newest first, optionally for one journey.
func (r *Repository) List(ctx context.Context, journeyID *uuid.UUID) ([]Quote, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+quoteColumns+`
		FROM quotes
		WHERE ($1::uuid IS NULL OR journey_id = $1)
		ORDER BY created_at DESC`, journeyID)
	if err != nil {
		return nil, fmt.Errorf("list quotes: %w", db.Classify("quotes.List", err))
	}
	defer rows.Close()

	items := make([]Quote, 0)
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		items = append(items, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quotes: %w", db.Classify("quotes.List", err))
	}
	return items, nil
}

// Update rewrites the editable fields while the quote is DRAFT or SENT.
// Returns ErrStatusChanged when the quote left those statuses in the meantime.
func (r *Repository) Update(ctx context.Context, q *Quote) (*Quote, error) {
	schedule, err := json.Marshal(nonNilSchedule(q.PaymentSchedule))
	if err != nil {
		return nil, fmt.Errorf("marshal payment schedule: %w", err)
	}

	updated, err := scanQuote(r.pool.QueryRow(ctx, `
		UPDATE quotes
		SET treatment_cost = $2, accommodation_cost = $3, transport_cost = $4, misc_cost = $5,
			total_amount = $6, payment_schedule = $7, notes = $8, valid_until = $9, updated_at = $10
		WHERE id = $1 AND status IN ('DRAFT', 'SENT')
		RETURNING `+quoteColumns,
		q.ID, q.TreatmentCost, q.AccommodationCost, q.TransportCost, q.MiscCost,
		q.TotalAmount, schedule, q.Notes, q.ValidUntil, q.UpdatedAt))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrStatusChanged
	}
	if err != nil {
		return nil, fmt.Errorf("update quote: %w", db.Classify("quotes.Update", err))
	}
	return updated, nil
}

// MarkSent moves a DRAFT quote to SENT and, in the same transaction, records
// the QUOTE_SENT event and enqueues the patient notification.
func (r *Repository) MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time, evt eventlog.Entry, task outbox.Task) (*Quote, error) {
	var updated *Quote
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		q, err := scanQuote(tx.QueryRow(ctx, `
			UPDATE quotes
			SET status = 'SENT', sent_at = $2, updated_at = $2
			WHERE id = $1 AND status = 'DRAFT'
			RETURNING `+quoteColumns, id, sentAt))
		if err != nil {
			return err
		}
		if _, err := eventlog.Insert(ctx, tx, evt); err != nil {
			return err
		}
		if _, err := outbox.Insert(ctx, tx, task); err != nil {
			return err
		}
		updated = q
		return nil
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrStatusChanged
	}
	if err != nil {
		return nil, fmt.Errorf("send quote: %w", db.Classify("quotes.MarkSent", err))
	}
	return updated, nil
}

// MarkAccepted moves a SENT, unexpired quote to ACCEPTED. This single statement
// is the durability boundary of acceptance.
func (r *Repository) MarkAccepted(ctx context.Context, id uuid.UUID, acceptedAt time.Time) (*Quote, error) {
	q, err := scanQuote(r.pool.QueryRow(ctx, `
		UPDATE quotes
		SET status = 'ACCEPTED', accepted_at = $2, updated_at = $2
		WHERE id = $1 AND status = 'SENT' AND valid_until > $2
		RETURNING `+quoteColumns, id, acceptedAt))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrStatusChanged
	}
	if err != nil {
		return nil, fmt.Errorf("accept quote: %w", db.Classify("quotes.MarkAccepted", err))
	}
	return q, nil
}

// RecordAcceptance writes the QUOTE_ACCEPTED event and the confirmation
// notification together.
func (r *Repository) RecordAcceptance(ctx context.Context, evt eventlog.Entry, task outbox.Task) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := eventlog.Insert(ctx, tx, evt); err != nil {
			return err
		}
		_, err := outbox.Insert(ctx, tx, task)
		return err
	})
	if err != nil {
		return fmt.Errorf("record acceptance: %w", db.Classify("quotes.RecordAcceptance", err))
	}
	return nil
}

// ExpireStale moves SENT quotes whose validity has passed to EXPIRED. DRAFT and
// ACCEPTED quotes are never touched, so running it twice is harmless.
func (r *Repository) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE quotes
		SET status = 'EXPIRED', updated_at = $1
		WHERE status = 'SENT' AND valid_until <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("expire quotes: %w", db.Classify("quotes.ExpireStale", err))
	}
	return tag.RowsAffected(), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuote(s rowScanner) (*Quote, error) {
	var (
		q           Quote
		status      string
		rawSchedule []byte
	)
	if err := s.Scan(&q.ID, &q.JourneyID, &q.HospitalID, &q.TreatmentID,
		&q.TreatmentCost, &q.AccommodationCost, &q.TransportCost, &q.MiscCost, &q.TotalAmount,
		&q.Currency, &rawSchedule, &q.Notes, &status, &q.ValidUntil,
		&q.Version, &q.SentAt, &q.AcceptedAt, &q.CreatedAt, &q.UpdatedAt); err != nil {
		return nil, err
	}
	q.Status = Status(status)
	if len(rawSchedule) > 0 {
		if err := json.Unmarshal(rawSchedule, &q.PaymentSchedule); err != nil {
			return nil, fmt.Errorf("decode payment schedule: %w", err)
		}
	}
	return &q, nil
}

func nonNilSchedule(s []Installment) []Installment {
	if s == nil {
		return []Installment{}
	}
	return s
}
