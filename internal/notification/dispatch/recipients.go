package dispatch

import (
	"context"
	"errors"
	"fmt"

	"medtour_backend/platform/apperr"
	"medtour_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Recipient is the patient contact resolved through the journey's intake.
type Recipient struct {
	FullName string
	Email    string
	Phone    string
}

// RecipientRepository reads patient contacts.
type RecipientRepository struct {
	pool *pgxpool.Pool
}

func NewRecipientRepository(pool *pgxpool.Pool) *RecipientRepository {
	return &RecipientRepository{pool: pool}
}

// Recipient returns NotFound when the journey or its intake is missing.
func (r *RecipientRepository) Recipient(ctx context.Context, journeyID uuid.UUID) (Recipient, error) {
	var (
		rec                    Recipient
		fullName, email, phone *string
	)
	err := r.pool.QueryRow(ctx, `
		SELECT pi.full_name, pi.email, pi.phone
		FROM journeys j
		JOIN patient_intakes pi ON pi.id = j.patient_intake_id
		WHERE j.id = $1`, journeyID).Scan(&fullName, &email, &phone)
	if errors.Is(err, pgx.ErrNoRows) {
		return Recipient{}, apperr.NotFound("patient intake not found")
	}
	if err != nil {
		return Recipient{}, fmt.Errorf("resolve recipient: %w", db.Classify("dispatch.Recipient", err))
	}
	if fullName != nil {
		rec.FullName = *fullName
	}
	if email != nil {
		rec.Email = *email
	}
	if phone != nil {
		rec.Phone = *phone
	}
	return rec, nil
}
