package content

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

// Hospital is a partner clinic from the reference data.
type Hospital struct {
	ID          uuid.UUID `json:"id"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	City        *string   `json:"city,omitempty"`
	CountryCode *string   `json:"countryCode,omitempty"`
	CountryName *string   `json:"countryName,omitempty"`
}

// Treatment is a procedure from the reference data.
type Treatment struct {
	ID       uuid.UUID `json:"id"`
	Slug     string    `json:"slug"`
	Name     string    `json:"name"`
	Category *string   `json:"category,omitempty"`
}

// Repository reads reference data. It never writes.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new reference data repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Hospital(ctx context.Context, id uuid.UUID) (*Hospital, error) {
	var h Hospital
	err := r.pool.QueryRow(ctx, `
		SELECT h.id, h.slug, h.name, h.city, h.country_code, c.name
		FROM hospitals h
		LEFT JOIN countries c ON c.code = h.country_code
		WHERE h.id = $1`, id,
	).Scan(&h.ID, &h.Slug, &h.Name, &h.City, &h.CountryCode, &h.CountryName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("hospital not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get hospital: %w", db.Classify("content.Hospital", err))
	}
	return &h, nil
}

func (r *Repository) Treatment(ctx context.Context, id uuid.UUID) (*Treatment, error) {
	var t Treatment
	err := r.pool.QueryRow(ctx, `SELECT id, slug, name, category FROM treatments WHERE id = $1`, id).
		Scan(&t.ID, &t.Slug, &t.Name, &t.Category)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("treatment not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get treatment: %w", db.Classify("content.Treatment", err))
	}
	return &t, nil
}
