// Package repository persists journeys. Every mutation is a compare-and-set on
// the version column and commits together with the event that describes it.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"medtour_backend/internal/eventlog"
	"medtour_backend/internal/journeys/domain"
	"medtour_backend/platform/apperr"
	"medtour_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	journeyNotFoundMsg   = "journey not found"
	intakeConstraint     = "journeys_patient_intake_id_key"
	journeyColumns       = `id, patient_intake_id, current_state, state_history, state_data, assigned_coordinator_id, version, created_at, updated_at`
	staleJourneyMsg      = "journey was modified concurrently; reload and retry"
	defaultListPageLimit = 50
)

// Repository provides journey persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new journey repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TransitionUpdate describes a state change guarded by ExpectedVersion.
type TransitionUpdate struct {
	JourneyID       uuid.UUID
	ExpectedVersion int
	To              domain.State
	Entry           domain.HistoryEntry
	UpdatedAt       time.Time
}

// AssignmentUpdate describes a coordinator change guarded by ExpectedVersion.
type AssignmentUpdate struct {
	JourneyID       uuid.UUID
	ExpectedVersion int
	CoordinatorID   uuid.UUID
	UpdatedAt       time.Time
}

// ListParams filters the coordinator journey listing.
type ListParams struct {
	State         *domain.State
	CoordinatorID *uuid.UUID
	Limit         int
	Offset        int
}

// Create inserts a new journey and its JOURNEY_STARTED event in one transaction.
func (r *Repository) Create(ctx context.Context, j *domain.Journey, started eventlog.Entry) error {
	history, err := json.Marshal(j.StateHistory)
	if err != nil {
		return fmt.Errorf("marshal state history: %w", err)
	}
	stateData, err := json.Marshal(nonNilMap(j.StateData))
	if err != nil {
		return fmt.Errorf("marshal state data: %w", err)
	}

	err = db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO journeys (id, patient_intake_id, current_state, state_history, state_data,
				assigned_coordinator_id, version, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, j.ID, j.PatientIntakeID, string(j.CurrentState), history, stateData,
			j.AssignedCoordinatorID, j.Version, j.CreatedAt, j.UpdatedAt)
		if err != nil {
			return err
		}
		_, err = eventlog.Insert(ctx, tx, started)
		return err
	})
	switch {
	case err == nil:
		return nil
	case db.IsUniqueViolation(err, intakeConstraint):
		return apperr.Conflict("a journey already exists for this patient intake")
	case db.IsForeignKeyViolation(err, ""):
		return apperr.NotFound("patient intake not found")
	default:
		return fmt.Errorf("create journey: %w", db.Classify("journeys.Create", err))
	}
}

// GetByID loads one journey.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Journey, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+journeyColumns+` FROM journeys WHERE id = $1`, id)
	j, err := scanJourney(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound(journeyNotFoundMsg)
	}
	if err != nil {
		return nil, fmt.Errorf("get journey: %w", db.Classify("journeys.GetByID", err))
	}
	return j, nil
}

// GetByIntake loads the journey started for a patient intake.
func (r *Repository) GetByIntake(ctx context.Context, intakeID uuid.UUID) (*domain.Journey, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+journeyColumns+` FROM journeys WHERE patient_intake_id = $1`, intakeID)
	j, err := scanJourney(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound(journeyNotFoundMsg)
	}
	if err != nil {
		return nil, fmt.Errorf("get journey by intake: %w", db.Classify("journeys.GetByIntake", err))
	}
	return j, nil
}

// Exists reports whether a journey row exists.
func (r *Repository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM journeys WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("journey exists: %w", db.Classify("journeys.Exists", err))
	}
	return exists, nil
}

// ApplyTransition sets the new state, appends the history entry and records the
// STATE_TRANSITION event atomically. A version mismatch writes nothing and
// returns a conflict.
func (r *Repository) ApplyTransition(ctx context.Context, u TransitionUpdate, evt eventlog.Entry) (*domain.Journey, error) {
	entry, err := json.Marshal([]domain.HistoryEntry{u.Entry})
	if err != nil {
		return nil, fmt.Errorf("marshal history entry: %w", err)
	}

	var updated *domain.Journey
	err = db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			UPDATE journeys
			SET current_state = $3,
				state_history = state_history || $4::jsonb,
				version = version + 1,
				updated_at = $5
			WHERE id = $1 AND version = $2
			RETURNING `+journeyColumns,
			u.JourneyID, u.ExpectedVersion, string(u.To), entry, u.UpdatedAt)
		j, err := scanJourney(row)
		if err != nil {
			return err
		}
		if _, err := eventlog.Insert(ctx, tx, evt); err != nil {
			return err
		}
		updated = j
		return nil
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.missOrStale(ctx, u.JourneyID)
	}
	if err != nil {
		return nil, fmt.Errorf("apply transition: %w", db.Classify("journeys.ApplyTransition", err))
	}
	return updated, nil
}

// AssignCoordinator overwrites the assigned coordinator and records the
// COORDINATOR_ASSIGNED event atomically.
func (r *Repository) AssignCoordinator(ctx context.Context, u AssignmentUpdate, evt eventlog.Entry) (*domain.Journey, error) {
	var updated *domain.Journey
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			UPDATE journeys
			SET assigned_coordinator_id = $3,
				version = version + 1,
				updated_at = $4
			WHERE id = $1 AND version = $2
			RETURNING `+journeyColumns,
			u.JourneyID, u.ExpectedVersion, u.CoordinatorID, u.UpdatedAt)
		j, err := scanJourney(row)
		if err != nil {
			return err
		}
		if _, err := eventlog.Insert(ctx, tx, evt); err != nil {
			return err
		}
		updated = j
		return nil
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.missOrStale(ctx, u.JourneyID)
	}
	if err != nil {
		return nil, fmt.Errorf("assign coordinator: %w", db.Classify("journeys.AssignCoordinator", err))
	}
	return updated, nil
}

// List returns journeys most recently updated first, plus the total match count.
func (r *Repository) List(ctx context.Context, p ListParams) ([]domain.Journey, int, error) {
	if p.Limit < 1 {
		p.Limit = defaultListPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}

	var (
		where []string
		args  []any
	)
	if p.State != nil {
		args = append(args, string(*p.State))
		where = append(where, fmt.Sprintf("current_state = $%d", len(args)))
	}
	if p.CoordinatorID != nil {
		args = append(args, *p.CoordinatorID)
		where = append(where, fmt.Sprintf("assigned_coordinator_id = $%d", len(args)))
	}
	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM journeys `+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count journeys: %w", db.Classify("journeys.List", err))
	}

	args = append(args, p.Limit, p.Offset)
	query := fmt.Sprintf(`SELECT %s FROM journeys %s ORDER BY updated_at DESC LIMIT $%d OFFSET $%d`,
		journeyColumns, whereClause, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list journeys: %w", db.Classify("journeys.List", err))
	}
	defer rows.Close()

	items := make([]domain.Journey, 0)
	for rows.Next() {
		j, err := scanJourney(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan journey: %w", err)
		}
		items = append(items, *j)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate journeys: %w", db.Classify("journeys.List", err))
	}
	return items, total, nil
}

func (r *Repository) missOrStale(ctx context.Context, id uuid.UUID) error {
	exists, err := r.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return apperr.NotFound(journeyNotFoundMsg)
	}
	return apperr.Conflict(staleJourneyMsg).WithDetails(map[string]any{"reason": "stale_version"})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJourney(s rowScanner) (*domain.Journey, error) {
	var (
		j          domain.Journey
		state      string
		rawHistory []byte
		rawData    []byte
	)
	if err := s.Scan(&j.ID, &j.PatientIntakeID, &state, &rawHistory, &rawData,
		&j.AssignedCoordinatorID, &j.Version, &j.CreatedAt, &j.UpdatedAt); err != nil {
		return nil, err
	}
	j.CurrentState = domain.State(state)
	if len(rawHistory) > 0 {
		if err := json.Unmarshal(rawHistory, &j.StateHistory); err != nil {
			return nil, fmt.Errorf("decode state history: %w", err)
		}
	}
	if len(rawData) > 0 {
		if err := json.Unmarshal(rawData, &j.StateData); err != nil {
			return nil, fmt.Errorf("decode state data: %w", err)
		}
	}
	return &j, nil
}

func nonNilMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
