package eventlog

import (
	"context"
	"encoding/json"
	"fmt"

	"medtour_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads and appends journey events.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new event log repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Append inserts one event using the repository's pool.
func (r *Repository) Append(ctx context.Context, entry Entry) (Event, error) {
	return Insert(ctx, r.pool, entry)
}

// Insert appends one event through q, which may be a pool or an open transaction.
// Callers that change journey or quote state pass their transaction so the
// event commits together with the change it describes.
func Insert(ctx context.Context, q db.Querier, entry Entry) (Event, error) {
	if err := entry.Validate(); err != nil {
		return Event{}, err
	}

	data := entry.Data
	if data == nil {
		data = map[string]any{}
	}
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("marshal event data: %w", err)
	}

	event := Event{
		ID:        uuid.New(),
		JourneyID: entry.JourneyID,
		Type:      entry.Type,
		FromState: entry.FromState,
		ToState:   entry.ToState,
		ActorType: entry.ActorType,
		ActorID:   entry.ActorID,
		Data:      data,
	}

	err = q.QueryRow(ctx, `
		INSERT INTO journey_events (id, journey_id, event_type, from_state, to_state, actor_type, actor_id, event_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING seq, created_at
	`, event.ID, event.JourneyID, string(event.Type), event.FromState, event.ToState,
		string(event.ActorType), event.ActorID, dataJSON).Scan(&event.Seq, &event.CreatedAt)
	if err != nil {
		return Event{}, fmt.Errorf("insert journey event: %w", db.Classify("eventlog.Insert", err))
	}

	return event, nil
}

// ListByJourney returns the journey's events oldest first. Ties on created_at
// are broken by insertion sequence.
func (r *Repository) ListByJourney(ctx context.Context, journeyID uuid.UUID) ([]Event, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, seq, journey_id, event_type, from_state, to_state, actor_type, actor_id, event_data, created_at
		FROM journey_events
		WHERE journey_id = $1
		ORDER BY created_at ASC, seq ASC
	`, journeyID)
	if err != nil {
		return nil, fmt.Errorf("list journey events: %w", db.Classify("eventlog.ListByJourney", err))
	}
	defer rows.Close()

	events := make([]Event, 0)
	for rows.Next() {
		var (
			event     Event
			eventType string
			actorType string
			rawData   []byte
		)
		if err := rows.Scan(&event.ID, &event.Seq, &event.JourneyID, &eventType, &event.FromState,
			&event.ToState, &actorType, &event.ActorID, &rawData, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan journey event: %w", err)
		}
		event.Type = Type(eventType)
		event.ActorType = ActorType(actorType)
		if len(rawData) > 0 {
			if err := json.Unmarshal(rawData, &event.Data); err != nil {
				return nil, fmt.Errorf("decode event data: %w", err)
			}
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journey events: %w", db.Classify("eventlog.ListByJourney", err))
	}

	return events, nil
}
