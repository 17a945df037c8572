package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"medtour_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const recordColumns = `id, journey_id, template_name, channel, priority, data, status, attempts, created_at`

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Enqueue inserts a pending task on its own.
func (r *Repository) Enqueue(ctx context.Context, task Task) (uuid.UUID, error) {
	return Insert(ctx, r.pool, task)
}

// Insert writes a pending task through q so callers can enqueue inside the
// transaction that produced the notification-worthy change. No idempotency key:
// a retried operation may enqueue twice.
func Insert(ctx context.Context, q db.Querier, task Task) (uuid.UUID, error) {
	if err := task.validate(); err != nil {
		return uuid.Nil, err
	}
	if task.Priority == "" {
		task.Priority = PriorityNormal
	}
	data := task.Data
	if data == nil {
		data = map[string]any{}
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal notification data: %w", err)
	}

	id := uuid.New()
	_, err = q.Exec(ctx, `
		INSERT INTO notifications (id, journey_id, template_name, channel, priority, data, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending')
	`, id, task.JourneyID, task.TemplateName, string(task.Channel), string(task.Priority), payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert notification: %w", db.Classify("outbox.Insert", err))
	}
	return id, nil
}

// ClaimPending moves up to limit due pending rows to the given status and returns
// them, highest priority first and oldest first within a priority.
// SKIP LOCKED lets several workers drain the table concurrently.
func (r *Repository) ClaimPending(ctx context.Context, limit int, to Status) ([]Record, error) {
	if limit < 1 {
		limit = 50
	}
	if to != StatusEnqueued && to != StatusProcessing {
		return nil, errors.New("outbox: claim target must be enqueued or processing")
	}

	var results []Record
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `WITH due AS (
			SELECT id
			FROM notifications
			WHERE status = 'pending' AND available_at <= now()
			ORDER BY priority_rank ASC, created_at ASC
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE notifications n
		SET status = $2,
			attempts = n.attempts + CASE WHEN $2 = 'processing' THEN 1 ELSE 0 END,
			updated_at = now()
		FROM due
		WHERE n.id = due.id
		RETURNING n.id, n.journey_id, n.template_name, n.channel, n.priority, n.data, n.status, n.attempts, n.created_at`,
			limit, string(to))
		if err != nil {
			return err
		}
		results, err = collectRecords(rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("claim notifications: %w", db.Classify("outbox.ClaimPending", err))
	}

	sortByPriority(results)
	return results, nil
}

// Acquire moves one enqueued (or still pending) row to processing. ok is false
// when another worker already took it or it is finished; the caller skips it.
func (r *Repository) Acquire(ctx context.Context, id uuid.UUID) (Record, bool, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE notifications
		SET status = 'processing', attempts = attempts + 1, updated_at = now()
		WHERE id = $1 AND status IN ('pending', 'enqueued')
		RETURNING `+recordColumns, id)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("acquire notification: %w", db.Classify("outbox.Acquire", err))
	}
	return rec, true, nil
}

// MarkSent records a successful delivery.
func (r *Repository) MarkSent(ctx context.Context, id uuid.UUID, externalID *string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE notifications
		SET status = 'sent', external_id = $2, error_message = NULL, sent_at = now(), updated_at = now()
		WHERE id = $1`, id, externalID)
	return db.Classify("outbox.MarkSent", err)
}

// MarkFailed records a terminal delivery failure.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE notifications
		SET status = 'failed', error_message = $2, updated_at = now()
		WHERE id = $1`, id, reason)
	return db.Classify("outbox.MarkFailed", err)
}

// MarkPending returns a row to the queue, not to be claimed before availableAt.
func (r *Repository) MarkPending(ctx context.Context, id uuid.UUID, reason *string, availableAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE notifications
		SET status = 'pending', error_message = $2, available_at = $3, updated_at = now()
		WHERE id = $1`, id, reason, availableAt)
	return db.Classify("outbox.MarkPending", err)
}

// ReleaseStale returns rows stuck in enqueued or processing for longer than
// olderThan to pending. Covers workers that crashed mid-delivery.
func (r *Repository) ReleaseStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notifications
		SET status = 'pending', updated_at = now()
		WHERE status IN ('enqueued', 'processing') AND updated_at < now() - make_interval(secs => $1)`,
		olderThan.Seconds())
	if err != nil {
		return 0, fmt.Errorf("release stale notifications: %w", db.Classify("outbox.ReleaseStale", err))
	}
	return tag.RowsAffected(), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(s rowScanner) (Record, error) {
	var (
		rec      Record
		channel  string
		priority string
		status   string
	)
	if err := s.Scan(&rec.ID, &rec.JourneyID, &rec.TemplateName, &channel, &priority,
		&rec.Data, &status, &rec.Attempts, &rec.CreatedAt); err != nil {
		return Record{}, err
	}
	rec.Channel = Channel(channel)
	rec.Priority = Priority(priority)
	rec.Status = Status(status)
	return rec, nil
}

func collectRecords(rows pgx.Rows) ([]Record, error) {
	defer rows.Close()
	results := make([]Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}
