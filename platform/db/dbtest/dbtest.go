// Package dbtest starts a throwaway migrated postgres for repository
// integration tests. Tests are skipped unless INTEGRATION_TESTS=1.
package dbtest

import (
	"context"
	"os"
	"testing"
	"time"

	"medtour_backend/migrations"
	"medtour_backend/platform/db"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

type databaseConfig struct {
	url string
}

func (c databaseConfig) GetDatabaseURL() string      { return c.url }
func (c databaseConfig) GetDatabaseMaxConns() int32 { return 5 }

// Start returns a pool over a fresh database with every migration applied.
// The container is terminated when the test finishes.
func Start(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if os.Getenv("INTEGRATION_TESTS") != "1" {
		t.Skip("set INTEGRATION_TESTS=1 to run postgres integration tests")
	}

	ctx := context.Background()
	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("medtour"),
		postgres.WithUsername("medtour"),
		postgres.WithPassword("medtour"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := pgContainer.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}

	cfg := databaseConfig{url: connStr}
	if err := db.RunMigrations(ctx, cfg, migrations.FS); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

// SeedJourney inserts a patient intake and a journey in INQUIRY and returns
// the journey id.
func SeedJourney(t *testing.T, pool *pgxpool.Pool, fullName, email, phone string) (journeyID, intakeID string) {
	t.Helper()
	ctx := context.Background()
	err := pool.QueryRow(ctx, `
		INSERT INTO patient_intakes (full_name, email, phone) VALUES ($1, $2, $3) RETURNING id::text`,
		fullName, email, phone).Scan(&intakeID)
	if err != nil {
		t.Fatalf("seed intake: %v", err)
	}
	err = pool.QueryRow(ctx, `
		INSERT INTO journeys (id, patient_intake_id, current_state, state_history)
		VALUES (gen_random_uuid(), $1, 'INQUIRY', '[{"state":"INQUIRY","actor":"system","reason":"seed"}]')
		RETURNING id::text`, intakeID).Scan(&journeyID)
	if err != nil {
		t.Fatalf("seed journey: %v", err)
	}
	return journeyID, intakeID
}
