package startup

import (
	"context"
	"errors"
	"testing"
	"time"

	"medtour_backend/platform/logger"
)

func TestRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), logger.NewNop(), "db", 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRetryWrapsLastError(t *testing.T) {
	boom := errors.New("connection refused")
	err := Retry(context.Background(), logger.NewNop(), "db", 2, time.Millisecond, func() error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := Retry(ctx, logger.NewNop(), "db", 5, time.Millisecond, func() error { calls++; return nil })
	if !errors.Is(err, context.Canceled) || calls != 0 {
		t.Fatalf("expected cancel before first call, got err=%v calls=%d", err, calls)
	}
}

func TestRetryRejectsZeroAttempts(t *testing.T) {
	if err := Retry(context.Background(), logger.NewNop(), "db", 0, time.Millisecond, func() error { return nil }); err == nil {
		t.Fatalf("expected error")
	}
}
