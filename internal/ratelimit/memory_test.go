package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryLimiterAdmitsWithinBudget(t *testing.T) {
	lim := NewMemoryLimiter(Limits{RequestsPerMinute: 5, TokensPerMinute: 10000, RequestsPerDay: 100})

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := lim.CheckAndWait(ctx, 1000, "req"); err != nil {
			t.Fatalf("request %d should be admitted: %v", i, err)
		}
		lim.RecordUsage(ctx, 900)
	}
}

func TestMemoryLimiterDailyCapIsHardError(t *testing.T) {
	lim := NewMemoryLimiter(Limits{RequestsPerDay: 2})
	ctx := context.Background()

	if err := lim.CheckAndWait(ctx, 100, "a"); err != nil {
		t.Fatalf("first request: %v", err)
	}
	if err := lim.CheckAndWait(ctx, 100, "b"); err != nil {
		t.Fatalf("second request: %v", err)
	}

	err := lim.CheckAndWait(ctx, 100, "c")
	if !errors.Is(err, ErrDailyCapExceeded) {
		t.Fatalf("expected ErrDailyCapExceeded, got %v", err)
	}
}

func TestMemoryLimiterBlocksUntilContextCancel(t *testing.T) {
	lim := NewMemoryLimiter(Limits{RequestsPerMinute: 1, RequestsPerDay: 100})

	if err := lim.CheckAndWait(context.Background(), 100, "a"); err != nil {
		t.Fatalf("first request: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := lim.CheckAndWait(ctx, 100, "b")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded while window is full, got %v", err)
	}
}

func TestMemoryLimiterTokenWindow(t *testing.T) {
	lim := NewMemoryLimiter(Limits{TokensPerMinute: 1000, RequestsPerDay: 100})
	ctx := context.Background()

	if err := lim.CheckAndWait(ctx, 800, "a"); err != nil {
		t.Fatalf("first request: %v", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if err := lim.CheckAndWait(waitCtx, 800, "b"); err == nil {
		t.Fatal("second 800-token request should not fit a 1000-token window")
	}
}
