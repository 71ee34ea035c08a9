package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const retryInterval = 2 * time.Second

type usageEvent struct {
	at      time.Time
	tokens  int
	request bool
}

// MemoryLimiter is a process-local sliding-window limiter. It is the
// fallback when Redis is unreachable and the default in tests; it is not
// safe across processes.
type MemoryLimiter struct {
	mu     sync.Mutex
	limits Limits
	events []usageEvent
	now    func() time.Time
}

func NewMemoryLimiter(limits Limits) *MemoryLimiter {
	return &MemoryLimiter{limits: limits, now: time.Now}
}

func (m *MemoryLimiter) CheckAndWait(ctx context.Context, estimatedTokens int, requestID string) error {
	for {
		ok, err := m.tryAdmit(estimatedTokens)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		log.Debug().Str("request_id", requestID).Msg("reasoning rate limit reached, waiting")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
}

// RecordUsage books the tokens actually spent. Token-only events do not
// count against the request windows; the reservation made by CheckAndWait
// already did.
func (m *MemoryLimiter) RecordUsage(ctx context.Context, actualTokens int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, usageEvent{at: m.now(), tokens: actualTokens})
}

// tryAdmit reports whether a request with the given token estimate fits the
// current windows. The daily cap is a hard error, per-minute pressure is a
// soft "not yet".
func (m *MemoryLimiter) tryAdmit(estimatedTokens int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.prune(now)

	var dayRequests, minuteRequests, minuteTokens int
	minuteAgo := now.Add(-time.Minute)
	for _, ev := range m.events {
		if ev.request {
			dayRequests++
		}
		if ev.at.After(minuteAgo) {
			if ev.request {
				minuteRequests++
			}
			minuteTokens += ev.tokens
		}
	}

	if m.limits.RequestsPerDay > 0 && dayRequests >= m.limits.RequestsPerDay {
		return false, ErrDailyCapExceeded
	}
	if m.limits.RequestsPerMinute > 0 && minuteRequests >= m.limits.RequestsPerMinute {
		return false, nil
	}
	if m.limits.TokensPerMinute > 0 && minuteTokens+estimatedTokens > m.limits.TokensPerMinute {
		return false, nil
	}

	// Reserve the slot; RecordUsage later books the real token count under
	// a fresh token-only event, so reservations carry the estimate only.
	m.events = append(m.events, usageEvent{at: now, tokens: estimatedTokens, request: true})
	return true, nil
}

func (m *MemoryLimiter) prune(now time.Time) {
	cutoff := now.Add(-24 * time.Hour)
	kept := m.events[:0]
	for _, ev := range m.events {
		if ev.at.After(cutoff) {
			kept = append(kept, ev)
		}
	}
	m.events = kept
}
