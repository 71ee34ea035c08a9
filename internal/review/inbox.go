package review

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type InMemoryInbox struct {
	mu       sync.RWMutex
	pending  map[string]*Entry // keyed by claim id
	notifyCh chan struct{}
	closed   bool
}

func NewInMemoryInbox() *InMemoryInbox {
	return &InMemoryInbox{
		pending:  make(map[string]*Entry),
		notifyCh: make(chan struct{}, 100),
	}
}

// Add registers a claim for review. Re-adjudicating a claim that is
// already waiting replaces its entry in place.
func (i *InMemoryInbox) Add(ctx context.Context, e Entry) error {
	if e.ClaimID == "" {
		return fmt.Errorf("claim_id cannot be empty")
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.EnqueuedAt.IsZero() {
		e.EnqueuedAt = time.Now()
	}

	i.mu.Lock()
	i.pending[e.ClaimID] = &e
	i.mu.Unlock()

	i.notifyWatchers()

	log.Info().Str("claim_id", e.ClaimID).Str("decision", e.Decision).Msg("claim queued for manual review")
	return nil
}

func (i *InMemoryInbox) Pending(ctx context.Context) ([]Entry, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	pending := make([]Entry, 0, len(i.pending))
	for _, e := range i.pending {
		pending = append(pending, *e)
	}

	sort.Slice(pending, func(a, b int) bool {
		return pending[a].EnqueuedAt.Before(pending[b].EnqueuedAt)
	})

	return pending, nil
}

// Resolve removes a claim once a reviewer has decided it. Resolving a
// claim that is not waiting is a no-op: the entry may have been replaced
// by a re-adjudication or the inbox repopulated after a restart.
func (i *InMemoryInbox) Resolve(ctx context.Context, claimID string) error {
	i.mu.Lock()
	_, exists := i.pending[claimID]
	delete(i.pending, claimID)
	i.mu.Unlock()

	if exists {
		i.notifyWatchers()
		log.Info().Str("claim_id", claimID).Msg("claim resolved by reviewer")
	}
	return nil
}

func (i *InMemoryInbox) NotifyChannel() <-chan struct{} {
	return i.notifyCh
}

func (i *InMemoryInbox) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return nil
	}
	i.closed = true
	i.pending = make(map[string]*Entry)
	close(i.notifyCh)
	return nil
}

// notifyWatchers holds the lock across the send so Close cannot close the
// channel between the closed check and the send.
func (i *InMemoryInbox) notifyWatchers() {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if i.closed {
		return
	}

	select {
	case i.notifyCh <- struct{}{}:
	default:
	}
}
