package platform

import (
	"context"
	"errors"
	"sync"

	"tomatoService/internal/clock"
)

// ErrStoreUnavailable wraps failures to reach the durable store
var ErrStoreUnavailable = errors.New("state store unavailable")

// StateStore is the single durable slot holding the timer state
type StateStore interface {
	// Load returns nil when nothing has been stored yet
	Load(ctx context.Context) (*clock.TimerState, error)
	Save(ctx context.Context, state clock.TimerState) error
	Close() error
}

// MemoryStore is a StateStore that lives only as long as the process
type MemoryStore struct {
	mu    sync.RWMutex
	state *clock.TimerState
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns a copy of the stored state
func (ms *MemoryStore) Load(_ context.Context) (*clock.TimerState, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	if ms.state == nil {
		return nil, nil
	}
	state := ms.state.Clone()
	return &state, nil
}

// Save replaces the stored state
func (ms *MemoryStore) Save(_ context.Context, state clock.TimerState) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	stored := state.Clone()
	ms.state = &stored
	return nil
}

// Close is a no-op
func (ms *MemoryStore) Close() error {
	return nil
}
