package registry

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/phrazzld/enhance-api/internal/domain"
)

// shardCount is the number of independently locked partitions.
const shardCount = 32

type shard struct {
	mu      sync.RWMutex
	entries map[domain.JobID]domain.JobState
}

// MemoryRegistry is a process-local Registry. Entries are spread over
// lock-striped shards keyed by a hash of the identity.
type MemoryRegistry struct {
	shards [shardCount]*shard
	now    func() time.Time
}

var _ Registry = (*MemoryRegistry)(nil)

// NewMemoryRegistry creates an empty in-memory registry.
func NewMemoryRegistry() *MemoryRegistry {
	r := &MemoryRegistry{now: func() time.Time { return time.Now().UTC() }}
	for i := range r.shards {
		r.shards[i] = &shard{entries: make(map[domain.JobID]domain.JobState)}
	}
	return r
}

func (r *MemoryRegistry) shardFor(id domain.JobID) *shard {
	h := fnv.New32a()
	_, _ = h.Write(id[:])
	return r.shards[h.Sum32()%shardCount]
}

// Create implements Registry.
func (r *MemoryRegistry) Create(ctx context.Context, id domain.JobID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s := r.shardFor(id)
	now := r.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = domain.JobState{
		ID:        id,
		Status:    domain.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

// Get implements Registry.
func (r *MemoryRegistry) Get(ctx context.Context, id domain.JobID) (domain.JobState, error) {
	if err := ctx.Err(); err != nil {
		return domain.JobState{}, err
	}

	s := r.shardFor(id)
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.entries[id]
	if !ok {
		return domain.JobState{}, domain.ErrJobNotFound
	}
	return state, nil
}

// Status implements Registry.
func (r *MemoryRegistry) Status(ctx context.Context, id domain.JobID) (domain.JobStatus, error) {
	state, err := r.Get(ctx, id)
	if err != nil {
		if domain.IsNotFoundError(err) {
			return domain.StatusNotFound, nil
		}
		return "", err
	}
	return state.Status, nil
}

// TrySetProcessing implements Registry.
func (r *MemoryRegistry) TrySetProcessing(ctx context.Context, id domain.JobID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s := r.shardFor(id)
	now := r.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.entries[id]
	if ok && state.Status == domain.StatusProcessing {
		return domain.ErrAlreadyProcessing
	}
	if !ok {
		state = domain.JobState{ID: id, CreatedAt: now}
	}
	state.Status = domain.StatusProcessing
	state.UpdatedAt = now
	s.entries[id] = state
	return nil
}

// SetTerminal implements Registry.
func (r *MemoryRegistry) SetTerminal(ctx context.Context, id domain.JobID, status domain.JobStatus) (bool, error) {
	if !status.IsTerminal() {
		return false, fmt.Errorf("%w: %q is not a terminal status", domain.ErrInvalidStatus, status)
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s := r.shardFor(id)
	now := r.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.entries[id]
	if !ok {
		return false, nil
	}
	state.Status = status
	state.UpdatedAt = now
	s.entries[id] = state
	return true, nil
}

// Remove implements Registry.
func (r *MemoryRegistry) Remove(ctx context.Context, id domain.JobID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s := r.shardFor(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

// Len returns the number of entries across all shards.
func (r *MemoryRegistry) Len() int {
	n := 0
	for _, s := range r.shards {
		s.mu.RLock()
		n += len(s.entries)
		s.mu.RUnlock()
	}
	return n
}
