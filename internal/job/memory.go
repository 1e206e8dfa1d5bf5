package job

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Compile-time check that MemoryRepository implements Repository.
var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository keeps jobs in a map guarded by an RWMutex. Jobs are lost
// on restart; use RedisRepository to keep them.
//
// Stored jobs are clones, so callers never share state with the repository.
type MemoryRepository struct {
	mu   sync.RWMutex
	jobs map[string]*Job
	ttl  time.Duration
	now  func() time.Time
}

// MemoryOption configures a MemoryRepository.
type MemoryOption func(*MemoryRepository)

// WithRetention drops finished jobs once they have been terminal for longer
// than d. Zero keeps them forever.
func WithRetention(d time.Duration) MemoryOption {
	return func(r *MemoryRepository) {
		if d >= 0 {
			r.ttl = d
		}
	}
}

// NewMemoryRepository creates a new in-memory job repository.
func NewMemoryRepository(opts ...MemoryOption) *MemoryRepository {
	r := &MemoryRepository{
		jobs: make(map[string]*Job),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Save stores a clone of job, replacing any previous version.
func (r *MemoryRepository) Save(_ context.Context, job *Job) error {
	snapshot := job.Clone()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[snapshot.ID] = snapshot
	r.evictLocked()
	return nil
}

// FindByID returns a clone of the stored job.
func (r *MemoryRepository) FindByID(_ context.Context, id string) (*Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok || r.expired(job) {
		return nil, ErrJobNotFound
	}
	return job.Clone(), nil
}

// List returns clones of all live jobs, oldest first.
func (r *MemoryRepository) List(_ context.Context) ([]*Job, error) {
	r.mu.RLock()
	result := make([]*Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		if !r.expired(job) {
			result = append(result, job.Clone())
		}
	}
	r.mu.RUnlock()

	sortByCreated(result)
	return result, nil
}

// Delete removes a job.
func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[id]; !ok {
		return ErrJobNotFound
	}
	delete(r.jobs, id)
	return nil
}

// expired reports whether a terminal job has outlived the retention period.
func (r *MemoryRepository) expired(job *Job) bool {
	if r.ttl == 0 || !job.IsTerminal() {
		return false
	}
	return r.now().Sub(job.CompletedAt) > r.ttl
}

func (r *MemoryRepository) evictLocked() {
	if r.ttl == 0 {
		return
	}
	for id, job := range r.jobs {
		if r.expired(job) {
			delete(r.jobs, id)
		}
	}
}

func sortByCreated(jobs []*Job) {
	sort.Slice(jobs, func(a, b int) bool {
		if jobs[a].CreatedAt.Equal(jobs[b].CreatedAt) {
			return jobs[a].ID < jobs[b].ID
		}
		return jobs[a].CreatedAt.Before(jobs[b].CreatedAt)
	})
}
