package job

import (
	"context"
	"errors"
)

// ErrJobNotFound is returned when a job cannot be found by ID.
var ErrJobNotFound = errors.New("job not found")

// Repository stores render jobs. Implementations must hand out copies:
// a *Job returned by FindByID or List is never shared with a later caller.
type Repository interface {
	// Save inserts or replaces the job. RenderService calls it on every
	// stage change and progress tick, so it should be cheap.
	Save(ctx context.Context, job *Job) error

	// FindByID returns ErrJobNotFound for unknown or expired jobs.
	FindByID(ctx context.Context, id string) (*Job, error)

	// List returns all live jobs, oldest first.
	List(ctx context.Context) ([]*Job, error)

	// Delete returns ErrJobNotFound if the job does not exist.
	Delete(ctx context.Context, id string) error
}
