package pipeline

import (
	"context"
	"sync"

	"audio-studio/pkg/models"
)

// Outcome is what a finished job resolves to.
type Outcome struct {
	Job     models.Job
	Outputs []models.RoleAsset
	Chords  []string
}

// Handle is the caller's view of one submitted job. It resolves exactly
// once, to either an Outcome or an error.
type Handle struct {
	jobID string
	done  chan struct{}
	once  sync.Once

	outcome *Outcome
	err     error
}

func newHandle(jobID string) *Handle {
	return &Handle{jobID: jobID, done: make(chan struct{})}
}

func (h *Handle) JobID() string { return h.jobID }

// Done is closed once the job is finished.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until the job finishes or ctx ends. A failed job returns its
// Outcome (with the failed job record) together with the error.
func (h *Handle) Wait(ctx context.Context) (*Outcome, error) {
	select {
	case <-h.done:
		return h.outcome, h.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Handle) resolve(o *Outcome, err error) {
	h.once.Do(func() {
		h.outcome = o
		h.err = err
		close(h.done)
	})
}
