package processing

import (
	"context"
	"time"

	"audio-studio/pkg/models"
)

// SimulatedProcessor waits a fixed delay and echoes the input back as every
// configured role. It only fails when ctx ends first.
type SimulatedProcessor struct {
	delay time.Duration
	roles []models.TrackRole
}

func NewSimulatedProcessor(delay time.Duration, roles ...models.TrackRole) *SimulatedProcessor {
	return &SimulatedProcessor{delay: delay, roles: roles}
}

func (p *SimulatedProcessor) Process(ctx context.Context, job *models.Job, asset *models.Asset) (*Result, error) {
	if err := sleep(ctx, p.delay); err != nil {
		return nil, err
	}

	res := &Result{Tracks: make([]Output, 0, len(p.roles))}
	for _, role := range p.roles {
		res.Tracks = append(res.Tracks, Output{
			Role:        role,
			Filename:    role.DownloadName(),
			ContentType: asset.ContentType,
			Data:        asset.Data,
		})
	}
	return res, nil
}

// DefaultProgression is what the simulated chord extractor reports.
var DefaultProgression = []string{"Cmaj7", "G7", "Am7", "D7"}

type ChordsProcessor struct {
	delay time.Duration
}

func NewChordsProcessor(delay time.Duration) *ChordsProcessor {
	return &ChordsProcessor{delay: delay}
}

func (p *ChordsProcessor) Process(ctx context.Context, job *models.Job, asset *models.Asset) (*Result, error) {
	if err := sleep(ctx, p.delay); err != nil {
		return nil, err
	}
	return &Result{Chords: append([]string(nil), DefaultProgression...)}, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
