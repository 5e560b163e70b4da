// Package processing turns one uploaded asset into the tool's outputs,
// either by delegating to an external backend or by simulating the work.
package processing

import (
	"context"
	"fmt"

	"audio-studio/pkg/config"
	"audio-studio/pkg/models"
)

type Output struct {
	Role        models.TrackRole
	Filename    string
	ContentType string
	Data        []byte
}

type Result struct {
	Tracks []Output
	Chords []string
}

// Processor is implemented by both network-backed and simulated backends so
// they can be swapped freely. job carries the tool parameters; asset is the
// job's input.
type Processor interface {
	Process(ctx context.Context, job *models.Job, asset *models.Asset) (*Result, error)
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, job *models.Job, asset *models.Asset) (*Result, error)

func (f ProcessorFunc) Process(ctx context.Context, job *models.Job, asset *models.Asset) (*Result, error) {
	return f(ctx, job, asset)
}

// Set maps each tool to its backend.
type Set map[models.Tool]Processor

func (s Set) For(tool models.Tool) (Processor, error) {
	p, ok := s[tool]
	if !ok {
		return nil, fmt.Errorf("no processor configured for tool %q", tool)
	}
	return p, nil
}

// NewSet builds the backends described by cfg.
func NewSet(cfg config.ProcessingConfig) (Set, error) {
	set := Set{
		models.ToolSplitter: NewSimulatedProcessor(cfg.SimulatedDelay, models.StemRoles...),
		models.ToolChords:   NewChordsProcessor(cfg.SimulatedDelay),
	}

	switch cfg.MasteringMode {
	case "remote":
		set[models.ToolMastering] = NewRemoteProcessor(cfg.BackendURL, cfg.BackendField, cfg.BackendTimeout)
	case "simulated":
		set[models.ToolMastering] = NewSimulatedProcessor(cfg.SimulatedDelay, models.RoleMastered)
	default:
		return nil, fmt.Errorf("unknown mastering mode %q", cfg.MasteringMode)
	}

	return set, nil
}
