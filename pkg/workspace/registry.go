package workspace

import (
	"fmt"
	"sync"

	"audio-studio/pkg/models"

	"github.com/google/uuid"
)

// Registry owns every open workspace.
type Registry struct {
	store     AssetStore
	submitter Submitter

	workspaces map[string]*Workspace
	mu         sync.RWMutex
}

func NewRegistry(store AssetStore, submitter Submitter) *Registry {
	return &Registry{
		store:      store,
		submitter:  submitter,
		workspaces: make(map[string]*Workspace),
	}
}

func (r *Registry) Create(tool models.Tool) (*Workspace, error) {
	if !tool.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedTool, tool)
	}

	w := newWorkspace(uuid.New().String(), tool, r.store, r.submitter)

	r.mu.Lock()
	r.workspaces[w.id] = w
	r.mu.Unlock()

	return w, nil
}

func (r *Registry) Get(id string) (*Workspace, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	w, ok := r.workspaces[id]
	if !ok {
		return nil, ErrNotFound
	}
	return w, nil
}

// Delete closes the workspace and forgets it.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	w, ok := r.workspaces[id]
	delete(r.workspaces, id)
	r.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	w.Close()
	return nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.workspaces)
}
