// Package workspace models one open audio tool: the uploaded asset, its
// processing job, the derived tracks and a player per track.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"audio-studio/pkg/chordsheet"
	"audio-studio/pkg/models"
	"audio-studio/pkg/pipeline"
	"audio-studio/pkg/player"
)

var (
	ErrNoAsset         = errors.New("no asset uploaded")
	ErrJobRunning      = errors.New("a processing job is already running")
	ErrTrackNotFound   = errors.New("track not found")
	ErrNotFound        = errors.New("workspace not found")
	ErrUnsupportedTool = errors.New("unsupported tool")
)

// AssetStore is the subset of storage.DiskStore a workspace needs.
type AssetStore interface {
	StoreAsset(asset *models.Asset) error
	GetAsset(id string) (*models.Asset, error)
	DeleteAsset(id string) error
}

// Submitter starts processing jobs; *pipeline.Manager implements it.
type Submitter interface {
	Submit(asset *models.Asset, tool models.Tool, params *models.MasteringParams) (*pipeline.Handle, error)
}

type Workspace struct {
	id        string
	tool      models.Tool
	createdAt time.Time

	store     AssetStore
	submitter Submitter

	mu     sync.Mutex
	asset  *models.Asset
	job    *models.Job
	tracks []models.Track
	chords []string
	deck   *player.Deck
}

// View is a point-in-time copy of a workspace.
type View struct {
	ID      string              `json:"id"`
	Tool    models.Tool         `json:"tool"`
	Asset   *models.Asset       `json:"asset,omitempty"`
	Job     *models.Job         `json:"job"`
	Tracks  []models.Track      `json:"tracks"`
	Chords  []string            `json:"chords,omitempty"`
	Players []player.TrackState `json:"players"`
	Created time.Time           `json:"created_at"`
}

func newWorkspace(id string, tool models.Tool, store AssetStore, submitter Submitter) *Workspace {
	return &Workspace{
		id:        id,
		tool:      tool,
		createdAt: time.Now(),
		store:     store,
		submitter: submitter,
		deck:      player.NewDeck(),
	}
}

func (w *Workspace) ID() string { return w.id }
func (w *Workspace) Tool() models.Tool { return w.tool }

// Upload replaces the workspace's asset. The previous asset and everything
// derived from it are released.
func (w *Workspace) Upload(filename, contentType string, data []byte) (*models.Asset, error) {
	asset := models.NewAsset(w.id, filename, contentType, data)
	pipeline.Probe(asset)

	if err := w.store.StoreAsset(asset); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	w.mu.Lock()
	released := w.assetIDsLocked()
	w.asset = asset
	w.job = nil
	w.tracks = nil
	w.chords = nil
	w.deck = player.NewDeck(string(models.RoleOriginal))
	w.mu.Unlock()

	w.release(released...)
	log.Printf("Workspace %s: uploaded %s (%d bytes), released %d assets", w.id, asset.ID, asset.Size, len(released))
	return stripData(asset), nil
}

// Process starts a job for the current asset. Without an asset nothing is
// submitted. While a job runs further triggers are refused.
//
// params only applies to mastering workspaces, where nil means the
// defaults; other tools ignore it.
func (w *Workspace) Process(params *models.MasteringParams) (*models.Job, error) {
	if w.tool == models.ToolMastering {
		p := models.DefaultMasteringParams()
		if params != nil {
			p = *params
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		params = &p
	} else {
		params = nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.asset == nil {
		return nil, ErrNoAsset
	}
	if w.job != nil && w.job.Status == models.StatusRunning {
		return nil, ErrJobRunning
	}

	h, err := w.submitter.Submit(w.asset, w.tool, params)
	if err != nil {
		return nil, err
	}

	w.job = &models.Job{
		ID:          h.JobID(),
		WorkspaceID: w.id,
		Tool:        w.tool,
		Status:      models.StatusRunning,
		AssetID:     w.asset.ID,
		Params:      params,
		StartedAt:   time.Now(),
	}
	go w.await(h)

	job := *w.job
	return &job, nil
}

func (w *Workspace) await(h *pipeline.Handle) {
	outcome, err := h.Wait(context.Background())

	w.mu.Lock()
	if w.job == nil || w.job.ID != h.JobID() {
		w.mu.Unlock()
		// Superseded by a newer upload.
		if outcome != nil {
			w.release(outputIDs(outcome.Outputs)...)
		}
		log.Printf("Workspace %s: discarded stale job %s", w.id, h.JobID())
		return
	}

	if err != nil {
		w.job.Status = models.StatusFailed
		w.job.Error = err.Error()
		w.job.Finish()
		w.mu.Unlock()
		log.Printf("Workspace %s: job %s failed: %v", w.id, h.JobID(), err)
		return
	}

	var released []string
	for _, tr := range w.tracks {
		released = append(released, tr.AssetID)
		w.deck.Remove(string(tr.Role))
	}

	w.tracks = make([]models.Track, 0, len(outcome.Outputs))
	for _, out := range outcome.Outputs {
		w.tracks = append(w.tracks, models.NewTrack(out.Role, out.Asset))
		w.deck.Add(string(out.Role))
	}
	w.chords = outcome.Chords

	job := outcome.Job
	w.job = &job
	w.mu.Unlock()

	w.release(released...)
	log.Printf("Workspace %s: job %s done with %d tracks", w.id, h.JobID(), len(outcome.Outputs))
}

// Toggle flips play/pause on track.
func (w *Workspace) Toggle(track string) (player.State, error) {
	return w.dispatch(track, player.Toggle())
}

func (w *Workspace) SetVolume(track string, volume int) (player.State, error) {
	return w.dispatch(track, player.SetVolume(volume))
}

// Ended records that track played to its natural end.
func (w *Workspace) Ended(track string) (player.State, error) {
	return w.dispatch(track, player.Ended())
}

func (w *Workspace) dispatch(track string, a player.Action) (player.State, error) {
	w.mu.Lock()
	deck := w.deck
	w.mu.Unlock()

	s, err := deck.Dispatch(track, a)
	if errors.Is(err, player.ErrUnknownTrack) {
		return s, fmt.Errorf("%w: %s", ErrTrackNotFound, track)
	}
	return s, err
}

// Download returns the asset behind track and the filename to save it as.
// The chord sheet is rendered to MIDI on request.
func (w *Workspace) Download(track string) (*models.Asset, string, error) {
	role := models.TrackRole(track)
	if role == models.RoleChords {
		return w.downloadChords()
	}

	w.mu.Lock()
	var assetID string
	if role == models.RoleOriginal && w.asset != nil {
		assetID = w.asset.ID
	}
	for _, tr := range w.tracks {
		if tr.Role == role {
			assetID = tr.AssetID
		}
	}
	w.mu.Unlock()

	if assetID == "" {
		return nil, "", fmt.Errorf("%w: %s", ErrTrackNotFound, track)
	}

	asset, err := w.store.GetAsset(assetID)
	if err != nil {
		return nil, "", err
	}
	return asset, role.DownloadName(), nil
}

func (w *Workspace) downloadChords() (*models.Asset, string, error) {
	w.mu.Lock()
	chords := append([]string(nil), w.chords...)
	w.mu.Unlock()

	if len(chords) == 0 {
		return nil, "", fmt.Errorf("%w: %s", ErrTrackNotFound, models.RoleChords)
	}
	data, err := chordsheet.Bytes(chords)
	if err != nil {
		return nil, "", fmt.Errorf("render chord sheet: %w", err)
	}

	filename := models.RoleChords.DownloadName()
	return models.NewAsset(w.id, filename, "audio/midi", data), filename, nil
}

func (w *Workspace) View() View {
	w.mu.Lock()
	defer w.mu.Unlock()

	v := View{
		ID:      w.id,
		Tool:    w.tool,
		Job:     &models.Job{WorkspaceID: w.id, Tool: w.tool, Status: models.StatusIdle},
		Tracks:  append([]models.Track{}, w.tracks...),
		Chords:  append([]string(nil), w.chords...),
		Players: w.deck.Snapshot(),
		Created: w.createdAt,
	}
	if w.asset != nil {
		v.Asset = stripData(w.asset)
	}
	if w.job != nil {
		job := *w.job
		v.Job = &job
	}
	return v
}

// Close releases every asset the workspace owns.
func (w *Workspace) Close() {
	w.mu.Lock()
	ids := w.assetIDsLocked()
	w.asset = nil
	w.job = nil
	w.tracks = nil
	w.chords = nil
	w.deck = player.NewDeck()
	w.mu.Unlock()

	w.release(ids...)
}

func (w *Workspace) assetIDsLocked() []string {
	var ids []string
	if w.asset != nil {
		ids = append(ids, w.asset.ID)
	}
	for _, tr := range w.tracks {
		ids = append(ids, tr.AssetID)
	}
	return ids
}

func (w *Workspace) release(ids ...string) {
	for _, id := range ids {
		if err := w.store.DeleteAsset(id); err != nil {
			log.Printf("Workspace %s: failed to release asset %s: %v", w.id, id, err)
		}
	}
}

func outputIDs(outputs []models.RoleAsset) []string {
	ids := make([]string, 0, len(outputs))
	for _, out := range outputs {
		ids = append(ids, out.Asset.ID)
	}
	return ids
}

func stripData(a *models.Asset) *models.Asset {
	cp := *a
	cp.Data = nil
	return &cp
}
