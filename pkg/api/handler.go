package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"strconv"

	"audio-studio/pkg/models"
	"audio-studio/pkg/pipeline"
	"audio-studio/pkg/pricing"
	"audio-studio/pkg/storage"
	"audio-studio/pkg/workspace"

	"github.com/gorilla/mux"
)

// JobLookup finds job records; *pipeline.Manager implements it.
type JobLookup interface {
	Job(id string) (*models.Job, error)
}

type Handlers struct {
	workspaces     *workspace.Registry
	jobs           JobLookup
	maxUploadBytes int64
}

func NewHandlers(workspaces *workspace.Registry, jobs JobLookup, maxUploadBytes int64) *Handlers {
	return &Handlers{
		workspaces:     workspaces,
		jobs:           jobs,
		maxUploadBytes: maxUploadBytes,
	}
}

func (h *Handlers) CreateWorkspaceHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tool models.Tool `json:"tool"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	ws, err := h.workspaces.Create(req.Tool)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	log.Printf("WORKSPACE CREATED: ID=%s, Tool=%s", ws.ID(), ws.Tool())
	writeJSON(w, http.StatusCreated, ws.View())
}

func (h *Handlers) GetWorkspaceHandler(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ws.View())
}

func (h *Handlers) DeleteWorkspaceHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.workspaces.Delete(id); err != nil {
		http.Error(w, "Workspace not found", http.StatusNotFound)
		return
	}
	log.Printf("WORKSPACE CLOSED: ID=%s", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) UploadHandler(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	if h.maxUploadBytes > 0 && r.ContentLength > h.maxUploadBytes {
		http.Error(w, "Upload too large", http.StatusRequestEntityTooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Upload too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		http.Error(w, "audio file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Failed to read audio file", http.StatusInternalServerError)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if !pipeline.IsAudio(contentType, data) {
		http.Error(w, "Only audio files are accepted", http.StatusUnsupportedMediaType)
		return
	}

	asset, err := ws.Upload(header.Filename, contentType, data)
	if err != nil {
		log.Printf("UPLOAD FAILED: Workspace=%s, Error=%v", ws.ID(), err)
		http.Error(w, "Failed to store upload", http.StatusInternalServerError)
		return
	}

	log.Printf("UPLOAD STORED: Workspace=%s, AssetID=%s, Size=%d bytes", ws.ID(), asset.ID, asset.Size)
	writeJSON(w, http.StatusCreated, asset)
}

func (h *Handlers) ProcessHandler(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	params, err := decodeParams(r.Body)
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	job, err := ws.Process(params)
	switch {
	case errors.Is(err, models.ErrInvalidParam):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, workspace.ErrNoAsset):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, workspace.ErrJobRunning):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case errors.Is(err, pipeline.ErrQueueFull), errors.Is(err, pipeline.ErrShuttingDown):
		http.Error(w, fmt.Sprintf("Failed to submit job: %v", err), http.StatusServiceUnavailable)
		return
	case err != nil:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	log.Printf("🚀 PROCESSING STARTED: JobID=%s, Workspace=%s, Tool=%s", job.ID, ws.ID(), ws.Tool())
	writeJSON(w, http.StatusAccepted, job)
}

// decodeParams reads optional mastering parameters. An empty body, or one
// that names none of them, yields nil; named ones override the defaults.
func decodeParams(body io.Reader) (*models.MasteringParams, error) {
	var req struct {
		HighCutoff   *int `json:"high_cutoff"`
		LowCutoff    *int `json:"low_cutoff"`
		DecibelLevel *int `json:"decibel_level"`
	}
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	if req.HighCutoff == nil && req.LowCutoff == nil && req.DecibelLevel == nil {
		return nil, nil
	}

	p := models.DefaultMasteringParams()
	if req.HighCutoff != nil {
		p.HighCutoff = *req.HighCutoff
	}
	if req.LowCutoff != nil {
		p.LowCutoff = *req.LowCutoff
	}
	if req.DecibelLevel != nil {
		p.DecibelLevel = *req.DecibelLevel
	}
	return &p, nil
}

func (h *Handlers) ToggleHandler(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	state, err := ws.Toggle(mux.Vars(r)["track"])
	h.writePlayerState(w, state, err)
}

func (h *Handlers) VolumeHandler(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	var req struct {
		Volume *int `json:"volume"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Volume == nil {
		http.Error(w, "volume is required", http.StatusBadRequest)
		return
	}

	state, err := ws.SetVolume(mux.Vars(r)["track"], *req.Volume)
	h.writePlayerState(w, state, err)
}

func (h *Handlers) EndedHandler(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	state, err := ws.Ended(mux.Vars(r)["track"])
	h.writePlayerState(w, state, err)
}

func (h *Handlers) DownloadHandler(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	asset, filename, err := ws.Download(mux.Vars(r)["track"])
	if errors.Is(err, workspace.ErrTrackNotFound) || errors.Is(err, storage.ErrAssetNotFound) {
		http.Error(w, "Track not available", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	contentType := asset.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(asset.Data)))
	w.Write(asset.Data)
}

func (h *Handlers) GetJobHandler(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["id"]

	job, err := h.jobs.Job(jobID)
	if err != nil {
		if errors.Is(err, storage.ErrJobNotFound) {
			http.Error(w, "Job not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	log.Printf("JOB RETRIEVED: JobID=%s, Status=%s", jobID, job.Status)
	writeJSON(w, http.StatusOK, job)
}

// PricingHandler serves the plan table. An explicit region parameter always
// wins over the Accept-Language guess.
func (h *Handlers) PricingHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	region := pricing.DetectRegion(r.Header.Get("Accept-Language"))
	detected := true
	if s := q.Get("region"); s != "" {
		parsed, err := pricing.ParseRegion(s)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		region, detected = parsed, false
	}

	interval := pricing.DefaultInterval
	if s := q.Get("interval"); s != "" {
		parsed, err := pricing.ParseInterval(s)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		interval = parsed
	}

	quotes, err := pricing.Lookup(region, interval)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"region":          region,
		"interval":        interval,
		"region_detected": detected,
		"plans":           quotes,
	})
}

func (h *Handlers) workspace(w http.ResponseWriter, r *http.Request) (*workspace.Workspace, bool) {
	ws, err := h.workspaces.Get(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Workspace not found", http.StatusNotFound)
		return nil, false
	}
	return ws, true
}

func (h *Handlers) writePlayerState(w http.ResponseWriter, state interface{}, err error) {
	if errors.Is(err, workspace.ErrTrackNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
