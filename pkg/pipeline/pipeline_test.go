package pipeline

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"audio-studio/pkg/config"
	"audio-studio/pkg/models"
	"audio-studio/pkg/processing"
	"audio-studio/pkg/storage"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func testConfig() config.PipelineConfig {
	return config.PipelineConfig{
		ValidationWorkers: 1,
		ProcessingWorkers: 2,
		ProbeWorkers:      1,
		StorageWorkers:    1,
		QueueSize:         8,
		ProcessingTimeout: 5 * time.Second,
		MaxAssetBytes:     1 << 20,
	}
}

func newTestManager(t *testing.T, procs processing.Set) (*Manager, storage.DiskStore) {
	t.Helper()
	disk, err := storage.NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}
	m := NewManager(testConfig(), procs, storage.NewMemoryStore(), disk)
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		m.Stop()
		disk.Close()
	})
	return m, disk
}

func waitOutcome(t *testing.T, h *Handle) (*Outcome, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	o, err := h.Wait(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		t.Fatal("timeout waiting for job")
	}
	return o, err
}

func TestSubmitSplitterJob(t *testing.T) {
	m, disk := newTestManager(t, processing.Set{
		models.ToolSplitter: processing.NewSimulatedProcessor(5*time.Millisecond, models.StemRoles...),
	})

	asset := models.NewAsset("ws-1", "song.mp3", "audio/mpeg", []byte("ID3-song"))
	h, err := m.Submit(asset, models.ToolSplitter, nil)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	o, err := waitOutcome(t, h)
	if err != nil {
		t.Fatalf("job failed: %v", err)
	}
	if o.Job.Status != models.StatusDone {
		t.Errorf("Job.Status = %s, want done", o.Job.Status)
	}
	if len(o.Outputs) != 4 || len(o.Job.Outputs) != 4 {
		t.Fatalf("outputs = %d/%d, want 4", len(o.Outputs), len(o.Job.Outputs))
	}
	for i, out := range o.Outputs {
		if out.Role != models.StemRoles[i] {
			t.Errorf("Outputs[%d].Role = %s, want %s", i, out.Role, models.StemRoles[i])
		}
		if out.Asset.Checksum == "" {
			t.Errorf("Outputs[%d] has no checksum", i)
		}
		stored, err := disk.GetAsset(out.Asset.ID)
		if err != nil {
			t.Fatalf("GetAsset(%s): %v", out.Role, err)
		}
		if string(stored.Data) != "ID3-song" {
			t.Errorf("stored %s data = %q", out.Role, stored.Data)
		}
	}

	job, err := m.Job(h.JobID())
	if err != nil {
		t.Fatalf("Job: %v", err)
	}
	if job.Status != models.StatusDone {
		t.Errorf("recorded status = %s, want done", job.Status)
	}
	persisted, err := disk.GetJob(h.JobID())
	if err != nil || persisted.Status != models.StatusDone {
		t.Errorf("persisted job = %+v, %v", persisted, err)
	}
}

func TestProcessingFailureMarksJobFailed(t *testing.T) {
	boom := errors.New("backend unavailable")
	m, disk := newTestManager(t, processing.Set{
		models.ToolMastering: processing.ProcessorFunc(func(ctx context.Context, job *models.Job, a *models.Asset) (*processing.Result, error) {
			return nil, boom
		}),
	})

	h, err := m.Submit(models.NewAsset("ws-1", "a.wav", "audio/wav", []byte("RIFF")), models.ToolMastering, nil)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	o, err := waitOutcome(t, h)
	if !errors.Is(err, boom) {
		t.Fatalf("Wait error = %v, want %v", err, boom)
	}
	if o.Job.Status != models.StatusFailed || o.Job.Error == "" {
		t.Errorf("Job = %+v, want failed with error", o.Job)
	}
	if len(o.Outputs) != 0 {
		t.Errorf("Outputs = %d, want 0", len(o.Outputs))
	}
	if persisted, err := disk.GetJob(h.JobID()); err != nil || persisted.Status != models.StatusFailed {
		t.Errorf("persisted job = %+v, %v", persisted, err)
	}
}

// flakyDisk fails StoreAsset once it has stored okAssets assets.
type flakyDisk struct {
	storage.DiskStore
	okAssets int
	stored   []string
}

func (d *flakyDisk) StoreAsset(a *models.Asset) error {
	if len(d.stored) >= d.okAssets {
		return errors.New("disk full")
	}
	d.stored = append(d.stored, a.ID)
	return d.DiskStore.StoreAsset(a)
}

func TestStorageFailureReleasesStoredOutputs(t *testing.T) {
	inner, err := storage.NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}
	defer inner.Close()
	disk := &flakyDisk{DiskStore: inner, okAssets: 2}

	cfg := testConfig()
	cfg.StorageWorkers = 1
	m := NewManager(cfg, processing.Set{
		models.ToolSplitter: processing.NewSimulatedProcessor(0, models.StemRoles...),
	}, storage.NewMemoryStore(), disk)
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer m.Stop()

	h, err := m.Submit(models.NewAsset("ws", "a.mp3", "audio/mpeg", []byte("ID3")), models.ToolSplitter, nil)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	o, err := waitOutcome(t, h)
	if err == nil {
		t.Fatal("expected storage error")
	}
	if len(o.Job.Outputs) != 0 {
		t.Errorf("Job.Outputs = %v, want none", o.Job.Outputs)
	}
	if len(disk.stored) != 2 {
		t.Fatalf("stored %d assets before failing, want 2", len(disk.stored))
	}
	for _, id := range disk.stored {
		if _, err := inner.GetAsset(id); !errors.Is(err, storage.ErrAssetNotFound) {
			t.Errorf("GetAsset(%s) error = %v, want ErrAssetNotFound", id, err)
		}
	}
}

func TestSubmitRecordsParams(t *testing.T) {
	var got *models.MasteringParams
	m, _ := newTestManager(t, processing.Set{
		models.ToolMastering: processing.ProcessorFunc(func(ctx context.Context, job *models.Job, a *models.Asset) (*processing.Result, error) {
			got = job.Params
			return &processing.Result{}, nil
		}),
	})

	params := &models.MasteringParams{HighCutoff: 90, LowCutoff: 10, DecibelLevel: 40}
	h, err := m.Submit(models.NewAsset("ws", "a.mp3", "audio/mpeg", []byte("ID3")), models.ToolMastering, params)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	o, err := waitOutcome(t, h)
	if err != nil {
		t.Fatalf("job failed: %v", err)
	}
	if got == nil || *got != *params {
		t.Errorf("processor saw params %+v, want %+v", got, params)
	}
	if o.Job.Params == nil || *o.Job.Params != *params {
		t.Errorf("Job.Params = %+v, want %+v", o.Job.Params, params)
	}
	if o.Job.FinishedAt == nil {
		t.Error("FinishedAt not set on a finished job")
	}
}

func TestValidationRejectsBadInput(t *testing.T) {
	calls := 0
	m, _ := newTestManager(t, processing.Set{
		models.ToolChords: processing.ProcessorFunc(func(ctx context.Context, job *models.Job, a *models.Asset) (*processing.Result, error) {
			calls++
			return &processing.Result{}, nil
		}),
	})

	tests := []struct {
		name  string
		asset *models.Asset
	}{
		{"empty", models.NewAsset("ws", "a.mp3", "audio/mpeg", nil)},
		{"not audio", models.NewAsset("ws", "a.txt", "text/plain", []byte("hello world"))},
		{"too large", models.NewAsset("ws", "a.mp3", "audio/mpeg", make([]byte, 2<<20))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := m.Submit(tt.asset, models.ToolChords, nil)
			if err != nil {
				t.Fatalf("Submit: %v", err)
			}
			o, err := waitOutcome(t, h)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if o.Job.Status != models.StatusFailed {
				t.Errorf("Job.Status = %s, want failed", o.Job.Status)
			}
		})
	}
	if calls != 0 {
		t.Errorf("processor called %d times for invalid input", calls)
	}
}

func TestChordsJobCarriesProgression(t *testing.T) {
	m, _ := newTestManager(t, processing.Set{
		models.ToolChords: processing.NewChordsProcessor(0),
	})

	h, err := m.Submit(models.NewAsset("ws", "a.mp3", "audio/mpeg", []byte("ID3")), models.ToolChords, nil)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	o, err := waitOutcome(t, h)
	if err != nil {
		t.Fatalf("job failed: %v", err)
	}
	if len(o.Chords) != 4 || o.Chords[0] != "Cmaj7" {
		t.Errorf("Chords = %v", o.Chords)
	}
	if len(o.Job.Chords) != 4 {
		t.Errorf("Job.Chords = %v", o.Job.Chords)
	}
}

func TestSubmitBeforeStart(t *testing.T) {
	m := NewManager(testConfig(), processing.Set{}, storage.NewMemoryStore(), nil)
	if _, err := m.Submit(models.NewAsset("ws", "a", "audio/mpeg", []byte("x")), models.ToolChords, nil); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Submit error = %v, want ErrNotStarted", err)
	}
}

func TestStopFailsInflightJobs(t *testing.T) {
	disk, err := storage.NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}
	defer disk.Close()

	m := NewManager(testConfig(), processing.Set{
		models.ToolMastering: processing.NewSimulatedProcessor(time.Minute, models.RoleMastered),
	}, storage.NewMemoryStore(), disk)
	m.Start(context.Background())

	h, err := m.Submit(models.NewAsset("ws", "a.mp3", "audio/mpeg", []byte("ID3")), models.ToolMastering, nil)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	m.Stop()

	select {
	case <-h.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("handle not resolved after Stop")
	}
	if _, err := h.Wait(context.Background()); !errors.Is(err, ErrShuttingDown) {
		t.Errorf("Wait error = %v, want ErrShuttingDown", err)
	}
	if _, err := m.Submit(models.NewAsset("ws", "a.mp3", "audio/mpeg", []byte("ID3")), models.ToolMastering, nil); !errors.Is(err, ErrShuttingDown) {
		t.Errorf("Submit after Stop error = %v, want ErrShuttingDown", err)
	}
}

func TestProbeWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	const rate = 8000
	enc := wav.NewEncoder(f, rate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: rate},
		Data:           make([]int, rate),
		SourceBitDepth: 16,
	}
	for i := range buf.Data {
		buf.Data[i] = int(8000 * math.Sin(2*math.Pi*440*float64(i)/rate))
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Close encoder: %v", err)
	}
	f.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	asset := models.NewAsset("ws", "tone.wav", "audio/wav", data)
	Probe(asset)

	if asset.Metadata["format"] != "wav" {
		t.Fatalf("format = %v, want wav", asset.Metadata["format"])
	}
	if asset.Metadata["sample_rate"] != rate {
		t.Errorf("sample_rate = %v, want %d", asset.Metadata["sample_rate"], rate)
	}
	if asset.Metadata["channels"] != 1 {
		t.Errorf("channels = %v, want 1", asset.Metadata["channels"])
	}
	if d, ok := asset.Metadata["duration"].(float64); !ok || math.Abs(d-1.0) > 0.05 {
		t.Errorf("duration = %v, want ~1s", asset.Metadata["duration"])
	}
	if len(asset.Checksum) != 64 {
		t.Errorf("Checksum = %q, want sha256 hex", asset.Checksum)
	}
}

func TestProbeNonWAV(t *testing.T) {
	asset := models.NewAsset("ws", "a.mp3", "audio/mpeg", []byte("ID3 not a wav"))
	Probe(asset)
	if asset.Metadata["format"] != "unknown" {
		t.Errorf("format = %v, want unknown", asset.Metadata["format"])
	}
	if asset.Checksum == "" {
		t.Error("Checksum empty")
	}
}

func TestIsAudio(t *testing.T) {
	tests := []struct {
		declared string
		data     []byte
		want     bool
	}{
		{"audio/mpeg", []byte("x"), true},
		{"Audio/WAV", []byte("x"), true},
		{"application/octet-stream", []byte("ID3\x03\x00\x00\x00"), true},
		{"", []byte("OggS\x00\x02"), true},
		{"text/plain", []byte("hello"), false},
	}
	for _, tt := range tests {
		if got := IsAudio(tt.declared, tt.data); got != tt.want {
			t.Errorf("IsAudio(%q, %q) = %v, want %v", tt.declared, tt.data, got, tt.want)
		}
	}
}
