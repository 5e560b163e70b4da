package pipeline

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"audio-studio/pkg/models"
)

func (m *Manager) validateAsset(ctx context.Context, msg *models.PipelineMessage) {
	if len(msg.Input.Data) == 0 {
		m.fail(msg, fmt.Errorf("empty audio data"))
		return
	}

	if m.config.MaxAssetBytes > 0 && len(msg.Input.Data) > m.config.MaxAssetBytes {
		m.fail(msg, fmt.Errorf("audio asset too large: %d bytes", len(msg.Input.Data)))
		return
	}

	if !IsAudio(msg.Input.ContentType, msg.Input.Data) {
		m.fail(msg, fmt.Errorf("unsupported content type %q", msg.Input.ContentType))
		return
	}

	msg.Stage = "validation"
	m.forward(ctx, m.processingCh, msg)
}

func (m *Manager) processAsset(ctx context.Context, msg *models.PipelineMessage) {
	processor, err := m.processors.For(msg.Job.Tool)
	if err != nil {
		m.fail(msg, err)
		return
	}

	pctx := ctx
	if m.config.ProcessingTimeout > 0 {
		var cancel context.CancelFunc
		pctx, cancel = context.WithTimeout(ctx, m.config.ProcessingTimeout)
		defer cancel()
	}

	start := time.Now()
	res, err := processor.Process(pctx, msg.Job, msg.Input)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		m.fail(msg, fmt.Errorf("processing failed: %w", err))
		return
	}
	log.Printf("Processing Stage: job %s processed in %s (%d tracks, %d chords)",
		msg.Job.ID, time.Since(start).Round(time.Millisecond), len(res.Tracks), len(res.Chords))

	for _, out := range res.Tracks {
		asset := models.NewAsset(msg.Job.WorkspaceID, out.Filename, out.ContentType, out.Data)
		msg.Outputs = append(msg.Outputs, models.RoleAsset{Role: out.Role, Asset: asset})
	}
	msg.Chords = res.Chords

	msg.Stage = "processing"
	m.forward(ctx, m.probeCh, msg)
}

func (m *Manager) probeOutputs(ctx context.Context, msg *models.PipelineMessage) {
	for _, out := range msg.Outputs {
		Probe(out.Asset)
	}

	msg.Stage = "probe"
	m.forward(ctx, m.storageCh, msg)
}

func (m *Manager) storeOutputs(ctx context.Context, msg *models.PipelineMessage) {
	for _, out := range msg.Outputs {
		if err := m.diskStore.StoreAsset(out.Asset); err != nil {
			m.releaseOutputs(msg.Job)
			m.fail(msg, fmt.Errorf("failed to store on disk: %w", err))
			return
		}
		msg.Job.Outputs = append(msg.Job.Outputs, out.Asset.ID)
	}

	msg.Job.Status = models.StatusDone
	msg.Job.Chords = msg.Chords
	msg.Job.Finish()
	msg.Stage = "storage"

	m.memStore.StoreJob(msg.Job)
	if err := m.diskStore.StoreJob(msg.Job); err != nil {
		log.Printf("Storage Stage: failed to persist job %s: %v", msg.Job.ID, err)
	}

	log.Printf("Storage Stage: job %s done with %d outputs.", msg.Job.ID, len(msg.Outputs))
	m.complete(msg, nil)
}

// releaseOutputs deletes the outputs already stored for a job that will not
// complete.
func (m *Manager) releaseOutputs(job *models.Job) {
	for _, id := range job.Outputs {
		if err := m.diskStore.DeleteAsset(id); err != nil {
			log.Printf("Storage Stage: failed to release asset %s of job %s: %v", id, job.ID, err)
		}
	}
	job.Outputs = nil
}

// fail marks the job failed and resolves its handle with err.
func (m *Manager) fail(msg *models.PipelineMessage, err error) {
	msg.Error = err
	msg.Job.Status = models.StatusFailed
	msg.Job.Error = err.Error()
	msg.Job.Finish()
	msg.Outputs = nil

	log.Printf("Pipeline Manager: job %s failed at %s stage: %v", msg.Job.ID, msg.Stage, err)

	m.memStore.StoreJob(msg.Job)
	if derr := m.diskStore.StoreJob(msg.Job); derr != nil {
		log.Printf("Pipeline Manager: failed to persist job %s: %v", msg.Job.ID, derr)
	}
	m.complete(msg, err)
}

// IsAudio reports whether the declared or sniffed type is an audio format.
func IsAudio(declared string, data []byte) bool {
	if isAudioType(declared) {
		return true
	}
	return isAudioType(http.DetectContentType(data))
}

func isAudioType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	return strings.HasPrefix(ct, "audio/") || strings.HasPrefix(ct, "application/ogg")
}
