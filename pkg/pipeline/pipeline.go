package pipeline

import (
	"context"
	"errors"
	"log"
	"sync"

	"audio-studio/pkg/config"
	"audio-studio/pkg/models"
	"audio-studio/pkg/processing"
	"audio-studio/pkg/storage"
)

var (
	ErrQueueFull    = errors.New("pipeline queue is full")
	ErrShuttingDown = errors.New("pipeline is shutting down")
	ErrNotStarted   = errors.New("pipeline is not started")
)

type Manager struct {
	config     config.PipelineConfig
	processors processing.Set
	memStore   storage.MemoryStore
	diskStore  storage.DiskStore

	// Pipeline channels
	validationCh chan *models.PipelineMessage
	processingCh chan *models.PipelineMessage
	probeCh      chan *models.PipelineMessage
	storageCh    chan *models.PipelineMessage

	// Worker pools
	validationPool *WorkerPool
	processingPool *WorkerPool
	probePool      *WorkerPool
	storagePool    *WorkerPool

	mu      sync.Mutex
	pending map[string]*Handle

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewManager(cfg config.PipelineConfig, processors processing.Set, memStore storage.MemoryStore, diskStore storage.DiskStore) *Manager {
	return &Manager{
		config:     cfg,
		processors: processors,
		memStore:   memStore,
		diskStore:  diskStore,

		validationCh: make(chan *models.PipelineMessage, cfg.QueueSize),
		processingCh: make(chan *models.PipelineMessage, cfg.QueueSize),
		probeCh:      make(chan *models.PipelineMessage, cfg.QueueSize),
		storageCh:    make(chan *models.PipelineMessage, cfg.QueueSize),

		pending: make(map[string]*Handle),
	}
}

func (m *Manager) Start(ctx context.Context) error {
	m.ctx, m.cancel = context.WithCancel(ctx)
	log.Println("Pipeline Manager: Starting...")

	m.validationPool = NewWorkerPool(m.config.ValidationWorkers, m.validateAsset)
	m.processingPool = NewWorkerPool(m.config.ProcessingWorkers, m.processAsset)
	m.probePool = NewWorkerPool(m.config.ProbeWorkers, m.probeOutputs)
	m.storagePool = NewWorkerPool(m.config.StorageWorkers, m.storeOutputs)

	log.Println("Pipeline Manager: Starting worker pools...")
	m.validationPool.Start(m.ctx)
	m.processingPool.Start(m.ctx)
	m.probePool.Start(m.ctx)
	m.storagePool.Start(m.ctx)

	log.Println("Pipeline Manager: Starting pipeline stages...")
	m.wg.Add(4)
	go m.runStage("Validation", m.validationCh, m.validationPool)
	go m.runStage("Processing", m.processingCh, m.processingPool)
	go m.runStage("Probe", m.probeCh, m.probePool)
	go m.runStage("Storage", m.storageCh, m.storagePool)

	return nil
}

// Stop shuts the stages down and fails every job still in flight.
func (m *Manager) Stop() {
	log.Println("Pipeline Manager: Stopping...")
	if m.cancel == nil {
		return
	}
	m.cancel()
	m.wg.Wait()
	m.validationPool.Wait()
	m.processingPool.Wait()
	m.probePool.Wait()
	m.storagePool.Wait()

	m.mu.Lock()
	var inflight []string
	for id := range m.pending {
		inflight = append(inflight, id)
	}
	m.mu.Unlock()

	for _, id := range inflight {
		m.memStore.UpdateJobStatus(id, models.StatusFailed, ErrShuttingDown.Error())
		job, err := m.memStore.GetJob(id)
		if err != nil {
			continue
		}
		job.Finish()
		if err := m.diskStore.StoreJob(job); err != nil {
			log.Printf("Pipeline Manager: failed to persist job %s: %v", id, err)
		}
		m.complete(&models.PipelineMessage{Job: job}, ErrShuttingDown)
	}
	log.Println("Pipeline Manager: Stopped.")
}

// Submit queues asset for tool and returns a handle to the running job.
// params is recorded on the job and may be nil. Submit never blocks: a full
// queue is reported as ErrQueueFull.
func (m *Manager) Submit(asset *models.Asset, tool models.Tool, params *models.MasteringParams) (*Handle, error) {
	if m.ctx == nil {
		return nil, ErrNotStarted
	}
	if m.ctx.Err() != nil {
		return nil, ErrShuttingDown
	}

	job := models.NewJob(asset.WorkspaceID, tool, asset)
	job.Params = params
	msg := &models.PipelineMessage{Job: job, Input: asset, Stage: "ingestion"}
	h := newHandle(job.ID)

	m.mu.Lock()
	m.pending[job.ID] = h
	m.mu.Unlock()
	m.memStore.StoreJob(job)

	log.Printf("Pipeline Manager: Submitting job %s (%s) for asset %s.", job.ID, tool, asset.ID)
	select {
	case m.validationCh <- msg:
		log.Printf("Pipeline Manager: Job %s successfully submitted.", job.ID)
		return h, nil
	case <-m.ctx.Done():
		m.discard(job.ID)
		log.Printf("Pipeline Manager: Failed to submit job %s, pipeline is shutting down.", job.ID)
		return nil, ErrShuttingDown
	default:
		m.discard(job.ID)
		log.Printf("Pipeline Manager: Failed to submit job %s, pipeline queue is full.", job.ID)
		return nil, ErrQueueFull
	}
}

// Job returns the latest known record for id.
func (m *Manager) Job(id string) (*models.Job, error) {
	if job, err := m.memStore.GetJob(id); err == nil {
		return job, nil
	}
	return m.diskStore.GetJob(id)
}

func (m *Manager) discard(jobID string) {
	m.mu.Lock()
	delete(m.pending, jobID)
	m.mu.Unlock()
	m.memStore.UpdateJobStatus(jobID, models.StatusFailed, "not accepted")
}

func (m *Manager) runStage(name string, in <-chan *models.PipelineMessage, pool *WorkerPool) {
	defer m.wg.Done()
	log.Printf("%s Stage: Running.", name)

	for {
		select {
		case msg := <-in:
			log.Printf("%s Stage: Received job %s.", name, msg.Job.ID)
			if !pool.Submit(m.ctx, msg) {
				log.Printf("%s Stage: Shutting down, dropped job %s.", name, msg.Job.ID)
				return
			}

		case <-m.ctx.Done():
			log.Printf("%s Stage: Shutting down.", name)
			return
		}
	}
}

// forward hands msg to the next stage.
func (m *Manager) forward(ctx context.Context, next chan<- *models.PipelineMessage, msg *models.PipelineMessage) {
	select {
	case next <- msg:
	case <-ctx.Done():
	}
}

// complete resolves the job's handle and releases it.
func (m *Manager) complete(msg *models.PipelineMessage, err error) {
	m.mu.Lock()
	h, ok := m.pending[msg.Job.ID]
	delete(m.pending, msg.Job.ID)
	m.mu.Unlock()

	if !ok {
		return
	}
	h.resolve(&Outcome{Job: *msg.Job, Outputs: msg.Outputs, Chords: msg.Chords}, err)
}
