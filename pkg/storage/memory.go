package storage

import (
	"log"
	"sort"
	"sync"

	"audio-studio/pkg/models"
)

// MemoryStore keeps the live view of jobs while they move through the
// pipeline. Finished jobs are also written to the DiskStore.
type MemoryStore interface {
	StoreJob(job *models.Job) error
	GetJob(id string) (*models.Job, error)
	GetWorkspaceJobs(workspaceID string) ([]*models.Job, error)
	UpdateJobStatus(id string, status models.JobStatus, errMsg string) error
}

type memoryStore struct {
	jobs map[string]*models.Job
	mu   sync.RWMutex
}

func NewMemoryStore() MemoryStore {
	return &memoryStore{
		jobs: make(map[string]*models.Job),
	}
}

func (s *memoryStore) StoreJob(job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *job
	s.jobs[job.ID] = &cp
	log.Printf("Memory Store: job %s stored with status %s", job.ID, job.Status)
	return nil
}

func (s *memoryStore) GetJob(id string) (*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[id]
	if !exists {
		return nil, ErrJobNotFound
	}

	cp := *job
	return &cp, nil
}

// GetWorkspaceJobs returns the workspace's jobs, oldest first.
func (s *memoryStore) GetWorkspaceJobs(workspaceID string) ([]*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var jobs []*models.Job
	for _, job := range s.jobs {
		if job.WorkspaceID == workspaceID {
			cp := *job
			jobs = append(jobs, &cp)
		}
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].StartedAt.Before(jobs[j].StartedAt)
	})

	return jobs, nil
}

func (s *memoryStore) UpdateJobStatus(id string, status models.JobStatus, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[id]
	if !exists {
		return ErrJobNotFound
	}

	job.Status = status
	job.Error = errMsg
	return nil
}
