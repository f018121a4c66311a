package storage

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spinecat/spinecat/internal/models"
)

// Job status values.
const (
	StatusPending = "pending"
	StatusRunning = "running"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// JobStore is an in-memory store of match jobs keyed by ID.
type JobStore struct {
	jobs map[string]*models.MatchJob
	mu   sync.RWMutex
}

func New() *JobStore {
	return &JobStore{
		jobs: make(map[string]*models.MatchJob),
	}
}

// Create registers a new pending job and returns a snapshot of it.
func (s *JobStore) Create() *models.MatchJob {
	job := &models.MatchJob{
		ID:        uuid.NewString(),
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	snapshot := *job
	return &snapshot
}

// Get returns a snapshot of a job, so callers can read it while the
// worker goroutine updates the stored copy.
func (s *JobStore) Get(jobID string) (*models.MatchJob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, exists := s.jobs[jobID]
	if !exists {
		return nil, false
	}
	snapshot := *job
	return &snapshot, true
}

// SetRunning marks a job as in progress.
func (s *JobStore) SetRunning(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, exists := s.jobs[jobID]; exists {
		job.Status = StatusRunning
	}
}

// SetDone stores a job's results and marks it complete.
func (s *JobStore) SetDone(jobID string, results []*models.PipelineResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, exists := s.jobs[jobID]; exists {
		job.Status = StatusDone
		job.Results = results
	}
}

// SetFailed records a job failure.
func (s *JobStore) SetFailed(jobID string, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, exists := s.jobs[jobID]; exists {
		job.Status = StatusFailed
		job.Error = errMsg
	}
}

// GetAll returns a snapshot of every job.
func (s *JobStore) GetAll() map[string]*models.MatchJob {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]*models.MatchJob, len(s.jobs))
	for k, v := range s.jobs {
		snapshot := *v
		result[k] = &snapshot
	}
	return result
}

func (s *JobStore) Delete(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, jobID)
}
