// Package jobs tracks the lifecycle of conversion work items so that
// batch results can be queried after the fact.
package jobs

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Transition records one stage change of a job.
type Transition struct {
	Stage string    `json:"stage"`
	At    time.Time `json:"at"`
}

// Job is the tracked state of a single file conversion.
type Job struct {
	ID           string       `json:"jobId"`
	FileName     string       `json:"fileName"`
	Stage        string       `json:"stage"`
	History      []Transition `json:"history"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
	Done         bool         `json:"done"`
	Success      bool         `json:"success"`
	XMLName      string       `json:"xmlName,omitempty"`
	ErrorMessage string       `json:"error,omitempty"`
}

// Store is an in-memory job registry safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*Job
	now  func() time.Time
}

func NewStore() *Store {
	return &Store{
		jobs: make(map[string]*Job),
		now:  time.Now,
	}
}

// Create registers a new job for fileName at the given initial stage
// and returns its ID.
func (s *Store) Create(fileName, stage string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	job := &Job{
		ID:        uuid.NewString(),
		FileName:  fileName,
		Stage:     stage,
		History:   []Transition{{Stage: stage, At: now}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.jobs[job.ID] = job
	return job.ID
}

// Advance moves a job to a new stage. Unknown IDs and finished jobs are
// ignored.
func (s *Store) Advance(id, stage string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok || job.Done {
		return
	}
	now := s.now()
	job.Stage = stage
	job.History = append(job.History, Transition{Stage: stage, At: now})
	job.UpdatedAt = now
}

// Complete marks a job as successfully finished with the produced XML
// file name.
func (s *Store) Complete(id, stage, xmlName string) {
	s.finish(id, stage, true, xmlName, "")
}

// Fail marks a job as finished unsuccessfully with the failure message.
func (s *Store) Fail(id, stage, message string) {
	s.finish(id, stage, false, "", message)
}

func (s *Store) finish(id, stage string, success bool, xmlName, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok || job.Done {
		return
	}
	now := s.now()
	job.Stage = stage
	job.History = append(job.History, Transition{Stage: stage, At: now})
	job.UpdatedAt = now
	job.Done = true
	job.Success = success
	job.XMLName = xmlName
	job.ErrorMessage = message
}

// Get returns a copy of the job with the given ID.
func (s *Store) Get(id string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	return copyJob(job), true
}

// List returns copies of all jobs, newest first.
func (s *Store) List() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, copyJob(job))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func copyJob(job *Job) Job {
	out := *job
	out.History = append([]Transition(nil), job.History...)
	return out
}
