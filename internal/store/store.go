package store

import (
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"vidsum/internal/models"
)

// Store is the process-wide table of job records. The outer lock only guards
// the map itself; every record carries its own lock, so updates to unrelated
// jobs never serialize against each other.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*entry
}

type entry struct {
	mu     sync.Mutex
	job    models.Job
	events []models.Event
}

func New() *Store {
	return &Store{jobs: make(map[string]*entry)}
}

// Create inserts a fresh record in queued state. The id comes from a UUID
// generator, so a collision indicates a caller bug rather than bad input.
func (s *Store) Create(id, sourceName string) (models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[id]; exists {
		return models.Job{}, models.ErrJobExists
	}

	now := time.Now()
	job := models.Job{
		ID:         id,
		Stage:      models.StageQueued,
		Progress:   models.ProgressQueued,
		SourceName: sourceName,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.jobs[id] = &entry{job: job}
	return job, nil
}

func (s *Store) lookup(id string) (*entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.jobs[id]
	return e, ok
}

// Get returns a snapshot of the record, or ErrNotFound.
func (s *Store) Get(id string) (models.Job, error) {
	e, ok := s.lookup(id)
	if !ok {
		return models.Job{}, models.ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.job, nil
}

// Update applies mutate atomically with respect to other updates on the same
// id. Stage changes that would move backwards or out of a terminal stage are
// rejected and logged; all other field changes are kept.
func (s *Store) Update(id string, mutate func(*models.Job)) error {
	e, ok := s.lookup(id)
	if !ok {
		return models.ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	prev := e.job.Stage
	mutate(&e.job)
	if !models.ValidTransition(prev, e.job.Stage) {
		log.Warnf("job %s: rejected stage transition %s -> %s", id, prev, e.job.Stage)
		e.job.Stage = prev
	}
	e.job.UpdatedAt = time.Now()
	return nil
}

// AppendEvent atomically appends to the job's event log, assigning the next
// sequence number. The event is readable immediately by any observer polling
// from an earlier offset.
func (s *Store) AppendEvent(id string, ev models.Event) (models.Event, error) {
	e, ok := s.lookup(id)
	if !ok {
		return models.Event{}, models.ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ev.Seq = len(e.events) + 1
	e.events = append(e.events, ev)
	return ev, nil
}

// EventsSince returns a copy of the events appended after the first `offset`
// entries, in append order. An up-to-date observer gets an empty slice, not
// an error.
func (s *Store) EventsSince(id string, offset int) ([]models.Event, error) {
	e, ok := s.lookup(id)
	if !ok {
		return nil, models.ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if offset < 0 {
		offset = 0
	}
	if offset >= len(e.events) {
		return nil, nil
	}
	out := make([]models.Event, len(e.events)-offset)
	copy(out, e.events[offset:])
	return out, nil
}

// List returns snapshots of every record, newest first.
func (s *Store) List() []models.Job {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.jobs))
	for _, e := range s.jobs {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make([]models.Job, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.job)
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Delete removes a record outright. Only the janitor calls this; live code
// paths never evict.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
}
