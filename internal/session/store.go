// Package session holds the in-memory collection of workspace Results.
//
// Every mutation builds a new slice and swaps it in under the lock, so a
// snapshot handed to a reader is never modified afterwards.
package session

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docsheet/constants"
	"github.com/joseph-ayodele/docsheet/internal/common"
	"github.com/joseph-ayodele/docsheet/internal/entity"
)

type Store struct {
	mu       sync.RWMutex
	results  []entity.Result
	activeID string
	seq      int
	now      func() time.Time
	logger   *slog.Logger
}

func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{results: []entity.Result{}, now: time.Now, logger: logger}
}

// CreateResult appends a Result in Analyzing state with empty data, names it
// "Result N" and makes it active.
func (s *Store) CreateResult(image []byte, mimeType string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	now := s.now()
	r := entity.Result{
		ID:        uuid.NewString(),
		Name:      fmt.Sprintf("Result %d", s.seq),
		Image:     image,
		MIMEType:  mimeType,
		Data:      entity.Empty(),
		Status:    constants.StatusAnalyzing,
		CreatedAt: now,
		UpdatedAt: now,
	}

	next := make([]entity.Result, 0, len(s.results)+1)
	next = append(next, s.results...)
	next = append(next, r)
	s.results = next
	s.activeID = r.ID

	s.logger.Info("session.result.created", "result_id", r.ID, "name", r.Name, "image_bytes", len(image))
	return r.ID
}

// UpdateResult applies patch to a copy of the Result and swaps the collection.
// It reports false, without error, when the id is absent: a late completion
// for a closed tab is a no-op.
func (s *Store) UpdateResult(id string, patch func(*entity.Result)) bool {
	found, _ := s.UpdateResultIf(id, func(r *entity.Result) bool {
		patch(r)
		return true
	})
	return found
}

// UpdateResultIf is UpdateResult with a patch that may decline. The check and
// the write happen under one lock; a declined patch leaves the collection as is.
func (s *Store) UpdateResultIf(id string, patch func(*entity.Result) bool) (found, applied bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		s.logger.Debug("session.result.update_ignored", "result_id", id)
		return false, false
	}

	updated := s.results[idx].Clone()
	if !patch(&updated) {
		return true, false
	}
	updated.ID = id
	updated.Data = updated.Data.Normalize()
	updated.UpdatedAt = s.now()

	next := make([]entity.Result, len(s.results))
	copy(next, s.results)
	next[idx] = updated
	s.results = next
	return true, true
}

// CloseResult removes the Result. If it was active, the Result now last in
// order becomes active, or none when the collection is empty.
func (s *Store) CloseResult(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return common.NotFoundf("result %s not found", id)
	}

	next := make([]entity.Result, 0, len(s.results)-1)
	next = append(next, s.results[:idx]...)
	next = append(next, s.results[idx+1:]...)
	s.results = next

	if s.activeID == id {
		s.activeID = ""
		if n := len(next); n > 0 {
			s.activeID = next[n-1].ID
		}
	}

	s.logger.Info("session.result.closed", "result_id", id, "active_id", s.activeID, "remaining", len(next))
	return nil
}

func (s *Store) RenameResult(id, name string) error {
	if !s.UpdateResult(id, func(r *entity.Result) { r.Name = name }) {
		return common.NotFoundf("result %s not found", id)
	}
	return nil
}

func (s *Store) SelectResult(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexLocked(id) < 0 {
		return common.NotFoundf("result %s not found", id)
	}
	s.activeID = id
	return nil
}

// Get returns a copy of the Result.
func (s *Store) Get(id string) (entity.Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return entity.Result{}, false
	}
	return s.results[idx].Clone(), true
}

// List returns the current snapshot in creation order and the active id.
// The returned slice is never mutated by the store.
func (s *Store) List() ([]entity.Result, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.results, s.activeID
}

// ActiveID returns the selected Result id, or "" when none is active.
func (s *Store) ActiveID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

// Active returns a copy of the selected Result.
func (s *Store) Active() (entity.Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexLocked(s.activeID)
	if idx < 0 {
		return entity.Result{}, false
	}
	return s.results[idx].Clone(), true
}

func (s *Store) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.results {
		if s.results[i].ID == id {
			return i
		}
	}
	return -1
}
