package store

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/do"
)

// Service is the concurrent session registry. The registry map is guarded by
// a short-lived RWMutex used only for lookup, insert and delete; every
// per-session mutation runs under that session's own lock, so unrelated
// conversations never contend.
type Service struct {
	mu      sync.RWMutex
	entries map[string]*sessionEntry
}

type sessionEntry struct {
	// proc serializes whole-turn processing (engine and summary pipelines
	// hold it across collaborator call plus commit).
	proc sync.Mutex
	// mu guards sess for individual store operations.
	mu   sync.RWMutex
	sess Session
}

func New(_ *do.Injector) (*Service, error) {
	return &Service{
		entries: make(map[string]*sessionEntry),
	}, nil
}

// Create registers a new session in active state with an empty transcript.
// Identifiers are unique for the lifetime of the store.
func (s *Service) Create() Session {
	now := time.Now()

	sess := Session{
		ID:        uuid.NewString(),
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.entries[sess.ID] = &sessionEntry{sess: sess}
	s.mu.Unlock()

	slog.Debug("Session created", "session_id", sess.ID)

	return sess.clone()
}

// Get returns a snapshot of the session.
func (s *Service) Get(id string) (Session, error) {
	entry, err := s.lookup(id)
	if err != nil {
		return Session{}, err
	}

	entry.mu.RLock()
	defer entry.mu.RUnlock()

	return entry.sess.clone(), nil
}

// Acquire takes the per-session processing lock, serializing long pipelines
// (process message, end) on the same id while other sessions stay fully
// available. The caller must invoke the returned release.
func (s *Service) Acquire(id string) (func(), error) {
	entry, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	entry.proc.Lock()
	return entry.proc.Unlock, nil
}

// AppendExchange atomically commits one user/assistant exchange: both turns,
// the entity merge and the updated timestamp land together or not at all.
// Returns the new message count.
func (s *Service) AppendExchange(id string, user, assistant Turn, entities EntityMap) (int, error) {
	entry, err := s.lookup(id)
	if err != nil {
		return 0, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.sess.Status != StatusActive {
		return 0, fmt.Errorf("session %s is %s: %w", id, entry.sess.Status, ErrInvalidState)
	}

	entry.sess.Turns = append(entry.sess.Turns, user, assistant)
	entry.sess.Entities.Merge(entities)
	entry.sess.UpdatedAt = time.Now()

	return len(entry.sess.Turns), nil
}

// Complete transitions the session to completed with its terminal artifacts.
// Allowed from active, or from error as a retried completion.
func (s *Service) Complete(id string, patient *PatientData, proCtcae *ProCtcaeData) error {
	entry, err := s.lookup(id)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.sess.Status == StatusCompleted {
		return fmt.Errorf("session %s already completed: %w", id, ErrInvalidState)
	}

	entry.sess.Status = StatusCompleted
	entry.sess.PatientData = patient
	entry.sess.ProCtcae = proCtcae
	entry.sess.ErrorMessage = ""
	entry.sess.UpdatedAt = time.Now()

	return nil
}

// Fail transitions the session to error, preserving transcript and entities
// so a later retry can complete it.
func (s *Service) Fail(id, message string) error {
	entry, err := s.lookup(id)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.sess.Status == StatusCompleted {
		return fmt.Errorf("session %s already completed: %w", id, ErrInvalidState)
	}

	entry.sess.Status = StatusError
	entry.sess.ErrorMessage = message
	entry.sess.UpdatedAt = time.Now()

	return nil
}

func (s *Service) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}

	delete(s.entries, id)
	return nil
}

func (s *Service) List() []Summary {
	s.mu.RLock()
	entries := make([]*sessionEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		entries = append(entries, entry)
	}
	s.mu.RUnlock()

	summaries := make([]Summary, 0, len(entries))
	for _, entry := range entries {
		entry.mu.RLock()
		summaries = append(summaries, Summary{
			ID:           entry.sess.ID,
			Status:       entry.sess.Status,
			CreatedAt:    entry.sess.CreatedAt,
			UpdatedAt:    entry.sess.UpdatedAt,
			MessageCount: len(entry.sess.Turns),
		})
		entry.mu.RUnlock()
	}

	return summaries
}

// PurgeOlderThan removes every session whose updated_at precedes now-maxAge,
// regardless of status, and returns the count removed.
func (s *Service) PurgeOlderThan(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, entry := range s.entries {
		entry.mu.RLock()
		stale := entry.sess.UpdatedAt.Before(cutoff)
		entry.mu.RUnlock()

		if stale {
			delete(s.entries, id)
			removed++
		}
	}

	return removed
}

func (s *Service) lookup(id string) (*sessionEntry, error) {
	s.mu.RLock()
	entry, ok := s.entries[id]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}

	return entry, nil
}

func (sess Session) clone() Session {
	out := sess
	out.Turns = append([]Turn(nil), sess.Turns...)
	out.Entities = sess.Entities.Clone()
	return out
}
