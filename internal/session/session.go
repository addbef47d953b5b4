package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"cardscan/internal/common"
	"cardscan/internal/contact"
	"cardscan/internal/extract"
	"cardscan/internal/reconcile"
)

// Phase is the canonical state of a scanning session. Capture and the
// recognition call happen before a session exists, so every stored session is
// in REVIEW; the type is kept so the value travels over the API as a tagged
// string.
type Phase string

const (
	PhaseReview Phase = "REVIEW" // record + items ready for reconciliation
)

// Session owns one capture's worth of state: the live record, the unassigned
// items, and the reconciliation engine that mutates them. A new analyze on the
// same session discards all of it; nothing merges across captures.
type Session struct {
	ID          uuid.UUID
	Phase       Phase
	Engine      *reconcile.Engine
	RawResponse string
	Diagnostic  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Store is a mutex-guarded in-memory session map. Sessions expire after TTL;
// there is deliberately no persistence.
type Store struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session

	ttl    time.Duration
	settle time.Duration
	logger *slog.Logger
}

func NewStore(ttl, settle time.Duration, logger *slog.Logger) *Store {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		sessions: make(map[uuid.UUID]*Session),
		ttl:      ttl,
		settle:   settle,
		logger:   logger,
	}
}

// Create builds a session in REVIEW from an extraction result, evicting
// anything expired while it holds the lock.
func (s *Store) Create(res extract.Result, photo []byte) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked()

	rec := contact.NewRecord(res.Contact)
	rec.Photo = photo
	now := time.Now()
	sess := &Session{
		ID:    uuid.New(),
		Phase: PhaseReview,
		Engine: reconcile.NewEngine(rec, res.Items, s.logger,
			reconcile.WithSettleDelay(s.settle)),
		RawResponse: res.Raw,
		Diagnostic:  res.ParseDiagnostic,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.sessions[sess.ID] = sess

	s.logger.Info("session.create",
		"session_id", sess.ID.String(),
		"unassigned_items", len(res.Items),
		"has_diagnostic", res.ParseDiagnostic != "",
	)
	return sess
}

// Get returns the live session or common.ErrNotFound.
func (s *Store) Get(id uuid.UUID) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || time.Since(sess.UpdatedAt) > s.ttl {
		delete(s.sessions, id)
		return nil, common.NewAppError("SESSION_NOT_FOUND", "unknown or expired session", common.ErrNotFound)
	}
	sess.UpdatedAt = time.Now()
	return sess, nil
}

// Delete removes a session; deleting an absent session is a no-op.
func (s *Store) Delete(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// evictLocked drops expired sessions. Caller holds s.mu.
func (s *Store) evictLocked() {
	cutoff := time.Now().Add(-s.ttl)
	for id, sess := range s.sessions {
		if sess.UpdatedAt.Before(cutoff) {
			delete(s.sessions, id)
			s.logger.Debug("session.evict", "session_id", id.String())
		}
	}
}
