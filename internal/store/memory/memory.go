// Package memory is the in-process SessionStore used by tests and
// single-node development runs.
package memory

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/thptprep/engprep-backend/internal/model"
)

type entry struct {
	attempt []byte
	chats   []byte
}

// Store is an in-memory SessionStore keyed by session id.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*entry
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*entry)}
}

func (s *Store) Attempt(_ context.Context, sid string) (*model.Attempt, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[sid]
	if !ok || len(e.attempt) == 0 {
		return nil, false
	}
	var a model.Attempt
	if err := json.Unmarshal(e.attempt, &a); err != nil {
		// Corrupt state reads as absent.
		return nil, false
	}
	if a.Answers == nil {
		a.Answers = make(map[string]string)
	}
	return &a, true
}

func (s *Store) SaveAttempt(_ context.Context, sid string, a *model.Attempt) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensure(sid).attempt = raw
	return nil
}

func (s *Store) SaveAnswers(ctx context.Context, sid string, answers map[string]string) error {
	return s.mutate(sid, func(a *model.Attempt) {
		a.Answers = answers
	})
}

func (s *Store) SaveClock(ctx context.Context, sid string, remaining int, started bool) error {
	return s.mutate(sid, func(a *model.Attempt) {
		a.TimeRemaining = remaining
		a.Started = started
	})
}

func (s *Store) SaveOutcome(ctx context.Context, sid string, state model.AttemptState, finish *time.Time) error {
	return s.mutate(sid, func(a *model.Attempt) {
		a.State = state
		a.FinishTime = finish
	})
}

func (s *Store) ChatSessions(_ context.Context, sid string) map[string]*model.ChatSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chats := make(map[string]*model.ChatSession)
	e, ok := s.sessions[sid]
	if !ok || len(e.chats) == 0 {
		return chats
	}
	if err := json.Unmarshal(e.chats, &chats); err != nil {
		return make(map[string]*model.ChatSession)
	}
	return chats
}

func (s *Store) SaveChatSessions(_ context.Context, sid string, chats map[string]*model.ChatSession) error {
	raw, err := json.Marshal(chats)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensure(sid).chats = raw
	return nil
}

func (s *Store) Clear(_ context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sid)
	return nil
}

// Corrupt inserts unparseable bytes for a session. Test helper.
func (s *Store) Corrupt(sid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensure(sid).attempt = []byte("{not-json")
}

func (s *Store) ensure(sid string) *entry {
	e, ok := s.sessions[sid]
	if !ok {
		e = &entry{}
		s.sessions[sid] = e
	}
	return e
}

func (s *Store) mutate(sid string, fn func(*model.Attempt)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[sid]
	if !ok || len(e.attempt) == 0 {
		// Nothing to mutate — partial writes on a missing attempt are
		// dropped rather than resurrecting a cleared session.
		return nil
	}
	var a model.Attempt
	if err := json.Unmarshal(e.attempt, &a); err != nil {
		return nil
	}
	fn(&a)
	raw, err := json.Marshal(&a)
	if err != nil {
		return err
	}
	e.attempt = raw
	return nil
}
