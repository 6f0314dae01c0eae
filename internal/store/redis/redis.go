// Package redis is the Redis-backed SessionStore used in production so
// attempts survive server restarts and span multiple replicas.
package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/thptprep/engprep-backend/internal/config"
	"github.com/thptprep/engprep-backend/internal/model"
)

// Store keeps each attempt as two JSON values: the attempt itself and
// its chat transcripts. Both carry the attempt TTL so abandoned tabs
// age out on their own.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

func NewStore(client *redis.Client, ttl time.Duration, log zerolog.Logger) *Store {
	return &Store{
		client: client,
		ttl:    ttl,
		log:    log.With().Str("component", "session_store").Logger(),
	}
}

func (s *Store) Attempt(ctx context.Context, sid string) (*model.Attempt, bool) {
	raw, err := s.client.Get(ctx, config.CacheKey.AttemptKey(sid)).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.log.Warn().Err(err).Str("session_id", sid).Msg("attempt read failed")
		}
		return nil, false
	}
	var a model.Attempt
	if err := json.Unmarshal(raw, &a); err != nil {
		s.log.Warn().Err(err).Str("session_id", sid).Msg("attempt record unreadable, treating as absent")
		return nil, false
	}
	if a.Answers == nil {
		a.Answers = make(map[string]string)
	}
	return &a, true
}

func (s *Store) SaveAttempt(ctx context.Context, sid string, a *model.Attempt) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, config.CacheKey.AttemptKey(sid), raw, s.ttl).Err()
}

func (s *Store) SaveAnswers(ctx context.Context, sid string, answers map[string]string) error {
	return s.mutate(ctx, sid, func(a *model.Attempt) {
		a.Answers = answers
	})
}

func (s *Store) SaveClock(ctx context.Context, sid string, remaining int, started bool) error {
	return s.mutate(ctx, sid, func(a *model.Attempt) {
		a.TimeRemaining = remaining
		a.Started = started
	})
}

func (s *Store) SaveOutcome(ctx context.Context, sid string, state model.AttemptState, finish *time.Time) error {
	return s.mutate(ctx, sid, func(a *model.Attempt) {
		a.State = state
		a.FinishTime = finish
	})
}

func (s *Store) ChatSessions(ctx context.Context, sid string) map[string]*model.ChatSession {
	chats := make(map[string]*model.ChatSession)
	raw, err := s.client.Get(ctx, config.CacheKey.ChatSessionsKey(sid)).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.log.Warn().Err(err).Str("session_id", sid).Msg("chat sessions read failed")
		}
		return chats
	}
	if err := json.Unmarshal(raw, &chats); err != nil {
		s.log.Warn().Err(err).Str("session_id", sid).Msg("chat record unreadable, starting fresh")
		return make(map[string]*model.ChatSession)
	}
	return chats
}

func (s *Store) SaveChatSessions(ctx context.Context, sid string, chats map[string]*model.ChatSession) error {
	raw, err := json.Marshal(chats)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, config.CacheKey.ChatSessionsKey(sid), raw, s.ttl).Err()
}

func (s *Store) Clear(ctx context.Context, sid string) error {
	return s.client.Del(ctx,
		config.CacheKey.AttemptKey(sid),
		config.CacheKey.ChatSessionsKey(sid),
	).Err()
}

func (s *Store) mutate(ctx context.Context, sid string, fn func(*model.Attempt)) error {
	a, ok := s.Attempt(ctx, sid)
	if !ok {
		// Partial writes on a missing attempt are dropped so a cleared
		// session cannot be resurrected by a late autosave.
		return nil
	}
	fn(a)
	return s.SaveAttempt(ctx, sid, a)
}
