package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/thptprep/engprep-backend/internal/client"
	"github.com/thptprep/engprep-backend/internal/model"
	"github.com/thptprep/engprep-backend/internal/store"
)

var (
	ErrChatEmptyReply = errors.New("chat collaborator returned an empty reply")
	ErrChatOffTopic   = errors.New("chat collaborator declined an off-topic question")
)

// chatGreeting opens every per-question chat. It is shown but never
// persisted: a transcript is only stored once the user has said
// something.
const chatGreeting = "Hi! I'm here to help with this question. Ask me about the passage, the options, or why an answer is right or wrong."

// errorReplyText is appended in place of the pending bubble when the
// collaborator fails. The user's message stays so they can retry by
// hand; nothing retries automatically.
const errorReplyText = "Sorry, I couldn't reach the tutor right now. Your message is kept above, please send it again in a moment."

// ChatService runs the per-question tutoring chat attached to an
// attempt.
type ChatService struct {
	sessions  store.SessionStore
	debouncer *store.ChatDebouncer
	chat      *client.ChatClient
	log       zerolog.Logger

	now func() time.Time
}

// NewChatService creates a new ChatService.
func NewChatService(sessions store.SessionStore, debouncer *store.ChatDebouncer, chat *client.ChatClient, log zerolog.Logger) *ChatService {
	return &ChatService{
		sessions:  sessions,
		debouncer: debouncer,
		chat:      chat,
		log:       log.With().Str("component", "chat_service").Logger(),
		now:       time.Now,
	}
}

// Open returns the transcript for a question, prefixing the greeting
// when no stored conversation exists yet.
func (s *ChatService) Open(ctx context.Context, sid, questionID string) *model.ChatSession {
	// Read through the debouncer: a transcript written moments ago may
	// still be waiting for its flush.
	chats := s.debouncer.Sessions(ctx, sid)
	if session, ok := chats[questionID]; ok && session.HasUserContent() {
		return session
	}
	return &model.ChatSession{Messages: []model.ChatMessage{{
		ID:        1,
		Sender:    model.SenderAI,
		Text:      chatGreeting,
		Timestamp: s.now(),
	}}}
}

// Send appends the user's message, calls the collaborator once and
// returns the updated transcript. On failure the transcript gains an
// inline error bubble instead of a reply, and the error also surfaces
// to the caller.
func (s *ChatService) Send(ctx context.Context, sid, questionID, text string) (*model.ChatSession, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrChatEmptyReply
	}

	a, ok := s.sessions.Attempt(ctx, sid)
	if !ok {
		return nil, ErrAttemptNotFound
	}
	sub := a.Content.Question(questionID)
	if sub == nil {
		return nil, ErrUnknownQuestion
	}

	session := s.Open(ctx, sid, questionID)
	prior := history(session)
	session.Messages = append(session.Messages, model.ChatMessage{
		ID:        nextMessageID(session),
		Sender:    model.SenderUser,
		Text:      text,
		Timestamp: s.now(),
	})
	// The transcript now has user content, so it becomes persistent.
	s.persist(ctx, sid, session, questionID)

	req := &client.ChatRequest{
		History: prior,
		Message: text,
	}
	req.Question.Content = sub.Content
	req.Question.Context = contextFor(a.Content, questionID)
	req.Question.Options = sub.Options
	req.Question.CorrectAnswer = sub.CorrectAnswer
	req.Question.Explanation = sub.Explanation

	reply, err := s.chat.Ask(ctx, req)
	switch {
	case err != nil:
		s.log.Warn().Err(err).Str("question_id", questionID).Msg("chat call failed")
		s.appendReply(ctx, sid, questionID, session, errorReplyText, "")
		return session, err
	case reply.OffTopic:
		s.appendReply(ctx, sid, questionID, session, reply.Response, reply.Model)
		return session, ErrChatOffTopic
	case strings.TrimSpace(reply.Response) == "":
		s.appendReply(ctx, sid, questionID, session, errorReplyText, "")
		return session, ErrChatEmptyReply
	}

	s.appendReply(ctx, sid, questionID, session, reply.Response, reply.Model)
	return session, nil
}

// Flush forces any debounced transcript writes out, used before
// submission tears the session down.
func (s *ChatService) Flush(sid string) {
	s.debouncer.Flush(sid)
}

func (s *ChatService) appendReply(ctx context.Context, sid, questionID string, session *model.ChatSession, text, modelName string) {
	session.Messages = append(session.Messages, model.ChatMessage{
		ID:        nextMessageID(session),
		Sender:    model.SenderAI,
		Text:      text,
		Timestamp: s.now(),
		Model:     modelName,
	})
	s.persist(ctx, sid, session, questionID)
}

func (s *ChatService) persist(ctx context.Context, sid string, session *model.ChatSession, questionID string) {
	if !session.HasUserContent() {
		return
	}
	// The greeting is regenerated on open, never stored.
	stored := &model.ChatSession{}
	for _, m := range session.Messages {
		if m.Sender == model.SenderAI && m.Text == chatGreeting {
			continue
		}
		stored.Messages = append(stored.Messages, m)
	}
	chats := s.debouncer.Sessions(ctx, sid)
	chats[questionID] = stored
	s.debouncer.Save(sid, chats)
}

func nextMessageID(session *model.ChatSession) int {
	max := 0
	for _, m := range session.Messages {
		if m.ID > max {
			max = m.ID
		}
	}
	return max + 1
}

// history converts the transcript into upstream turns, skipping the
// greeting so the model only sees real exchanges.
func history(session *model.ChatSession) []model.ChatTurn {
	turns := make([]model.ChatTurn, 0, len(session.Messages))
	seenUser := false
	for _, m := range session.Messages {
		if m.Sender == model.SenderUser {
			seenUser = true
		}
		if !seenUser {
			continue
		}
		role := "user"
		if m.Sender == model.SenderAI {
			role = "assistant"
		}
		turns = append(turns, model.ChatTurn{Role: role, Text: m.Text})
	}
	return turns
}

func contextFor(content *model.ExamContent, questionID string) string {
	for _, fq := range content.FlatQuestions() {
		if fq.ID == questionID {
			return fq.Context
		}
	}
	return ""
}
