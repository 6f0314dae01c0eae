package model

import (
	"time"
)

// ChatSender distinguishes who authored a chat message.
type ChatSender string

const (
	SenderUser ChatSender = "user"
	SenderAI   ChatSender = "ai"
)

// ChatMessage is one entry in a per-question chat transcript. Every
// user message is followed by either the collaborator's reply or an
// inline error bubble, never left dangling.
type ChatMessage struct {
	ID        int        `json:"id"`
	Sender    ChatSender `json:"sender"`
	Text      string     `json:"text"`
	Timestamp time.Time  `json:"timestamp"`
	Model     string     `json:"model,omitempty"`
}

// ChatSession is the transcript attached to a single question id.
type ChatSession struct {
	Messages []ChatMessage `json:"messages"`
}

// HasUserContent reports whether the session holds anything beyond
// the initial greeting. Sessions without user content are never
// persisted.
func (s *ChatSession) HasUserContent() bool {
	for _, m := range s.Messages {
		if m.Sender == SenderUser {
			return true
		}
	}
	return false
}

// ChatTurn is one prior exchange forwarded to the chat collaborator.
type ChatTurn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}
