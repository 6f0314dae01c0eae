package client

import (
	"context"
	"net/http"

	"github.com/thptprep/engprep-backend/internal/config"
	"github.com/thptprep/engprep-backend/internal/model"
)

// ChatClient calls the tutoring model. Each call carries the question
// being discussed plus the running transcript so the model stays on
// topic.
type ChatClient struct {
	hc  *http.Client
	url string
}

func NewChatClient(cfg *config.Config) *ChatClient {
	return &ChatClient{
		hc:  newHTTPClient(cfg.UpstreamTimeout),
		url: cfg.ChatAPIURL,
	}
}

// ChatRequest is the upstream payload.
type ChatRequest struct {
	Question struct {
		Content       string   `json:"content"`
		Context       string   `json:"context,omitempty"`
		Options       []string `json:"options"`
		CorrectAnswer string   `json:"correct_answer"`
		Explanation   string   `json:"explanation,omitempty"`
	} `json:"question"`
	History []model.ChatTurn `json:"history"`
	Message string           `json:"message"`
}

// ChatReply is the upstream response.
type ChatReply struct {
	Response string `json:"response"`
	Model    string `json:"model,omitempty"`
	OffTopic bool   `json:"off_topic,omitempty"`
}

// Ask sends one turn and returns the model's reply.
func (c *ChatClient) Ask(ctx context.Context, req *ChatRequest) (*ChatReply, error) {
	var reply ChatReply
	if err := postJSON(ctx, c.hc, "chat", c.url, req, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}
