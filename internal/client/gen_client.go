package client

import (
	"context"
	"net/http"

	"github.com/thptprep/engprep-backend/internal/config"
	"github.com/thptprep/engprep-backend/internal/model"
)

// GenClient calls the question generation model, which turns source
// text into question groups for the bank.
type GenClient struct {
	hc  *http.Client
	url string
}

func NewGenClient(cfg *config.Config) *GenClient {
	return &GenClient{
		hc:  newHTTPClient(cfg.UpstreamTimeout),
		url: cfg.GenAPIURL,
	}
}

// GenRequest asks for question groups of one type from source text.
type GenRequest struct {
	Type   model.GroupType `json:"type"`
	Source string          `json:"source"`
	Count  int             `json:"count"`
}

type genResponse struct {
	Groups []model.QuestionGroup `json:"groups"`
}

// Generate produces question groups from the given source text.
func (c *GenClient) Generate(ctx context.Context, req *GenRequest) ([]model.QuestionGroup, error) {
	var resp genResponse
	if err := postJSON(ctx, c.hc, "generator", c.url, req, &resp); err != nil {
		return nil, err
	}
	return resp.Groups, nil
}
