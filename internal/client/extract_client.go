package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/thptprep/engprep-backend/internal/config"
)

// ExtractClient calls the document extraction service, which pulls
// plain text out of uploaded study material (PDF, DOCX).
type ExtractClient struct {
	hc  *http.Client
	url string
}

func NewExtractClient(cfg *config.Config) *ExtractClient {
	return &ExtractClient{
		hc:  newHTTPClient(cfg.UpstreamTimeout),
		url: cfg.ExtractAPIURL,
	}
}

type extractResponse struct {
	Text string `json:"text"`
}

// Extract uploads a document and returns its extracted text.
func (c *ExtractClient) Extract(ctx context.Context, filename string, data []byte) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", &UpstreamError{Service: "extractor", Status: resp.StatusCode, Body: truncate(string(body), 512)}
	}

	var out extractResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", err
	}
	return out.Text, nil
}
