package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/thptprep/engprep-backend/internal/config"
	"github.com/thptprep/engprep-backend/internal/model"
)

// IdentityClient talks to the hosted OAuth identity provider: it
// exchanges authorization codes for tokens and fetches the user
// profile.
type IdentityClient struct {
	hc           *http.Client
	domain       string
	clientID     string
	clientSecret string
}

func NewIdentityClient(cfg *config.Config) *IdentityClient {
	return &IdentityClient{
		hc:           newHTTPClient(cfg.UpstreamTimeout),
		domain:       strings.TrimRight(cfg.OAuthDomain, "/"),
		clientID:     cfg.OAuthClientID,
		clientSecret: cfg.OAuthClientSecret,
	}
}

// ExchangeCode redeems an authorization code for provider tokens.
func (c *IdentityClient) ExchangeCode(ctx context.Context, code, redirectURI string) (*model.ProviderTokens, error) {
	form := url.Values{
		"grant_type":   {"authorization_code"},
		"client_id":    {c.clientID},
		"code":         {code},
		"redirect_uri": {redirectURI},
	}
	if c.clientSecret != "" {
		form.Set("client_secret", c.clientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.domain+"/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{Service: "identity", Status: resp.StatusCode, Body: truncate(string(body), 512)}
	}

	var tokens model.ProviderTokens
	if err := json.Unmarshal(body, &tokens); err != nil {
		return nil, err
	}
	return &tokens, nil
}

// UserInfo fetches the profile for an access token.
func (c *IdentityClient) UserInfo(ctx context.Context, accessToken string) (*model.UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.domain+"/oauth2/userInfo", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{Service: "identity", Status: resp.StatusCode, Body: truncate(string(body), 512)}
	}

	var info model.UserInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, err
	}
	return &info, nil
}
