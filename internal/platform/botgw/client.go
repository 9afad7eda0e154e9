// Package botgw is an HTTP client for the bot gateway's internal API, the
// process that owns the Discord connection. It implements platform.Platform.
package botgw

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/bakaio/matchbroker/internal/errs"
	"github.com/gofrs/uuid/v5"
)

// Client talks to the bot gateway with a shared service token. Calls are
// bounded by the client timeout; failures and timeouts surface as
// ErrExternalUnavailable so callers can treat them as retryable.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New constructs a gateway client.
func New(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

type createSpaceRequest struct {
	MatchID   string   `json:"match_id"`
	MemberIDs []string `json:"member_ids"`
}

type createSpaceResponse struct {
	SpaceRef string `json:"space_ref"`
}

// CreateIsolatedSpace asks the gateway to create a private channel restricted
// to the given members and returns the channel reference.
func (c *Client) CreateIsolatedSpace(ctx context.Context, matchID uuid.UUID, memberIDs []string) (string, error) {
	body, err := json.Marshal(createSpaceRequest{MatchID: matchID.String(), MemberIDs: memberIDs})
	if err != nil {
		return "", err
	}

	var out createSpaceResponse
	if err := c.post(ctx, "/internal/spaces", body, &out); err != nil {
		return "", err
	}
	if out.SpaceRef == "" {
		return "", fmt.Errorf("gateway returned empty space_ref: %w", errs.ErrExternalUnavailable)
	}
	return out.SpaceRef, nil
}

type notifyRequest struct {
	Content string `json:"content"`
}

// NotifySpace posts a message into an existing space.
func (c *Client) NotifySpace(ctx context.Context, spaceRef, message string) error {
	body, err := json.Marshal(notifyRequest{Content: message})
	if err != nil {
		return err
	}
	return c.post(ctx, "/internal/spaces/"+url.PathEscape(spaceRef)+"/messages", body, nil)
}

func (c *Client) post(ctx context.Context, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gateway %s: %v: %w", path, err, errs.ErrExternalUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gateway %s: status %d: %s: %w", path, resp.StatusCode, snippet, errs.ErrExternalUnavailable)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("gateway %s: decode: %v: %w", path, err, errs.ErrExternalUnavailable)
	}
	return nil
}
