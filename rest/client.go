// Package rest implements the authenticated REST client for the Coursewire
// notification API.
package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coursewire/coursewire-go/metrics"
	"github.com/coursewire/coursewire-go/types"
)

// TokenSource supplies the session credential for outgoing requests.
// Implementations return types.ErrAuthMissing when no credential is present.
type TokenSource interface {
	Token() (string, error)
}

// StaticToken is a TokenSource returning a fixed token. An empty token
// reports types.ErrAuthMissing.
type StaticToken string

// Token implements TokenSource.
func (t StaticToken) Token() (string, error) {
	if t == "" {
		return "", types.ErrAuthMissing
	}
	return string(t), nil
}

// Client is the notification REST client. It performs the one-shot hydration
// fetch and the read-state mutations.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     TokenSource
}

// NewClient creates a REST client for the given base URL. timeout of zero
// falls back to 30 seconds.
func NewClient(baseURL string, timeout time.Duration, tokens TokenSource) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		tokens:     tokens,
	}
}

// Notifications performs the hydration fetch: one authenticated
// GET /notifications/ returning the inbox in server order. The server's
// order is authoritative and is not re-sorted client-side.
//
// Returns types.ErrAuthMissing when no credential is present and a
// types.ErrFetch-wrapped error on any non-200 response.
func (c *Client) Notifications(ctx context.Context) ([]types.Notification, error) {
	start := time.Now()

	resp, err := c.do(ctx, http.MethodGet, "/notifications/", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: %w", types.ErrFetch,
			types.NewAPIError(resp.StatusCode, string(body), nil))
	}

	var list types.NotificationList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %w", types.ErrFetch, err)
	}

	metrics.HydrationDuration.Observe(time.Since(start).Seconds())

	log.Debug().
		Int("count", len(list.Results)).
		Dur("duration", time.Since(start)).
		Msg("Hydration fetch completed")

	return list.Results, nil
}

// MarkRead issues PATCH /notifications/{id}/mark_read/. Only the response
// status is inspected; any 2xx counts as success.
func (c *Client) MarkRead(ctx context.Context, id int64) error {
	path := "/notifications/" + strconv.FormatInt(id, 10) + "/mark_read/"
	return c.mutate(ctx, http.MethodPatch, path)
}

// MarkAllRead issues POST /notifications/mark_all_read/.
func (c *Client) MarkAllRead(ctx context.Context) error {
	return c.mutate(ctx, http.MethodPost, "/notifications/mark_all_read/")
}

func (c *Client) mutate(ctx context.Context, method, path string) error {
	resp, err := c.do(ctx, method, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %w", types.ErrMutation,
			types.NewAPIError(resp.StatusCode, method+" "+path, nil))
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	token, err := c.tokens.Token()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	return resp, nil
}
