// Package rest is the HTTP client for the chat backend: authentication,
// conversation management, backlog pages, uploads and the notification feed.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bishaldk/samvad/internal/session"
)

const (
	requestTimeout = 15 * time.Second

	// refreshWindow triggers a proactive token refresh shortly before the
	// access token expires, so sockets never dial with a dying token.
	refreshWindow = 30 * time.Second
)

// ErrNotAuthenticated is returned for authed calls without a logged-in
// session.
var ErrNotAuthenticated = errors.New("not authenticated")

// ErrNoConversation is returned when the account has no conversation yet.
var ErrNoConversation = errors.New("no conversation exists")

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Body)
}

// Client talks to the backend REST API on behalf of one session. A 401 on an
// authed call triggers exactly one token refresh and retry; a second 401
// surfaces to the caller.
type Client struct {
	base    string
	http    *http.Client
	session *session.Session
	logger  *zap.Logger

	refreshMu sync.Mutex
	onRefresh func(access string)
}

// NewClient creates a client against the given base URL.
func NewClient(baseURL string, sess *session.Session, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		base:    baseURL,
		http:    &http.Client{Timeout: requestTimeout},
		session: sess,
		logger:  logger,
	}
}

// OnTokenRefresh registers a hook invoked with every refreshed access token,
// used to persist it.
func (c *Client) OnTokenRefresh(fn func(access string)) {
	c.onRefresh = fn
}

// doJSON performs an authed JSON request with proactive refresh and a single
// 401 retry. A nil out discards the response body.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	if !c.session.Authenticated() {
		return ErrNotAuthenticated
	}
	if c.session.AccessExpiresWithin(refreshWindow) {
		if err := c.refreshAccess(ctx); err != nil {
			c.logger.Warn("proactive token refresh failed", zap.Error(err))
		}
	}

	status, data, err := c.roundTrip(ctx, method, path, body, c.session.Tokens().Access)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized {
		if err := c.refreshAccess(ctx); err != nil {
			return fmt.Errorf("refreshing expired token: %w", err)
		}
		status, data, err = c.roundTrip(ctx, method, path, body, c.session.Tokens().Access)
		if err != nil {
			return err
		}
	}
	return decode(status, data, out)
}

// doPublic performs an unauthenticated JSON request.
func (c *Client) doPublic(ctx context.Context, method, path string, body, out any) error {
	status, data, err := c.roundTrip(ctx, method, path, body, "")
	if err != nil {
		return err
	}
	return decode(status, data, out)
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body any, token string) (int, []byte, error) {
	var payload io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("encoding request: %w", err)
		}
		payload = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, payload)
	if err != nil {
		return 0, nil, fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("reading response: %w", err)
	}
	return resp.StatusCode, data, nil
}

// refreshAccess exchanges the refresh token for a new access token. Serialized
// so concurrent 401s trigger one refresh, not a stampede.
func (c *Client) refreshAccess(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	tokens := c.session.Tokens()
	if tokens.Refresh == "" {
		return ErrNotAuthenticated
	}

	var resp struct {
		Access string `json:"access"`
	}
	err := c.doPublic(ctx, http.MethodPost, "/api/v1/token/refresh/",
		map[string]string{"refresh": tokens.Refresh}, &resp)
	if err != nil {
		return err
	}
	if resp.Access == "" {
		return fmt.Errorf("refresh response missing access token")
	}
	c.session.SetAccess(resp.Access)
	if c.onRefresh != nil {
		c.onRefresh(resp.Access)
	}
	c.logger.Debug("access token refreshed")
	return nil
}

func decode(status int, data []byte, out any) error {
	if status < 200 || status >= 300 {
		return &APIError{StatusCode: status, Body: string(data)}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
