// Package client talks to a lexshare server.
//
// A Client serialises mutating calls per resource id, keeps an optimistic like
// state that is corrected from the server or rolled back on failure, and caches
// listing and pending-count reads until the next mutating call.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"lexshare/inflight"
	"lexshare/share"

	"github.com/rs/zerolog/log"
)

const defaultTimeout = 15 * time.Second

// Client is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client

	mu      sync.Mutex
	token   string
	busy    map[string]struct{}
	likes   map[string]share.LikeState
	lists   map[string]share.ListResult // keyed by encoded query
	pending *int
	gen     uint64 // bumped on every invalidation; reads started earlier are not cached
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds every request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithToken authenticates requests with an existing bearer token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New creates a Client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		busy:    make(map[string]struct{}),
		likes:   make(map[string]share.LikeState),
		lists:   make(map[string]share.ListResult),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken changes the bearer token; an empty token makes calls anonymous.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	c.invalidateLocked()
}

// Login exchanges credentials for a token and keeps it for later calls.
func (c *Client) Login(ctx context.Context, email, password string) error {
	var out struct {
		Token string `json:"token"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &out); err != nil {
		return err
	}
	c.SetToken(out.Token)
	return nil
}

// IsBusy reports whether a mutating call on id is in progress.
func (c *Client) IsBusy(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, held := c.busy[id]
	return held
}

// acquire marks id busy. A second mutating call on the same id fails with inflight.ErrBusy
// without reaching the server.
func (c *Client) acquire(id string) (release func(), err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, held := c.busy[id]; held {
		return nil, fmt.Errorf("%s: %w", id, inflight.ErrBusy)
	}
	c.busy[id] = struct{}{}
	return func() {
		c.mu.Lock()
		delete(c.busy, id)
		c.mu.Unlock()
	}, nil
}

// Invalidate drops cached listings and the pending count.
func (c *Client) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidateLocked()
}

func (c *Client) invalidateLocked() {
	clear(c.lists)
	c.pending = nil
	c.gen++
}

func (c *Client) rememberLike(id string, state share.LikeState) {
	c.mu.Lock()
	c.likes[id] = state
	c.mu.Unlock()
}

func (c *Client) rememberView(v share.EnvironmentView) {
	c.rememberLike(v.ID, share.LikeState{Liked: v.UserLiked, LikeCount: v.LikeCount})
}

// mutate runs a mutating call and invalidates the caches afterwards, whatever the outcome.
func (c *Client) mutate(ctx context.Context, method, path string, in, out any) error {
	defer c.Invalidate()
	return c.do(ctx, method, path, in, out)
}

// do sends a JSON request and decodes a JSON response into out (which may be nil).
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	op := method + " " + path

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", op, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		rerr := remoteError(resp.StatusCode, raw)
		log.Debug().Str("op", op).Int("status", rerr.Status).Str("code", rerr.Code).Msg("request rejected")
		return rerr
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}

func envPath(id string, rest ...string) string {
	p := "/shared-environments/" + url.PathEscape(id)
	for _, r := range rest {
		p += "/" + r
	}
	return p
}
