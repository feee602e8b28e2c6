package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"lexshare/models"
	"lexshare/share"
	"lexshare/snapshot"
)

// List returns a page of the bulletin board. Results are cached per query until
// the next mutating call.
func (c *Client) List(ctx context.Context, p share.ListParams) (share.ListResult, error) {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Category != "" {
		q.Set("category", string(p.Category))
	}
	if len(p.Tags) > 0 {
		q.Set("tags", strings.Join(p.Tags, ","))
	}
	if p.Sort != "" {
		q.Set("sort", p.Sort)
	}
	if p.Search != "" {
		q.Set("search", p.Search)
	}
	key := q.Encode()

	c.mu.Lock()
	cached, ok := c.lists[key]
	gen := c.gen
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	var out share.ListResult
	path := "/shared-environments"
	if key != "" {
		path += "?" + key
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return share.ListResult{}, err
	}
	for _, v := range out.Environments {
		c.rememberView(v)
	}
	c.mu.Lock()
	if c.gen == gen {
		c.lists[key] = out
	}
	c.mu.Unlock()
	return out, nil
}

// Mine returns the caller's environments, withdrawn ones included.
func (c *Client) Mine(ctx context.Context) ([]share.EnvironmentView, error) {
	var out []share.EnvironmentView
	if err := c.do(ctx, http.MethodGet, "/shared-environments/my", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get fetches one environment. The server counts the view.
func (c *Client) Get(ctx context.Context, id string) (share.EnvironmentView, error) {
	var out share.EnvironmentView
	if err := c.do(ctx, http.MethodGet, envPath(id), nil, &out); err != nil {
		return share.EnvironmentView{}, err
	}
	c.rememberView(out)
	return out, nil
}

type publishBody struct {
	Title             string          `json:"title"`
	Description       string          `json:"description,omitempty"`
	Category          models.Category `json:"category"`
	Tags              []string        `json:"tags,omitempty"`
	IncludeNotes      bool            `json:"includeNotes"`
	IncludeHighlights bool            `json:"includeHighlights"`
	Content           models.Content  `json:"content"`
	Changelog         string          `json:"changelog,omitempty"`
}

// Publish creates a shared environment from in.Content.
func (c *Client) Publish(ctx context.Context, in share.PublishInput) (share.EnvironmentView, error) {
	var out share.EnvironmentView
	err := c.mutate(ctx, http.MethodPost, "/shared-environments", publishBody(in), &out)
	return out, err
}

// PublishSnapshot cuts the selected items out of the working state and publishes them.
func (c *Client) PublishSnapshot(ctx context.Context, in share.PublishInput, ws snapshot.WorkingState, sel snapshot.Selection) (share.EnvironmentView, error) {
	in.Content = snapshot.Build(ws, sel, snapshot.Options{
		IncludeNotes:      in.IncludeNotes,
		IncludeHighlights: in.IncludeHighlights,
	})
	return c.Publish(ctx, in)
}

func patchBody(p share.MetadataPatch) map[string]any {
	body := map[string]any{}
	if p.Title != nil {
		body["title"] = *p.Title
	}
	if p.Description != nil {
		body["description"] = *p.Description
	}
	if p.Category != nil {
		body["category"] = *p.Category
	}
	if p.Tags != nil {
		body["tags"] = p.Tags
	}
	if p.IncludeNotes != nil {
		body["includeNotes"] = *p.IncludeNotes
	}
	if p.IncludeHighlights != nil {
		body["includeHighlights"] = *p.IncludeHighlights
	}
	return body
}

// UpdateMetadata changes descriptive fields without creating a version.
func (c *Client) UpdateMetadata(ctx context.Context, id string, p share.MetadataPatch) (share.EnvironmentView, error) {
	var out share.EnvironmentView
	err := c.mutate(ctx, http.MethodPut, envPath(id), patchBody(p), &out)
	return out, err
}

// UpdateWithVersion replaces the content and appends a version.
func (c *Client) UpdateWithVersion(ctx context.Context, id string, u share.VersionedUpdate) (share.EnvironmentView, error) {
	body := patchBody(u.MetadataPatch)
	body["content"] = u.Content
	body["changelog"] = u.Changelog
	if u.VersionMode != "" {
		body["versionMode"] = u.VersionMode
	}
	var out share.EnvironmentView
	err := c.mutate(ctx, http.MethodPut, envPath(id), body, &out)
	return out, err
}

// Delete removes an environment with its versions, suggestions, likes and reports.
func (c *Client) Delete(ctx context.Context, id string) error {
	if err := c.mutate(ctx, http.MethodDelete, envPath(id), nil, nil); err != nil {
		return err
	}
	c.mu.Lock()
	delete(c.likes, id)
	c.mu.Unlock()
	return nil
}

// Withdraw hides an environment from the board.
func (c *Client) Withdraw(ctx context.Context, id string) (share.EnvironmentView, error) {
	return c.setActive(ctx, id, "withdraw")
}

// Republish puts a withdrawn environment back on the board.
func (c *Client) Republish(ctx context.Context, id string) (share.EnvironmentView, error) {
	return c.setActive(ctx, id, "republish")
}

func (c *Client) setActive(ctx context.Context, id, action string) (share.EnvironmentView, error) {
	release, err := c.acquire(id)
	if err != nil {
		return share.EnvironmentView{}, err
	}
	defer release()
	var out share.EnvironmentView
	err = c.mutate(ctx, http.MethodPost, envPath(id, action), nil, &out)
	return out, err
}

// Versions returns the ledger, oldest first.
func (c *Client) Versions(ctx context.Context, id string) ([]models.Version, error) {
	var out []models.Version
	if err := c.do(ctx, http.MethodGet, envPath(id, "versions"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Restore appends the content of versionID as a new version.
func (c *Client) Restore(ctx context.Context, id, versionID string) (share.EnvironmentView, error) {
	var out share.EnvironmentView
	err := c.mutate(ctx, http.MethodPost, envPath(id, "versions", url.PathEscape(versionID), "restore"), nil, &out)
	return out, err
}

// LikeState returns the last known like state of an environment.
func (c *Client) LikeState(id string) (share.LikeState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, ok := c.likes[id]
	return state, ok
}

// ToggleLike flips the caller's like. The local state changes before the request is
// sent; it is then set from the server's answer, or restored if the call fails.
// When the current state is known the request pins the desired state so a retry
// cannot undo it.
func (c *Client) ToggleLike(ctx context.Context, id string) (share.LikeState, error) {
	release, err := c.acquire(id)
	if err != nil {
		return share.LikeState{}, err
	}
	defer release()

	prev, known := c.LikeState(id)
	var body any
	if known {
		optimistic := share.LikeState{Liked: !prev.Liked, LikeCount: prev.LikeCount + 1}
		if prev.Liked {
			optimistic.LikeCount = max(prev.LikeCount-1, 0)
		}
		c.rememberLike(id, optimistic)
		body = map[string]bool{"liked": optimistic.Liked}
	}

	var out share.LikeState
	if err := c.mutate(ctx, http.MethodPost, envPath(id, "like"), body, &out); err != nil {
		c.mu.Lock()
		if known {
			c.likes[id] = prev
		} else {
			delete(c.likes, id)
		}
		c.mu.Unlock()
		return share.LikeState{}, err
	}
	c.rememberLike(id, out)
	return out, nil
}

// Download counts a download and returns the environment's content.
func (c *Client) Download(ctx context.Context, id string) (share.Download, error) {
	var out share.Download
	err := c.mutate(ctx, http.MethodPost, envPath(id, "download"), nil, &out)
	return out, err
}

// Report flags an environment for moderation.
func (c *Client) Report(ctx context.Context, id string, reason models.ReportReason, details string) (models.Report, error) {
	body := map[string]string{"reason": string(reason)}
	if details != "" {
		body["details"] = details
	}
	var out models.Report
	err := c.mutate(ctx, http.MethodPost, envPath(id, "report"), body, &out)
	return out, err
}
