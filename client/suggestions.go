package client

import (
	"context"
	"net/http"
	"net/url"

	"lexshare/models"
	"lexshare/share"
)

func suggestionPath(id, action string) string {
	return "/shared-environments-suggestions/" + url.PathEscape(id) + "/" + action
}

// Suggest proposes content for someone else's environment.
func (c *Client) Suggest(ctx context.Context, environmentID string, content models.Content, message string) (models.Suggestion, error) {
	body := map[string]any{"content": content}
	if message != "" {
		body["message"] = message
	}
	var out models.Suggestion
	err := c.mutate(ctx, http.MethodPost, envPath(environmentID, "suggestions"), body, &out)
	return out, err
}

// Received lists suggestions sent to the caller's environments; an empty status lists all.
func (c *Client) Received(ctx context.Context, status models.SuggestionStatus) ([]share.SuggestionView, error) {
	path := "/shared-environments-suggestions/received"
	if status != "" {
		path += "?status=" + url.QueryEscape(string(status))
	}
	var out []share.SuggestionView
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Sent lists the caller's own suggestions.
func (c *Client) Sent(ctx context.Context) ([]share.SuggestionView, error) {
	var out []share.SuggestionView
	if err := c.do(ctx, http.MethodGet, "/shared-environments-suggestions/sent", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PendingCount returns the number of suggestions awaiting the caller's review.
// The value is cached until the next mutating call.
func (c *Client) PendingCount(ctx context.Context) (int, error) {
	c.mu.Lock()
	if c.pending != nil {
		n := *c.pending
		c.mu.Unlock()
		return n, nil
	}
	gen := c.gen
	c.mu.Unlock()

	var out struct {
		Count int `json:"count"`
	}
	if err := c.do(ctx, http.MethodGet, "/shared-environments-suggestions/pending-count", nil, &out); err != nil {
		return 0, err
	}
	c.mu.Lock()
	if c.gen == gen {
		c.pending = &out.Count
	}
	c.mu.Unlock()
	return out.Count, nil
}

// Approve applies a pending suggestion as a new version of its environment.
// Empty modes take the server defaults (merge, coexist).
func (c *Client) Approve(ctx context.Context, suggestionID string, in share.ApproveInput) (models.Suggestion, share.EnvironmentView, error) {
	release, err := c.acquire(suggestionID)
	if err != nil {
		return models.Suggestion{}, share.EnvironmentView{}, err
	}
	defer release()

	body := map[string]string{}
	if in.VersionMode != "" {
		body["versionMode"] = string(in.VersionMode)
	}
	if in.MergeMode != "" {
		body["mergeMode"] = string(in.MergeMode)
	}
	var out struct {
		Suggestion  models.Suggestion     `json:"suggestion"`
		Environment share.EnvironmentView `json:"environment"`
	}
	if err := c.mutate(ctx, http.MethodPost, suggestionPath(suggestionID, "approve"), body, &out); err != nil {
		return models.Suggestion{}, share.EnvironmentView{}, err
	}
	c.rememberView(out.Environment)
	return out.Suggestion, out.Environment, nil
}

// Reject closes a pending suggestion without changing the environment.
func (c *Client) Reject(ctx context.Context, suggestionID, reviewNote string) (models.Suggestion, error) {
	release, err := c.acquire(suggestionID)
	if err != nil {
		return models.Suggestion{}, err
	}
	defer release()

	var out models.Suggestion
	err = c.mutate(ctx, http.MethodPost, suggestionPath(suggestionID, "reject"), map[string]string{"reviewNote": reviewNote}, &out)
	return out, err
}

// ListReports lists moderation reports. Administrators only.
func (c *Client) ListReports(ctx context.Context, status models.ReportStatus) ([]share.ReportView, error) {
	path := "/admin/shared-environment-reports"
	if status != "" {
		path += "?status=" + url.QueryEscape(string(status))
	}
	var out []share.ReportView
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateReportStatus moves a report to status. Administrators only.
func (c *Client) UpdateReportStatus(ctx context.Context, reportID string, status models.ReportStatus) (models.Report, error) {
	var out models.Report
	err := c.mutate(ctx, http.MethodPut, "/admin/shared-environment-reports/"+url.PathEscape(reportID),
		map[string]string{"status": string(status)}, &out)
	return out, err
}

// AdminDelete removes any environment. Administrators only.
func (c *Client) AdminDelete(ctx context.Context, id string) error {
	return c.mutate(ctx, http.MethodDelete, "/admin/shared-environments/"+url.PathEscape(id), nil, nil)
}
