package share

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"lexshare/db"
	"lexshare/models"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Sort orders for the public listing.
const (
	SortRecent    = "recent"
	SortPopular   = "popular"
	SortDownloads = "downloads"
	SortViews     = "views"
	SortUpdated   = "updated"
)

// ListParams holds the public listing query.
type ListParams struct {
	Page     int             // 1-based page number
	Limit    int             // Max items per page (max 100)
	Category models.Category // empty for all categories
	Tags     []string        // every tag must be present
	Sort     string          // recent (default), popular, downloads, views, updated
	Search   string          // case-insensitive match on title, description and tags
}

// ListResult is one page of the public listing.
type ListResult struct {
	Environments []EnvironmentView `json:"environments"`
	Total        int               `json:"total"`
	Page         int               `json:"page"`
	Limit        int               `json:"limit"`
}

// List filters, sorts and paginates active environments.
func (s *Service) List(ctx context.Context, req Requester, p ListParams) (ListResult, error) {
	if p.Category != "" {
		if err := validate.Var(string(p.Category), "oneof=compliance civil penal administrative eu other"); err != nil {
			return ListResult{}, invalid("category", "must be one of: compliance, civil, penal, administrative, eu, other")
		}
	}
	less, err := lessFor(p.Sort)
	if err != nil {
		return ListResult{}, err
	}
	tags := normalizeTags(p.Tags)
	search := strings.ToLower(strings.TrimSpace(p.Search))

	var out ListResult
	err = s.store.View(ctx, func(r db.Repository) error {
		all, err := r.ListEnvironments()
		if err != nil {
			return fmt.Errorf("list shared environments: %w", err)
		}

		filtered := make([]models.SharedEnvironment, 0, len(all))
		for _, env := range all {
			if !env.IsActive {
				continue
			}
			if p.Category != "" && env.Category != p.Category {
				continue
			}
			if !hasAllTags(env.Tags, tags) {
				continue
			}
			if search != "" && !matchesSearch(env, search) {
				continue
			}
			filtered = append(filtered, env)
		}

		sort.SliceStable(filtered, func(i, j int) bool { return less(filtered[i], filtered[j]) })

		var page []models.SharedEnvironment
		page, out.Page, out.Limit = paginate(filtered, p.Page, p.Limit)
		out.Total = len(filtered)
		out.Environments, err = views(r, page, req)
		return err
	})
	return out, err
}

// lessFor returns the ordering for sortBy. Every order is descending and falls back
// to newest first, then id, so pages are stable.
func lessFor(sortBy string) (func(a, b models.SharedEnvironment) bool, error) {
	var key func(models.SharedEnvironment) int
	switch strings.ToLower(sortBy) {
	case SortRecent, "":
	case SortPopular:
		key = func(e models.SharedEnvironment) int { return e.LikeCount }
	case SortDownloads:
		key = func(e models.SharedEnvironment) int { return e.DownloadCount }
	case SortViews:
		key = func(e models.SharedEnvironment) int { return e.ViewCount }
	case SortUpdated:
		return func(a, b models.SharedEnvironment) bool {
			if !a.LastModifiedDate.Equal(b.LastModifiedDate) {
				return a.LastModifiedDate.After(b.LastModifiedDate)
			}
			return newestFirst(a, b)
		}, nil
	default:
		return nil, invalid("sort", "must be one of: recent, popular, downloads, views, updated")
	}
	return func(a, b models.SharedEnvironment) bool {
		if key != nil && key(a) != key(b) {
			return key(a) > key(b)
		}
		return newestFirst(a, b)
	}, nil
}

func newestFirst(a, b models.SharedEnvironment) bool {
	if !a.CreationDate.Equal(b.CreationDate) {
		return a.CreationDate.After(b.CreationDate)
	}
	return a.ID > b.ID
}

func hasAllTags(have, want []string) bool {
	for _, tag := range want {
		if !slices.Contains(have, tag) {
			return false
		}
	}
	return true
}

func matchesSearch(env models.SharedEnvironment, needle string) bool {
	if strings.Contains(strings.ToLower(env.Title), needle) || strings.Contains(strings.ToLower(env.Description), needle) {
		return true
	}
	for _, tag := range env.Tags {
		if strings.Contains(tag, needle) {
			return true
		}
	}
	return false
}

func paginate(envs []models.SharedEnvironment, page, limit int) ([]models.SharedEnvironment, int, int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	// Compare before multiplying so a huge page number cannot overflow start.
	if len(envs) == 0 || page-1 > (len(envs)-1)/limit {
		return []models.SharedEnvironment{}, page, limit
	}
	start := (page - 1) * limit
	end := min(start+limit, len(envs))
	return envs[start:end], page, limit
}
