// Package share implements the bulletin board of shared environments: publishing,
// the version ledger, suggestions, likes, downloads and moderation.
//
// Every mutating operation runs in a single db.Store Update, so an operation either
// commits all of its writes or none of them.
package share

import (
	"errors"
	"fmt"
	"time"

	"lexshare/db"
	"lexshare/models"
	"lexshare/snapshot"
	"lexshare/utils"
)

// Requester identifies the caller of an operation. A zero UserID is anonymous.
type Requester struct {
	UserID  string
	IsAdmin bool
}

// EnvironmentView is a shared environment as seen by one requester.
// The extra fields are computed from the like and suggestion relations on every read.
type EnvironmentView struct {
	models.SharedEnvironment
	UserLiked               bool `json:"userLiked"`
	IsOwner                 bool `json:"isOwner"`
	PendingSuggestionsCount int  `json:"pendingSuggestionsCount"`
}

// Service runs bulletin board operations against a Store.
type Service struct {
	store db.Store
	now   func() time.Time
	newID func() string
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service over store.
func NewService(store db.Store, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now, newID: utils.GenerateDashlessUUID}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) timestamp() time.Time {
	return s.now().UTC()
}

func options(env models.SharedEnvironment) snapshot.Options {
	return snapshot.Options{IncludeNotes: env.IncludeNotes, IncludeHighlights: env.IncludeHighlights}
}

// canRead reports whether req may see env. Withdrawn environments are visible
// to their owner and to admins only.
func canRead(env models.SharedEnvironment, req Requester) bool {
	return env.IsActive || env.OwnerID == req.UserID || req.IsAdmin
}

func loadEnvironment(r db.Repository, id string) (models.SharedEnvironment, error) {
	env, err := r.GetEnvironment(id)
	if errors.Is(err, db.ErrNotFound) {
		return env, fmt.Errorf("shared environment %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return env, fmt.Errorf("load shared environment %s: %w", id, err)
	}
	return env, nil
}

// loadReadable loads an environment and hides it from requesters who may not read it.
func loadReadable(r db.Repository, id string, req Requester) (models.SharedEnvironment, error) {
	env, err := loadEnvironment(r, id)
	if err != nil {
		return env, err
	}
	if !canRead(env, req) {
		return models.SharedEnvironment{}, fmt.Errorf("shared environment %s: %w", id, ErrNotFound)
	}
	return env, nil
}

// loadOwned loads an environment the requester must own.
func loadOwned(r db.Repository, id string, req Requester) (models.SharedEnvironment, error) {
	env, err := loadEnvironment(r, id)
	if err != nil {
		return env, err
	}
	if env.OwnerID != req.UserID {
		return models.SharedEnvironment{}, fmt.Errorf("shared environment %s: %w", id, ErrNotOwner)
	}
	return env, nil
}

// view projects env for req. Content is gated by the environment's current flags.
func view(r db.Repository, env models.SharedEnvironment, req Requester) (EnvironmentView, error) {
	v := EnvironmentView{SharedEnvironment: env, IsOwner: req.UserID != "" && env.OwnerID == req.UserID}
	v.Content = snapshot.Gate(env.Content, options(env))
	if v.Tags == nil {
		v.Tags = []string{}
	}

	if req.UserID != "" {
		liked, err := r.HasLike(req.UserID, env.ID)
		if err != nil {
			return v, fmt.Errorf("check like: %w", err)
		}
		v.UserLiked = liked
	}

	pending, err := r.ListSuggestions(db.SuggestionFilter{EnvironmentIDs: []string{env.ID}, Status: models.SuggestionPending})
	if err != nil {
		return v, fmt.Errorf("count pending suggestions: %w", err)
	}
	v.PendingSuggestionsCount = len(pending)
	return v, nil
}

// views projects several environments with one like lookup and one suggestion query.
func views(r db.Repository, envs []models.SharedEnvironment, req Requester) ([]EnvironmentView, error) {
	out := make([]EnvironmentView, 0, len(envs))
	if len(envs) == 0 {
		return out, nil
	}

	liked := map[string]bool{}
	if req.UserID != "" {
		var err error
		if liked, err = r.LikedEnvironmentIDs(req.UserID); err != nil {
			return nil, fmt.Errorf("load likes: %w", err)
		}
	}

	ids := make([]string, 0, len(envs))
	for _, env := range envs {
		ids = append(ids, env.ID)
	}
	pending, err := r.ListSuggestions(db.SuggestionFilter{EnvironmentIDs: ids, Status: models.SuggestionPending})
	if err != nil {
		return nil, fmt.Errorf("count pending suggestions: %w", err)
	}
	pendingByEnv := make(map[string]int, len(envs))
	for _, sug := range pending {
		pendingByEnv[sug.EnvironmentID]++
	}

	for _, env := range envs {
		v := EnvironmentView{
			SharedEnvironment:       env,
			UserLiked:               liked[env.ID],
			IsOwner:                 req.UserID != "" && env.OwnerID == req.UserID,
			PendingSuggestionsCount: pendingByEnv[env.ID],
		}
		v.Content = snapshot.Gate(env.Content, options(env))
		if v.Tags == nil {
			v.Tags = []string{}
		}
		out = append(out, v)
	}
	return out, nil
}
