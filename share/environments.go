package share

import (
	"context"
	"fmt"
	"strings"

	"lexshare/db"
	"lexshare/metrics"
	"lexshare/models"
	"lexshare/snapshot"

	"github.com/rs/zerolog/log"
)

// PublishInput is the metadata and content of a new shared environment.
type PublishInput struct {
	Title             string
	Description       string
	Category          models.Category
	Tags              []string
	IncludeNotes      bool
	IncludeHighlights bool
	Content           models.Content
	Changelog         string
}

// MetadataPatch changes descriptive fields. Nil fields are left as they are.
type MetadataPatch struct {
	Title             *string
	Description       *string
	Category          *models.Category
	Tags              []string // nil leaves tags unchanged, an empty slice clears them
	IncludeNotes      *bool
	IncludeHighlights *bool
}

// VersionedUpdate changes content, and optionally metadata, by appending a ledger entry.
type VersionedUpdate struct {
	MetadataPatch
	Content     models.Content
	Changelog   string
	VersionMode models.VersionMode
}

func (p MetadataPatch) apply(env *models.SharedEnvironment) {
	if p.Title != nil {
		env.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		env.Description = strings.TrimSpace(*p.Description)
	}
	if p.Category != nil {
		env.Category = *p.Category
	}
	if p.Tags != nil {
		env.Tags = normalizeTags(p.Tags)
	}
	if p.IncludeNotes != nil {
		env.IncludeNotes = *p.IncludeNotes
	}
	if p.IncludeHighlights != nil {
		env.IncludeHighlights = *p.IncludeHighlights
	}
}

// Publish creates an active environment at version 1 together with its first ledger entry.
func (s *Service) Publish(ctx context.Context, req Requester, in PublishInput) (EnvironmentView, error) {
	now := s.timestamp()
	env := models.SharedEnvironment{
		ID:                s.newID(),
		OwnerID:           req.UserID,
		Title:             strings.TrimSpace(in.Title),
		Description:       strings.TrimSpace(in.Description),
		Category:          in.Category,
		Tags:              normalizeTags(in.Tags),
		IncludeNotes:      in.IncludeNotes,
		IncludeHighlights: in.IncludeHighlights,
		CurrentVersion:    1,
		IsActive:          true,
		CreationDate:      now,
		LastModifiedDate:  now,
	}
	if err := validateMetadata(env); err != nil {
		return EnvironmentView{}, err
	}
	env.Content = snapshot.Gate(in.Content, options(env))
	if snapshot.IsEmpty(env.Content) {
		return EnvironmentView{}, invalid("content", "must contain at least one dossier, quick-norm or alias")
	}
	changelog := strings.TrimSpace(in.Changelog)
	if changelog == "" {
		changelog = initialLogText
	}
	if err := checkLength("changelog", changelog, maxChangelog); err != nil {
		return EnvironmentView{}, err
	}

	var out EnvironmentView
	err := s.store.Update(ctx, func(r db.Repository) error {
		if err := r.SaveEnvironment(env); err != nil {
			return fmt.Errorf("save shared environment: %w", err)
		}
		err := r.CreateVersion(models.Version{
			ID:            s.newID(),
			EnvironmentID: env.ID,
			Number:        1,
			Content:       env.Content,
			Changelog:     changelog,
			AuthorID:      req.UserID,
			CreationDate:  now,
		})
		if err != nil {
			return fmt.Errorf("create initial version: %w", err)
		}
		out, err = view(r, env, req)
		return err
	})
	if err != nil {
		return EnvironmentView{}, err
	}

	metrics.EnvironmentsPublished.Inc()
	log.Info().Str("environment_id", env.ID).Str("owner_id", env.OwnerID).
		Int("items", snapshot.Count(env.Content)).Msg("Shared environment published")
	return out, nil
}

// Get returns one environment and counts the view unless the requester owns it.
// Withdrawn environments are visible to their owner and to admins only.
func (s *Service) Get(ctx context.Context, req Requester, id string) (EnvironmentView, error) {
	var out EnvironmentView
	err := s.store.Update(ctx, func(r db.Repository) error {
		env, err := loadReadable(r, id, req)
		if err != nil {
			return err
		}
		if env.OwnerID != req.UserID {
			env.ViewCount++
			if err := r.SaveEnvironment(env); err != nil {
				return fmt.Errorf("count view: %w", err)
			}
		}
		out, err = view(r, env, req)
		return err
	})
	return out, err
}

// Mine returns the requester's environments, active and withdrawn, newest first.
func (s *Service) Mine(ctx context.Context, req Requester) ([]EnvironmentView, error) {
	var out []EnvironmentView
	err := s.store.View(ctx, func(r db.Repository) error {
		envs, err := r.ListEnvironmentsByOwner(req.UserID)
		if err != nil {
			return fmt.Errorf("list own environments: %w", err)
		}
		out, err = views(r, envs, req)
		return err
	})
	return out, err
}

// UpdateMetadata changes descriptive fields and inclusion flags without creating a version.
func (s *Service) UpdateMetadata(ctx context.Context, req Requester, id string, patch MetadataPatch) (EnvironmentView, error) {
	var out EnvironmentView
	err := s.store.Update(ctx, func(r db.Repository) error {
		env, err := loadOwned(r, id, req)
		if err != nil {
			return err
		}
		patch.apply(&env)
		if err := validateMetadata(env); err != nil {
			return err
		}
		env.LastModifiedDate = s.timestamp()
		if err := r.SaveEnvironment(env); err != nil {
			return fmt.Errorf("save shared environment: %w", err)
		}
		out, err = view(r, env, req)
		return err
	})
	if err != nil {
		return EnvironmentView{}, err
	}
	log.Info().Str("environment_id", id).Msg("Shared environment metadata updated")
	return out, nil
}

// UpdateWithVersion applies metadata changes and appends in.Content as the next version.
func (s *Service) UpdateWithVersion(ctx context.Context, req Requester, id string, in VersionedUpdate) (EnvironmentView, error) {
	if err := validVersionMode(in.VersionMode); err != nil {
		return EnvironmentView{}, err
	}
	changelog := strings.TrimSpace(in.Changelog)
	if err := checkLength("changelog", changelog, maxChangelog); err != nil {
		return EnvironmentView{}, err
	}

	var out EnvironmentView
	var number int
	err := s.store.Update(ctx, func(r db.Repository) error {
		env, err := loadOwned(r, id, req)
		if err != nil {
			return err
		}
		in.MetadataPatch.apply(&env)
		if err := validateMetadata(env); err != nil {
			return err
		}
		content := snapshot.Gate(in.Content, options(env))
		if snapshot.IsEmpty(content) {
			return invalid("content", "must contain at least one dossier, quick-norm or alias")
		}
		if number, err = s.appendVersion(r, &env, content, changelog, in.VersionMode, req.UserID); err != nil {
			return err
		}
		if err := r.SaveEnvironment(env); err != nil {
			return fmt.Errorf("save shared environment: %w", err)
		}
		out, err = view(r, env, req)
		return err
	})
	if err != nil {
		return EnvironmentView{}, err
	}

	metrics.VersionsAppended.WithLabelValues(string(in.VersionMode), "update").Inc()
	log.Info().Str("environment_id", id).Int("version", number).
		Str("mode", string(in.VersionMode)).Msg("Shared environment content updated")
	return out, nil
}

// Withdraw hides the environment from the public board. Repeating it is a no-op.
func (s *Service) Withdraw(ctx context.Context, req Requester, id string) (EnvironmentView, error) {
	return s.setActive(ctx, req, id, false)
}

// Republish makes a withdrawn environment public again. Repeating it is a no-op.
func (s *Service) Republish(ctx context.Context, req Requester, id string) (EnvironmentView, error) {
	return s.setActive(ctx, req, id, true)
}

func (s *Service) setActive(ctx context.Context, req Requester, id string, active bool) (EnvironmentView, error) {
	var out EnvironmentView
	changed := false
	err := s.store.Update(ctx, func(r db.Repository) error {
		env, err := loadOwned(r, id, req)
		if err != nil {
			return err
		}
		if env.IsActive != active {
			env.IsActive = active
			env.LastModifiedDate = s.timestamp()
			if err := r.SaveEnvironment(env); err != nil {
				return fmt.Errorf("save shared environment: %w", err)
			}
			changed = true
		}
		out, err = view(r, env, req)
		return err
	})
	if err != nil {
		return EnvironmentView{}, err
	}
	if changed {
		log.Info().Str("environment_id", id).Bool("active", active).Msg("Shared environment visibility changed")
	}
	return out, nil
}

// Delete removes an owned environment with its whole history.
func (s *Service) Delete(ctx context.Context, req Requester, id string) error {
	err := s.store.Update(ctx, func(r db.Repository) error {
		if _, err := loadOwned(r, id, req); err != nil {
			return err
		}
		return r.DeleteEnvironment(id)
	})
	if err != nil {
		return err
	}
	metrics.EnvironmentsDeleted.WithLabelValues("owner").Inc()
	log.Info().Str("environment_id", id).Str("user_id", req.UserID).Msg("Shared environment deleted")
	return nil
}
