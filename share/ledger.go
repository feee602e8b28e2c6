package share

import (
	"context"
	"errors"
	"fmt"

	"lexshare/db"
	"lexshare/metrics"
	"lexshare/models"
	"lexshare/snapshot"

	"github.com/rs/zerolog/log"
)

// appendVersion records content as version CurrentVersion+1 and points env at it.
// The caller saves env in the same transaction.
func (s *Service) appendVersion(r db.Repository, env *models.SharedEnvironment, content models.Content, changelog string, mode models.VersionMode, authorID string) (int, error) {
	next := env.CurrentVersion + 1

	if mode == models.VersionReplace {
		entries, err := r.ListVersions(env.ID)
		if err != nil {
			return 0, fmt.Errorf("load ledger: %w", err)
		}
		marked := false
		for _, v := range entries {
			if v.Number == env.CurrentVersion {
				if err := r.MarkVersionReplaced(v.ID); err != nil {
					return 0, fmt.Errorf("mark version %d replaced: %w", v.Number, err)
				}
				marked = true
				break
			}
		}
		if !marked {
			log.Warn().Str("environment_id", env.ID).Int("version", env.CurrentVersion).
				Msg("Current version missing from ledger, nothing to mark replaced")
		}
	}

	now := s.timestamp()
	err := r.CreateVersion(models.Version{
		ID:            s.newID(),
		EnvironmentID: env.ID,
		Number:        next,
		Content:       content,
		Changelog:     changelog,
		AuthorID:      authorID,
		CreationDate:  now,
	})
	if err != nil {
		return 0, fmt.Errorf("append version %d: %w", next, err)
	}

	env.CurrentVersion = next
	env.Content = content
	env.LastModifiedDate = now
	return next, nil
}

// Versions returns the environment's ledger, oldest first. Entry content is gated
// by the environment's current inclusion flags.
func (s *Service) Versions(ctx context.Context, req Requester, id string) ([]models.Version, error) {
	var out []models.Version
	err := s.store.View(ctx, func(r db.Repository) error {
		env, err := loadReadable(r, id, req)
		if err != nil {
			return err
		}
		entries, err := r.ListVersions(env.ID)
		if err != nil {
			return fmt.Errorf("load ledger: %w", err)
		}
		opts := options(env)
		out = make([]models.Version, 0, len(entries))
		for _, v := range entries {
			v.Content = snapshot.Gate(v.Content, opts)
			out = append(out, v)
		}
		return nil
	})
	return out, err
}

// Restore appends the content of an earlier version as the next version in replace mode.
// History is never rewritten.
func (s *Service) Restore(ctx context.Context, req Requester, id, versionID string) (EnvironmentView, error) {
	var out EnvironmentView
	var number int
	err := s.store.Update(ctx, func(r db.Repository) error {
		env, err := loadOwned(r, id, req)
		if err != nil {
			return err
		}
		target, err := r.GetVersion(versionID)
		if errors.Is(err, db.ErrNotFound) || (err == nil && target.EnvironmentID != env.ID) {
			return fmt.Errorf("version %s: %w", versionID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("load version %s: %w", versionID, err)
		}

		content := snapshot.Gate(target.Content, snapshot.Options{IncludeNotes: true, IncludeHighlights: true})
		changelog := fmt.Sprintf("Restored v%d", target.Number)
		if number, err = s.appendVersion(r, &env, content, changelog, models.VersionReplace, req.UserID); err != nil {
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

	metrics.VersionsAppended.WithLabelValues(string(models.VersionReplace), "restore").Inc()
	log.Info().Str("environment_id", id).Str("restored_from", versionID).Int("version", number).
		Msg("Shared environment version restored")
	return out, nil
}
