package share

import (
	"context"
	"fmt"

	"lexshare/db"
	"lexshare/metrics"
	"lexshare/models"
	"lexshare/snapshot"

	"github.com/rs/zerolog/log"
)

// LikeState is the requester's like membership after a toggle.
type LikeState struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"likeCount"`
}

// Download is the content handed out by RecordDownload.
type Download struct {
	Content           models.Content `json:"content"`
	IncludeNotes      bool           `json:"includeNotes"`
	IncludeHighlights bool           `json:"includeHighlights"`
}

// ToggleLike flips the requester's like on an environment. When desired is set the
// membership is moved to that state instead, so a repeated request changes nothing.
// The counter follows the observed membership and never drops below zero.
func (s *Service) ToggleLike(ctx context.Context, req Requester, id string, desired *bool) (LikeState, error) {
	var state LikeState
	changed := false
	err := s.store.Update(ctx, func(r db.Repository) error {
		env, err := loadReadable(r, id, req)
		if err != nil {
			return err
		}
		liked, err := r.HasLike(req.UserID, env.ID)
		if err != nil {
			return fmt.Errorf("check like: %w", err)
		}
		want := !liked
		if desired != nil {
			want = *desired
		}

		switch {
		case want && !liked:
			err := r.AddLike(models.Like{UserID: req.UserID, EnvironmentID: env.ID, CreationDate: s.timestamp()})
			if err != nil {
				return fmt.Errorf("add like: %w", err)
			}
			env.LikeCount++
			changed = true
		case !want && liked:
			if err := r.RemoveLike(req.UserID, env.ID); err != nil {
				return fmt.Errorf("remove like: %w", err)
			}
			env.LikeCount = max(env.LikeCount-1, 0)
			changed = true
		}
		if changed {
			if err := r.SaveEnvironment(env); err != nil {
				return fmt.Errorf("save shared environment: %w", err)
			}
		}
		state = LikeState{Liked: want, LikeCount: env.LikeCount}
		return nil
	})
	if err != nil {
		return LikeState{}, err
	}

	if changed {
		action := "unlike"
		if state.Liked {
			action = "like"
		}
		metrics.LikesTotal.WithLabelValues(action).Inc()
		log.Debug().Str("environment_id", id).Str("user_id", req.UserID).Bool("liked", state.Liked).Msg("Like toggled")
	}
	return state, nil
}

// RecordDownload counts a download and returns the content gated by the environment's flags.
func (s *Service) RecordDownload(ctx context.Context, req Requester, id string) (Download, error) {
	var out Download
	err := s.store.Update(ctx, func(r db.Repository) error {
		env, err := loadReadable(r, id, req)
		if err != nil {
			return err
		}
		env.DownloadCount++
		if err := r.SaveEnvironment(env); err != nil {
			return fmt.Errorf("save shared environment: %w", err)
		}
		out = Download{
			Content:           snapshot.Gate(env.Content, options(env)),
			IncludeNotes:      env.IncludeNotes,
			IncludeHighlights: env.IncludeHighlights,
		}
		return nil
	})
	if err != nil {
		return Download{}, err
	}
	metrics.DownloadsTotal.Inc()
	return out, nil
}
