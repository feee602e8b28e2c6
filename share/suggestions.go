package share

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lexshare/db"
	"lexshare/metrics"
	"lexshare/models"
	"lexshare/snapshot"

	"github.com/rs/zerolog/log"
)

// SuggestionView is a suggestion with the title of the environment it targets.
type SuggestionView struct {
	models.Suggestion
	EnvironmentTitle string `json:"environmentTitle"`
}

// ApproveInput selects how an approved suggestion is recorded.
type ApproveInput struct {
	VersionMode models.VersionMode
	MergeMode   models.MergeMode
}

func loadSuggestion(r db.Repository, id string) (models.Suggestion, error) {
	sug, err := r.GetSuggestion(id)
	if errors.Is(err, db.ErrNotFound) {
		return sug, fmt.Errorf("suggestion %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return sug, fmt.Errorf("load suggestion %s: %w", id, err)
	}
	return sug, nil
}

// CreateSuggestion files a pending proposal against an active environment the requester does not own.
// Annotations and highlights in content are discarded.
func (s *Service) CreateSuggestion(ctx context.Context, req Requester, environmentID string, content models.Content, message string) (models.Suggestion, error) {
	proposed := snapshot.ForSuggestion(content)
	if snapshot.IsEmpty(proposed) {
		return models.Suggestion{}, invalid("content", "must contain at least one dossier, quick-norm or alias")
	}
	message = strings.TrimSpace(message)
	if err := checkLength("message", message, maxMessage); err != nil {
		return models.Suggestion{}, err
	}

	sug := models.Suggestion{
		ID:            s.newID(),
		EnvironmentID: environmentID,
		SuggesterID:   req.UserID,
		Content:       proposed,
		Message:       message,
		Status:        models.SuggestionPending,
		CreationDate:  s.timestamp(),
	}
	err := s.store.Update(ctx, func(r db.Repository) error {
		env, err := loadEnvironment(r, environmentID)
		if err != nil {
			return err
		}
		if !env.IsActive {
			return fmt.Errorf("shared environment %s: %w", environmentID, ErrNotFound)
		}
		if env.OwnerID == req.UserID {
			return ErrSelfSuggestion
		}
		if err := r.SaveSuggestion(sug); err != nil {
			return fmt.Errorf("save suggestion: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Suggestion{}, err
	}

	metrics.SuggestionsTotal.WithLabelValues("created").Inc()
	log.Info().Str("suggestion_id", sug.ID).Str("environment_id", environmentID).
		Str("suggester_id", req.UserID).Msg("Suggestion created")
	return sug, nil
}

// ApproveSuggestion merges the proposal into the environment's content and records the
// result as a new version. The version, the environment and the suggestion status are
// committed together or not at all.
func (s *Service) ApproveSuggestion(ctx context.Context, req Requester, id string, in ApproveInput) (models.Suggestion, EnvironmentView, error) {
	var (
		sug    models.Suggestion
		out    EnvironmentView
		number int
	)
	err := s.store.Update(ctx, func(r db.Repository) error {
		var err error
		if sug, err = loadSuggestion(r, id); err != nil {
			return err
		}
		env, err := loadOwned(r, sug.EnvironmentID, req)
		if err != nil {
			return err
		}
		if sug.Status != models.SuggestionPending {
			return fmt.Errorf("suggestion %s is %s: %w", id, sug.Status, ErrNotPending)
		}
		if err := validVersionMode(in.VersionMode); err != nil {
			return err
		}

		merged, err := snapshot.Merge(env.Content, sug.Content, in.MergeMode)
		if err != nil {
			var unknown *snapshot.ErrUnknownMergeMode
			if errors.As(err, &unknown) {
				return invalid("mergeMode", "must be one of: merge, replace")
			}
			return err
		}
		merged = snapshot.Gate(merged, options(env))

		changelog := fmt.Sprintf("Applied suggestion %s", sug.ID)
		if number, err = s.appendVersion(r, &env, merged, changelog, in.VersionMode, req.UserID); err != nil {
			return err
		}
		if err := r.SaveEnvironment(env); err != nil {
			return fmt.Errorf("save shared environment: %w", err)
		}

		reviewed := s.timestamp()
		sug.Status = models.SuggestionApproved
		sug.AppliedVersion = number
		sug.ReviewedAt = &reviewed
		if err := r.SaveSuggestion(sug); err != nil {
			return fmt.Errorf("save suggestion: %w", err)
		}
		out, err = view(r, env, req)
		return err
	})
	if err != nil {
		return models.Suggestion{}, EnvironmentView{}, err
	}

	metrics.SuggestionsTotal.WithLabelValues("approved").Inc()
	metrics.VersionsAppended.WithLabelValues(string(in.VersionMode), "suggestion").Inc()
	log.Info().Str("suggestion_id", id).Str("environment_id", sug.EnvironmentID).Int("version", number).
		Str("merge_mode", string(in.MergeMode)).Msg("Suggestion approved")
	return sug, out, nil
}

// RejectSuggestion closes a pending suggestion without touching the environment.
func (s *Service) RejectSuggestion(ctx context.Context, req Requester, id, reviewNote string) (models.Suggestion, error) {
	reviewNote = strings.TrimSpace(reviewNote)
	if err := checkLength("reviewNote", reviewNote, maxReviewNote); err != nil {
		return models.Suggestion{}, err
	}

	var sug models.Suggestion
	err := s.store.Update(ctx, func(r db.Repository) error {
		var err error
		if sug, err = loadSuggestion(r, id); err != nil {
			return err
		}
		if _, err := loadOwned(r, sug.EnvironmentID, req); err != nil {
			return err
		}
		if sug.Status != models.SuggestionPending {
			return fmt.Errorf("suggestion %s is %s: %w", id, sug.Status, ErrNotPending)
		}
		reviewed := s.timestamp()
		sug.Status = models.SuggestionRejected
		sug.ReviewNote = reviewNote
		sug.ReviewedAt = &reviewed
		if err := r.SaveSuggestion(sug); err != nil {
			return fmt.Errorf("save suggestion: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Suggestion{}, err
	}

	metrics.SuggestionsTotal.WithLabelValues("rejected").Inc()
	log.Info().Str("suggestion_id", id).Msg("Suggestion rejected")
	return sug, nil
}

// ReceivedSuggestions lists suggestions targeting the requester's environments, newest first.
// An empty status returns every status.
func (s *Service) ReceivedSuggestions(ctx context.Context, req Requester, status models.SuggestionStatus) ([]SuggestionView, error) {
	if err := validSuggestionStatus(status); err != nil {
		return nil, err
	}
	var out []SuggestionView
	err := s.store.View(ctx, func(r db.Repository) error {
		owned, err := r.ListEnvironmentsByOwner(req.UserID)
		if err != nil {
			return fmt.Errorf("list own environments: %w", err)
		}
		titles := make(map[string]string, len(owned))
		ids := make([]string, 0, len(owned))
		for _, env := range owned {
			titles[env.ID] = env.Title
			ids = append(ids, env.ID)
		}
		sugs, err := r.ListSuggestions(db.SuggestionFilter{EnvironmentIDs: ids, Status: status})
		if err != nil {
			return fmt.Errorf("list suggestions: %w", err)
		}
		out = make([]SuggestionView, 0, len(sugs))
		for _, sug := range sugs {
			out = append(out, SuggestionView{Suggestion: sug, EnvironmentTitle: titles[sug.EnvironmentID]})
		}
		return nil
	})
	return out, err
}

// SentSuggestions lists the requester's own suggestions, newest first.
func (s *Service) SentSuggestions(ctx context.Context, req Requester) ([]SuggestionView, error) {
	var out []SuggestionView
	err := s.store.View(ctx, func(r db.Repository) error {
		sugs, err := r.ListSuggestions(db.SuggestionFilter{SuggesterID: req.UserID})
		if err != nil {
			return fmt.Errorf("list suggestions: %w", err)
		}
		out = make([]SuggestionView, 0, len(sugs))
		for _, sug := range sugs {
			v := SuggestionView{Suggestion: sug}
			env, err := r.GetEnvironment(sug.EnvironmentID)
			if err != nil && !errors.Is(err, db.ErrNotFound) {
				return fmt.Errorf("load shared environment %s: %w", sug.EnvironmentID, err)
			}
			v.EnvironmentTitle = env.Title
			out = append(out, v)
		}
		return nil
	})
	return out, err
}

// PendingCount counts pending suggestions across the requester's environments.
// It is recomputed from suggestion statuses on every call.
func (s *Service) PendingCount(ctx context.Context, req Requester) (int, error) {
	received, err := s.ReceivedSuggestions(ctx, req, models.SuggestionPending)
	if err != nil {
		return 0, err
	}
	return len(received), nil
}
