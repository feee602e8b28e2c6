package share

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lexshare/db"
	"lexshare/metrics"
	"lexshare/models"

	"github.com/rs/zerolog/log"
)

// ReportView is a report with the title of the reported environment.
type ReportView struct {
	models.Report
	EnvironmentTitle string `json:"environmentTitle"`
}

// Report flags an environment for moderation. A reporter may hold one non-dismissed
// report per environment.
func (s *Service) Report(ctx context.Context, req Requester, id string, reason models.ReportReason, details string) (models.Report, error) {
	if err := validReportReason(reason); err != nil {
		return models.Report{}, err
	}
	details = strings.TrimSpace(details)
	if err := checkLength("details", details, maxDetails); err != nil {
		return models.Report{}, err
	}

	now := s.timestamp()
	rep := models.Report{
		ID:               s.newID(),
		EnvironmentID:    id,
		ReporterID:       req.UserID,
		Reason:           reason,
		Details:          details,
		Status:           models.ReportPending,
		CreationDate:     now,
		LastModifiedDate: now,
	}
	err := s.store.Update(ctx, func(r db.Repository) error {
		env, err := loadReadable(r, id, req)
		if err != nil {
			return err
		}
		if env.OwnerID == req.UserID {
			return invalid("environmentId", "cannot report your own shared environment")
		}
		existing, err := r.ListReports(db.ReportFilter{EnvironmentID: id, ReporterID: req.UserID})
		if err != nil {
			return fmt.Errorf("list reports: %w", err)
		}
		for _, prior := range existing {
			if prior.Status != models.ReportDismissed {
				return ErrDuplicateReport
			}
		}
		if err := r.SaveReport(rep); err != nil {
			return fmt.Errorf("save report: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Report{}, err
	}

	metrics.ReportsTotal.WithLabelValues(string(reason)).Inc()
	log.Info().Str("report_id", rep.ID).Str("environment_id", id).Str("reason", string(reason)).Msg("Shared environment reported")
	return rep, nil
}

// ListReports returns reports newest first, optionally filtered by status. Admin only.
func (s *Service) ListReports(ctx context.Context, req Requester, status models.ReportStatus) ([]ReportView, error) {
	if !req.IsAdmin {
		return nil, ErrForbidden
	}
	if err := validReportStatus(status, true); err != nil {
		return nil, err
	}
	var out []ReportView
	err := s.store.View(ctx, func(r db.Repository) error {
		reports, err := r.ListReports(db.ReportFilter{Status: status})
		if err != nil {
			return fmt.Errorf("list reports: %w", err)
		}
		out = make([]ReportView, 0, len(reports))
		for _, rep := range reports {
			env, err := r.GetEnvironment(rep.EnvironmentID)
			if err != nil && !errors.Is(err, db.ErrNotFound) {
				return fmt.Errorf("load shared environment %s: %w", rep.EnvironmentID, err)
			}
			out = append(out, ReportView{Report: rep, EnvironmentTitle: env.Title})
		}
		return nil
	})
	return out, err
}

// UpdateReportStatus moves a report to any status. Admin only.
func (s *Service) UpdateReportStatus(ctx context.Context, req Requester, id string, status models.ReportStatus) (models.Report, error) {
	if !req.IsAdmin {
		return models.Report{}, ErrForbidden
	}
	if err := validReportStatus(status, false); err != nil {
		return models.Report{}, err
	}
	var rep models.Report
	err := s.store.Update(ctx, func(r db.Repository) error {
		var err error
		rep, err = r.GetReport(id)
		if errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("report %s: %w", id, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("load report %s: %w", id, err)
		}
		rep.Status = status
		rep.LastModifiedDate = s.timestamp()
		if err := r.SaveReport(rep); err != nil {
			return fmt.Errorf("save report: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Report{}, err
	}
	log.Info().Str("report_id", id).Str("status", string(status)).Str("admin_id", req.UserID).Msg("Report status updated")
	return rep, nil
}

// AdminDelete removes any environment with its whole history. Admin only.
func (s *Service) AdminDelete(ctx context.Context, req Requester, id string) error {
	if !req.IsAdmin {
		return ErrForbidden
	}
	err := s.store.Update(ctx, func(r db.Repository) error {
		if _, err := loadEnvironment(r, id); err != nil {
			return err
		}
		return r.DeleteEnvironment(id)
	})
	if err != nil {
		return err
	}
	metrics.EnvironmentsDeleted.WithLabelValues("admin").Inc()
	log.Info().Str("environment_id", id).Str("admin_id", req.UserID).Msg("Shared environment removed by admin")
	return nil
}
