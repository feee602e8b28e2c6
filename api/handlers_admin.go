package api

import (
	"net/http"

	"lexshare/models"
	"lexshare/share"

	"github.com/gin-gonic/gin"
)

// ListReportsHandler lists moderation reports, newest first.
// @Summary      List Reports
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Param        status  query  string  false  "pending, reviewed or dismissed"
// @Success      200  {array}   share.ReportView
// @Failure      403  {object}  utils.APIError "Forbidden: administrators only."
// @Router       /admin/shared-environment-reports [get]
func ListReportsHandler(c *gin.Context, svc *share.Service) {
	reports, err := svc.ListReports(c.Request.Context(), requester(c), models.ReportStatus(c.Query("status")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reports)
}

// ReportStatusRequest defines the body for triaging a report.
type ReportStatusRequest struct {
	Status models.ReportStatus `json:"status" binding:"required"`
}

// UpdateReportStatusHandler moves a report to another status.
// @Summary      Triage a Report
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path  string               true  "Report ID"
// @Param        status  body  ReportStatusRequest  true  "pending, reviewed or dismissed"
// @Success      200  {object}  models.Report
// @Failure      400  {object}  utils.APIError "Bad Request"
// @Failure      403  {object}  utils.APIError "Forbidden: administrators only."
// @Failure      404  {object}  utils.APIError "Not Found"
// @Router       /admin/shared-environment-reports/{id} [put]
func UpdateReportStatusHandler(c *gin.Context, svc *share.Service) {
	var req ReportStatusRequest
	if !bindJSON(c, &req, false) {
		return
	}
	rep, err := svc.UpdateReportStatus(c.Request.Context(), requester(c), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

// AdminDeleteEnvironmentHandler deletes any environment for moderation.
// @Summary      Remove a Shared Environment
// @Tags         Admin
// @Security     BearerAuth
// @Param        id   path  string  true  "Environment ID"
// @Success      204  "Deleted."
// @Failure      403  {object}  utils.APIError "Forbidden: administrators only."
// @Failure      404  {object}  utils.APIError "Not Found"
// @Router       /admin/shared-environments/{id} [delete]
func AdminDeleteEnvironmentHandler(c *gin.Context, svc *share.Service) {
	if err := svc.AdminDelete(c.Request.Context(), requester(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
