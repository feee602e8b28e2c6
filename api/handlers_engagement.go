package api

import (
	"net/http"

	"lexshare/models"
	"lexshare/share"

	"github.com/gin-gonic/gin"
)

// LikeRequest optionally pins the desired like state instead of toggling.
type LikeRequest struct {
	Liked *bool `json:"liked"`
}

// LikeEnvironmentHandler toggles the caller's like.
// @Summary      Like or Unlike
// @Description  Without a body the like is toggled. With `{"liked": true|false}` it is set, so retries are harmless.
// @Tags         Engagement
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path  string       true   "Environment ID"
// @Param        like  body  LikeRequest  false  "Desired state."
// @Success      200  {object}  share.LikeState
// @Failure      404  {object}  utils.APIError "Not Found"
// @Failure      409  {object}  utils.APIError "Conflict: a like request for this environment is already in progress."
// @Router       /shared-environments/{id}/like [post]
func LikeEnvironmentHandler(c *gin.Context, svc *share.Service) {
	var req LikeRequest
	if !bindJSON(c, &req, true) {
		return
	}
	state, err := svc.ToggleLike(c.Request.Context(), requester(c), c.Param("id"), req.Liked)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// DownloadEnvironmentHandler counts a download and returns the content.
// @Summary      Download Content
// @Tags         Engagement
// @Produce      json
// @Param        id   path      string  true  "Environment ID"
// @Success      200  {object}  share.Download
// @Failure      404  {object}  utils.APIError "Not Found"
// @Router       /shared-environments/{id}/download [post]
func DownloadEnvironmentHandler(c *gin.Context, svc *share.Service) {
	dl, err := svc.RecordDownload(c.Request.Context(), requester(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dl)
}

// ReportRequest defines the body of a moderation report.
type ReportRequest struct {
	Reason  models.ReportReason `json:"reason" binding:"required"`
	Details string              `json:"details"`
}

// ReportEnvironmentHandler files a moderation report.
// @Summary      Report a Shared Environment
// @Tags         Engagement
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path  string         true  "Environment ID"
// @Param        report  body  ReportRequest  true  "reason: spam, inappropriate, copyright or other"
// @Success      201  {object}  models.Report
// @Failure      400  {object}  utils.APIError "Bad Request"
// @Failure      404  {object}  utils.APIError "Not Found"
// @Failure      409  {object}  utils.APIError "Conflict: you already have an open report on this environment."
// @Router       /shared-environments/{id}/report [post]
func ReportEnvironmentHandler(c *gin.Context, svc *share.Service) {
	var req ReportRequest
	if !bindJSON(c, &req, false) {
		return
	}
	rep, err := svc.Report(c.Request.Context(), requester(c), c.Param("id"), req.Reason, req.Details)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rep)
}
