package api

import (
	"net/http"

	"lexshare/models"
	"lexshare/share"

	"github.com/gin-gonic/gin"
)

// SuggestionRequest defines the body of a new suggestion.
type SuggestionRequest struct {
	Content *models.Content `json:"content" binding:"required"`
	Message string          `json:"message"`
}

// CreateSuggestionHandler proposes content for someone else's environment.
// @Summary      Suggest Content
// @Description  Only dossiers, quick-norms and custom aliases are kept. At least one item is required.
// @Tags         Suggestions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id          path  string             true  "Environment ID"
// @Param        suggestion  body  SuggestionRequest  true  "Proposed content and an optional message."
// @Success      201  {object}  models.Suggestion
// @Failure      400  {object}  utils.APIError "Bad Request: empty content, or you own the environment."
// @Failure      404  {object}  utils.APIError "Not Found"
// @Router       /shared-environments/{id}/suggestions [post]
func CreateSuggestionHandler(c *gin.Context, svc *share.Service) {
	var req SuggestionRequest
	if !bindJSON(c, &req, false) {
		return
	}
	sug, err := svc.CreateSuggestion(c.Request.Context(), requester(c), c.Param("id"), *req.Content, req.Message)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sug)
}

// ReceivedSuggestionsHandler lists suggestions sent to the caller's environments.
// @Summary      Received Suggestions
// @Tags         Suggestions
// @Produce      json
// @Security     BearerAuth
// @Param        status  query  string  false  "pending, approved or rejected"
// @Success      200  {array}   share.SuggestionView
// @Failure      400  {object}  utils.APIError "Bad Request: unknown status."
// @Router       /shared-environments-suggestions/received [get]
func ReceivedSuggestionsHandler(c *gin.Context, svc *share.Service) {
	status := models.SuggestionStatus(c.Query("status"))
	sugs, err := svc.ReceivedSuggestions(c.Request.Context(), requester(c), status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sugs)
}

// SentSuggestionsHandler lists the caller's own suggestions.
// @Summary      Sent Suggestions
// @Tags         Suggestions
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  share.SuggestionView
// @Router       /shared-environments-suggestions/sent [get]
func SentSuggestionsHandler(c *gin.Context, svc *share.Service) {
	sugs, err := svc.SentSuggestions(c.Request.Context(), requester(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sugs)
}

// PendingCountResponse carries the number of suggestions awaiting review.
type PendingCountResponse struct {
	Count int `json:"count"`
}

// PendingCountHandler counts pending suggestions across the caller's environments.
// @Summary      Pending Suggestion Count
// @Tags         Suggestions
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  PendingCountResponse
// @Router       /shared-environments-suggestions/pending-count [get]
func PendingCountHandler(c *gin.Context, svc *share.Service) {
	n, err := svc.PendingCount(c.Request.Context(), requester(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, PendingCountResponse{Count: n})
}

// ApproveRequest selects how the suggestion is applied.
type ApproveRequest struct {
	VersionMode models.VersionMode `json:"versionMode"`
	MergeMode   models.MergeMode   `json:"mergeMode"`
}

// ApproveResponse is the approved suggestion with the updated environment.
type ApproveResponse struct {
	Suggestion  models.Suggestion     `json:"suggestion"`
	Environment share.EnvironmentView `json:"environment"`
}

// ApproveSuggestionHandler applies a pending suggestion as a new version.
// @Summary      Approve a Suggestion
// @Description  `mergeMode` is `merge` (default: current items followed by new ones, deduplicated by id) or `replace`
// @Description  (each category the suggestion fills replaces the current one). `versionMode` is `coexist` (default) or `replace`.
// @Description  The new version and the status change are stored together.
// @Tags         Suggestions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path  string          true   "Suggestion ID"
// @Param        approve  body  ApproveRequest  false  "Modes."
// @Success      200  {object}  ApproveResponse
// @Failure      400  {object}  utils.APIError "Bad Request: unknown mode."
// @Failure      403  {object}  utils.APIError "Forbidden: you do not own the environment."
// @Failure      404  {object}  utils.APIError "Not Found"
// @Failure      409  {object}  utils.APIError "Conflict: already reviewed, or the same request is in progress."
// @Router       /shared-environments-suggestions/{id}/approve [post]
func ApproveSuggestionHandler(c *gin.Context, svc *share.Service) {
	var req ApproveRequest
	if !bindJSON(c, &req, true) {
		return
	}
	if req.VersionMode == "" {
		req.VersionMode = models.VersionCoexist
	}
	if req.MergeMode == "" {
		req.MergeMode = models.MergeUnion
	}
	sug, env, err := svc.ApproveSuggestion(c.Request.Context(), requester(c), c.Param("id"), share.ApproveInput{
		VersionMode: req.VersionMode,
		MergeMode:   req.MergeMode,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ApproveResponse{Suggestion: sug, Environment: env})
}

// RejectRequest carries an optional note for the suggester.
type RejectRequest struct {
	ReviewNote string `json:"reviewNote"`
}

// RejectSuggestionHandler rejects a pending suggestion.
// @Summary      Reject a Suggestion
// @Tags         Suggestions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path  string         true   "Suggestion ID"
// @Param        reject  body  RejectRequest  false  "Optional review note."
// @Success      200  {object}  models.Suggestion
// @Failure      403  {object}  utils.APIError "Forbidden: you do not own the environment."
// @Failure      404  {object}  utils.APIError "Not Found"
// @Failure      409  {object}  utils.APIError "Conflict: already reviewed, or the same request is in progress."
// @Router       /shared-environments-suggestions/{id}/reject [post]
func RejectSuggestionHandler(c *gin.Context, svc *share.Service) {
	var req RejectRequest
	if !bindJSON(c, &req, true) {
		return
	}
	sug, err := svc.RejectSuggestion(c.Request.Context(), requester(c), c.Param("id"), req.ReviewNote)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sug)
}
