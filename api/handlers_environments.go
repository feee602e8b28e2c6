package api

import (
	"net/http"
	"strconv"
	"strings"

	"lexshare/models"
	"lexshare/share"
	"lexshare/utils"

	"github.com/gin-gonic/gin"
)

func requester(c *gin.Context) share.Requester {
	userID, isAdmin := utils.CurrentUser(c)
	return share.Requester{UserID: userID, IsAdmin: isAdmin}
}

// --- List ---

// ListEnvironmentsHandler returns a page of active shared environments.
// @Summary      Browse the Bulletin Board
// @Description  Lists active shared environments. Withdrawn environments never appear here.
// @Description  `tags` may be repeated or comma separated; an environment must carry every tag given.
// @Tags         Shared Environments
// @Produce      json
// @Param        page      query  int     false  "Page number (starts at 1)." default(1)
// @Param        limit     query  int     false  "Items per page." maximum(100) default(20)
// @Param        category  query  string  false  "compliance, civil, penal, administrative, eu or other"
// @Param        tags      query  []string false "Required tags."
// @Param        sort      query  string  false  "recent (default), popular, downloads, views or updated"
// @Param        search    query  string  false  "Case-insensitive text matched against title, description and tags."
// @Success      200  {object}  share.ListResult
// @Failure      400  {object}  utils.APIError "Bad Request: invalid page, limit, category or sort."
// @Router       /shared-environments [get]
func ListEnvironmentsHandler(c *gin.Context, svc *share.Service) {
	page, errPage := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, errLimit := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if errPage != nil || errLimit != nil || page < 1 || limit < 1 {
		utils.GinBadRequest(c, "Invalid 'page' or 'limit' query parameter. Must be positive integers.")
		return
	}

	var tags []string
	for _, raw := range c.QueryArray("tags") {
		tags = append(tags, strings.Split(raw, ",")...)
	}

	res, err := svc.List(c.Request.Context(), requester(c), share.ListParams{
		Page:     page,
		Limit:    limit,
		Category: models.Category(c.Query("category")),
		Tags:     tags,
		Sort:     c.Query("sort"),
		Search:   c.Query("search"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// MyEnvironmentsHandler returns the caller's environments, including withdrawn ones.
// @Summary      List Your Shared Environments
// @Tags         Shared Environments
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   share.EnvironmentView
// @Failure      401  {object}  utils.APIError "Unauthorized"
// @Router       /shared-environments/my [get]
func MyEnvironmentsHandler(c *gin.Context, svc *share.Service) {
	envs, err := svc.Mine(c.Request.Context(), requester(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, envs)
}

// GetEnvironmentHandler returns one environment and counts the view.
// @Summary      Get a Shared Environment
// @Tags         Shared Environments
// @Produce      json
// @Param        id   path      string  true  "Environment ID"
// @Success      200  {object}  share.EnvironmentView
// @Failure      404  {object}  utils.APIError "Not Found: unknown id, or withdrawn and you are neither the owner nor an admin."
// @Router       /shared-environments/{id} [get]
func GetEnvironmentHandler(c *gin.Context, svc *share.Service) {
	env, err := svc.Get(c.Request.Context(), requester(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, env)
}

// --- Publish ---

// PublishRequest defines the body for publishing an environment.
type PublishRequest struct {
	Title             string          `json:"title" binding:"required"`
	Description       string          `json:"description"`
	Category          models.Category `json:"category" binding:"required"`
	Tags              []string        `json:"tags"`
	IncludeNotes      bool            `json:"includeNotes"`
	IncludeHighlights bool            `json:"includeHighlights"`
	Content           *models.Content `json:"content" binding:"required"`
	Changelog         string          `json:"changelog"`
}

// PublishEnvironmentHandler publishes a snapshot as a new shared environment at version 1.
// @Summary      Publish a Shared Environment
// @Description  The content must hold at least one dossier, quick-norm or custom alias.
// @Description  Annotations and highlights are kept only when `includeNotes` / `includeHighlights` are set.
// @Tags         Shared Environments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        environment body PublishRequest true "Metadata and content snapshot."
// @Success      201  {object}  share.EnvironmentView
// @Failure      400  {object}  utils.APIError "Bad Request: invalid metadata or empty content."
// @Failure      401  {object}  utils.APIError "Unauthorized"
// @Router       /shared-environments [post]
func PublishEnvironmentHandler(c *gin.Context, svc *share.Service) {
	var req PublishRequest
	if !bindJSON(c, &req, false) {
		return
	}
	env, err := svc.Publish(c.Request.Context(), requester(c), share.PublishInput{
		Title:             req.Title,
		Description:       req.Description,
		Category:          req.Category,
		Tags:              req.Tags,
		IncludeNotes:      req.IncludeNotes,
		IncludeHighlights: req.IncludeHighlights,
		Content:           *req.Content,
		Changelog:         req.Changelog,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, env)
}

// --- Update ---

// UpdateEnvironmentRequest changes metadata, and content when `content` is present.
type UpdateEnvironmentRequest struct {
	Title             *string            `json:"title"`
	Description       *string            `json:"description"`
	Category          *models.Category   `json:"category"`
	Tags              []string           `json:"tags"`
	IncludeNotes      *bool              `json:"includeNotes"`
	IncludeHighlights *bool              `json:"includeHighlights"`
	Content           *models.Content    `json:"content"`
	Changelog         string             `json:"changelog"`
	VersionMode       models.VersionMode `json:"versionMode"`
}

// UpdateEnvironmentHandler updates an environment owned by the caller.
// @Summary      Update a Shared Environment
// @Description  Without `content` only the given metadata fields change and no version is created.
// @Description  With `content` a new version is appended. `versionMode` is `coexist` (default) or `replace`;
// @Description  `replace` marks the previous version as replaced.
// @Tags         Shared Environments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id           path  string                    true  "Environment ID"
// @Param        environment  body  UpdateEnvironmentRequest  true  "Fields to change."
// @Success      200  {object}  share.EnvironmentView
// @Failure      400  {object}  utils.APIError "Bad Request"
// @Failure      403  {object}  utils.APIError "Forbidden: you are not the owner."
// @Failure      404  {object}  utils.APIError "Not Found"
// @Router       /shared-environments/{id} [put]
func UpdateEnvironmentHandler(c *gin.Context, svc *share.Service) {
	var req UpdateEnvironmentRequest
	if !bindJSON(c, &req, false) {
		return
	}
	patch := share.MetadataPatch{
		Title:             req.Title,
		Description:       req.Description,
		Category:          req.Category,
		Tags:              req.Tags,
		IncludeNotes:      req.IncludeNotes,
		IncludeHighlights: req.IncludeHighlights,
	}

	var (
		env share.EnvironmentView
		err error
	)
	if req.Content == nil {
		env, err = svc.UpdateMetadata(c.Request.Context(), requester(c), c.Param("id"), patch)
	} else {
		mode := req.VersionMode
		if mode == "" {
			mode = models.VersionCoexist
		}
		env, err = svc.UpdateWithVersion(c.Request.Context(), requester(c), c.Param("id"), share.VersionedUpdate{
			MetadataPatch: patch,
			Content:       *req.Content,
			Changelog:     req.Changelog,
			VersionMode:   mode,
		})
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, env)
}

// DeleteEnvironmentHandler permanently deletes an environment with its history.
// @Summary      Delete a Shared Environment
// @Description  Removes the environment, every version, suggestion, report and like. This cannot be undone; use withdraw to hide it instead.
// @Tags         Shared Environments
// @Security     BearerAuth
// @Param        id   path  string  true  "Environment ID"
// @Success      204  "Deleted."
// @Failure      403  {object}  utils.APIError "Forbidden: you are not the owner."
// @Failure      404  {object}  utils.APIError "Not Found"
// @Router       /shared-environments/{id} [delete]
func DeleteEnvironmentHandler(c *gin.Context, svc *share.Service) {
	if err := svc.Delete(c.Request.Context(), requester(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// WithdrawEnvironmentHandler hides an environment from the board.
// @Summary      Withdraw a Shared Environment
// @Tags         Shared Environments
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Environment ID"
// @Success      200  {object}  share.EnvironmentView
// @Failure      403  {object}  utils.APIError "Forbidden: you are not the owner."
// @Failure      404  {object}  utils.APIError "Not Found"
// @Failure      409  {object}  utils.APIError "Conflict: the same request is already in progress."
// @Router       /shared-environments/{id}/withdraw [post]
func WithdrawEnvironmentHandler(c *gin.Context, svc *share.Service) {
	env, err := svc.Withdraw(c.Request.Context(), requester(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, env)
}

// RepublishEnvironmentHandler makes a withdrawn environment public again.
// @Summary      Republish a Shared Environment
// @Tags         Shared Environments
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Environment ID"
// @Success      200  {object}  share.EnvironmentView
// @Failure      403  {object}  utils.APIError "Forbidden: you are not the owner."
// @Failure      404  {object}  utils.APIError "Not Found"
// @Failure      409  {object}  utils.APIError "Conflict: the same request is already in progress."
// @Router       /shared-environments/{id}/republish [post]
func RepublishEnvironmentHandler(c *gin.Context, svc *share.Service) {
	env, err := svc.Republish(c.Request.Context(), requester(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, env)
}

// --- Versions ---

// ListVersionsHandler returns the version history, oldest first.
// @Summary      List Versions
// @Tags         Versions
// @Produce      json
// @Param        id   path      string  true  "Environment ID"
// @Success      200  {array}   models.Version
// @Failure      404  {object}  utils.APIError "Not Found"
// @Router       /shared-environments/{id}/versions [get]
func ListVersionsHandler(c *gin.Context, svc *share.Service) {
	versions, err := svc.Versions(c.Request.Context(), requester(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, versions)
}

// RestoreVersionHandler appends the content of an earlier version as the newest version.
// @Summary      Restore a Version
// @Description  Creates version N+1 with the old content and changelog "Restored vX"; the previous version is marked replaced. History is never rewritten.
// @Tags         Versions
// @Produce      json
// @Security     BearerAuth
// @Param        id         path  string  true  "Environment ID"
// @Param        versionId  path  string  true  "Version ID"
// @Success      200  {object}  share.EnvironmentView
// @Failure      403  {object}  utils.APIError "Forbidden: you are not the owner."
// @Failure      404  {object}  utils.APIError "Not Found"
// @Router       /shared-environments/{id}/versions/{versionId}/restore [post]
func RestoreVersionHandler(c *gin.Context, svc *share.Service) {
	env, err := svc.Restore(c.Request.Context(), requester(c), c.Param("id"), c.Param("versionId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, env)
}
