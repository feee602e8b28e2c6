package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"lexshare/config"
	"lexshare/db"
	"lexshare/models"
	"lexshare/utils"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// ProfileResponse is a profile without its password hash.
type ProfileResponse struct {
	ID               string    `json:"id"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	Email            string    `json:"email"`
	IsAdmin          bool      `json:"is_admin"`
	CreationDate     time.Time `json:"creation_date"`
	LastModifiedDate time.Time `json:"last_modified_date"`
}

func newProfileResponse(p models.Profile) ProfileResponse {
	return ProfileResponse{
		ID:               p.ID,
		FirstName:        p.FirstName,
		LastName:         p.LastName,
		Email:            p.Email,
		IsAdmin:          p.IsAdmin,
		CreationDate:     p.CreationDate,
		LastModifiedDate: p.LastModifiedDate,
	}
}

// --- Signup ---

// SignupRequest defines the expected body for creating an account.
type SignupRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
}

// SignupHandler creates a new account. E-mails listed in the admin configuration get admin rights.
// @Summary      Create an Account
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        account body SignupRequest true "E-mail, password (8+ characters), first and last name."
// @Success      201  {object}  ProfileResponse "Account created."
// @Failure      400  {object}  utils.APIError "Bad Request: missing fields, malformed e-mail, short password, or the e-mail is already registered."
// @Failure      500  {object}  utils.APIError "Internal Server Error"
// @Router       /auth/signup [post]
func SignupHandler(c *gin.Context, store db.Store, cfg *config.Config) {
	var req SignupRequest
	if !bindJSON(c, &req, false) {
		return
	}
	email := strings.TrimSpace(req.Email)

	hash, err := utils.HashPassword(req.Password, cfg.BcryptCost)
	if err != nil {
		utils.GinInternalServerError(c, "Failed to secure password")
		return
	}

	now := time.Now().UTC()
	profile := models.Profile{
		ID:               utils.GenerateDashlessUUID(),
		FirstName:        strings.TrimSpace(req.FirstName),
		LastName:         strings.TrimSpace(req.LastName),
		Email:            email,
		PasswordHash:     hash,
		IsAdmin:          cfg.IsAdminEmail(email),
		CreationDate:     now,
		LastModifiedDate: now,
	}
	err = store.Update(c.Request.Context(), func(r db.Repository) error {
		return r.CreateProfile(profile)
	})
	if errors.Is(err, db.ErrDuplicate) {
		utils.GinBadRequest(c, fmt.Sprintf("Profile with email '%s' already exists", email))
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to create profile")
		utils.GinInternalServerError(c, "Failed to create profile")
		return
	}

	log.Info().Str("user_id", profile.ID).Bool("admin", profile.IsAdmin).Msg("Profile created")
	c.JSON(http.StatusCreated, newProfileResponse(profile))
}

// --- Login ---

// LoginRequest defines the expected body for logging in.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the access token.
type LoginResponse struct {
	Token string `json:"token"`
}

// LoginHandler exchanges credentials for a JWT.
// @Summary      Log In
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        credentials body LoginRequest true "Your e-mail and password."
// @Success      200  {object}  LoginResponse "Use the token as 'Authorization: Bearer <token>'."
// @Failure      400  {object}  utils.APIError "Bad Request: the body is not valid JSON or misses a field."
// @Failure      401  {object}  utils.APIError "Unauthorized: invalid email or password."
// @Failure      500  {object}  utils.APIError "Internal Server Error"
// @Router       /auth/login [post]
func LoginHandler(c *gin.Context, store db.Store, cfg *config.Config) {
	var req LoginRequest
	if !bindJSON(c, &req, false) {
		return
	}

	var profile models.Profile
	err := store.View(c.Request.Context(), func(r db.Repository) error {
		var err error
		profile, err = r.GetProfileByEmail(strings.TrimSpace(req.Email))
		return err
	})
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		log.Error().Err(err).Msg("failed to load profile for login")
		utils.GinInternalServerError(c, "Failed to log in")
		return
	}
	if err != nil || !utils.CheckPasswordHash(req.Password, profile.PasswordHash) {
		utils.GinUnauthorized(c, "Invalid email or password")
		return
	}

	token, err := utils.GenerateJWT(&profile, cfg)
	if err != nil {
		utils.GinInternalServerError(c, "Failed to generate token")
		return
	}
	c.JSON(http.StatusOK, LoginResponse{Token: token})
}

// --- Logout ---

// LogoutHandler ends the session. Tokens are stateless, so clients just discard theirs.
// @Summary      Log Out
// @Tags         Authentication
// @Security     BearerAuth
// @Success      204  "Logged out."
// @Failure      401  {object}  utils.APIError "Unauthorized"
// @Router       /auth/logout [post]
func LogoutHandler(c *gin.Context) {
	userID, _ := utils.CurrentUser(c)
	log.Debug().Str("user_id", userID).Msg("logout")
	c.Status(http.StatusNoContent)
}

// --- Current Profile ---

// GetProfileMeHandler returns the caller's profile.
// @Summary      Get Your Own Profile
// @Tags         Profiles
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  ProfileResponse
// @Failure      401  {object}  utils.APIError "Unauthorized"
// @Failure      404  {object}  utils.APIError "Not Found: the profile behind the token no longer exists."
// @Router       /profiles/me [get]
func GetProfileMeHandler(c *gin.Context, store db.Store) {
	userID, _ := utils.CurrentUser(c)

	var profile models.Profile
	err := store.View(c.Request.Context(), func(r db.Repository) error {
		var err error
		profile, err = r.GetProfileByID(userID)
		return err
	})
	if errors.Is(err, db.ErrNotFound) {
		utils.GinNotFound(c, "Authenticated user profile not found.")
		return
	}
	if err != nil {
		utils.GinInternalServerError(c, "Failed to load profile")
		return
	}
	c.JSON(http.StatusOK, newProfileResponse(profile))
}
