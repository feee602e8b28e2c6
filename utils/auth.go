package utils

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"lexshare/config"
	"lexshare/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// Gin context keys set by the auth middlewares.
const (
	ContextUserID    = "userID"
	ContextUserEmail = "userEmail"
	ContextIsAdmin   = "isAdmin"
)

// --- Password Hashing ---

// HashPassword generates a bcrypt hash for the given password using the cost from config.
func HashPassword(password string, cost int) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		log.Error().Err(err).Msg("failed to hash password")
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), nil
}

// CheckPasswordHash compares a plain text password with a stored bcrypt hash.
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// --- JWT Handling ---

// Claims defines the structure of the JWT claims.
type Claims struct {
	UserID  string `json:"user_id"` // Dashless UUID
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin,omitempty"`
	jwt.RegisteredClaims
}

// GenerateJWT creates a new JWT token for a given user profile.
func GenerateJWT(profile *models.Profile, cfg *config.Config) (string, error) {
	if cfg.JwtSecret == "" {
		log.Error().Msg("JWT secret is empty, cannot generate token")
		return "", errors.New("JWT secret is not configured")
	}

	now := time.Now()
	claims := &Claims{
		UserID:  profile.ID,
		Email:   profile.Email,
		IsAdmin: profile.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TokenLifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "lexshare",
			Subject:   profile.ID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(cfg.JwtSecret))
	if err != nil {
		log.Error().Err(err).Msg("failed to sign JWT token")
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// ValidateJWT parses and validates a JWT token string.
// Returns the claims if valid, otherwise returns an error.
func ValidateJWT(tokenString string, cfg *config.Config) (*Claims, error) {
	if cfg.JwtSecret == "" {
		log.Error().Msg("JWT secret is empty, cannot validate token")
		return nil, errors.New("JWT secret is not configured")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(cfg.JwtSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			log.Debug().Msg("JWT validation failed: token expired")
			return nil, errors.New("token has expired")
		}
		log.Debug().Err(err).Msg("JWT validation failed")
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// bearerToken extracts the token from the Authorization header.
// ok is false when the header is absent; err is set when it is malformed.
func bearerToken(c *gin.Context) (token string, ok bool, err error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false, nil
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", true, errors.New("Authorization header format must be Bearer {token}")
	}
	return parts[1], true, nil
}

func setClaims(c *gin.Context, claims *Claims) {
	c.Set(ContextUserID, claims.UserID)
	c.Set(ContextUserEmail, claims.Email)
	c.Set(ContextIsAdmin, claims.IsAdmin)
}

// AuthMiddleware creates a Gin middleware function to protect routes.
// It validates the JWT token from the Authorization header.
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, present, err := bearerToken(c)
		if !present {
			GinUnauthorized(c, "Authorization header required")
			return
		}
		if err != nil {
			GinError(c, http.StatusBadRequest, err.Error())
			return
		}

		claims, err := ValidateJWT(tokenString, cfg)
		if err != nil {
			GinUnauthorized(c, fmt.Sprintf("Invalid token: %v", err))
			return
		}
		setClaims(c, claims)
		c.Next()
	}
}

// OptionalAuthMiddleware identifies the caller when a token is sent and lets
// anonymous requests through. A token that is sent but invalid is still rejected.
func OptionalAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, present, err := bearerToken(c)
		if !present {
			c.Next()
			return
		}
		if err != nil {
			GinError(c, http.StatusBadRequest, err.Error())
			return
		}
		claims, err := ValidateJWT(tokenString, cfg)
		if err != nil {
			GinUnauthorized(c, fmt.Sprintf("Invalid token: %v", err))
			return
		}
		setClaims(c, claims)
		c.Next()
	}
}

// AdminMiddleware rejects callers whose token does not carry the admin flag.
// It must run after AuthMiddleware.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(ContextIsAdmin) {
			GinForbidden(c, "Administrator privileges required")
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated caller, empty when anonymous.
func CurrentUser(c *gin.Context) (userID string, isAdmin bool) {
	return c.GetString(ContextUserID), c.GetBool(ContextIsAdmin)
}
