package middleware

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/the-flip/core/internal/models"
	"github.com/the-flip/core/internal/pkg/jwt"
	"github.com/the-flip/core/internal/pkg/response"
	sessionpkg "github.com/the-flip/core/internal/pkg/session"
	"gorm.io/gorm"
)

const (
	ContextKeyMaintainerID = "maintainer_id"
	ContextKeySID          = "session_id"
	ContextKeyIsAdmin      = "is_admin"
	apiTokenPrefix         = "flp"
)

// Auth returns a middleware that enforces JWT or API token authentication.
func Auth(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := ValidateTokenClaims(db, extractToken(c))
		if err != nil {
			response.Unauthorized(c)
			return
		}
		setAuthContext(c, db, claims)
		c.Next()
	}
}

// OptionalAuth sets the maintainer ID if a valid token is present, but does
// not block the request.
func OptionalAuth(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, err := ValidateTokenClaims(db, extractToken(c)); err == nil && claims.MaintainerID != "" {
			setAuthContext(c, db, claims)
		}
		c.Next()
	}
}

// RequireAdmin layers an admin check over Auth. Register it after Auth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAdmin(c) {
			response.Forbidden(c)
			return
		}
		c.Next()
	}
}

func setAuthContext(c *gin.Context, db *gorm.DB, claims *jwt.Claims) {
	c.Set(ContextKeyMaintainerID, claims.MaintainerID)
	if claims.SessionID != "" {
		c.Set(ContextKeySID, claims.SessionID)
		sessionpkg.Touch(db, claims.MaintainerID, claims.SessionID)
	}

	var row struct{ IsAdmin bool }
	if err := db.Table("maintainers").
		Select("is_admin").
		Where("id = ? AND deleted_at IS NULL", claims.MaintainerID).
		Scan(&row).Error; err == nil {
		c.Set(ContextKeyIsAdmin, row.IsAdmin)
	}
}

// ValidateToken validates a JWT/API token and returns the maintainer id.
func ValidateToken(db *gorm.DB, rawToken string) (string, error) {
	claims, err := ValidateTokenClaims(db, rawToken)
	if err != nil {
		return "", err
	}
	return claims.MaintainerID, nil
}

// ValidateTokenClaims validates a JWT/API token and returns claims.
func ValidateTokenClaims(db *gorm.DB, rawToken string) (*jwt.Claims, error) {
	token := NormalizeToken(rawToken)
	if token == "" {
		return nil, errors.New("token is required")
	}

	if strings.HasPrefix(token, apiTokenPrefix) {
		maintainerID, err := validateAPIToken(db, token)
		if err != nil {
			return nil, err
		}
		return &jwt.Claims{MaintainerID: maintainerID}, nil
	}

	claims, err := jwt.Parse(token)
	if err != nil {
		return nil, err
	}
	active, err := sessionpkg.IsActive(db, claims.MaintainerID, claims.SessionID)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, errors.New("session expired or revoked")
	}
	return claims, nil
}

// CurrentMaintainerID extracts the authenticated maintainer ID from context.
func CurrentMaintainerID(c *gin.Context) string {
	v, _ := c.Get(ContextKeyMaintainerID)
	id, _ := v.(string)
	return id
}

// CurrentSessionID extracts the authenticated session ID from context.
func CurrentSessionID(c *gin.Context) string {
	v, _ := c.Get(ContextKeySID)
	id, _ := v.(string)
	return id
}

// IsAuthenticated returns true if the request has a valid auth token.
func IsAuthenticated(c *gin.Context) bool {
	return CurrentMaintainerID(c) != ""
}

// IsAdmin returns true if the authenticated maintainer has the admin flag.
func IsAdmin(c *gin.Context) bool {
	v, _ := c.Get(ContextKeyIsAdmin)
	b, _ := v.(bool)
	return b
}

func extractToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if auth != "" {
		return NormalizeToken(auth)
	}
	return NormalizeToken(c.Query("token"))
}

// NormalizeToken trims spaces and strips an optional Bearer prefix.
func NormalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	if token == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}

func validateAPIToken(db *gorm.DB, token string) (string, error) {
	var row struct {
		MaintainerID string
	}
	err := db.Model(&models.APIToken{}).
		Select("maintainer_id").
		Where("token = ? AND (expired_at IS NULL OR expired_at > ?)", token, time.Now()).
		Scan(&row).Error
	if err != nil {
		return "", err
	}
	if row.MaintainerID == "" {
		return "", errors.New("api token not found")
	}
	return row.MaintainerID, nil
}
