// Package middleware provides gin middleware for the preview host
package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AtRiskMedia/tractstack-storyblok/internal/infrastructure/security"
)

const previewContextKey = "preview"

// DraftVersion is the content version served to editors.
const DraftVersion = "draft"

// PreviewConfig configures editor preview detection.
type PreviewConfig struct {
	PreviewToken   string
	JWTSecret      string
	DefaultVersion string
	TokenTTL       time.Duration
	SessionTTL     time.Duration
	SecureCookie   bool
}

// PreviewContext describes the preview state of a request.
type PreviewContext struct {
	Active  bool
	SpaceID string
	Version string
}

// PreviewMiddleware detects editor previews. A valid _storyblok_tk handshake
// starts a signed session cookie; later requests in the editor iframe carry the
// cookie. Preview requests are served the draft version.
func PreviewMiddleware(cfg PreviewConfig, logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DefaultVersion == "" {
		cfg.DefaultVersion = "published"
	}

	return func(c *gin.Context) {
		preview := &PreviewContext{Version: cfg.DefaultVersion}

		req, err := security.ParsePreviewRequest(c.Request.URL.Query())
		switch {
		case err == nil:
			if err := req.Validate(cfg.PreviewToken, cfg.TokenTTL, time.Now()); err != nil {
				logger.Warn("Rejected preview handshake", slog.String("spaceId", req.SpaceID), slog.String("error", err.Error()))
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": err.Error()})
				return
			}
			preview.Active = true
			preview.SpaceID = req.SpaceID
			if cfg.JWTSecret != "" {
				token, err := security.IssuePreviewSession(req.SpaceID, cfg.JWTSecret, cfg.SessionTTL)
				if err != nil {
					logger.Error("Failed to issue preview session", slog.String("error", err.Error()))
				} else {
					c.SetSameSite(http.SameSiteNoneMode)
					c.SetCookie(security.PreviewCookieName, token, int(cfg.SessionTTL.Seconds()), "/", "", cfg.SecureCookie, true)
				}
			}
		case errors.Is(err, security.ErrPreviewParamsMissing):
			if cfg.JWTSecret != "" {
				if cookie, cerr := c.Cookie(security.PreviewCookieName); cerr == nil {
					if claims, verr := security.ValidatePreviewSession(cookie, cfg.JWTSecret); verr == nil {
						preview.Active = true
						preview.SpaceID = claims.SpaceID
					}
				}
			}
		default:
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if preview.Active {
			preview.Version = DraftVersion
		}
		c.Set(previewContextKey, preview)
		c.Next()
	}
}

// GetPreviewContext retrieves the preview context from gin context
func GetPreviewContext(c *gin.Context) (*PreviewContext, bool) {
	v, exists := c.Get(previewContextKey)
	if !exists {
		return nil, false
	}
	preview, ok := v.(*PreviewContext)
	return preview, ok
}
