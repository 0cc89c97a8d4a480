package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/tractstack-storyblok/internal/infrastructure/security"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func previewEngine(cfg PreviewConfig) *gin.Engine {
	r := gin.New()
	r.Use(PreviewMiddleware(cfg, nil))
	r.GET("/*slug", func(c *gin.Context) {
		p, ok := GetPreviewContext(c)
		if !ok {
			c.String(http.StatusInternalServerError, "missing")
			return
		}
		c.String(http.StatusOK, "%t:%s:%s", p.Active, p.Version, p.SpaceID)
	})
	return r
}

var testPreviewConfig = PreviewConfig{
	PreviewToken: "preview",
	JWTSecret:    "jwt",
	TokenTTL:     time.Hour,
	SessionTTL:   time.Hour,
}

func handshakeURL(token string) string {
	ts := time.Now().Unix()
	q := url.Values{}
	q.Set(security.PreviewSpaceIDParam, "42")
	q.Set(security.PreviewTimestampParam, strconv.FormatInt(ts, 10))
	if token == "" {
		token = security.PreviewSignature("42", "preview", ts)
	}
	q.Set(security.PreviewTokenParam, token)
	return "/home?" + q.Encode()
}

func TestPreviewMiddleware_PublicRequest(t *testing.T) {
	w := httptest.NewRecorder()
	previewEngine(testPreviewConfig).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/home", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "false:published:", w.Body.String())
}

func TestPreviewMiddleware_HandshakeStartsSession(t *testing.T) {
	r := previewEngine(testPreviewConfig)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, handshakeURL(""), nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "true:draft:42", w.Body.String())

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, security.PreviewCookieName, cookies[0].Name)

	req := httptest.NewRequest(http.MethodGet, "/about", nil)
	req.AddCookie(cookies[0])
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "true:draft:42", w.Body.String())
}

func TestPreviewMiddleware_BadHandshake(t *testing.T) {
	w := httptest.NewRecorder()
	previewEngine(testPreviewConfig).ServeHTTP(w, httptest.NewRequest(http.MethodGet, handshakeURL("forged"), nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestPreviewMiddleware_ForgedCookieIgnored(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/home", nil)
	req.AddCookie(&http.Cookie{Name: security.PreviewCookieName, Value: "not-a-jwt"})
	w := httptest.NewRecorder()
	previewEngine(testPreviewConfig).ServeHTTP(w, req)
	assert.Equal(t, "false:published:", w.Body.String())
}

func TestCORSMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware([]string{"https://app.storyblok.com"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://app.storyblok.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "https://app.storyblok.com", w.Header().Get("Access-Control-Allow-Origin"))
}
