package authn

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// CookieConfig scopes the refresh cookie. Bind and Unbind must use identical
// scoping attributes: browsers silently ignore a delete whose path or domain
// differs from the cookie it targets.
type CookieConfig struct {
	// Enabled selects cookie mode. When false the refresh token travels in
	// response bodies instead.
	Enabled  bool
	Name     string
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
	MaxAge   time.Duration
}

// DefaultCookieConfig scopes the cookie to the auth endpoints only.
func DefaultCookieConfig(refreshTTL time.Duration) CookieConfig {
	return CookieConfig{
		Enabled:  true,
		Name:     "revline_refresh",
		Path:     "/api/v1/auth",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   refreshTTL,
	}
}

// ParseSameSite maps a configuration string to its http.SameSite value,
// defaulting to Lax.
func ParseSameSite(s string) http.SameSite {
	switch strings.ToLower(s) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// Bind attaches refreshToken to the response as an HTTP-only cookie.
func (cc CookieConfig) Bind(c *gin.Context, refreshToken string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     cc.Name,
		Value:    refreshToken,
		Path:     cc.Path,
		Domain:   cc.Domain,
		MaxAge:   int(cc.MaxAge.Seconds()),
		Secure:   cc.Secure,
		HttpOnly: true,
		SameSite: cc.SameSite,
	})
}

// Unbind deletes the refresh cookie using the same scoping attributes as Bind.
func (cc CookieConfig) Unbind(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     cc.Name,
		Value:    "",
		Path:     cc.Path,
		Domain:   cc.Domain,
		MaxAge:   -1,
		Secure:   cc.Secure,
		HttpOnly: true,
		SameSite: cc.SameSite,
	})
}

// Read returns the refresh token carried by the request cookie, or "" when
// absent.
func (cc CookieConfig) Read(c *gin.Context) string {
	value, err := c.Cookie(cc.Name)
	if err != nil {
		return ""
	}
	return value
}
