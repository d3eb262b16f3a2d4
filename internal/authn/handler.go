// Package authn exposes the authentication endpoints: register, login,
// refresh, logout and the current-user lookup. Handlers translate between the
// HTTP transport (cookies, headers, JSON bodies) and the session subsystem.
package authn

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/revlinehq/revline/internal/authn/password"
	"github.com/revlinehq/revline/internal/authn/session"
	"github.com/revlinehq/revline/internal/authn/token"
	"github.com/revlinehq/revline/internal/shop"
)

var (
	// ErrEmailRegistered rejects registration with an email already in use.
	ErrEmailRegistered = errors.New("email already registered")
	// ErrInvalidCredentials rejects a login with an unknown email or wrong
	// password; the two are indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name"`
	Password string `json:"password" binding:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type userOut struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// Handler serves the auth endpoints.
type Handler struct {
	db      *gorm.DB
	tokens  *token.Manager
	hasher  *password.Hasher
	rotator *session.Rotator
	cookies CookieConfig
	log     zerolog.Logger
}

// NewHandler wires the auth endpoints.
func NewHandler(
	db *gorm.DB,
	tokens *token.Manager,
	hasher *password.Hasher,
	rotator *session.Rotator,
	cookies CookieConfig,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		db:      db,
		tokens:  tokens,
		hasher:  hasher,
		rotator: rotator,
		cookies: cookies,
		log:     log,
	}
}

// Tokens exposes the codec for route guards and limiter subject extraction.
func (h *Handler) Tokens() *token.Manager { return h.tokens }

// Register creates a user account.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}

	var count int64
	if err := h.db.WithContext(c.Request.Context()).
		Model(&shop.User{}).Where("email = ?", req.Email).Count(&count).Error; err != nil {
		h.log.Error().Err(err).Msg("register: user lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal error"})
		return
	}
	if count > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": ErrEmailRegistered.Error()})
		return
	}

	hash, err := h.hasher.Hash(req.Password)
	if err != nil {
		h.log.Error().Err(err).Msg("register: password hash failed")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal error"})
		return
	}

	user := shop.User{Email: req.Email, Name: req.Name, PasswordHash: hash}
	if err := h.db.WithContext(c.Request.Context()).Create(&user).Error; err != nil {
		h.log.Error().Err(err).Msg("register: user insert failed")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal error"})
		return
	}

	c.JSON(http.StatusCreated, userOut{ID: user.ID, Email: user.Email, Name: user.Name})
}

// Login verifies credentials and issues an access/refresh pair. The refresh
// token travels as an HTTP-only cookie, or in the body when cookie mode is
// disabled.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}

	var user shop.User
	err := h.db.WithContext(c.Request.Context()).Where("email = ?", req.Email).First(&user).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			h.log.Error().Err(err).Msg("login: user lookup failed")
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal error"})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"detail": ErrInvalidCredentials.Error()})
		return
	}

	ok, err := h.hasher.Verify(req.Password, user.PasswordHash)
	if err != nil || !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": ErrInvalidCredentials.Error()})
		return
	}

	pair, err := h.rotator.Login(c.Request.Context(), strconv.FormatUint(uint64(user.ID), 10))
	if err != nil {
		h.log.Error().Err(err).Msg("login: session issuance failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"detail": "Service unavailable"})
		return
	}

	c.JSON(http.StatusOK, h.tokenResponse(c, pair))
}

// Refresh rotates the presented refresh token and returns a new pair. A
// missing, invalid or reused token is unauthorized; a store outage is
// fail-closed and reported as unavailable rather than silently honored.
func (h *Handler) Refresh(c *gin.Context) {
	raw := h.refreshTokenFromRequest(c)
	if raw == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "No refresh token"})
		return
	}

	pair, err := h.rotator.Rotate(c.Request.Context(), raw)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrStoreUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"detail": "Service unavailable"})
		case errors.Is(err, session.ErrTokenReused):
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "Refresh token reused or revoked"})
		default:
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid token"})
		}
		return
	}

	c.JSON(http.StatusOK, h.tokenResponse(c, pair))
}

// Logout revokes the server-side session best-effort and clears the cookie
// unconditionally. It always reports success: the client-side session ends
// regardless of whether the store deletion went through.
func (h *Handler) Logout(c *gin.Context) {
	if raw := h.refreshTokenFromRequest(c); raw != "" {
		h.rotator.Logout(c.Request.Context(), raw)
	}
	if h.cookies.Enabled {
		h.cookies.Unbind(c)
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Me returns the authenticated user's record.
func (h *Handler) Me(c *gin.Context) {
	id, err := strconv.ParseUint(Subject(c), 10, 64)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid token"})
		return
	}

	var user shop.User
	if err := h.db.WithContext(c.Request.Context()).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "User not found"})
			return
		}
		h.log.Error().Err(err).Msg("me: user lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal error"})
		return
	}

	c.JSON(http.StatusOK, userOut{ID: user.ID, Email: user.Email, Name: user.Name})
}

// RefreshSubject resolves the subject of the presented refresh token without
// any store lookup, for subject-scoped rate limiting of the refresh endpoint.
// Resolution failures return "" rather than failing the request.
func (h *Handler) RefreshSubject(c *gin.Context) string {
	raw := h.refreshTokenFromRequest(c)
	if raw == "" {
		return ""
	}
	claims, err := h.tokens.Decode(raw)
	if err != nil {
		return ""
	}
	return claims.Subject
}

func (h *Handler) refreshTokenFromRequest(c *gin.Context) string {
	if h.cookies.Enabled {
		if raw := h.cookies.Read(c); raw != "" {
			return raw
		}
	}
	// ShouldBindBodyWith caches the body: the limiter's subject extractor and
	// the handler both read it on the same request.
	var req refreshRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		return ""
	}
	return req.RefreshToken
}

func (h *Handler) tokenResponse(c *gin.Context, pair session.Pair) tokenResponse {
	resp := tokenResponse{
		AccessToken: pair.AccessToken,
		TokenType:   "bearer",
		ExpiresIn:   pair.ExpiresIn,
	}
	if h.cookies.Enabled {
		h.cookies.Bind(c, pair.RefreshToken)
	} else {
		resp.RefreshToken = pair.RefreshToken
	}
	return resp
}
