package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/docflow/docflow/portal/internal/api"
	"github.com/docflow/docflow/portal/internal/config"
	"github.com/docflow/docflow/portal/internal/sessions"
	"github.com/docflow/docflow/portal/internal/tokens"
	"github.com/docflow/docflow/portal/internal/transport"
	"github.com/docflow/docflow/portal/internal/workflow"
	"github.com/docflow/docflow/portal/pkg/logger"
	"github.com/docflow/docflow/portal/pkg/middleware"
	"github.com/gin-gonic/gin"
)

// AuthHandler passes login and registration through to the backend and
// keeps the resulting token in the browser's `token` cookie.
type AuthHandler struct {
	cfg         *config.Config
	api         *api.Client
	sessionsSvc *sessions.Service
}

func NewAuthHandler(cfg *config.Config, c *api.Client, s *sessions.Service) *AuthHandler {
	return &AuthHandler{cfg: cfg, api: c, sessionsSvc: s}
}

// Register routes under /auth
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	a := rg.Group("/auth")
	a.POST("/login", h.Login)
	a.POST("/register", h.RegisterUser)
	a.POST("/logout", h.Logout)
}

// Login forwards email and password. On success the backend token is set as
// the `token` cookie and a portal session is opened for the token's role.
func (h *AuthHandler) Login(c *gin.Context) {
	email, password := c.PostForm("email"), c.PostForm("password")
	if email == "" || password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password required"})
		return
	}
	w := h.api.Login(c.Request.Context(), email, password)
	if !w.OK() {
		respondWrite(c, w)
		return
	}
	tok, err := api.TokenFrom(w)
	if err != nil {
		logger.Warnf("login: no token in response: %v", err)
		respondWrite(c, w)
		return
	}
	maxAge := int(h.cfg.Session.TTL.Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(transport.TokenCookie, tok, maxAge, "/", "", h.cfg.Session.Secure, true)

	if claims, err := tokens.Inspect(tok); err == nil && claims.Role != "" {
		sess, err := h.sessionsSvc.CreateSession(c.Request.Context(), claims.Role, claims.Subject)
		if err != nil {
			logger.Errorf("login: create session: %v", err)
		} else {
			c.SetCookie(h.cfg.Session.CookieName, sess.ID, maxAge, "/", "", h.cfg.Session.Secure, true)
		}
	}
	respondWrite(c, w)
}

// RegisterUser forwards a registration form.
func (h *AuthHandler) RegisterUser(c *gin.Context) {
	role, err := workflow.ParseRole(c.PostForm("role"))
	if err != nil {
		respondErr(c, err)
		return
	}
	idx, err := strconv.Atoi(c.DefaultPostForm("questionIdx", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "questionIdx must be a number"})
		return
	}
	w := h.api.Register(c.Request.Context(), api.Registration{
		Email:       c.PostForm("email"),
		Password:    c.PostForm("password"),
		QuestionIdx: idx,
		Answer:      c.PostForm("answer"),
		Role:        role,
	})
	respondWrite(c, w)
}

// Logout revokes the token until it would have expired anyway, drops the
// portal session and clears both cookies.
func (h *AuthHandler) Logout(c *gin.Context) {
	ctx := c.Request.Context()
	if tok := c.GetString(middleware.TokenKey); tok != "" {
		ttl := h.cfg.Session.TTL
		if claims, err := tokens.Inspect(tok); err == nil && !claims.ExpiresAt.IsZero() {
			ttl = time.Until(claims.ExpiresAt)
		}
		if err := sessions.RevokeToken(ctx, tok, ttl); err != nil {
			logger.Warnf("logout: revoke token: %v", err)
		}
	}
	if sid, err := c.Cookie(h.cfg.Session.CookieName); err == nil && sid != "" {
		if err := h.sessionsSvc.Delete(ctx, sid); err != nil {
			logger.Warnf("logout: delete session: %v", err)
		}
	}
	c.SetCookie(transport.TokenCookie, "", -1, "/", "", h.cfg.Session.Secure, true)
	c.SetCookie(h.cfg.Session.CookieName, "", -1, "/", "", h.cfg.Session.Secure, true)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}
