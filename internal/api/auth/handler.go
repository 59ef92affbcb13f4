package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wzyjerry/stray-saver/internal/api/render"
	"github.com/wzyjerry/stray-saver/internal/model"
	"github.com/wzyjerry/stray-saver/internal/pkg/identity"
	"github.com/wzyjerry/stray-saver/internal/pkg/metrics"
	"github.com/wzyjerry/stray-saver/internal/service"
	"github.com/wzyjerry/stray-saver/internal/session"
	"go.uber.org/zap"
)

// AfterLoginPath is where a successful signup or login lands.
const AfterLoginPath = "/dashboard"

const throttledMessage = "Too many attempts. Please wait a few minutes and try again."

// Handler serves the signup, login and logout pages.
type Handler struct {
	auth     *service.AuthService
	sessions *session.Manager
	limiter  *service.AttemptLimiter
	metrics  *metrics.Metrics
	log      *zap.Logger
}

func NewHandler(auth *service.AuthService, sessions *session.Manager, limiter *service.AttemptLimiter, m *metrics.Metrics, log *zap.Logger) *Handler {
	return &Handler{
		auth:     auth,
		sessions: sessions,
		limiter:  limiter,
		metrics:  m,
		log:      log.With(zap.String("component", "auth_handler")),
	}
}

// SignupPage renders the signup form
func (h *Handler) SignupPage(c *gin.Context) {
	render.HTML(c, http.StatusOK, "signup.html", gin.H{"Title": "Sign up"})
}

// Signup handles account creation
func (h *Handler) Signup(c *gin.Context) {
	h.attempt(c, "signup", "signup.html", "Sign up", h.auth.Register)
}

// LoginPage renders the login form
func (h *Handler) LoginPage(c *gin.Context) {
	render.HTML(c, http.StatusOK, "login.html", gin.H{"Title": "Log in"})
}

// Login handles user login
func (h *Handler) Login(c *gin.Context) {
	h.attempt(c, "login", "login.html", "Log in", h.auth.Login)
}

// Logout clears the local session only; the identity service is not told.
func (h *Handler) Logout(c *gin.Context) {
	h.sessions.End(c)
	c.Redirect(http.StatusFound, "/")
}

func (h *Handler) attempt(c *gin.Context, action, page, title string,
	call func(context.Context, model.Credentials) (*model.User, error)) {

	var creds model.Credentials
	if err := c.ShouldBind(&creds); err != nil {
		h.log.Warn("Failed to bind credentials", zap.String("action", action), zap.Error(err))
	}
	data := gin.H{"Title": title, "Email": creds.Email}

	// Check rate limit
	if !h.limiter.Allow(c.ClientIP()) {
		h.metrics.AuthAttempts.WithLabelValues(action, "throttled").Inc()
		data["Error"] = throttledMessage
		render.HTML(c, http.StatusTooManyRequests, page, data)
		return
	}

	user, err := call(c.Request.Context(), creds)
	h.metrics.AuthAttempts.WithLabelValues(action, service.Outcome(err)).Inc()
	if err != nil {
		data["Error"] = service.AuthMessage(err)
		render.HTML(c, statusFor(err), page, data)
		return
	}

	if err := h.sessions.Start(c, user); err != nil {
		h.log.Error("Failed to start session", zap.String("uid", user.UID), zap.Error(err))
		data["Error"] = service.AuthMessage(err)
		render.HTML(c, http.StatusInternalServerError, page, data)
		return
	}

	c.Redirect(http.StatusSeeOther, AfterLoginPath)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrMissingCredentials), errors.Is(err, identity.ErrWeakPassword):
		return http.StatusBadRequest
	case errors.Is(err, identity.ErrEmailExists):
		return http.StatusConflict
	case errors.Is(err, identity.ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusBadGateway
	}
}
