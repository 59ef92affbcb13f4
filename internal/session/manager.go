package session

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/wzyjerry/stray-saver/internal/model"
	"github.com/wzyjerry/stray-saver/internal/pkg/jwt"
	"go.uber.org/zap"
)

// ContextKey is where RequireSession puts the *model.Session.
const ContextKey = "session"

// LoginPath is where unauthenticated requests are sent.
const LoginPath = "/login"

// Manager ties the session cookie to the Store. The cookie holds a signed
// token naming the session id; the store holds the uid.
type Manager struct {
	store      Store
	signer     *jwt.Signer
	cookieName string
	secure     bool
	ttl        time.Duration
	log        *zap.Logger
}

type Options struct {
	CookieName   string
	SecretKey    string
	TTL          time.Duration
	SecureCookie bool
}

func NewManager(store Store, opts Options, log *zap.Logger) *Manager {
	return &Manager{
		store:      store,
		signer:     jwt.NewSigner(opts.SecretKey, opts.TTL),
		cookieName: opts.CookieName,
		secure:     opts.SecureCookie,
		ttl:        opts.TTL,
		log:        log.With(zap.String("component", "session")),
	}
}

// Start creates a session for user and sets the cookie.
func (m *Manager) Start(c *gin.Context, user *model.User) error {
	s := &model.Session{ID: uuid.NewString(), UID: user.UID, Email: user.Email}
	if err := m.store.Set(c.Request.Context(), s, m.ttl); err != nil {
		return err
	}

	token, err := m.signer.GenerateToken(s.ID)
	if err != nil {
		return err
	}

	m.setCookie(c, token, int(m.ttl.Seconds()))
	return nil
}

// Current returns the request's session. A missing cookie, a bad or
// expired token, and an unknown id all yield ok == false.
func (m *Manager) Current(c *gin.Context) (*model.Session, bool) {
	if v, ok := c.Get(ContextKey); ok {
		s, ok := v.(*model.Session)
		return s, ok
	}

	token, err := c.Cookie(m.cookieName)
	if err != nil || token == "" {
		return nil, false
	}

	claims, err := m.signer.ValidateToken(token)
	if err != nil {
		return nil, false
	}

	s, err := m.store.Get(c.Request.Context(), claims.SessionID)
	if err != nil {
		if !errors.Is(err, ErrNoSession) {
			m.log.Error("Failed to load session", zap.Error(err))
		}
		return nil, false
	}
	if s.UID == "" {
		return nil, false
	}
	return s, true
}

// End removes the session, if any, and clears the cookie.
func (m *Manager) End(c *gin.Context) {
	if token, err := c.Cookie(m.cookieName); err == nil && token != "" {
		if claims, err := m.signer.ValidateToken(token); err == nil {
			if err := m.store.Delete(c.Request.Context(), claims.SessionID); err != nil {
				m.log.Warn("Failed to delete session", zap.Error(err))
			}
		}
	}
	m.setCookie(c, "", -1)
}

// RequireSession redirects to the login page unless the request carries a
// live session.
func (m *Manager) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := m.Current(c)
		if !ok {
			c.Redirect(http.StatusFound, LoginPath)
			c.Abort()
			return
		}
		c.Set(ContextKey, s)
		c.Next()
	}
}

// Load puts the session, if any, on the context without gating. Pages use
// it to show the logged-in navigation.
func (m *Manager) Load() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s, ok := m.Current(c); ok {
			c.Set(ContextKey, s)
		}
		c.Next()
	}
}

// FromContext returns the session placed by RequireSession or Load.
func FromContext(c *gin.Context) *model.Session {
	if v, ok := c.Get(ContextKey); ok {
		if s, ok := v.(*model.Session); ok {
			return s
		}
	}
	return nil
}

func (m *Manager) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookieName, value, maxAge, "/", "", m.secure, true)
}
