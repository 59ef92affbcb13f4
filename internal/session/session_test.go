package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wzyjerry/stray-saver/internal/model"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func storeContract(t *testing.T, s Store, expire func(time.Duration)) {
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNoSession)

	require.NoError(t, s.Set(ctx, &model.Session{ID: "a", UID: "uid-a", Email: "a@example.com"}, time.Minute))
	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "uid-a", got.UID)
	assert.Equal(t, "a@example.com", got.Email)

	require.NoError(t, s.Delete(ctx, "a"))
	_, err = s.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNoSession)

	require.NoError(t, s.Set(ctx, &model.Session{ID: "b", UID: "uid-b"}, time.Minute))
	expire(2 * time.Minute)
	_, err = s.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()
	s.now = func() time.Time { return now }
	storeContract(t, s, func(d time.Duration) { now = now.Add(d) })
}

func TestMemoryStoreSweep(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now()
	s.now = func() time.Time { return now }

	require.NoError(t, s.Set(ctx, &model.Session{ID: "short"}, time.Minute))
	require.NoError(t, s.Set(ctx, &model.Session{ID: "long"}, time.Hour))
	assert.Equal(t, 0, s.Sweep())

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, s.Sweep())
	assert.Equal(t, 1, s.Len())

	_, err := s.Get(ctx, "long")
	assert.NoError(t, err)
}

func TestMemoryStoreRunSweeper(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Set(context.Background(), &model.Session{ID: "gone"}, time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.RunSweeper(ctx, 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	storeContract(t, NewRedisStore(client), mr.FastForward)
}

func newTestRouter(m *Manager) *gin.Engine {
	r := gin.New()
	r.GET("/login-as/:uid", func(c *gin.Context) {
		if err := m.Start(c, &model.User{UID: c.Param("uid"), Email: "x@example.com"}); err != nil {
			c.String(http.StatusInternalServerError, err.Error())
			return
		}
		c.String(http.StatusOK, "ok")
	})
	r.GET("/logout", func(c *gin.Context) {
		m.End(c)
		c.String(http.StatusOK, "bye")
	})
	r.GET("/private", m.RequireSession(), func(c *gin.Context) {
		c.String(http.StatusOK, FromContext(c).UID)
	})
	return r
}

func newManager() *Manager {
	return NewManager(NewMemoryStore(), Options{
		CookieName: "sid",
		SecretKey:  "test-secret",
		TTL:        time.Hour,
	}, zap.NewNop())
}

func do(r http.Handler, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == "sid" {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func TestGateRedirectsAnonymous(t *testing.T) {
	r := newTestRouter(newManager())

	w := do(r, "/private")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, LoginPath, w.Header().Get("Location"))
	assert.NotContains(t, w.Body.String(), "uid")
}

func TestGatePassesWithSession(t *testing.T) {
	r := newTestRouter(newManager())

	cookie := sessionCookie(t, do(r, "/login-as/uid-42"))
	assert.True(t, cookie.HttpOnly)

	w := do(r, "/private", cookie)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "uid-42", w.Body.String())
}

func TestGateRejectsForgedCookie(t *testing.T) {
	r := newTestRouter(newManager())

	cookie := sessionCookie(t, do(r, "/login-as/uid-42"))
	forged := &http.Cookie{Name: "sid", Value: cookie.Value + "tampered"}

	w := do(r, "/private", forged)
	assert.Equal(t, http.StatusFound, w.Code)

	// a valid token whose session lives in another instance's store
	other := newTestRouter(newManager())
	foreign := sessionCookie(t, do(other, "/login-as/uid-7"))
	w = do(r, "/private", foreign)
	assert.Equal(t, http.StatusFound, w.Code)
}

func TestLogoutEndsSession(t *testing.T) {
	r := newTestRouter(newManager())

	cookie := sessionCookie(t, do(r, "/login-as/uid-42"))

	w := do(r, "/logout", cookie)
	cleared := sessionCookie(t, w)
	assert.Equal(t, "", cleared.Value)
	assert.True(t, cleared.MaxAge < 0)

	// replaying the old cookie must not work once the store entry is gone
	w = do(r, "/private", cookie)
	assert.Equal(t, http.StatusFound, w.Code)
}
