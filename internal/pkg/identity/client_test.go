package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

type passwordReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// fakeToolkit mimics the Identity Toolkit endpoints with an in-memory
// account table.
func fakeToolkit(t *testing.T) *httptest.Server {
	t.Helper()
	accounts := map[string]string{"taken@example.com": "hunter22"}

	fail := func(w http.ResponseWriter, msg string) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": 400, "message": msg},
		})
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/accounts:signUp", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		var req passwordReq
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			return
		}
		switch {
		case accounts[req.Email] != "":
			fail(w, "EMAIL_EXISTS")
		case len(req.Password) < 6:
			fail(w, "WEAK_PASSWORD : Password should be at least 6 characters")
		default:
			accounts[req.Email] = req.Password
			json.NewEncoder(w).Encode(map[string]string{"localId": "uid-" + req.Email, "email": req.Email})
		}
	})
	mux.HandleFunc("/v1/accounts:signInWithPassword", func(w http.ResponseWriter, r *http.Request) {
		var req passwordReq
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			return
		}
		pw, ok := accounts[req.Email]
		switch {
		case !ok:
			fail(w, "EMAIL_NOT_FOUND")
		case pw != req.Password:
			fail(w, "INVALID_PASSWORD")
		default:
			json.NewEncoder(w).Encode(map[string]string{"localId": "uid-" + req.Email, "email": req.Email})
		}
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(context.Background(), baseURL, "test-key", 5*time.Second)
	require.NoError(t, err)
	return c
}

func TestSignUpAndSignIn(t *testing.T) {
	srv := fakeToolkit(t)
	c := newTestClient(t, srv.URL+"/")
	ctx := context.Background()

	u, err := c.SignUp(ctx, "new@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "uid-new@example.com", u.UID)
	assert.Equal(t, "new@example.com", u.Email)

	u, err = c.SignIn(ctx, "new@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "uid-new@example.com", u.UID)
}

func TestEndpointWithPathPrefix(t *testing.T) {
	// the Auth emulator mounts the API below a path
	srv := fakeToolkit(t)
	mux := http.NewServeMux()
	mux.Handle("/identitytoolkit.googleapis.com/", http.StripPrefix("/identitytoolkit.googleapis.com", srv.Config.Handler))
	emu := httptest.NewServer(mux)
	t.Cleanup(emu.Close)

	c := newTestClient(t, emu.URL+"/identitytoolkit.googleapis.com")
	u, err := c.SignIn(context.Background(), "taken@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "uid-taken@example.com", u.UID)
}

func TestErrorTaxonomy(t *testing.T) {
	srv := fakeToolkit(t)
	c := newTestClient(t, srv.URL)
	ctx := context.Background()

	_, err := c.SignUp(ctx, "taken@example.com", "whatever1")
	assert.ErrorIs(t, err, ErrEmailExists)

	_, err = c.SignUp(ctx, "short@example.com", "123")
	assert.ErrorIs(t, err, ErrWeakPassword)

	// unknown account and wrong password look the same to the caller
	_, err = c.SignIn(ctx, "nobody@example.com", "whatever1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = c.SignIn(ctx, "taken@example.com", "wrong-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUnmappedServiceErrors(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/accounts:signInWithPassword", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":400,"message":"TOO_MANY_ATTEMPTS_TRY_LATER"}}`))
	})
	mux.HandleFunc("/v1/accounts:signUp", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	c := newTestClient(t, srv.URL)

	_, err := c.SignIn(context.Background(), "a@example.com", "secret123")
	var gerr *googleapi.Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, "TOO_MANY_ATTEMPTS_TRY_LATER", gerr.Message)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)

	_, err = c.SignUp(context.Background(), "a@example.com", "secret123")
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, http.StatusBadGateway, gerr.Code)
}

func TestMapError(t *testing.T) {
	err := mapError("signInWithPassword", &googleapi.Error{Code: 400, Message: "INVALID_LOGIN_CREDENTIALS"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	err = mapError("signUp", &googleapi.Error{Code: 400, Message: "WEAK_PASSWORD : Password should be at least 6 characters"})
	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestUnreachable(t *testing.T) {
	srv := fakeToolkit(t)
	url := srv.URL
	srv.Close()

	c, err := NewClient(context.Background(), url, "test-key", time.Second)
	require.NoError(t, err)
	_, err = c.SignIn(context.Background(), "a@example.com", "secret123")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}
