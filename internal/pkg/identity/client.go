package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wzyjerry/stray-saver/internal/model"
	"google.golang.org/api/googleapi"
	identitytoolkit "google.golang.org/api/identitytoolkit/v1"
	"google.golang.org/api/option"
)

// The Auth emulator serves the same API under
// http://<host>:9099/identitytoolkit.googleapis.com/.

var (
	ErrEmailExists        = errors.New("email already exists")
	ErrWeakPassword       = errors.New("weak password")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Client signs users up and in with email and password through the
// Identity Toolkit API (Firebase Auth).
type Client struct {
	accounts *identitytoolkit.AccountsService
	timeout  time.Duration
}

// NewClient authenticates with the web API key only; no service account is
// needed for password sign-in.
func NewClient(ctx context.Context, baseURL, apiKey string, timeout time.Duration) (*Client, error) {
	// relative API paths resolve against the endpoint, so it must end in "/"
	endpoint := strings.TrimRight(baseURL, "/") + "/"

	svc, err := identitytoolkit.NewService(ctx,
		option.WithAPIKey(strings.TrimSpace(apiKey)),
		option.WithEndpoint(endpoint),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity toolkit client: %w", err)
	}
	return &Client{accounts: svc.Accounts, timeout: timeout}, nil
}

// SignUp creates an account and returns it.
func (c *Client) SignUp(ctx context.Context, email, password string) (*model.User, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.accounts.SignUp(&identitytoolkit.GoogleCloudIdentitytoolkitV1SignUpRequest{
		Email:    email,
		Password: password,
	}).Context(ctx).Do()
	if err != nil {
		return nil, mapError("signUp", err)
	}
	return toUser("signUp", resp.LocalId, resp.Email)
}

// SignIn verifies the credentials and returns the account.
func (c *Client) SignIn(ctx context.Context, email, password string) (*model.User, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.accounts.SignInWithPassword(&identitytoolkit.GoogleCloudIdentitytoolkitV1SignInWithPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return nil, mapError("signInWithPassword", err)
	}
	return toUser("signInWithPassword", resp.LocalId, resp.Email)
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func toUser(method, localID, email string) (*model.User, error) {
	if localID == "" {
		return nil, fmt.Errorf("identity %s: response without localId", method)
	}
	return &model.User{UID: localID, Email: email}, nil
}

// mapError maps the service's error codes onto the sentinels. Messages
// look like "EMAIL_EXISTS" or "WEAK_PASSWORD : Password should be ...".
// Anything else is returned wrapped, with the *googleapi.Error reachable
// through errors.As.
func mapError(method string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		code, _, _ := strings.Cut(strings.TrimSpace(gerr.Message), " ")
		switch code {
		case "EMAIL_EXISTS":
			return ErrEmailExists
		case "WEAK_PASSWORD":
			return ErrWeakPassword
		case "EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS":
			return ErrInvalidCredentials
		}
	}
	return fmt.Errorf("identity %s: %w", method, err)
}
