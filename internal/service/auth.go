package service

import (
	"context"
	"errors"
	"strings"

	"github.com/wzyjerry/stray-saver/internal/model"
	"github.com/wzyjerry/stray-saver/internal/pkg/identity"
	"go.uber.org/zap"
)

var ErrMissingCredentials = errors.New("email and password are required")

// IdentityProvider is the external account system. identity.Client
// implements it.
type IdentityProvider interface {
	SignUp(ctx context.Context, email, password string) (*model.User, error)
	SignIn(ctx context.Context, email, password string) (*model.User, error)
}

// AuthService forwards signup and login to the identity service. It never
// sees password hashes.
type AuthService struct {
	identity IdentityProvider
	log      *zap.Logger
}

func NewAuthService(identity IdentityProvider, log *zap.Logger) *AuthService {
	return &AuthService{identity: identity, log: log.With(zap.String("component", "auth"))}
}

// Register creates a new account
func (s *AuthService) Register(ctx context.Context, creds model.Credentials) (*model.User, error) {
	email, password, err := normalize(creds)
	if err != nil {
		return nil, err
	}

	user, err := s.identity.SignUp(ctx, email, password)
	if err != nil {
		s.logFailure("signup", err)
		return nil, err
	}
	s.log.Info("Account created", zap.String("uid", user.UID))
	return user, nil
}

// Login verifies credentials against the identity service
func (s *AuthService) Login(ctx context.Context, creds model.Credentials) (*model.User, error) {
	email, password, err := normalize(creds)
	if err != nil {
		return nil, err
	}

	user, err := s.identity.SignIn(ctx, email, password)
	if err != nil {
		s.logFailure("login", err)
		return nil, err
	}
	return user, nil
}

func (s *AuthService) logFailure(action string, err error) {
	if Outcome(err) == "error" {
		s.log.Error("Identity service call failed", zap.String("action", action), zap.Error(err))
	}
}

func normalize(creds model.Credentials) (string, string, error) {
	email := strings.ToLower(strings.TrimSpace(creds.Email))
	if email == "" || creds.Password == "" {
		return "", "", ErrMissingCredentials
	}
	return email, creds.Password, nil
}

// AuthMessage is the text shown on the signup/login page for err.
func AuthMessage(err error) string {
	switch {
	case errors.Is(err, ErrMissingCredentials):
		return "Email and password are required."
	case errors.Is(err, identity.ErrEmailExists):
		return "An account with this email already exists."
	case errors.Is(err, identity.ErrWeakPassword):
		return "Password should be at least 6 characters."
	case errors.Is(err, identity.ErrInvalidCredentials):
		return "Invalid credentials."
	default:
		return "An unexpected error occurred. Please try again."
	}
}

// Outcome labels err for metrics: "ok", "rejected" for the expected
// taxonomy, or "error".
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrMissingCredentials),
		errors.Is(err, identity.ErrEmailExists),
		errors.Is(err, identity.ErrWeakPassword),
		errors.Is(err, identity.ErrInvalidCredentials):
		return "rejected"
	default:
		return "error"
	}
}
