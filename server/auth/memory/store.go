package memory

import (
	"context"
	"crypto/subtle"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/cyp0633/libcalsched/server/auth"
)

// User represents a user in the memory store
type User struct {
	Username string
	Password string // bcrypt hash, or plain text for tests
	Admin    bool
}

// Store implements an in-memory authentication store
type Store struct {
	mu     sync.RWMutex
	users  map[string]User // map[username]User
	logger *slog.Logger
}

// New creates a new in-memory authentication store
func New(opts ...Option) *Store {
	s := &Store{
		users:  make(map[string]User),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Option represents a configuration option for the Store
type Option func(*Store)

// WithLogger sets the logger for the store
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// AddUser adds a new user to the store
func (s *Store) AddUser(user User) error {
	if user.Username == "" {
		return fmt.Errorf("username is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.Username]; exists {
		s.logger.Warn("failed to add user: already exists",
			"username", user.Username)
		return fmt.Errorf("user already exists: %s", user.Username)
	}

	s.users[user.Username] = user

	s.logger.Info("user added",
		"username", user.Username,
		"admin", user.Admin)

	return nil
}

// Authenticate implements auth.Authenticator
func (s *Store) Authenticate(ctx context.Context, creds auth.Credentials) (*auth.Principal, error) {
	s.mu.RLock()
	user, exists := s.users[creds.Username]
	s.mu.RUnlock()

	if !exists {
		s.logger.Info("authentication failed: user not found",
			"username", creds.Username)
		return nil, &auth.Error{
			Type:    auth.ErrInvalidCredentials,
			Message: "invalid username or password",
		}
	}

	if !checkPassword(user.Password, creds.Password) {
		s.logger.Info("authentication failed: invalid password",
			"username", creds.Username)
		return nil, &auth.Error{
			Type:    auth.ErrInvalidCredentials,
			Message: "invalid username or password",
		}
	}

	s.logger.Debug("authentication successful",
		"username", creds.Username)

	return &auth.Principal{ID: user.Username, Admin: user.Admin}, nil
}

// HashPassword returns a bcrypt hash suitable for User.Password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

func checkPassword(stored, given string) bool {
	if isBcryptHash(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(given)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(given)) == 1
}

// ValidateAccess implements auth.Authenticator. Users may scope requests to
// themselves; admins may scope to anyone.
func (s *Store) ValidateAccess(ctx context.Context, principal *auth.Principal, userID string) error {
	if principal == nil {
		s.logger.Info("access validation failed: no principal")
		return &auth.Error{
			Type:    auth.ErrUnauthorized,
			Message: "authentication required",
		}
	}

	if userID != "" && userID != principal.ID && !principal.Admin {
		s.logger.Warn("access validation failed: forbidden",
			"username", principal.ID,
			"requested_user", userID)
		return &auth.Error{
			Type:    auth.ErrForbidden,
			Message: fmt.Sprintf("access denied to events of %s", userID),
		}
	}

	return nil
}
