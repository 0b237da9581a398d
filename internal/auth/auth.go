// Package auth manages companion accounts: signup, login, and the bearer
// tokens the sync API requires. Credentials are stored as SHA-256 digests
// and compared in constant time; tokens live in memory for the lifetime of
// the server process.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors for account operations.
var (
	ErrDuplicateUsername  = errors.New("auth: username already taken")
	ErrUnknownAccount     = errors.New("auth: unknown account")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrInvalidToken       = errors.New("auth: invalid token")
)

// Account is the stored identity row.
type Account struct {
	UserID         string
	Username       string
	DisplayName    string
	CredentialHash string // hex-encoded SHA-256 of the passphrase
	JoinedAt       time.Time
}

// CredentialStore persists accounts. Implemented by the server's SQLite
// store.
type CredentialStore interface {
	// CreateAccount inserts a new account. Returns ErrDuplicateUsername
	// when the username is taken.
	CreateAccount(ctx context.Context, acct Account) error

	// AccountByUsername fetches an account. Returns ErrUnknownAccount for
	// unknown usernames.
	AccountByUsername(ctx context.Context, username string) (Account, error)
}

// Config holds service construction options.
type Config struct {
	Logger *slog.Logger
	Now    func() time.Time // injectable for testing
}

func (c Config) withDefaults() Config {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Service performs signup, login, and token validation.
type Service struct {
	store  CredentialStore
	cfg    Config
	logger *slog.Logger

	mu     sync.Mutex
	tokens map[string]string // token -> user id
}

// NewService creates an auth service over the given credential store.
func NewService(store CredentialStore, cfg Config) *Service {
	cfg = cfg.withDefaults()
	return &Service{
		store:  store,
		cfg:    cfg,
		logger: cfg.Logger.With("component", "auth"),
		tokens: make(map[string]string),
	}
}

// Signup creates an account and returns it with a fresh bearer token.
func (s *Service) Signup(ctx context.Context, username, displayName, passphrase string) (Account, string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return Account{}, "", fmt.Errorf("auth: username must not be empty")
	}
	if passphrase == "" {
		return Account{}, "", fmt.Errorf("auth: passphrase must not be empty")
	}
	if displayName == "" {
		displayName = username
	}

	acct := Account{
		UserID:         uuid.NewString(),
		Username:       username,
		DisplayName:    displayName,
		CredentialHash: HashCredential(passphrase),
		JoinedAt:       s.cfg.Now(),
	}
	if err := s.store.CreateAccount(ctx, acct); err != nil {
		return Account{}, "", err
	}

	token, err := s.issueToken(acct.UserID)
	if err != nil {
		return Account{}, "", err
	}
	s.logger.Info("account created", "username", username, "user_id", acct.UserID)
	return acct, token, nil
}

// Login verifies the passphrase and returns the account with a fresh
// bearer token. Unknown usernames and wrong passphrases both map to
// ErrInvalidCredentials so probes cannot tell them apart.
func (s *Service) Login(ctx context.Context, username, passphrase string) (Account, string, error) {
	acct, err := s.store.AccountByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, ErrUnknownAccount) {
			return Account{}, "", ErrInvalidCredentials
		}
		return Account{}, "", err
	}

	if !credentialEqual(acct.CredentialHash, HashCredential(passphrase)) {
		return Account{}, "", ErrInvalidCredentials
	}

	token, err := s.issueToken(acct.UserID)
	if err != nil {
		return Account{}, "", err
	}
	s.logger.Info("login", "username", username, "user_id", acct.UserID)
	return acct, token, nil
}

// Authenticate resolves a bearer token to a user id.
func (s *Service) Authenticate(token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.tokens[token]
	if !ok {
		return "", ErrInvalidToken
	}
	return userID, nil
}

// Revoke invalidates a token. Revoking an unknown token is a no-op.
func (s *Service) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

func (s *Service) issueToken(userID string) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("auth: issue token: %w", err)
	}
	token := hex.EncodeToString(buf)

	s.mu.Lock()
	s.tokens[token] = userID
	s.mu.Unlock()
	return token, nil
}

// HashCredential returns the hex-encoded SHA-256 digest of a passphrase.
func HashCredential(passphrase string) string {
	sum := sha256.Sum256([]byte(passphrase))
	return hex.EncodeToString(sum[:])
}

// credentialEqual compares two credential hashes in constant time.
func credentialEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
