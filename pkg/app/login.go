package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/google/uuid"

	"github.com/confidant-ai/confidant/internal/config"
	"github.com/confidant-ai/confidant/pkg/chat"
)

// onboard runs the first-launch flow: collect an identity, create or
// reuse a server account when sync is on, and seed the session with the
// starter fact.
func (a *App) onboard(ctx context.Context) error {
	if !a.cfg.Sync.Enabled {
		name, err := promptLocalName()
		if err != nil {
			return err
		}
		a.cache.SeedIdentity(chat.User{
			ID:          uuid.NewString(),
			Username:    name,
			DisplayName: name,
			JoinedAt:    time.Now(),
		})
		return nil
	}

	mode, username, passphrase, err := promptAccountForm()
	if err != nil {
		return err
	}

	client := &accountClient{baseURL: a.cfg.Sync.ServerURL}
	var sess accountSession
	if mode == "signup" {
		sess, err = client.signup(ctx, username, passphrase)
	} else {
		sess, err = client.login(ctx, username, passphrase)
	}
	if err != nil {
		return err
	}

	if err := SaveCredentials(a.cfg.DataDir, &Credentials{
		UserID:      sess.UserID,
		Username:    sess.Username,
		DisplayName: sess.DisplayName,
		Token:       sess.Token,
	}); err != nil {
		return err
	}

	a.cache.SeedIdentity(chat.User{
		ID:          sess.UserID,
		Username:    sess.Username,
		DisplayName: sess.DisplayName,
		JoinedAt:    time.Now(),
	})
	a.logger.Info("onboarded", "username", sess.Username)
	return nil
}

// Login runs the account form against the configured sync server and
// replaces the cached credentials. Used to re-authenticate an existing
// install without touching local chat state.
func Login(ctx context.Context, cfg *config.Config) error {
	if !cfg.Sync.Enabled {
		return fmt.Errorf("app: sync is disabled in the configuration")
	}

	mode, username, passphrase, err := promptAccountForm()
	if err != nil {
		return err
	}

	client := &accountClient{baseURL: cfg.Sync.ServerURL}
	var sess accountSession
	if mode == "signup" {
		sess, err = client.signup(ctx, username, passphrase)
	} else {
		sess, err = client.login(ctx, username, passphrase)
	}
	if err != nil {
		return err
	}

	return SaveCredentials(cfg.DataDir, &Credentials{
		UserID:      sess.UserID,
		Username:    sess.Username,
		DisplayName: sess.DisplayName,
		Token:       sess.Token,
	})
}

func promptLocalName() (string, error) {
	var name string
	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("What should I call you?").
			Value(&name).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return fmt.Errorf("a name, any name")
				}
				return nil
			}),
	))
	if err := form.Run(); err != nil {
		return "", fmt.Errorf("app: onboarding cancelled: %w", err)
	}
	return strings.TrimSpace(name), nil
}

func promptAccountForm() (mode, username, passphrase string, err error) {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Welcome to confidant").
				Options(
					huh.NewOption("Create an account", "signup"),
					huh.NewOption("Log in", "login"),
				).
				Value(&mode),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Username").
				Value(&username).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("username required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Passphrase").
				EchoMode(huh.EchoModePassword).
				Value(&passphrase).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("passphrase required")
					}
					return nil
				}),
		),
	)
	if err := form.Run(); err != nil {
		return "", "", "", fmt.Errorf("app: onboarding cancelled: %w", err)
	}
	return mode, strings.TrimSpace(username), passphrase, nil
}

// accountClient talks to the confidantd auth endpoints.
type accountClient struct {
	baseURL string
}

type accountSession struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Token       string `json:"token"`
}

func (c *accountClient) signup(ctx context.Context, username, passphrase string) (accountSession, error) {
	return c.post(ctx, "/auth/signup", username, passphrase)
}

func (c *accountClient) login(ctx context.Context, username, passphrase string) (accountSession, error) {
	return c.post(ctx, "/auth/login", username, passphrase)
}

func (c *accountClient) post(ctx context.Context, path, username, passphrase string) (accountSession, error) {
	payload, err := json.Marshal(map[string]string{
		"username":   username,
		"passphrase": passphrase,
	})
	if err != nil {
		return accountSession{}, fmt.Errorf("app: encode account request: %w", err)
	}

	url := strings.TrimRight(c.baseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return accountSession{}, fmt.Errorf("app: create account request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return accountSession{}, fmt.Errorf("app: reach sync server: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return accountSession{}, fmt.Errorf("app: %s failed: %s", strings.TrimPrefix(path, "/auth/"), strings.TrimSpace(string(msg)))
	}

	var sess accountSession
	if err := json.NewDecoder(resp.Body).Decode(&sess); err != nil {
		return accountSession{}, fmt.Errorf("app: decode account response: %w", err)
	}
	return sess, nil
}
