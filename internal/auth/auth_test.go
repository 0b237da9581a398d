package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/confidant-ai/confidant/internal/auth"
)

// memStore is an in-memory CredentialStore.
type memStore struct {
	accounts map[string]auth.Account // by username
}

func newMemStore() *memStore {
	return &memStore{accounts: make(map[string]auth.Account)}
}

func (m *memStore) CreateAccount(_ context.Context, acct auth.Account) error {
	if _, ok := m.accounts[acct.Username]; ok {
		return auth.ErrDuplicateUsername
	}
	m.accounts[acct.Username] = acct
	return nil
}

func (m *memStore) AccountByUsername(_ context.Context, username string) (auth.Account, error) {
	acct, ok := m.accounts[username]
	if !ok {
		return auth.Account{}, auth.ErrUnknownAccount
	}
	return acct, nil
}

func TestSignupAndLogin(t *testing.T) {
	t.Parallel()

	svc := auth.NewService(newMemStore(), auth.Config{})
	ctx := context.Background()

	acct, token, err := svc.Signup(ctx, "ada", "Ada", "correct horse")
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if acct.UserID == "" || token == "" {
		t.Fatal("signup returned empty user id or token")
	}
	if acct.CredentialHash == "correct horse" {
		t.Fatal("passphrase stored in the clear")
	}

	if userID, err := svc.Authenticate(token); err != nil || userID != acct.UserID {
		t.Errorf("Authenticate(signup token) = %q, %v", userID, err)
	}

	_, loginToken, err := svc.Login(ctx, "ada", "correct horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if loginToken == token {
		t.Error("login reissued the signup token")
	}
}

func TestSignup_DuplicateUsername(t *testing.T) {
	t.Parallel()

	svc := auth.NewService(newMemStore(), auth.Config{})
	ctx := context.Background()

	if _, _, err := svc.Signup(ctx, "ada", "", "pw"); err != nil {
		t.Fatalf("first Signup: %v", err)
	}
	_, _, err := svc.Signup(ctx, "ada", "", "other")
	if !errors.Is(err, auth.ErrDuplicateUsername) {
		t.Errorf("second Signup err = %v, want ErrDuplicateUsername", err)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	t.Parallel()

	svc := auth.NewService(newMemStore(), auth.Config{})
	ctx := context.Background()
	if _, _, err := svc.Signup(ctx, "ada", "", "pw"); err != nil {
		t.Fatalf("Signup: %v", err)
	}

	// Wrong passphrase and unknown username are indistinguishable.
	if _, _, err := svc.Login(ctx, "ada", "wrong"); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Errorf("wrong passphrase err = %v, want ErrInvalidCredentials", err)
	}
	if _, _, err := svc.Login(ctx, "nobody", "pw"); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Errorf("unknown username err = %v, want ErrInvalidCredentials", err)
	}
}

func TestAuthenticate_UnknownToken(t *testing.T) {
	t.Parallel()

	svc := auth.NewService(newMemStore(), auth.Config{})
	if _, err := svc.Authenticate("bogus"); !errors.Is(err, auth.ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestRevoke(t *testing.T) {
	t.Parallel()

	svc := auth.NewService(newMemStore(), auth.Config{})
	_, token, err := svc.Signup(context.Background(), "ada", "", "pw")
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}

	svc.Revoke(token)
	if _, err := svc.Authenticate(token); !errors.Is(err, auth.ErrInvalidToken) {
		t.Errorf("revoked token still valid: %v", err)
	}
}
