package gateway_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/confidant-ai/confidant/internal/auth"
	"github.com/confidant-ai/confidant/internal/gateway"
	"github.com/confidant-ai/confidant/internal/store"
	"github.com/confidant-ai/confidant/pkg/chat"
	storesqlite "github.com/confidant-ai/confidant/modules/store/sqlite"
)

type session struct {
	UserID string `json:"user_id"`
	Token  string `json:"token"`
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	st, err := storesqlite.Open(storesqlite.Config{
		Path: filepath.Join(t.TempDir(), "confidantd.db"),
	})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	g := gateway.New(auth.NewService(st, auth.Config{}), st, gateway.Config{})
	srv := httptest.NewServer(g.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func signup(t *testing.T, srv *httptest.Server, username string) session {
	t.Helper()
	body := fmt.Sprintf(`{"username":%q,"passphrase":"pw"}`, username)
	resp, err := http.Post(srv.URL+"/auth/signup", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("signup request: %v", err)
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup status = %d", resp.StatusCode)
	}
	var sess session
	if err := json.NewDecoder(resp.Body).Decode(&sess); err != nil {
		t.Fatalf("decode signup response: %v", err)
	}
	return sess
}

func doAuthed(t *testing.T, srv *httptest.Server, token, method, path string, payload any) *http.Response {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, srv.URL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func TestSignupLoginAndSync(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	sess := signup(t, srv, "ada")

	// Push a user snapshot and a thread.
	resp := doAuthed(t, srv, sess.Token, http.MethodPut, "/api/users/"+sess.UserID, store.UserRecord{
		Facts: []chat.Fact{{ID: "f1", Content: "likes tea"}},
		Score: 3,
	})
	resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("user push status = %d", resp.StatusCode)
	}

	resp = doAuthed(t, srv, sess.Token, http.MethodPut, "/api/threads/t1", store.ThreadRecord{
		OwnerID:   sess.UserID,
		Title:     "Hello",
		Turns:     []chat.Turn{{Role: chat.RoleUser, Content: "hi", Sealed: true}},
		UpdatedAt: time.Now(),
	})
	resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("thread push status = %d", resp.StatusCode)
	}

	// Pull it back.
	resp = doAuthed(t, srv, sess.Token, http.MethodGet, "/api/users/"+sess.UserID, nil)
	defer resp.Body.Close() //nolint:errcheck
	var rec store.UserRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	if rec.Score != 3 || len(rec.Facts) != 1 {
		t.Errorf("pulled user = %+v", rec)
	}

	resp = doAuthed(t, srv, sess.Token, http.MethodGet, "/api/users/"+sess.UserID+"/threads", nil)
	defer resp.Body.Close() //nolint:errcheck
	var threads []store.ThreadRecord
	if err := json.NewDecoder(resp.Body).Decode(&threads); err != nil {
		t.Fatalf("decode threads: %v", err)
	}
	if len(threads) != 1 || threads[0].Title != "Hello" {
		t.Errorf("pulled threads = %+v", threads)
	}
}

func TestAuthRequired(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	sess := signup(t, srv, "ada")

	resp, err := http.Get(srv.URL + "/api/users/" + sess.UserID)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no-token status = %d, want 401", resp.StatusCode)
	}

	resp = doAuthed(t, srv, "bogus-token", http.MethodGet, "/api/users/"+sess.UserID, nil)
	resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad-token status = %d, want 401", resp.StatusCode)
	}
}

func TestCrossUserAccessForbidden(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	ada := signup(t, srv, "ada")
	bob := signup(t, srv, "bob")

	resp := doAuthed(t, srv, bob.Token, http.MethodGet, "/api/users/"+ada.UserID, nil)
	resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("cross-user fetch status = %d, want 403", resp.StatusCode)
	}

	// A thread push claiming another owner is rejected too.
	resp = doAuthed(t, srv, bob.Token, http.MethodPut, "/api/threads/t1", store.ThreadRecord{
		OwnerID:   ada.UserID,
		UpdatedAt: time.Now(),
	})
	resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("cross-user thread push status = %d, want 403", resp.StatusCode)
	}
}

func TestDuplicateSignupConflict(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	signup(t, srv, "ada")

	resp, err := http.Post(srv.URL+"/auth/signup", "application/json",
		strings.NewReader(`{"username":"ada","passphrase":"other"}`))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate signup status = %d, want 409", resp.StatusCode)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	for _, path := range []string{"/health", "/metrics"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close() //nolint:errcheck
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s status = %d", path, resp.StatusCode)
		}
	}
}

func TestEventFanout(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	sess := signup(t, srv, "ada")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/events"
	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: http.Header{"Authorization": {"Bearer " + sess.Token}},
	})
	if err != nil {
		t.Fatalf("dial events: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "") //nolint:errcheck

	// Give the server a moment to register the listener.
	time.Sleep(50 * time.Millisecond)

	resp := doAuthed(t, srv, sess.Token, http.MethodPut, "/api/threads/t1", store.ThreadRecord{
		OwnerID:   sess.UserID,
		Title:     "Hello",
		Turns:     []chat.Turn{},
		UpdatedAt: time.Now(),
	})
	resp.Body.Close() //nolint:errcheck

	var ev struct {
		Kind     string `json:"kind"`
		ThreadID string `json:"thread_id"`
	}
	if err := wsjson.Read(ctx, conn, &ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if ev.Kind != "thread_updated" || ev.ThreadID != "t1" {
		t.Errorf("event = %+v", ev)
	}
}
