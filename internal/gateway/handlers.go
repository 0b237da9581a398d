package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/confidant-ai/confidant/internal/auth"
	"github.com/confidant-ai/confidant/internal/store"
)

type credentialsBody struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	Passphrase  string `json:"passphrase"`
}

type sessionResponse struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Token       string `json:"token"`
}

func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "ok",
			"uptime": time.Since(g.startedAt).Round(time.Second).String(),
		})
	}
}

func (g *Gateway) handleSignup() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body credentialsBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}

		acct, token, err := g.auth.Signup(r.Context(), body.Username, body.DisplayName, body.Passphrase)
		if err != nil {
			if errors.Is(err, auth.ErrDuplicateUsername) {
				http.Error(w, "username already taken", http.StatusConflict)
				return
			}
			g.logger.Warn("signup failed", "username", body.Username, "error", err)
			http.Error(w, "signup failed", http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusCreated, sessionResponse{
			UserID:      acct.UserID,
			Username:    acct.Username,
			DisplayName: acct.DisplayName,
			Token:       token,
		})
	}
}

func (g *Gateway) handleLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body credentialsBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}

		acct, token, err := g.auth.Login(r.Context(), body.Username, body.Passphrase)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				http.Error(w, "invalid credentials", http.StatusUnauthorized)
				return
			}
			g.logger.Error("login failed", "error", err)
			http.Error(w, "login failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, sessionResponse{
			UserID:      acct.UserID,
			Username:    acct.Username,
			DisplayName: acct.DisplayName,
			Token:       token,
		})
	}
}

func (g *Gateway) handleFetchUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id != requestUserID(r) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		rec, err := g.store.FetchUser(r.Context(), id)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		g.metrics.pulls.Inc()
		writeJSON(w, http.StatusOK, rec)
	}
}

func (g *Gateway) handleUpsertUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id != requestUserID(r) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		var rec store.UserRecord
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
		rec.ID = id

		if err := g.store.UpsertUser(r.Context(), rec); err != nil {
			writeStoreError(w, err)
			return
		}
		g.metrics.pushes.Inc()
		g.events.broadcast(id, event{Kind: "user_updated"})
		w.WriteHeader(http.StatusNoContent)
	}
}

func (g *Gateway) handleListThreads() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id != requestUserID(r) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		recs, err := g.store.ListThreads(r.Context(), id)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		if recs == nil {
			recs = []store.ThreadRecord{}
		}
		writeJSON(w, http.StatusOK, recs)
	}
}

func (g *Gateway) handleUpsertThread() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rec store.ThreadRecord
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
		rec.ID = chi.URLParam(r, "id")
		if rec.OwnerID != requestUserID(r) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		if err := g.store.UpsertThread(r.Context(), rec); err != nil {
			writeStoreError(w, err)
			return
		}
		g.events.broadcast(rec.OwnerID, event{Kind: "thread_updated", ThreadID: rec.ID})
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	http.Error(w, "store error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
