package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"

	gorefresh "github.com/averix07/goRefresh"
)

// Handler serves the login/refresh/logout endpoints for one Engine.
//
// Handler instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Handler struct {
	engine *gorefresh.Engine
}

// NewHandler wraps the engine in an HTTP adapter.
func NewHandler(engine *gorefresh.Engine) *Handler {
	return &Handler{engine: engine}
}

// Mux returns a ServeMux with the three endpoints registered.
func (h *Handler) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", h.Login)
	mux.HandleFunc("POST /refresh", h.Refresh)
	mux.HandleFunc("POST /logout", h.Logout)
	return mux
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Login describes the login operation and its observable behavior.
//
// Login may return an error when input validation, dependency calls, or security checks fail.
// Login does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}

	pair, err := h.engine.Login(withClientIP(r), body.Identifier, body.Password)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// Refresh describes the refresh operation and its observable behavior.
//
// Refresh may return an error when input validation, dependency calls, or security checks fail.
// Refresh does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var body refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}

	pair, err := h.engine.Refresh(withClientIP(r), body.RefreshToken)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// Logout describes the logout operation and its observable behavior.
//
// Logout may return an error when input validation, dependency calls, or security checks fail.
// Logout does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var body refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}

	if err := h.engine.Logout(withClientIP(r), body.RefreshToken); err != nil {
		writeEngineError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// writeEngineError maps engine sentinels to HTTP statuses. Every 401 carries
// the same opaque body regardless of the underlying cause.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, gorefresh.ErrReuseDetected):
		writeError(w, http.StatusForbidden, "token reuse detected")
	case errors.Is(err, gorefresh.ErrLoginRateLimited),
		errors.Is(err, gorefresh.ErrRefreshRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate limited")
	case errors.Is(err, gorefresh.ErrStorageUnavailable):
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
	case errors.Is(err, gorefresh.ErrAccessTokenIssuance):
		// The refresh token is consumed at this point; the client's only
		// recourse is to log in again.
		writeError(w, http.StatusInternalServerError, "internal error")
	case errors.Is(err, gorefresh.ErrInvalidCredentials),
		errors.Is(err, gorefresh.ErrTokenInvalid),
		errors.Is(err, gorefresh.ErrTokenExpired):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func withClientIP(r *http.Request) context.Context {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return gorefresh.WithClientIP(r.Context(), host)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
