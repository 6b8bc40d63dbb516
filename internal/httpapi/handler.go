package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rickgao/stockfeed/internal/directory"
	"github.com/rickgao/stockfeed/internal/metrics"
	"github.com/rickgao/stockfeed/internal/model"
	"github.com/rickgao/stockfeed/internal/session"
	"github.com/rickgao/stockfeed/internal/version"
)

// PriceSource provides the instrument universe and latest prices.
type PriceSource interface {
	Symbols() []string
	Snapshot() map[string]model.PricePoint
}

// Handler serves the REST API and mounts the push endpoint.
type Handler struct {
	sessions *session.Store
	users    *directory.Directory
	prices   PriceSource
	logger   *slog.Logger
	mux      *http.ServeMux
}

// New builds the Handler and wires all routes. push may be nil in tests
// that only exercise the REST surface.
func New(
	sessions *session.Store,
	users *directory.Directory,
	prices PriceSource,
	push http.Handler,
	metricsPath string,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	h := &Handler{
		sessions: sessions,
		users:    users,
		prices:   prices,
		logger:   logger,
		mux:      http.NewServeMux(),
	}

	h.mux.HandleFunc("POST /login", h.handleLogin)
	h.mux.HandleFunc("GET /stocks", h.handleStocks)
	h.mux.HandleFunc("POST /subscribe", h.handleSubscribe)
	h.mux.HandleFunc("POST /unsubscribe", h.handleUnsubscribe)
	h.mux.HandleFunc("GET /subscriptions/{sessionId}", h.handleSubscriptions)
	h.mux.HandleFunc("GET /health", h.handleHealth)

	if push != nil {
		h.mux.Handle("GET /ws", push)
	}
	if metricsPath != "" {
		h.mux.Handle("GET "+metricsPath, metrics.Handler())
	}

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Permissive CORS so the dashboard can call from any origin.
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	h.mux.ServeHTTP(w, r)
}

type loginRequest struct {
	Email string `json:"email"`
}

type loginResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
	Email     string `json:"email"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid email")
		return
	}

	if req.Email == "" || !strings.Contains(req.Email, "@") {
		writeError(w, http.StatusBadRequest, "Invalid email")
		return
	}

	user := h.users.GetOrCreate(req.Email)
	token := h.sessions.Create(user.ID)

	h.logger.Info("user logged in", "email", user.Email, "user_id", user.ID)

	writeJSON(w, http.StatusOK, loginResponse{
		Success:   true,
		SessionID: token,
		UserID:    user.ID,
		Email:     user.Email,
	})
}

type stocksResponse struct {
	Stocks []string                    `json:"stocks"`
	Prices map[string]model.PricePoint `json:"prices"`
}

func (h *Handler) handleStocks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, stocksResponse{
		Stocks: h.prices.Symbols(),
		Prices: h.prices.Snapshot(),
	})
}

type subscribeRequest struct {
	SessionID string `json:"sessionId"`
	Stock     string `json:"stock"`
}

type subscriptionsResponse struct {
	Success       bool     `json:"success,omitempty"`
	Subscriptions []string `json:"subscriptions"`
}

func (h *Handler) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	h.mutateSubscriptions(w, r, h.users.Subscribe)
}

func (h *Handler) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	h.mutateSubscriptions(w, r, h.users.Unsubscribe)
}

func (h *Handler) mutateSubscriptions(
	w http.ResponseWriter,
	r *http.Request,
	op func(userID, symbol string) ([]string, error),
) {
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	userID, ok := h.sessions.Resolve(req.SessionID)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid session")
		return
	}

	subs, err := op(userID, req.Stock)
	if err != nil {
		h.writeDirectoryError(w, err, userID)
		return
	}

	writeJSON(w, http.StatusOK, subscriptionsResponse{
		Success:       true,
		Subscriptions: subs,
	})
}

func (h *Handler) handleSubscriptions(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("sessionId")

	userID, ok := h.sessions.Resolve(token)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid session")
		return
	}

	subs, err := h.users.SubscriptionsOf(userID)
	if err != nil {
		h.writeDirectoryError(w, err, userID)
		return
	}

	writeJSON(w, http.StatusOK, subscriptionsResponse{Subscriptions: subs})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"version": version.Version,
		"users":   h.users.Len(),
	})
}

// writeDirectoryError maps directory sentinels onto HTTP statuses. A
// session that resolves to a missing user is an internal-consistency
// fault, so it is logged loudly.
func (h *Handler) writeDirectoryError(w http.ResponseWriter, err error, userID string) {
	switch {
	case errors.Is(err, directory.ErrInvalidInstrument):
		writeError(w, http.StatusBadRequest, "Unsupported stock")
	case errors.Is(err, directory.ErrUnknownUser):
		h.logger.Error("session resolved to unknown user", "user_id", userID)
		writeError(w, http.StatusNotFound, "User not found")
	default:
		h.logger.Error("unexpected directory error", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

var _ http.Handler = (*Handler)(nil)

// Counted wraps the handler to count inbound requests.
func Counted(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.HTTPRequests.WithLabelValues(r.Method).Inc()
		h.ServeHTTP(w, r)
	})
}
