package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/pastyhq/pasty/internal/config"
	"github.com/pastyhq/pasty/internal/ident"
	"github.com/pastyhq/pasty/internal/store"
)

// Service is the slice of the core the HTTP boundary calls into.
type Service interface {
	Save(ctx context.Context, content, origin string, now time.Time) (string, error)
	Retrieve(ctx context.Context, id string, now time.Time) (string, error)
	CurrentCount(ctx context.Context) (int, error)
	Window() time.Duration
}

// Handler is the HTTP handler for the JSON API. It enforces the boundary
// concerns — content length, rate limiting, client IP extraction — and maps
// core errors to HTTP responses.
type Handler struct {
	svc    Service
	limits *config.LiveLimits
	rl     *rateLimiter
	mux    *http.ServeMux
	now    func() time.Time // injectable for deterministic tests
}

// New creates a Handler wired to the given service and registers all routes.
func New(svc Service, limits *config.LiveLimits) *Handler {
	h := &Handler{
		svc:    svc,
		limits: limits,
		rl:     newRateLimiter(),
		mux:    http.NewServeMux(),
		now:    time.Now,
	}

	h.mux.HandleFunc("/api/v1/texts", h.texts)
	h.mux.HandleFunc("/api/v1/texts/", h.getText) // subtree — extracts {id}
	h.mux.HandleFunc("/api/v1/count", h.count)
	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/ping", h.ping)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// texts handles POST /api/v1/texts — save a new text.
func (h *Handler) texts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	ip := clientIP(r)
	limits := h.limits.Get()
	if !h.rl.allow(ip, h.now(), limits.RatePerMinute) {
		jsonErr(w, http.StatusTooManyRequests, "Rate limit exceeded")
		return
	}

	var req SaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid request body")
		return
	}
	// Length is enforced here, at the boundary — the store never sees
	// over-long content.
	if len(req.Content) > limits.MaxContentLength {
		jsonErr(w, http.StatusRequestEntityTooLarge, "Text exceeds allowed length.")
		return
	}

	now := h.now().UTC()
	id, err := h.svc.Save(r.Context(), req.Content, ip, now)
	if errors.Is(err, ident.ErrExhausted) {
		jsonErr(w, http.StatusServiceUnavailable, "Could not allocate an id, please retry.")
		return
	}
	if err != nil {
		jsonErr(w, http.StatusInternalServerError, "An error occurred. Please try again.")
		return
	}

	jsonResp(w, http.StatusCreated, SaveResponse{
		ID:        id,
		ExpiresAt: now.Add(h.svc.Window()).Format(time.RFC3339),
	})
}

// getText handles GET /api/v1/texts/{id} — retrieve a text by id.
func (h *Handler) getText(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/texts/")
	if id == "" {
		jsonErr(w, http.StatusBadRequest, "missing text id")
		return
	}

	content, err := h.svc.Retrieve(r.Context(), id, h.now().UTC())
	if errors.Is(err, store.ErrNotFound) {
		jsonErr(w, http.StatusNotFound, "ID not found")
		return
	}
	if err != nil {
		jsonErr(w, http.StatusInternalServerError, "An error occurred. Please try again.")
		return
	}

	jsonResp(w, http.StatusOK, TextResponse{ID: id, Content: content})
}

// count handles GET /api/v1/count — polling-style count queries.
func (h *Handler) count(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	n, err := h.svc.CurrentCount(r.Context())
	if err != nil {
		jsonErr(w, http.StatusInternalServerError, "count unavailable")
		return
	}
	jsonResp(w, http.StatusOK, CountResponse{Count: n})
}

// health handles GET /api/v1/health.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	resp := HealthResponse{
		Status:          "ok",
		ExpirationHours: int(h.svc.Window() / time.Hour),
	}
	if n, err := h.svc.CurrentCount(r.Context()); err == nil {
		resp.Texts = n
	} else {
		resp.Status = "degraded"
	}
	jsonResp(w, http.StatusOK, resp)
}

// ping handles GET /ping — a rate-limited liveness probe.
func (h *Handler) ping(w http.ResponseWriter, r *http.Request) {
	if !h.rl.allow(clientIP(r), h.now(), h.limits.Get().RatePerMinute) {
		jsonErr(w, http.StatusTooManyRequests, "Rate limit exceeded")
		return
	}
	jsonResp(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
