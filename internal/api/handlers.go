package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"epicdash/internal/chat"
	"epicdash/internal/dashboard"
	"epicdash/internal/storage"
	"epicdash/internal/timeline"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
)

// Views is what the HTTP layer needs from the dashboard
type Views interface {
	Streamers(ctx context.Context) ([]string, error)
	StreamerView(ctx context.Context, player string) (*dashboard.StreamerView, error)
	MatchView(ctx context.Context, player, matchID, eventType string) (*dashboard.MatchView, error)
	SummonerView(ctx context.Context, player, matchID, summoner string, types []string) (*dashboard.SummonerView, error)
	ChatView(ctx context.Context, player, matchID, summoner string, types []string) (*dashboard.ChatView, error)
	ChatWindow(ctx context.Context, player, matchID string, start, end time.Time) ([]chat.Message, error)
}

// Handler serves the dashboard views over HTTP and a websocket
type Handler struct {
	views              Views
	corsAllowedOrigins []string
	rateLimiter        *apiRateLimiter
	pingPeriod         time.Duration
}

// NewHandler creates the API handler. A non-positive rate disables rate limiting.
func NewHandler(views Views, corsAllowedOrigins []string, rateLimitRequestsPerSec float64, rateLimitBurst int) *Handler {
	if len(corsAllowedOrigins) == 0 {
		corsAllowedOrigins = []string{"*"}
	}
	return &Handler{
		views:              views,
		corsAllowedOrigins: corsAllowedOrigins,
		rateLimiter:        newAPIRateLimiter(rateLimitRequestsPerSec, rateLimitBurst),
		pingPeriod:         wsPingPeriod,
	}
}

// Router builds the chi router with middleware and routes
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if h.rateLimiter != nil {
		r.Use(h.rateLimiter.Middleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", h.healthz)
	r.Get("/ws", h.serveWs)
	r.Route("/api/streamers", func(r chi.Router) {
		r.Get("/", h.listStreamers)
		r.Route("/{player}", func(r chi.Router) {
			r.Get("/", h.getStreamer)
			r.Route("/matches/{matchID}", func(r chi.Router) {
				r.Get("/", h.getMatch)
				r.Get("/chat", h.getChatWindow)
				r.Get("/summoners/{summoner}", h.getSummoner)
				r.Get("/summoners/{summoner}/chat", h.getSummonerChat)
			})
		})
	})

	return r
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) listStreamers(w http.ResponseWriter, r *http.Request) {
	players, err := h.views.Streamers(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"streamers": players})
}

func (h *Handler) getStreamer(w http.ResponseWriter, r *http.Request) {
	view, err := h.views.StreamerView(r.Context(), chi.URLParam(r, "player"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) getMatch(w http.ResponseWriter, r *http.Request) {
	view, err := h.views.MatchView(r.Context(), chi.URLParam(r, "player"), chi.URLParam(r, "matchID"),
		strings.TrimSpace(r.URL.Query().Get("eventType")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) getSummoner(w http.ResponseWriter, r *http.Request) {
	view, err := h.views.SummonerView(r.Context(), chi.URLParam(r, "player"), chi.URLParam(r, "matchID"),
		chi.URLParam(r, "summoner"), parseTypes(r.URL.Query().Get("types")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) getSummonerChat(w http.ResponseWriter, r *http.Request) {
	view, err := h.views.ChatView(r.Context(), chi.URLParam(r, "player"), chi.URLParam(r, "matchID"),
		chi.URLParam(r, "summoner"), parseTypes(r.URL.Query().Get("types")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) getChatWindow(w http.ResponseWriter, r *http.Request) {
	start, err := parseTime(r.URL.Query().Get("start"))
	if err != nil || start.IsZero() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "start must be an RFC3339 timestamp"})
		return
	}
	end, err := parseTime(r.URL.Query().Get("end"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "end must be an RFC3339 timestamp"})
		return
	}

	messages, err := h.views.ChatWindow(r.Context(), chi.URLParam(r, "player"), chi.URLParam(r, "matchID"), start, end)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if messages == nil {
		messages = []chat.Message{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"messages": messages})
}

// parseTypes splits a comma separated event type list
func parseTypes(raw string) []string {
	var types []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			types = append(types, t)
		}
	}
	return types
}

func parseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, raw)
}

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadSelection), errors.Is(err, storage.ErrInvalidKey):
		return http.StatusBadRequest
	case errors.Is(err, timeline.ErrMalformedInput):
		return http.StatusUnprocessableEntity
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, dashboard.ErrUnknownSummoner):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	entry := log.WithFields(log.Fields{
		"path":      r.URL.Path,
		"status":    status,
		"requestId": middleware.GetReqID(r.Context()),
	})
	if status >= http.StatusInternalServerError {
		entry.Errorf("[API] %v", err)
	} else {
		entry.Warnf("[API] %v", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
