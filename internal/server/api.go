package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/semlayer/semlayer/internal/bridge"
	"github.com/semlayer/semlayer/internal/store"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// SyncResponse reports the outcome of POST /sync
type SyncResponse struct {
	Tables        int       `json:"tables"`
	Relationships int       `json:"relationships"`
	SyncedAt      time.Time `json:"synced_at"`
	Published     bool      `json:"published"`
}

// APIOption configures an API
type APIOption func(*API)

// WithPublisher publishes the layer after every sync
func WithPublisher(s store.Store) APIOption {
	return func(a *API) {
		a.publisher = s
	}
}

// WithLogger sets the request and sync logger
func WithLogger(logger *zap.Logger) APIOption {
	return func(a *API) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// API serves a bridge's layer. Syncs take the write lock; reads serialize under the read lock.
type API struct {
	mu        sync.RWMutex
	bridge    *bridge.Bridge
	publisher store.Store
	logger    *zap.Logger
	syncedAt  time.Time

	// layer JSON rendered at the last sync, served to GET /layer
	body []byte
	etag string
}

// NewAPI creates an API over b. The layer is served as-is until the first sync.
func NewAPI(b *bridge.Bridge, opts ...APIOption) *API {
	a := &API{
		bridge: b,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Routes returns the API's router
func (a *API) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(a.logRequests)

	r.Get("/healthz", a.health)
	r.Route("/layer", func(r chi.Router) {
		r.Get("/", a.getLayer)
		r.Get("/tables/{name}", a.getTable)
		r.Get("/glossary", a.getGlossary)
	})
	r.Post("/sync", a.sync)

	return r
}

func (a *API) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		a.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (a *API) health(w http.ResponseWriter, _ *http.Request) {
	a.mu.RLock()
	syncedAt := a.syncedAt
	a.mu.RUnlock()

	body := map[string]any{"status": "ok"}
	if !syncedAt.IsZero() {
		body["synced_at"] = syncedAt
	}
	renderJSON(w, http.StatusOK, body)
}

func (a *API) getLayer(w http.ResponseWriter, r *http.Request) {
	a.mu.RLock()
	body, etag, syncedAt := a.body, a.etag, a.syncedAt
	a.mu.RUnlock()

	if body == nil {
		// not synced yet
		a.mu.RLock()
		data, err := a.bridge.SemanticLayer().ToJSON()
		a.mu.RUnlock()
		if err != nil {
			renderError(w, http.StatusInternalServerError, err)
			return
		}
		body = []byte(data + "\n")
		etag = layerETag(body)
	}

	w.Header().Set("ETag", etag)
	if !syncedAt.IsZero() {
		w.Header().Set("Last-Modified", syncedAt.UTC().Format(http.TimeFormat))
	}
	if notModified(r, etag, syncedAt) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func (a *API) getTable(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	a.mu.RLock()
	tables, _ := a.bridge.SemanticLayer().ToMap()["tables"].(map[string]any)
	table, ok := tables[name]
	a.mu.RUnlock()

	if !ok {
		renderError(w, http.StatusNotFound, fmt.Errorf("table %q not found", name))
		return
	}
	renderJSON(w, http.StatusOK, table)
}

func (a *API) getGlossary(w http.ResponseWriter, _ *http.Request) {
	a.mu.RLock()
	glossary := make(map[string]string, len(a.bridge.SemanticLayer().ApplicationGlossary))
	for term, definition := range a.bridge.SemanticLayer().ApplicationGlossary {
		glossary[term] = definition
	}
	a.mu.RUnlock()

	renderJSON(w, http.StatusOK, glossary)
}

func (a *API) sync(w http.ResponseWriter, r *http.Request) {
	resp, err := a.Resync(r.Context())
	if err != nil {
		renderError(w, http.StatusBadGateway, err)
		return
	}
	renderJSON(w, http.StatusOK, resp)
}

// Resync rebuilds the layer and publishes it when a publisher is set
func (a *API) Resync(ctx context.Context) (SyncResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.syncLocked(ctx)
}

// Replace swaps in a new bridge and syncs it. The new bridge's glossary replaces the old one.
func (a *API) Replace(ctx context.Context, b *bridge.Bridge) (SyncResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.bridge = b
	return a.syncLocked(ctx)
}

func (a *API) syncLocked(ctx context.Context) (SyncResponse, error) {
	layer := a.bridge.Sync()
	a.syncedAt = time.Now().UTC()

	data, err := layer.ToJSON()
	if err != nil {
		return SyncResponse{}, err
	}
	a.body = []byte(data + "\n")
	a.etag = layerETag(a.body)

	resp := SyncResponse{
		Tables:        len(layer.Tables),
		Relationships: len(layer.Relationships),
		SyncedAt:      a.syncedAt,
	}

	if a.publisher != nil {
		if err := a.publisher.Publish(ctx, layer); err != nil {
			a.logger.Error("failed to publish semantic layer", zap.Error(err))
			return resp, err
		}
		resp.Published = true
	}

	a.logger.Info("sync completed",
		zap.Int("tables", resp.Tables),
		zap.Int("relationships", resp.Relationships),
		zap.Bool("published", resp.Published),
	)
	return resp, nil
}

func renderJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func renderError(w http.ResponseWriter, status int, err error) {
	renderJSON(w, status, &ErrorResponse{
		Error:   "error",
		Message: err.Error(),
		Code:    errorCodeFromStatus(status),
	})
}

func errorCodeFromStatus(status int) string {
	switch status {
	case http.StatusNotFound:
		return "not_found"
	case http.StatusBadGateway:
		return "publish_failed"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return ""
	}
}
