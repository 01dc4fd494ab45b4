package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/internal/history"
	apperrors "github.com/Adithya-Monish-Kumar-K/comment-sentiment/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/pkg/logger"
)

const maxBodyBytes = 64 << 10

// HistoryLister reads recently stored analyses.
type HistoryLister interface {
	Recent(ctx context.Context, limit int) ([]history.Record, error)
}

type analyzer interface {
	Analyze(ctx context.Context, rawURL string) (Result, error)
}

type Handler struct {
	analyzer analyzer
	history  HistoryLister
	logger   *slog.Logger
}

// NewHandler builds the HTTP surface. history may be nil when PostgreSQL is
// not configured.
func NewHandler(a analyzer, h HistoryLister) *Handler {
	return &Handler{
		analyzer: a,
		history:  h,
		logger:   slog.Default().With("component", "analysis-handler"),
	}
}

type analyzeRequest struct {
	URL string `json:"url"`
}

// Register mounts the routes on mux. analyzeMW wraps only POST /analyze,
// which is where the YouTube quota is spent.
func (h *Handler) Register(mux *http.ServeMux, analyzeMW ...func(http.Handler) http.Handler) {
	var analyze http.Handler = http.HandlerFunc(h.Analyze)
	for i := len(analyzeMW) - 1; i >= 0; i-- {
		analyze = analyzeMW[i](analyze)
	}
	mux.HandleFunc("GET /{$}", h.Root)
	mux.Handle("POST /analyze", analyze)
	mux.HandleFunc("GET /api/v1/analyses", h.Recent)
}

func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "Sentiment Analyzer API is running."})
}

func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req analyzeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" {
		h.writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	result, err := h.analyzer.Analyze(r.Context(), req.URL)
	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		if status >= http.StatusInternalServerError {
			log.Error("analysis failed", "url", req.URL, "error", err)
		} else {
			log.Info("analysis rejected", "url", req.URL, "error", err)
		}
		h.writeError(w, status, publicMessage(err))
		return
	}

	log.Info("analysis completed",
		"video_id", result.VideoID,
		"positive", result.Positive,
		"negative", result.Negative,
		"cached", result.Cached,
	)
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) Recent(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		h.writeError(w, http.StatusServiceUnavailable, "analysis history is not enabled")
		return
	}
	limit := history.DefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	records, err := h.history.Recent(r.Context(), limit)
	if err != nil {
		logger.FromContext(r.Context()).Error("listing analyses failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to list analyses")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"analyses": records,
		"count":    len(records),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

var publicErrors = []error{
	apperrors.ErrInvalidVideoURL,
	apperrors.ErrInvalidInput,
	apperrors.ErrCommentsDisabled,
	apperrors.ErrVideoNotFound,
	apperrors.ErrRateLimited,
	apperrors.ErrUpstream,
	apperrors.ErrModelUnavailable,
	apperrors.ErrTimeout,
	apperrors.ErrInference,
}

// publicMessage hides wrapped library errors behind the sentinel text.
func publicMessage(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	for _, sentinel := range publicErrors {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return apperrors.ErrInternal.Error()
}
