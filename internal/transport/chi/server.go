package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/gamedex/internal/domain"
	healthuc "github.com/kailas-cloud/gamedex/internal/usecase/health"
	loaderuc "github.com/kailas-cloud/gamedex/internal/usecase/loader"
	queryuc "github.com/kailas-cloud/gamedex/internal/usecase/query"
	searchuc "github.com/kailas-cloud/gamedex/internal/usecase/search"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server is the HTTP API over the search engine.
type Server struct {
	queries       *queryuc.Service
	search        *searchuc.Service
	loader        *loaderuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	queries *queryuc.Service,
	search *searchuc.Service,
	loader *loaderuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		queries: queries,
		search:  search,
		loader:  loader,
		health:  health,
		logger:  logger,
	}
	s.errorHandlers = []errorHandler{
		validationErrorHandler,
		sentinelHandler(domain.ErrGameNotFound, http.StatusNotFound, CodeGameNotFound),
		sentinelHandler(domain.ErrNotLoaded, http.StatusServiceUnavailable, CodeNotLoaded),
		sentinelHandler(domain.ErrUnavailable, http.StatusServiceUnavailable, CodeUnavailable),
		sentinelHandler(domain.ErrEmptyCorpus, http.StatusUnprocessableEntity, CodeLoadFailed),
		sentinelHandler(domain.ErrDuplicateID, http.StatusUnprocessableEntity, CodeLoadFailed),
		sentinelHandler(domain.ErrDimensionMismatch, http.StatusUnprocessableEntity, CodeLoadFailed),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeEmbeddingProviderError),
	}
	return s
}

// RegisterRoutes mounts all API routes on the given router.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Get("/api/v1/search", s.SearchGames)
	r.Get("/api/v1/games/{id}", s.GetGame)
	r.Get("/api/v1/suggest", s.Suggest)
	r.Post("/api/v1/reload", s.ReloadCorpus)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// SearchGames handles GET /api/v1/search.
func (s *Server) SearchGames(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()

	limit, err := intParam(values.Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "limit must be an integer")
		return
	}
	offset, err := intParam(values.Get("offset"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "offset must be an integer")
		return
	}
	filters, err := filtersFromQuery(values)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}

	q, err := s.queries.Process(r.Context(), values.Get("q"), filters, limit, offset)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp, err := s.search.Search(r.Context(), q)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]SearchResultItem, 0, len(resp.Results))
	for _, ranked := range resp.Results {
		g, err := s.search.Game(r.Context(), ranked.ID())
		if err != nil {
			// The snapshot swapped mid-request; the hit is gone.
			continue
		}
		items = append(items, resultToItem(ranked, g))
	}

	writeJSON(w, http.StatusOK, SearchResponse{
		Items:    items,
		Total:    resp.Total,
		Limit:    q.Limit(),
		Offset:   q.Offset(),
		Degraded: resp.Degraded,
	})
}

// GetGame handles GET /api/v1/games/{id}.
func (s *Server) GetGame(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "game id must be an integer")
		return
	}

	g, err := s.search.Game(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, gameToSummary(g))
}

// Suggest handles GET /api/v1/suggest.
func (s *Server) Suggest(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	limit, err := intParam(values.Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "limit must be an integer")
		return
	}

	titles, err := s.search.Suggest(r.Context(), values.Get("q"), limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if titles == nil {
		titles = []string{}
	}

	writeJSON(w, http.StatusOK, SuggestResponse{Suggestions: titles})
}

// ReloadCorpus handles POST /api/v1/reload.
func (s *Server) ReloadCorpus(w http.ResponseWriter, r *http.Request) {
	stats, err := s.loader.Reload(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ReloadResponse{
		Games:    stats.Games,
		Embedded: stats.Embedded,
		TookMs:   stats.Took.Milliseconds(),
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
		Games:  report.Games,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrGameNotFound,
		domain.ErrNotLoaded,
		domain.ErrUnavailable,
		domain.ErrEmptyCorpus,
		domain.ErrDuplicateID,
		domain.ErrDimensionMismatch,
		domain.ErrEmbeddingProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// validationErrorHandler maps query validation failures to 400, carrying the
// risk score when the classifier produced one. The validation reason is built
// by the query processor and never contains the raw query text.
func validationErrorHandler(w http.ResponseWriter, err error, _ string) bool {
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		return false
	}
	code := CodeValidationFailed
	if ve.RiskScore > 0 {
		code = CodeQueryRejected
	}
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Code:      code,
		Message:   ve.Reason,
		RiskScore: ve.RiskScore,
	})
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
