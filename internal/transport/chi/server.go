package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/corvus-cloud/vecgate/internal/domain"
	"github.com/corvus-cloud/vecgate/internal/domain/search/mode"
	"github.com/corvus-cloud/vecgate/internal/domain/search/request"
	"github.com/corvus-cloud/vecgate/internal/domain/search/result"
	healthuc "github.com/corvus-cloud/vecgate/internal/usecase/health"
	ingestuc "github.com/corvus-cloud/vecgate/internal/usecase/ingest"
	searchuc "github.com/corvus-cloud/vecgate/internal/usecase/search"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the search and ingest services over HTTP.
type Server struct {
	search        *searchuc.Service
	ingest        *ingestuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	search *searchuc.Service,
	ingest *ingestuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search: search,
		ingest: ingest,
		health: health,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrFullTextNotSupported, http.StatusNotImplemented, CodeFullTextNotSupported),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeEmbeddingProvider),
		sentinelHandler(domain.ErrInvalidFieldName, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrUnsupportedOperator, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrOperatorArity, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrEmptyConjunction, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrUnsupportedValueType, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrMissingRankFilter, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrMissingEmbedding, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrInvalidRankTerm, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrInvalidLimit, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrEmptyBatch, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrInvalidBatchSize, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrNoIDs, http.StatusBadRequest, CodeValidationFailed),
	}
	return s
}

// Routes registers the API routes on a router. Middleware is composed at the
// composition root.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/search", s.SearchDocuments)
		r.Post("/documents", s.IngestDocuments)
		r.Get("/documents", s.GetDocuments)
		r.Delete("/documents", s.DeleteDocuments)
	})
}

// SearchDocuments handles POST /api/v1/search.
func (s *Server) SearchDocuments(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	params, err := searchParamsFromDTO(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}

	if req.Query == "" && (params.Mode.NeedsEmbedding() || req.MMR != nil) {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "query is required")
		return
	}

	var results []result.Result
	if req.MMR != nil {
		results, err = s.search.SearchMMR(r.Context(), params, req.MMR.FetchK, mmrLambda(req.MMR))
	} else {
		results, err = s.search.Search(r.Context(), params)
	}
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]SearchResultItem, len(results))
	for i := range results {
		items[i] = searchResultToDTO(&results[i])
	}

	writeJSON(w, http.StatusOK, SearchResponse{Items: items, Total: len(items)})
}

// IngestDocuments handles POST /api/v1/documents.
func (s *Server) IngestDocuments(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	ids, err := s.ingest.Ingest(r.Context(), req.Texts, req.Metadatas, req.IDs)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, IngestResponse{IDs: ids})
}

// GetDocuments handles GET /api/v1/documents?ids=a&ids=b.
func (s *Server) GetDocuments(w http.ResponseWriter, r *http.Request) {
	ids := r.URL.Query()["ids"]

	results, err := s.ingest.Get(r.Context(), ids)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]SearchResultItem, len(results))
	for i := range results {
		items[i] = searchResultToDTO(&results[i])
	}

	writeJSON(w, http.StatusOK, DocumentsResponse{Items: items, Total: len(items)})
}

// DeleteDocuments handles DELETE /api/v1/documents.
func (s *Server) DeleteDocuments(w http.ResponseWriter, r *http.Request) {
	var req DeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	deleted, err := s.ingest.Delete(r.Context(), req.IDs)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, DeleteResponse{Deleted: deleted})
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
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidFieldName,
		domain.ErrUnsupportedOperator,
		domain.ErrOperatorArity,
		domain.ErrEmptyConjunction,
		domain.ErrUnsupportedValueType,
		domain.ErrMissingRankFilter,
		domain.ErrMissingEmbedding,
		domain.ErrInvalidLimit,
		domain.ErrInvalidRankTerm,
		domain.ErrFullTextNotSupported,
		domain.ErrDimensionMismatch,
		domain.ErrEmptyBatch,
		domain.ErrInvalidBatchSize,
		domain.ErrNoIDs,
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
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
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

func searchParamsFromDTO(req SearchRequest) (searchuc.Params, error) {
	m := mode.Vector
	if req.Mode != "" {
		m = mode.Mode(req.Mode)
		if !m.IsValid() {
			return searchuc.Params{}, errors.New("invalid search mode: " + req.Mode)
		}
	}

	p := searchuc.Params{
		Query:         req.Query,
		Mode:          m,
		K:             req.K,
		Filters:       req.Filters,
		WithEmbedding: req.WithEmbedding,
	}

	for _, pr := range req.Projections {
		p.Projections = append(p.Projections, request.Projection{Field: pr.Field, Alias: pr.Alias})
	}
	for _, rf := range req.RankFilters {
		p.RankFilters = append(p.RankFilters, request.RankFilter{SearchField: rf.SearchField, SearchText: rf.SearchText})
	}

	if req.Offset != nil || req.Limit != nil {
		if req.Offset == nil || req.Limit == nil {
			return searchuc.Params{}, errors.New("offset and limit must be set together")
		}
		p.Offset = *req.Offset
		p.Limit = *req.Limit
		p.HasPage = true
	}

	return p, nil
}

func mmrLambda(m *MMRParams) float64 {
	if m.Lambda <= 0 {
		return searchuc.DefaultLambda
	}
	return m.Lambda
}

func searchResultToDTO(r *result.Result) SearchResultItem {
	return SearchResultItem{
		ID:        r.ID(),
		Content:   r.Content(),
		Metadata:  r.Metadata(),
		Score:     r.Score(),
		Embedding: r.Vector(),
	}
}
