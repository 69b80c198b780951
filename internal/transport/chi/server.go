// Package chi implements the HTTP transport for the docqa API.
package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	logpkg "github.com/hackrx-cloud/docqa/internal/logger"
	healthuc "github.com/hackrx-cloud/docqa/internal/usecase/health"
	"github.com/hackrx-cloud/docqa/internal/usecase/qa"
	"github.com/hackrx-cloud/docqa/internal/version"
)

// Error codes returned in error responses.
type errorCode string

const (
	codeBadRequest    errorCode = "bad_request"
	codeUnauthorized  errorCode = "unauthorized"
	codeInternalError errorCode = "internal_error"
)

// errorResponse is the error payload shape.
type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

// Downloader fetches document bytes from a URL.
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// QAService runs the document question-answering pipeline.
type QAService interface {
	ProcessDocumentAndAnswer(ctx context.Context, raw []byte, questions []string) []string
	Summary() qa.DocumentSummary
	AIEnabled() bool
}

// HealthService aggregates component health checks.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}

// Server holds the HTTP handlers for the docqa API. Handlers log
// through the request-scoped logger placed in the context by the
// wide-event middleware.
type Server struct {
	downloader Downloader
	qa         QAService
	health     HealthService

	// The QA pipeline holds single-document state, so concurrent run
	// requests are serialized.
	runMu sync.Mutex
}

// NewServer creates an HTTP API server.
func NewServer(downloader Downloader, qaSvc QAService, health HealthService) *Server {
	return &Server{
		downloader: downloader,
		qa:         qaSvc,
		health:     health,
	}
}

// runRequest is the POST /hackrx/run request payload.
type runRequest struct {
	Documents string   `json:"documents"`
	Questions []string `json:"questions"`
}

// runResponse is the POST /hackrx/run response payload.
type runResponse struct {
	Answers []string `json:"answers"`
}

// RunQuestions handles POST /hackrx/run: download the referenced
// document, ingest it, and answer every question in order.
func (s *Server) RunQuestions(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.Documents == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "documents URL is required")
		return
	}
	if req.Questions == nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "questions list is required")
		return
	}

	s.runMu.Lock()
	defer s.runMu.Unlock()

	raw, err := s.downloader.Download(r.Context(), req.Documents)
	if err != nil {
		logpkg.FromContext(r.Context()).Error("document download failed",
			zap.String("url", req.Documents),
			zap.Error(err))
		writeError(w, http.StatusBadRequest, codeBadRequest,
			"Error processing request: "+err.Error())
		return
	}

	answers := s.qa.ProcessDocumentAndAnswer(r.Context(), raw, req.Questions)

	writeJSON(w, http.StatusOK, runResponse{Answers: answers})
}

// rootResponse is the GET / response payload.
type rootResponse struct {
	Service   string `json:"service"`
	Version   string `json:"version"`
	AIEnabled bool   `json:"ai_enabled"`
	Document  struct {
		Processed bool `json:"processed"`
		Chunks    int  `json:"chunks"`
	} `json:"document"`
}

// Root handles GET /: service metadata and document state.
func (s *Server) Root(w http.ResponseWriter, r *http.Request) {
	resp := rootResponse{
		Service:   "docqa",
		Version:   version.Version,
		AIEnabled: s.qa.AIEnabled(),
	}
	sum := s.qa.Summary()
	resp.Document.Processed = sum.Processed
	resp.Document.Chunks = sum.Chunks

	writeJSON(w, http.StatusOK, resp)
}

// healthResponse is the GET /health response payload.
type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
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

	writeJSON(w, httpStatus, healthResponse{
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

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}
