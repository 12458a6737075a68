package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.temporal.io/sdk/client"
	temporalsdk "go.temporal.io/sdk/temporal"

	"github.com/leowmjw/go-epitaxy-timeline/pkg/hcl"
	"github.com/leowmjw/go-epitaxy-timeline/pkg/ingest"
	"github.com/leowmjw/go-epitaxy-timeline/pkg/metrics"
	"github.com/leowmjw/go-epitaxy-timeline/pkg/structure"
	"github.com/leowmjw/go-epitaxy-timeline/pkg/temporal"
	"github.com/leowmjw/go-epitaxy-timeline/pkg/timeline"
)

// defaultMaxBodyBytes bounds uploaded logs and settings
const defaultMaxBodyBytes = 64 << 20

// contentTypeTSV selects tab-separated channel values
const contentTypeTSV = "text/tab-separated-values"

// Server represents the HTTP server for the growth-run service
type Server struct {
	logger         *slog.Logger
	temporalClient client.Client
	metrics        *metrics.Metrics
	addr           string
	taskQueue      string
	maxBodyBytes   int64
}

// NewServer creates a new HTTP server. m may be nil, /metrics then answers 404.
func NewServer(logger *slog.Logger, temporalClient client.Client, m *metrics.Metrics, addr string) *Server {
	return &Server{
		logger:         logger,
		temporalClient: temporalClient,
		metrics:        m,
		addr:           addr,
		taskQueue:      temporal.DefaultTaskQueue,
		maxBodyBytes:   defaultMaxBodyBytes,
	}
}

// WithTaskQueue sets the task queue workflows are started on
func (s *Server) WithTaskQueue(queue string) *Server {
	s.taskQueue = queue
	return s
}

// Handler returns the routed handler wrapped in the logging middleware
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /runs/{id}/settings", s.handleSettings)
	mux.HandleFunc("POST /runs/{id}/data", s.handleData)
	mux.HandleFunc("POST /runs/{id}/reconstruct", s.handleReconstruct)
	mux.HandleFunc("POST /runs/{id}/values", s.handleValues)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", s.metrics.Handler())

	return s.loggingMiddleware(mux)
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	s.logger.Info("Starting HTTP server", "addr", s.addr)

	errChan := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}

// Settings upload endpoint, HCL, JSON or YAML body
func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("id")
	if runID == "" {
		s.respondError(w, http.StatusBadRequest, "run ID is required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	contentType, err := hcl.DetectContentType(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	settings, err := ingest.DecodeSettings(body, contentType)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid settings: %v", err))
		return
	}

	s.logger.Info("Storing settings", "runID", runID, "channels", len(settings.Channels), "contentType", contentType)

	var result *temporal.IngestResult
	request := temporal.IngestRequest{RunID: runID, Settings: settings}
	if !s.runWorkflow(w, r, temporal.GenerateIngestWorkflowID(runID), temporal.IngestRunWorkflow, request, &result) {
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

type dataRequest struct {
	Values   string        `json:"values"`
	Shutters string        `json:"shutters,omitempty"`
	Location string        `json:"location,omitempty"`
	Window   ingest.Window `json:"window"`
}

// Log upload endpoint. A JSON body carries both logs, a CSV body is the
// values log alone. The time zone of the log timestamps comes from the JSON
// "location" field or the ?location= query parameter, UTC by default.
func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("id")
	if runID == "" {
		s.respondError(w, http.StatusBadRequest, "run ID is required")
		return
	}

	body := http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	var data dataRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "text/csv") {
		values, err := io.ReadAll(body)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "failed to read request body")
			return
		}
		data.Values = string(values)
	} else if err := json.NewDecoder(body).Decode(&data); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if strings.TrimSpace(data.Values) == "" {
		s.respondError(w, http.StatusBadRequest, "values log is required")
		return
	}
	if data.Location == "" {
		data.Location = r.URL.Query().Get("location")
	}
	if _, err := time.LoadLocation(data.Location); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown location %q", data.Location))
		return
	}

	s.logger.Info("Ingesting logs", "runID", runID, "valuesBytes", len(data.Values), "shutterBytes", len(data.Shutters))

	var result *temporal.IngestResult
	request := temporal.IngestRequest{
		RunID:    runID,
		Values:   data.Values,
		Shutters: data.Shutters,
		Location: data.Location,
		Window:   data.Window,
	}
	if !s.runWorkflow(w, r, temporal.GenerateIngestWorkflowID(runID), temporal.IngestRunWorkflow, request, &result) {
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

// Layer reconstruction endpoint, the options body is optional
func (s *Server) handleReconstruct(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("id")
	if runID == "" {
		s.respondError(w, http.StatusBadRequest, "run ID is required")
		return
	}

	var opts structure.Options
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil && !errors.Is(err, io.EOF) {
		s.respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.logger.Info("Reconstructing run", "runID", runID, "gridSteps", opts.GridSteps, "parallelism", opts.Parallelism)

	var result *temporal.ReconstructResult
	request := temporal.ReconstructRequest{RunID: runID, Options: opts}
	if !s.runWorkflow(w, r, temporal.GenerateReconstructWorkflowID(runID), temporal.ReconstructionWorkflow, request, &result) {
		return
	}

	s.logger.Info("Reconstruction completed", "runID", runID, "layers", len(result.Layers))
	s.respondJSON(w, http.StatusOK, result)
}

// Channel values endpoint. With ?format=tsv the values are written as
// "timestamp<TAB>value" lines, absent values left out.
func (s *Server) handleValues(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("id")
	if runID == "" {
		s.respondError(w, http.StatusBadRequest, "run ID is required")
		return
	}

	var request temporal.ValuesRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	request.RunID = runID

	var result *temporal.ValuesResult
	if !s.runWorkflow(w, r, temporal.GenerateValuesWorkflowID(runID), temporal.ChannelValuesWorkflow, request, &result) {
		return
	}

	if r.URL.Query().Get("format") != "tsv" {
		s.respondJSON(w, http.StatusOK, result)
		return
	}
	series := result.Nodes
	if len(result.Points) > 0 {
		series = make(timeline.Series, 0, len(result.Points))
		for _, p := range result.Points {
			if p.Value != nil {
				series = append(series, timeline.Sample{Timestamp: p.Timestamp, Value: *p.Value})
			}
		}
	}
	w.Header().Set("Content-Type", contentTypeTSV)
	w.WriteHeader(http.StatusOK)
	if err := ingest.WriteSeries(w, series); err != nil {
		s.logger.Error("Failed to write channel values", "error", err)
	}
}

// Health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// runWorkflow executes a workflow and waits for its result. On failure it
// writes the error response and returns false.
func (s *Server) runWorkflow(w http.ResponseWriter, r *http.Request, workflowID string, workflow interface{}, request interface{}, result interface{}) bool {
	workflowRun, err := s.temporalClient.ExecuteWorkflow(
		r.Context(),
		client.StartWorkflowOptions{
			ID:        workflowID,
			TaskQueue: s.taskQueue,
		},
		workflow,
		request,
	)
	if err != nil {
		s.logger.Error("Failed to start workflow", "workflowID", workflowID, "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to start workflow")
		return false
	}

	if err := workflowRun.Get(r.Context(), result); err != nil {
		s.logger.Error("Workflow failed", "workflowID", workflowID, "error", err)
		s.respondError(w, statusFor(err), err.Error())
		return false
	}
	return true
}

// statusFor maps the application error types raised by the activities to
// HTTP status codes
func statusFor(err error) int {
	for e := err; e != nil; e = errors.Unwrap(e) {
		appErr, ok := e.(*temporalsdk.ApplicationError)
		if !ok {
			continue
		}
		switch appErr.Type() {
		case temporal.RunNotFoundErrorType:
			return http.StatusNotFound
		case temporal.InvalidConfigurationErrorType:
			return http.StatusUnprocessableEntity
		}
	}
	return http.StatusInternalServerError
}

// Middleware for request logging
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		s.logger.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapper.statusCode,
			"duration", time.Since(start),
			"user_agent", r.UserAgent(),
		)
	})
}

// Response helpers
func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode JSON response", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.logger.Warn("HTTP error response", "status", status, "message", message)
	s.respondJSON(w, status, map[string]string{"error": message})
}

// responseWrapper wraps http.ResponseWriter to capture status code
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
