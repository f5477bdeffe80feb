package server

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/iwvelando/sip-forecast/internal/config"
	"github.com/iwvelando/sip-forecast/internal/forecast"
	"github.com/iwvelando/sip-forecast/internal/metrics"
	"github.com/iwvelando/sip-forecast/internal/optimizer"
	"github.com/iwvelando/sip-forecast/internal/pipeline"
	"github.com/iwvelando/sip-forecast/internal/site"
	"github.com/iwvelando/sip-forecast/pkg/controls"
	"github.com/iwvelando/sip-forecast/pkg/format"
	"github.com/iwvelando/sip-forecast/pkg/output"
	"github.com/iwvelando/sip-forecast/pkg/urlstate"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed static/* templates/*
var assets embed.FS

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

type handler struct {
	logger        *zap.Logger
	maxUploadSize int64
	version       string
	publicURL     string
	grouping      string
	controls      controls.Set
	solver        *optimizer.Solver
	pipeline      *pipeline.Pipeline
	metrics       *metrics.Metrics
	templates     *template.Template
	faq           []site.FAQEntry
	now           func() time.Time
}

// Option customises the handler.
type Option func(*handler)

// WithMetrics records requests and calculations on m instead of a private registry.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *handler) {
		if m != nil {
			h.metrics = m
		}
	}
}

// WithControls replaces the calculator control ranges.
func WithControls(set controls.Set) Option {
	return func(h *handler) {
		h.controls = set
	}
}

// WithSolver replaces the goal solver.
func WithSolver(solver *optimizer.Solver) Option {
	return func(h *handler) {
		if solver != nil {
			h.solver = solver
		}
	}
}

// WithClock sets the time source used for the footer.
func WithClock(now func() time.Time) Option {
	return func(h *handler) {
		if now != nil {
			h.now = now
		}
	}
}

// NewHandler constructs the HTTP handler that serves the calculator pages and API.
func NewHandler(logger *zap.Logger, cfg *Config, version string, opts ...Option) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}

	trimmedVersion := strings.TrimSpace(version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	h := &handler{
		logger:        logger,
		maxUploadSize: cfg.UploadSizeBytes(),
		version:       trimmedVersion,
		publicURL:     strings.TrimRight(cfg.PublicURL, "/"),
		grouping:      format.ParseGrouping(cfg.Grouping),
		controls:      controls.Defaults(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.metrics == nil {
		h.metrics = metrics.New()
	}
	if h.solver == nil {
		h.solver = optimizer.NewSolver(logger)
	}
	h.pipeline = pipeline.New(logger, h.controls, h.solver, pipeline.WithObserver(h.metrics.Observer()))

	tmpl, err := template.ParseFS(assets, "templates/*.html")
	if err != nil {
		panic(fmt.Sprintf("failed to parse embedded templates: %v", err))
	}
	h.templates = tmpl

	faq, err := site.FAQ()
	if err != nil {
		panic(fmt.Sprintf("failed to render embedded FAQ: %v", err))
	}
	h.faq = faq

	mux := http.NewServeMux()

	// Calculator, guide and legal pages
	mux.HandleFunc("/", h.handlePage)

	// JSON projection for the page's debounced recalculation
	mux.HandleFunc("/api/projection", h.handleProjection)

	// Scenario file upload
	mux.HandleFunc("/api/forecast", h.handleForecast)

	// Downloads
	mux.HandleFunc("/api/report.pdf", h.handleReport)
	mux.HandleFunc("/api/scenario.yaml", h.handleScenarioExport)

	// Version endpoint for UI metadata
	mux.HandleFunc("/api/version", h.handleVersion)

	mux.Handle("/metrics", h.metrics.Handler())
	mux.Handle("/static/", http.FileServer(http.FS(assets)))

	return h.withRequestID(mux)
}

type requestLoggerKey struct{}

// statusRecorder remembers the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (h *handler) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		logger := h.logger.With(zap.String("requestID", id))
		ctx := context.WithValue(r.Context(), requestLoggerKey{}, logger)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		route := routeLabel(r.URL.Path)
		h.metrics.CountRequest(route, rec.status)
		logger.Debug("request served",
			zap.String("op", "server.withRequestID"),
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// routeLabel bounds the metric label set to the known routes.
func routeLabel(path string) string {
	switch {
	case strings.HasPrefix(path, "/static/"):
		return "/static"
	case strings.HasPrefix(path, "/api/"), path == "/metrics":
		return path
	}
	if _, ok := pageTemplates[site.NormalizePath(path)]; ok {
		return site.NormalizePath(path)
	}
	return "other"
}

func (h *handler) requestLogger(r *http.Request) *zap.Logger {
	if logger, ok := r.Context().Value(requestLoggerKey{}).(*zap.Logger); ok {
		return logger
	}
	return h.logger
}

// groupingFor picks the digit grouping for a request: an explicit grouping
// parameter, then the Accept-Language header, then the configured default.
func (h *handler) groupingFor(r *http.Request) string {
	if explicit := r.URL.Query().Get("grouping"); explicit != "" {
		return format.ParseGrouping(explicit)
	}
	if accept := r.Header.Get("Accept-Language"); accept != "" {
		return format.ParseGrouping(accept)
	}
	return h.grouping
}

// pageURL is the absolute URL of the calculator for r, used for share links.
func (h *handler) pageURL(r *http.Request, path string) string {
	if h.publicURL != "" {
		return h.publicURL + path
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if forwarded := r.Header.Get("X-Forwarded-Proto"); forwarded == "http" || forwarded == "https" {
		scheme = forwarded
	}
	return scheme + "://" + r.Host + path
}

// decodeState reads calculator state from the request query.
func (h *handler) decodeState(r *http.Request) urlstate.State {
	return urlstate.Decode(r.URL.Query(), h.controls, urlstate.Default(h.controls))
}

// compute runs the recalculation pipeline for state and counts it.
func (h *handler) compute(r *http.Request, state urlstate.State) (pipeline.Snapshot, error) {
	snap, err := h.pipeline.Run(r.Context(), state)
	if err != nil {
		return snap, err
	}
	h.metrics.CountCalculation(calculationKind(state))
	return snap, nil
}

func calculationKind(state urlstate.State) string {
	if !state.IsGoal() {
		return metrics.KindProjection
	}
	if state.GoalSubMode == urlstate.GoalTime {
		return metrics.KindGoalTime
	}
	return metrics.KindGoalSIP
}

type forecastResponse struct {
	Scenarios  []string               `json:"scenarios"`
	Results    []forecast.Forecast    `json:"results"`
	CSV        string                 `json:"csv"`
	Warnings   []string               `json:"warnings,omitempty"`
	Duration   string                 `json:"duration"`
	Config     map[string]interface{} `json:"config,omitempty"`
	ConfigYAML string                 `json:"configYaml,omitempty"`
}

func (h *handler) handleForecast(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleForecast"
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	if h.maxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	}
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondErrorWithOp(w, r, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds limit of %d bytes", h.maxUploadSize), op)
			return
		}
		h.respondErrorWithOp(w, r, http.StatusBadRequest, fmt.Sprintf("failed to parse upload: %v", err), op)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, "missing configuration file", op)
		return
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			h.requestLogger(r).Warn("failed to close uploaded file",
				zap.String("op", op),
				zap.Error(closeErr),
			)
		}
	}()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		h.respondErrorWithOp(w, r, http.StatusInternalServerError, fmt.Sprintf("failed to read configuration: %v", err), op)
		return
	}

	configBytes := buf.Bytes()
	configMap, err := decodeYAMLToMap(configBytes)
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, fmt.Sprintf("error reading config data, %v", err), op)
		return
	}

	cfg, err := config.LoadConfigurationFromReader(bytes.NewReader(configBytes))
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}
	warnings := cfg.ValidateConfiguration()

	results, err := forecast.GetForecast(h.requestLogger(r), *cfg)
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, fmt.Sprintf("failed to compute forecast: %v", err), op)
		return
	}
	csv, err := output.CsvString(results)
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusInternalServerError, fmt.Sprintf("failed to render CSV: %v", err), op)
		return
	}
	h.metrics.CountCalculation(metrics.KindScenarioFile)

	elapsed := time.Since(start)
	response := forecastResponse{
		Scenarios:  extractScenarioNames(results),
		Results:    results,
		CSV:        csv,
		Warnings:   warnings,
		Duration:   elapsed.String(),
		Config:     configMap,
		ConfigYAML: string(configBytes),
	}
	if response.Results == nil {
		response.Results = []forecast.Forecast{}
	}

	h.requestLogger(r).Info("forecast computed",
		zap.String("op", op),
		zap.Int("scenarios", len(response.Scenarios)),
		zap.Int("warnings", len(warnings)),
		zap.Duration("duration", elapsed),
	)

	h.writeJSON(w, r, http.StatusOK, response)
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, r, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func decodeYAMLToMap(data []byte) (map[string]interface{}, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return make(map[string]interface{}), nil
	}

	var result map[string]interface{}
	if err := yaml.Unmarshal(trimmed, &result); err != nil {
		return nil, err
	}
	if result == nil {
		result = make(map[string]interface{})
	}
	return result, nil
}

func extractScenarioNames(results []forecast.Forecast) []string {
	names := make([]string, 0, len(results))
	for _, scenario := range results {
		names = append(names, scenario.Name)
	}
	return names
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, r *http.Request, status int, msg string, op string) {
	h.requestLogger(r).Error("request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	h.writeJSON(w, r, status, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.requestLogger(r).Error("failed to write JSON response", zap.Error(err))
	}
}
