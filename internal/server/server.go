// Package server exposes drift detection over HTTP so runs can be triggered
// by schedulers and webhooks.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/yairfalse/driftwatch/internal/detector"
	"github.com/yairfalse/driftwatch/internal/logger"
	drmiddleware "github.com/yairfalse/driftwatch/internal/server/middleware"
	"github.com/yairfalse/driftwatch/pkg/types"
)

// Service is the part of the detector the API drives
type Service interface {
	Detect(ctx context.Context, env string) (*detector.Outcome, error)
	DetectAll(ctx context.Context, envs []string) ([]detector.EnvironmentResult, error)
	LatestReport(ctx context.Context, env string) (*types.DriftReport, bool, error)
}

// Config configures the WebAPI
type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	Environments    []string
	// Metrics is mounted at GET /metrics when set
	Metrics http.Handler
}

// WebAPI serves the trigger API
type WebAPI struct {
	router  *chi.Mux
	logger  logger.Logger
	server  *http.Server
	service Service
	config  Config
}

// DetectResponse is returned by the single-environment trigger
type DetectResponse struct {
	Environment    string             `json:"environment"`
	Status         string             `json:"status"`
	Risk           types.RiskLevel    `json:"risk,omitempty"`
	AlertSent      bool               `json:"alert_sent"`
	ReportLocation string             `json:"report_location"`
	Report         *types.DriftReport `json:"report"`
}

// DetectAllResponse mirrors the scheduled run's result body
type DetectAllResponse struct {
	Results []detector.EnvironmentResult `json:"results"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewWebAPI builds the router
func NewWebAPI(log logger.Logger, service Service, config Config) *WebAPI {
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 10 * time.Second
	}

	w := &WebAPI{logger: log, service: service, config: config}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(drmiddleware.Logger(log))
	router.Use(middleware.Recoverer)

	router.Get("/healthz", w.health)
	if config.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", config.Metrics)
	}
	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/detect", w.detectAll)
		r.Post("/environments/{env}/detect", w.detect)
		r.Get("/environments/{env}/reports/latest", w.latestReport)
	})

	w.router = router
	w.server = &http.Server{
		Addr:              config.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return w
}

// Handler returns the HTTP handler, mainly for tests
func (w *WebAPI) Handler() http.Handler {
	return w.router
}

// Run serves until ctx is cancelled, then drains in-flight requests
func (w *WebAPI) Run(ctx context.Context) error {
	serverErrors := make(chan error, 1)

	go func() {
		w.logger.WithField("addr", w.server.Addr).Info("starting server")
		serverErrors <- w.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		w.logger.Info("shutdown initiated")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), w.config.ShutdownTimeout)
		defer cancel()

		err := w.server.Shutdown(shutdownCtx)
		if err != nil {
			w.logger.Error("graceful shutdown failed", err)
			err = w.server.Close()
		}
		return err
	}
}

func (w *WebAPI) health(rw http.ResponseWriter, req *http.Request) {
	writeJSON(rw, http.StatusOK, map[string]string{"status": "ok"})
}

func (w *WebAPI) detect(rw http.ResponseWriter, req *http.Request) {
	env := chi.URLParam(req, "env")

	outcome, err := w.service.Detect(req.Context(), env)
	if errors.Is(err, detector.ErrNoBaseline) {
		writeJSON(rw, http.StatusNotFound, errorResponse{Error: "no baseline found for " + env})
		return
	}
	if err != nil {
		w.logger.WithField("environment", env).Error("detect failed", err)
		writeJSON(rw, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	status := detector.StatusNoDrift
	var risk types.RiskLevel
	if outcome.Report.DriftDetected {
		status = detector.StatusDriftDetected
		risk = outcome.Report.RiskAssessment.OverallRisk
	}

	writeJSON(rw, http.StatusOK, DetectResponse{
		Environment:    env,
		Status:         status,
		Risk:           risk,
		AlertSent:      outcome.AlertSent,
		ReportLocation: outcome.ReportLocation,
		Report:         outcome.Report,
	})
}

// detectAll runs the configured environments, or those named in the
// comma-separated "environments" query parameter
func (w *WebAPI) detectAll(rw http.ResponseWriter, req *http.Request) {
	envs := w.config.Environments
	if raw := req.URL.Query().Get("environments"); raw != "" {
		envs = nil
		for _, env := range strings.Split(raw, ",") {
			if env = strings.TrimSpace(env); env != "" {
				envs = append(envs, env)
			}
		}
	}

	if len(envs) == 0 {
		writeJSON(rw, http.StatusBadRequest, errorResponse{Error: "no environments configured"})
		return
	}

	results, err := w.service.DetectAll(req.Context(), envs)
	if err != nil {
		writeJSON(rw, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(rw, http.StatusOK, DetectAllResponse{Results: results})
}

func (w *WebAPI) latestReport(rw http.ResponseWriter, req *http.Request) {
	env := chi.URLParam(req, "env")

	report, found, err := w.service.LatestReport(req.Context(), env)
	if err != nil {
		w.logger.WithField("environment", env).Error("latest report lookup failed", err)
		writeJSON(rw, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	if !found {
		writeJSON(rw, http.StatusNotFound, errorResponse{Error: "no report found for " + env})
		return
	}

	writeJSON(rw, http.StatusOK, report)
}

func writeJSON(rw http.ResponseWriter, status int, v interface{}) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}
