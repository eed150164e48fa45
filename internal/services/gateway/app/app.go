// Package app is the HTTP face of the irrigation gateway: dashboard APIs,
// device upload/poll endpoints, health and metrics.
package app

import (
	"context"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/smart-irrigation/internal/model/entities"
	"github.com/LeonardoBeccarini/smart-irrigation/internal/model/messages"
	"github.com/LeonardoBeccarini/smart-irrigation/internal/services/event"
	"github.com/LeonardoBeccarini/smart-irrigation/internal/services/irrigation"
)

// Controller is the live irrigation agent the gateway drives.
type Controller interface {
	Ingest(ctx context.Context, t messages.Telemetry, source string) (*irrigation.DailyPlan, error)
	RunOnce(ctx context.Context) (*irrigation.DailyPlan, error)
	SetPump(ctx context.Context, pump entities.PumpState, manual bool) error
	ClearOverride(ctx context.Context) error
	Policy() entities.IrrigationPolicy
}

// StateReader exposes the current system state snapshot.
type StateReader interface {
	Get() entities.SystemState
}

type Config struct {
	CORSOrigins []string
	Probes      []event.Probe
	History     http.Handler // GET /api/events/decisions; optional
	Logger      *zap.Logger

	// Rand seeds the impact projection; nil uses the global source.
	Rand *rand.Rand
	Now  func() time.Time
}

type Gateway struct {
	cfg        Config
	controller Controller
	state      StateReader
	validate   *validator.Validate
	logger     *zap.Logger

	rngMu sync.Mutex
}

func NewGateway(controller Controller, state StateReader, cfg Config) *Gateway {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}
	return &Gateway{
		cfg:        cfg,
		controller: controller,
		state:      state,
		validate:   validator.New(),
		logger:     cfg.Logger.Named("http"),
	}
}

// Handler builds the full middleware chain: a last-resort recovery handler, CORS,
// then the router with request-id, metrics, access logging and JSON panic recovery.
func (g *Gateway) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(g.requestIDMiddleware)
	r.Use(g.metricsMiddleware)
	r.Use(g.loggingMiddleware)
	r.Use(g.recoverMiddleware)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/command", g.HandleGetCommand).Methods(http.MethodGet)
	api.HandleFunc("/command", g.HandlePostCommand).Methods(http.MethodPost)
	api.HandleFunc("/ui/state", g.HandleState).Methods(http.MethodGet)
	api.HandleFunc("/upload", g.HandleUpload).Methods(http.MethodPost)
	api.HandleFunc("/plan", g.HandlePlan).Methods(http.MethodGet)
	api.HandleFunc("/plan/live", g.HandleLivePlan).Methods(http.MethodGet)
	api.HandleFunc("/impact", g.HandleImpact).Methods(http.MethodGet)
	api.HandleFunc("/crops", g.HandleCrops).Methods(http.MethodGet)
	history := g.cfg.History
	if history == nil {
		history = event.NewDecisionHistoryHandler(nil, "")
	}
	api.Handle("/events/decisions", history).Methods(http.MethodGet)

	r.Handle("/healthz", event.NewHealthHandler(g.cfg.Probes...)).Methods(http.MethodGet)
	r.Handle("/readyz", event.NewReadyHandler(g.cfg.Probes...)).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins: g.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
	})

	return handlers.RecoveryHandler(
		handlers.RecoveryLogger(zap.NewStdLog(g.logger)),
		handlers.PrintRecoveryStack(true),
	)(c.Handler(r))
}

// Server wraps http.Server with logging.
type Server struct {
	server *http.Server
	logger *zap.Logger
}

func NewServer(addr string, h http.Handler, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           h,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Start blocks serving until Shutdown; a clean shutdown returns nil.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
