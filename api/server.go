// Package api serves simulation runs over HTTP: a simulate endpoint, run
// retrieval, the step ledger, community KPIs and Prometheus metrics.
package api

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/microgrid-lab/mgsim/config"
	"github.com/microgrid-lab/mgsim/core/dispatch/ledger"
	"github.com/microgrid-lab/mgsim/core/logger"
	coremetrics "github.com/microgrid-lab/mgsim/core/metrics"
	"github.com/microgrid-lab/mgsim/core/metrics/eco"
)

// Deps carries the shared backends the handlers read and record into.
type Deps struct {
	// Defaults supplies battery, dispatch and tariff sections for
	// requests that omit them.
	Defaults *config.Config
	// Store receives the step records of simulated runs. Nil disables
	// persistence and the ledger endpoint.
	Store ledger.Store
	// Sink receives step events of simulated runs.
	Sink coremetrics.MetricsSink
	// Eco backs the KPI endpoint. Nil disables it.
	Eco eco.Store
	// EcoFactor is the CO2 emission factor in g/kWh.
	EcoFactor float64
	Log       logger.Logger
}

// Server exposes the HTTP API and remembers finished runs.
type Server struct {
	cfg  config.APIConfig
	deps Deps

	engine *gin.Engine

	mu   sync.RWMutex
	runs map[string]RunResult
}

// NewServer builds the router. Defaults must carry a valid battery,
// dispatch and tariff configuration.
func NewServer(cfg config.APIConfig, deps Deps) (*Server, error) {
	if deps.Defaults == nil {
		return nil, errors.New("api: default configuration required")
	}
	if deps.Log == nil {
		deps.Log = logger.Nop{}
	}
	if os.Getenv("APP_ENV") != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	s := &Server{cfg: cfg, deps: deps, runs: map[string]RunResult{}}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.GET("/health", s.health)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	v1 := engine.Group("/api/v1")
	v1.POST("/simulate", s.simulate)
	v1.GET("/runs", s.listRuns)
	v1.GET("/runs/:id", s.getRun)
	v1.GET("/runs/:id/insights", s.getInsights)
	v1.GET("/ledger", s.queryLedger)
	v1.GET("/kpi", s.queryKPI)
	s.engine = engine
	return s, nil
}

// Handler returns the CORS-wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}).Handler(s.engine)
}

// Start serves until the context is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.cfg.Addr, Handler: s.Handler()}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.deps.Log.Infof("api listening on %s", s.cfg.Addr)
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) remember(res RunResult) {
	s.mu.Lock()
	s.runs[res.RunID] = res
	s.mu.Unlock()
}

func (s *Server) lookup(id string) (RunResult, bool) {
	s.mu.RLock()
	res, ok := s.runs[id]
	s.mu.RUnlock()
	return res, ok
}
