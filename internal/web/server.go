// Package web exposes the risk analysis HTTP API.
package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/cryptorisk/internal/domain"
	"github.com/vadiminshakov/cryptorisk/internal/metrics"
)

const defaultShutdownTimeout = 5 * time.Second

type marketDataFetcher interface {
	Fetch(ctx context.Context, assetID string, days int) (*domain.MarketData, error)
}

type riskCalculator interface {
	ComputeRisk(prices []domain.PricePoint, currentVolume, averageVolume decimal.Decimal) domain.RiskResult
}

// Deps are the collaborators of the HTTP layer.
type Deps struct {
	Fetcher marketDataFetcher
	Engine  riskCalculator
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	// Gatherer backs /metrics. The route is not registered when nil.
	Gatherer    prometheus.Gatherer
	CORSOrigins []string
}

// Server exposes the risk analysis API.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration

	router *gin.Engine
	logger *zap.Logger
}

// NewServer creates a new web server instance.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("http")

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(logger, true))
	router.Use(requestID())
	router.Use(observe(deps.Metrics))

	if len(deps.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:  deps.CORSOrigins,
			AllowMethods:  []string{http.MethodGet, http.MethodOptions},
			AllowHeaders:  []string{"Origin", "Content-Type", "Accept", requestIDHeader},
			ExposeHeaders: []string{"Content-Length", requestIDHeader},
			MaxAge:        12 * time.Hour,
		}))
	}

	h := &handler{
		fetcher: deps.Fetcher,
		engine:  deps.Engine,
		logger:  logger,
	}

	api := router.Group("/api")
	api.GET("/riskanalysis/:assetId", h.riskAnalysis)
	api.GET("/assets", h.assets)

	router.GET("/healthz", h.health)
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	return &Server{
		Addr:            addr,
		ShutdownTimeout: defaultShutdownTimeout,
		router:          router,
		logger:          logger,
	}
}

// Handler returns the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	server := &http.Server{
		Addr:              s.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("http server shutdown", zap.Error(err))
		}
	}()

	s.logger.Info("http server listening", zap.String("addr", s.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
