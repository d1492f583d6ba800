// Package http exposes the budget service as a JSON API on top of gin.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"dailybudget/internal/core"
	applog "dailybudget/internal/log"
	"dailybudget/internal/middleware/ratelimit"
	"dailybudget/internal/middleware/security"
	"dailybudget/internal/middleware/trace"
	"dailybudget/internal/services"
)

// maxReceiptBytes bounds receipt uploads.
const maxReceiptBytes = 10 << 20

// BudgetAPI is the subset of the budget service used by the handlers.
type BudgetAPI interface {
	Policies() []string
	View(ctx context.Context, key core.PeriodKey, policy string) (services.View, error)
	AddExpense(ctx context.Context, key core.PeriodKey, day int, amount decimal.Decimal, label string) (core.ExpenseRecord, error)
	RemoveExpense(ctx context.Context, key core.PeriodKey, day int, id string) error
	Reset(ctx context.Context, key core.PeriodKey) (core.Ledger, error)
	PullRemote(ctx context.Context, key core.PeriodKey) (core.Ledger, bool, error)
	Advise(ctx context.Context, key core.PeriodKey) (string, error)
	ScanReceipt(ctx context.Context, key core.PeriodKey, day int, image []byte, mediaType string) (core.ExpenseRecord, error)
}

// Options tune the router.
type Options struct {
	Logger            *applog.Logger
	AllowedOrigins    []string
	RequestsPerMinute int
	Ready             func(context.Context) error
}

type Server struct {
	http.Server
	budget      BudgetAPI
	rateLimiter *ratelimit.Limiter
	tracer      *trace.Middleware
	detector    *security.Detector
	ready       func(context.Context) error

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, budget BudgetAPI, opts Options) *Server {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	_ = router.SetTrustedProxies(security.DefaultTrustedProxies)

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
		},
		budget:      budget,
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RequestsPerMinute}),
		tracer:      trace.NewMiddleware(opts.Logger),
		detector:    security.NewDetector(),
		ready:       opts.Ready,
	}

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}

	router.Use(
		gin.Recovery(),
		s.tracer.Handler(),
		s.detector.Middleware(),
		security.Headers(security.DefaultHeadersConfig()),
		cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", trace.RequestIDHeader},
			ExposeHeaders:    []string{"Content-Length", trace.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
	)

	router.GET("/healthz", handleHealth)
	router.GET("/readyz", s.handleReady)

	api := router.Group("/api")
	api.GET("/policies", s.handlePolicies)

	period := api.Group("/periods/:year/:month")
	period.GET("", s.handleGetPeriod)

	// Mutations and model calls are rate limited.
	limited := period.Group("", s.rateLimiter.Middleware())
	limited.POST("/days/:day/expenses", s.handleAddExpense)
	limited.DELETE("/days/:day/expenses/:id", s.handleRemoveExpense)
	limited.POST("/days/:day/receipt", s.handleScanReceipt)
	limited.POST("/reset", s.handleReset)
	limited.POST("/sync/pull", s.handlePull)
	limited.POST("/advice", s.handleAdvice)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorBody{Error: "not found"})
	})

	return s
}

// Shutdown stops background routines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleReady(c *gin.Context) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
