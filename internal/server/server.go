// Package server exposes the audit pipeline over HTTP. It is a thin
// adapter layer that translates requests to service calls.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aivoralabs/auditlens/internal/service"
)

// Config holds HTTP server configuration
type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns default server configuration
func DefaultConfig() Config {
	return Config{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
}

// Server is the HTTP adapter over the audit service
type Server struct {
	config     Config
	httpServer *http.Server
	router     *gin.Engine
	svc        *service.AuditService
	logger     *zap.Logger
}

// New creates a new HTTP server wired to the given service
func New(config Config, svc *service.AuditService, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		config: config,
		router: gin.New(),
		svc:    svc,
		logger: logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
	s.router.Use(corsMiddleware())
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.String("latency", time.Since(start).String()),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, X-User-Role")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) setupRoutes() {
	h := NewHandlers(s.svc, s.logger)

	api := s.router.Group("/api")
	{
		api.GET("/health", h.HealthCheck)

		api.POST("/upload", h.Upload)
		api.GET("/documents", h.ListDocuments)
		api.GET("/documents/:id", h.GetDocument)
		api.POST("/documents/:id/fields", h.EditFields)
		api.GET("/invoices", h.ListInvoices)
		api.GET("/purchase-orders", h.ListPurchaseOrders)
		api.GET("/contracts", h.ListContracts)
		api.GET("/goods-receipts", h.ListGoodsReceipts)
		api.POST("/invoices/:id/status", h.UpdateInvoiceStatus)

		api.GET("/matches", h.ListMatches)
		api.POST("/matches/:id/approve", h.ApproveMatch)
		api.POST("/matches/:id/reject", h.RejectMatch)

		api.GET("/anomalies", h.ListAnomalies)
		api.POST("/anomalies/:id/resolve", h.ResolveAnomaly)
		api.POST("/anomalies/:id/dismiss", h.DismissAnomaly)

		api.GET("/triage", h.ListTriageDecisions)
		api.GET("/invoices/:id/triage", h.GetTriageDecision)
		api.POST("/invoices/:id/triage", h.RetriageInvoice)
		api.POST("/triage/:id/override", h.OverrideTriage)

		api.GET("/vendors", h.ListVendorProfiles)
		api.GET("/vendors/:name/risk", h.GetVendorRisk)
		api.GET("/correction-patterns", h.ListCorrectionPatterns)
		api.GET("/dashboard", h.Dashboard)

		api.GET("/policy", h.GetPolicy)
		api.GET("/policy/presets", h.ListPolicyPresets)
		api.PUT("/policy", h.UpdatePolicy)
		api.POST("/policy/preset/:name", h.ApplyPolicyPreset)

		api.GET("/export", h.ExportJSON)
		api.GET("/export/xlsx", h.ExportXLSX)
	}
}

// Start starts the HTTP server and blocks until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", zap.Error(err))
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", zap.Error(err))
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}
