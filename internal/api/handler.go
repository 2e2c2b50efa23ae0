package api

import (
	"context"
	"net/http"
	"time"

	"algo-core/internal/broker"
	"algo-core/internal/events"
	"algo-core/internal/monitor"
	"algo-core/internal/trading"
	"algo-core/pkg/db"

	"github.com/gin-gonic/gin"
)

// AccountSource is the slice of the broker surface the API reads
// directly; everything else goes through the trading service.
type AccountSource interface {
	GetAccount(ctx context.Context) (broker.AccountSnapshot, error)
}

// Server wires HTTP endpoints around the trading service and the
// event bus.
type Server struct {
	Router    *gin.Engine
	Bus       *events.Bus
	DB        *db.Database
	Trading   *trading.Service
	Account   AccountSource
	Metrics   *monitor.SystemMetrics
	Backups   BackupSettings
	JWTSecret string
	Meta      SystemMeta
}

// SystemMeta describes runtime status exposed to the UI.
type SystemMeta struct {
	Paper      bool
	DataFeed   string
	Version    string
	InstanceID string
}

// BackupSettings locates on-demand database snapshots.
type BackupSettings struct {
	Dir  string
	Keep int
}

func NewServer(bus *events.Bus, database *db.Database, svc *trading.Service, account AccountSource, metrics *monitor.SystemMetrics, backups BackupSettings, meta SystemMeta, jwtSecret string) *Server {
	r := gin.New()

	// Middleware stack (order matters!)
	r.Use(gin.Recovery())         // Panic recovery (first)
	r.Use(RequestIDMiddleware())  // Request ID tracking
	r.Use(RequestLogger(metrics)) // Request logging (after ID is set)
	r.Use(RateLimitMiddleware())  // Rate limiting
	r.Use(TimeoutMiddleware(30 * time.Second)) // Request timeout (30s)
	r.Use(CORSMiddleware())                    // CORS (last before routes)

	s := &Server{
		Router:    r,
		Bus:       bus,
		DB:        database,
		Trading:   svc,
		Account:   account,
		Metrics:   metrics,
		Backups:   backups,
		JWTSecret: jwtSecret,
		Meta:      meta,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.GET("/health", s.health)
	s.Router.GET("/ws", s.websocket)

	api := s.Router.Group("/api")
	{
		api.GET("/system/status", s.getSystemStatus)

		// Auth endpoints (no auth required)
		auth := api.Group("/auth")
		{
			auth.POST("/register", s.registerUser)
			auth.POST("/login", s.loginUser)
		}

		// Protected API
		protected := api.Group("")
		protected.Use(AuthMiddleware(s.JWTSecret))
		{
			protected.GET("/auth/me", s.getCurrentUser)

			protected.GET("/strategies", s.listStrategies)
			protected.POST("/strategies", s.createStrategy)
			protected.PUT("/strategies/:id", s.updateStrategy)
			protected.DELETE("/strategies/:id", s.deleteStrategy)
			protected.POST("/strategies/:id/activate", s.activateStrategy)
			protected.POST("/strategies/:id/deactivate", s.deactivateStrategy)

			protected.GET("/signals", s.listSignals)
			protected.GET("/trades", s.listTrades)
			protected.GET("/positions", s.getPositions)
			protected.GET("/account", s.getAccount)

			protected.POST("/trading/start", s.startTrading)
			protected.POST("/trading/stop", s.stopTrading)
			protected.GET("/trading/status", s.getTradingStatus)

			protected.GET("/backups", s.listBackups)
			protected.POST("/backups", s.createBackup)

			protected.GET("/metrics", s.getMetrics)
		}
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) Start(addr string) error {
	return s.Router.Run(addr)
}
