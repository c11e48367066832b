// Package server wires the host's components together: supervisor, session
// manager, event emitter, and the HTTP/WebSocket surface.
package server

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apihttp "github.com/ojin-ai/agents-desktop/backend/internal/api/http"
	"github.com/ojin-ai/agents-desktop/backend/internal/api/middleware"
	"github.com/ojin-ai/agents-desktop/backend/internal/api/ws"
	"github.com/ojin-ai/agents-desktop/backend/internal/bot"
	"github.com/ojin-ai/agents-desktop/backend/internal/events"
	"github.com/ojin-ai/agents-desktop/backend/internal/infrastructure/config"
	"github.com/ojin-ai/agents-desktop/backend/internal/infrastructure/monitoring"
	"github.com/ojin-ai/agents-desktop/backend/internal/logging"
	"github.com/ojin-ai/agents-desktop/backend/internal/session"
)

// Server wraps the HTTP server and dependencies.
type Server struct {
	router   *gin.Engine
	sessions *session.Manager
	sup      *bot.Supervisor
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics
}

// NewServer creates a new server instance.
func NewServer(cfg *config.Config) (*Server, error) {
	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		logger = logging.NewDefault()
	}

	logger.Info("Initializing bot session host",
		zap.String("host", cfg.Server.Host),
		zap.String("port", cfg.Server.Port),
		zap.String("bot_script", cfg.Bot.Script),
	)

	metrics := monitoring.NewMetrics()

	// Events flow from the supervisor through the session manager into the
	// emitter, which fans them to the active subscriber.
	emitter := events.NewEmitter(logger)
	emitter.OnDrop(metrics.EventsDropped.Inc)

	sup := bot.NewSupervisor(cfg.Bot, bot.NewExecLauncher(), logger).WithMetrics(metrics)
	sessions := session.NewManager(sup, emitter, logger)
	sup.SetSink(sessions)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := apihttp.NewHandlers(sessions, metrics, logger)
	wsHandler := ws.NewHandler(emitter, metrics, logger)

	router.GET("/health", handlers.Health)

	// Session control
	router.POST("/session/start", handlers.StartSession)
	router.POST("/session/stop", handlers.StopSession)
	router.POST("/session/retry", handlers.RetrySession)
	router.GET("/session/state", handlers.SessionState)

	// Event channel
	router.GET("/stream", wsHandler.HandleConnection)

	// Metrics
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	logger.Info("Server initialized")

	return &Server{
		router:   router,
		sessions: sessions,
		sup:      sup,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
	}, nil
}

// Run starts the HTTP server.
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.logger.Info("Starting HTTP server", zap.String("addr", addr))
	return s.router.Run(addr)
}

// Close tears down the running worker, if any, and flushes logs.
func (s *Server) Close() error {
	s.logger.Info("Shutting down...")
	if err := s.sessions.Stop(); err != nil {
		s.logger.Warn("failed to stop session on shutdown", zap.Error(err))
	}
	s.logger.Sync()
	return nil
}
