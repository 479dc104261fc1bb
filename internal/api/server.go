package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/microgridplanner/planner-core/internal/api/handlers"
	"github.com/microgridplanner/planner-core/internal/api/middleware"
	"github.com/microgridplanner/planner-core/internal/api/websocket"
	"github.com/microgridplanner/planner-core/internal/config"
	"github.com/microgridplanner/planner-core/internal/monitoring"
	"github.com/microgridplanner/planner-core/internal/repo"
	"github.com/microgridplanner/planner-core/internal/services"
	"github.com/microgridplanner/planner-core/pkg/cache"
	"github.com/microgridplanner/planner-core/pkg/logger"
)

type Server struct {
	config     *config.Config
	logger     logger.Logger
	cache      cache.ValkeyCluster
	store      repo.Store
	auth       *services.AuthService
	compute    *services.ComputeService
	hub        *websocket.Hub
	router     *gin.Engine
	httpServer *http.Server
}

func NewServer(
	cfg *config.Config,
	log logger.Logger,
	valkeyCache cache.ValkeyCluster,
	store repo.Store,
	auth *services.AuthService,
	compute *services.ComputeService,
) *Server {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	server := &Server{
		config:  cfg,
		logger:  log,
		cache:   valkeyCache,
		store:   store,
		auth:    auth,
		compute: compute,
		hub:     websocket.NewHub(log),
		router:  gin.New(),
	}

	// Finished jobs are pushed to WebSocket subscribers as soon as they turn
	// terminal, ahead of the next poll tick.
	compute.SetTerminalCallback(server.hub.BroadcastJobStatus)

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())

	// CORS for the planner UI
	s.router.Use(middleware.CORSMiddleware(s.config.CORS))

	s.router.Use(middleware.RequestLogger(s.logger))

	// Prometheus request metrics
	s.router.Use(monitoring.HTTPMetricsMiddleware())

	// Rate limiting using the Valkey cluster
	s.router.Use(middleware.RateLimiter(s.cache))

	// OpenAPI contract + Swagger UI (public)
	s.router.StaticFile("/api/openapi.yaml", "api/openapi.yaml")
	s.router.GET("/api/openapi", handlers.GetOpenAPISpec)
	s.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/api/openapi.yaml")))

	// Prometheus metrics endpoint
	monitoring.SetupPrometheusMetrics(s.router)
}

func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(s.cache, s.logger)
	authHandler := handlers.NewAuthHandler(s.auth, s.logger)
	powerloadHandler := handlers.NewPowerloadHandler(s.store, s.logger, s.config.Uploads.BulkMaxBytes)
	disturbanceHandler := handlers.NewDisturbanceHandler(s.store, s.logger)
	computeHandler := handlers.NewComputeHandler(s.compute, s.logger)

	// Public endpoints
	s.router.GET("/health", healthHandler.HealthCheck)
	s.router.GET("/ready", healthHandler.ReadinessCheck)
	s.router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/swagger/index.html")
	})

	public := s.router.Group("/api/" + config.APIVersion)
	if s.config.Auth.Enabled {
		public.POST("/auth/register", authHandler.Register)
		public.POST("/auth/login", authHandler.Login)
	}

	// Authenticated API surface. With auth disabled every request runs as the
	// local principal, which keeps handler code uniform.
	v1 := s.router.Group("/api/" + config.APIVersion)
	if s.config.Auth.Enabled {
		v1.Use(middleware.AuthMiddleware(s.auth, s.logger))
	} else {
		v1.Use(middleware.NoAuthMiddleware())
		s.logger.Warn("authentication is DISABLED by configuration; requests run as the local user")
	}
	v1.Use(middleware.ErrorHandler(s.logger))

	{
		if s.config.Auth.Enabled {
			v1.POST("/auth/logout", authHandler.Logout)
			v1.GET("/auth/me", authHandler.Me)
			v1.GET("/auth/sessions", authHandler.Sessions)
		}

		// Powerloads and the window validation engine
		v1.POST("/powerloads", powerloadHandler.Create)
		v1.POST("/powerloads/upload", powerloadHandler.Upload)
		v1.GET("/powerloads", powerloadHandler.List)
		v1.GET("/powerloads/:id", powerloadHandler.Get)
		v1.PUT("/powerloads/:id", powerloadHandler.Update)
		v1.DELETE("/powerloads/:id", powerloadHandler.Delete)
		v1.GET("/powerloads/:id/window", powerloadHandler.Window)
		v1.POST("/powerloads/:id/window/validate", powerloadHandler.ValidateWindow)

		// Resilience scenario inputs
		v1.POST("/resilience/disturbances", disturbanceHandler.CreateDisturbance)
		v1.GET("/resilience/disturbances", disturbanceHandler.ListDisturbances)
		v1.GET("/resilience/disturbances/:id", disturbanceHandler.GetDisturbance)
		v1.PUT("/resilience/disturbances/:id", disturbanceHandler.UpdateDisturbance)
		v1.DELETE("/resilience/disturbances/:id", disturbanceHandler.DeleteDisturbance)
		v1.POST("/resilience/repairs", disturbanceHandler.CreateRepair)
		v1.GET("/resilience/repairs", disturbanceHandler.ListRepairs)
		v1.GET("/resilience/repairs/:id", disturbanceHandler.GetRepair)
		v1.PUT("/resilience/repairs/:id", disturbanceHandler.UpdateRepair)
		v1.DELETE("/resilience/repairs/:id", disturbanceHandler.DeleteRepair)

		// Compute: submit per model, poll status, manage results
		v1.POST("/:model/compute", computeHandler.Submit)
		v1.GET("/:model/results", computeHandler.ListResults)
		v1.GET("/:model/results/:id", computeHandler.GetResult)
		v1.DELETE("/:model/results/:id", computeHandler.RemoveResult)
		v1.GET("/compute/status/:id", computeHandler.Status)

		// WebSocket push of job status transitions
		if s.config.WebSocket.Enabled {
			v1.GET("/compute/stream", s.serveComputeStream)
		}
	}
}

func (s *Server) serveComputeStream(c *gin.Context) {
	checkOrigin := func(r *http.Request) bool {
		// Same CORS policy as the REST surface.
		origin := r.Header.Get("Origin")
		return origin == "" || originAllowed(origin, s.config.CORS.AllowedOrigins)
	}
	websocket.ServeWS(s.hub, s.config.WebSocket, s.logger, c.Writer, c.Request, c.GetString("user_id"), checkOrigin)
}

func originAllowed(origin string, allowed []string) bool {
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return len(allowed) == 0
}

func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go s.hub.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("planner-core REST API server starting", "port", s.config.Port)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutting down planner-core gracefully")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.DefaultShutdownTimeout*time.Millisecond)
	defer cancel()

	// Let in-flight compute runs land before the process exits.
	if err := s.compute.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("compute jobs did not finish before shutdown", "error", err)
	}

	return s.httpServer.Shutdown(shutdownCtx)
}

// Handler returns the underlying gin engine so tests can mount it.
func (s *Server) Handler() http.Handler {
	return s.router
}
