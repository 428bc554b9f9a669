// Package server exposes the mutation gateway and the read views over HTTP and WebSocket.
package server

import (
	"context"
	"fmt"
	"log"
	"time"

	_ "github.com/kvo5/marvel-madness/docs" // swagger docs
	"github.com/kvo5/marvel-madness/internal/cache"
	"github.com/kvo5/marvel-madness/internal/config"
	"github.com/kvo5/marvel-madness/internal/database"
	"github.com/kvo5/marvel-madness/internal/featureflags"
	"github.com/kvo5/marvel-madness/internal/identity"
	"github.com/kvo5/marvel-madness/internal/media"
	"github.com/kvo5/marvel-madness/internal/middleware"
	"github.com/kvo5/marvel-madness/internal/models"
	"github.com/kvo5/marvel-madness/internal/notifications"
	"github.com/kvo5/marvel-madness/internal/repository"
	"github.com/kvo5/marvel-madness/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	sessions *identity.SessionVerifier
	webhooks *identity.WebhookVerifier
	notifier *notifications.Notifier
	hub      *notifications.ViewHub
	flags    *featureflags.Manager

	socialService  *service.SocialService
	postService    *service.PostService
	profileService *service.ProfileService
	viewService    *service.ViewService
	webhookService *service.WebhookService
}

// NewServer connects to the database and Redis and builds a Server on top of them.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)

	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil: views are then served uncached and no websocket hub runs.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	sessions, err := identity.NewSessionVerifier(cfg.ClerkJWTKey, cfg.AuthorizedParties())
	if err != nil {
		return nil, err
	}

	var webhooks *identity.WebhookVerifier
	if cfg.ClerkWebhookSecret != "" {
		webhooks, err = identity.NewWebhookVerifier(cfg.ClerkWebhookSecret)
		if err != nil {
			return nil, err
		}
	}

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	relationRepo := repository.NewRelationRepository(db)

	idp := identity.NewClient(cfg.ClerkAPIURL, cfg.ClerkSecretKey, cfg.UpstreamTimeout)
	uploader := media.NewClient(cfg.ImageKitUploadURL, cfg.ImageKitPrivateKey, cfg.UpstreamTimeout)
	invalidator := notifications.NewViewInvalidator(redisClient)
	reconciler := notifications.NewReconciliationQueue(redisClient)
	flags := featureflags.NewManager(cfg.FeatureFlags)
	logger := middleware.Logger

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("marvel-madness-api"),
		sessions:       sessions,
		webhooks:       webhooks,
		flags:          flags,

		socialService:  service.NewSocialService(relationRepo, flags, logger),
		postService:    service.NewPostService(postRepo, uploader, invalidator, cfg.UploadMaxBytes(), logger),
		profileService: service.NewProfileService(userRepo, idp, uploader, invalidator, reconciler, cfg.UploadMaxBytes(), logger),
		viewService:    service.NewViewService(userRepo, postRepo, flags, cfg.ViewCacheTTL, logger),
		webhookService: service.NewWebhookService(userRepo, invalidator, logger),
	}

	if redisClient != nil {
		s.notifier = notifications.NewNotifier(redisClient)
		s.hub = notifications.NewViewHub()
	}

	return s, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so short-circuited responses still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:3000,http://127.0.0.1:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ActionResult{
				Error: "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Get("/swagger/*", swagger.HandlerDefault)

	// Views
	api.Get("/feed", s.GetFeed)
	api.Get("/users/:username/status/:id", s.GetStatus)
	api.Get("/users/:username", s.GetProfile)

	// Identity provider webhooks are authenticated by signature, not session.
	api.Post("/webhooks/identity", s.IdentityWebhook)

	api.Get("/ws/views", s.ViewerKey(), s.ViewsWebsocketHandler())

	protected := api.Group("", s.AuthRequired())

	protected.Post("/users/:id/follow", s.ToggleFollow)

	posts := protected.Group("/posts")
	posts.Post("/", middleware.RateLimit(s.redis, 5, 5*time.Minute, "create_post"), s.AddPost)
	posts.Post("/:id/like", s.ToggleLike)
	posts.Post("/:id/repost", s.ToggleRepost)
	posts.Post("/:id/save", s.ToggleSave)
	posts.Post("/:id/comments", middleware.RateLimit(s.redis, 10, time.Minute, "create_comment"), s.AddComment)
	posts.Delete("/:id", s.DeletePost)

	protected.Post("/settings/profile", s.UpdateProfile)
	protected.Delete("/account", s.DeleteAccount)
}

// NewApp builds the Fiber app with middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "Marvel Madness API",
		BodyLimit: int(s.config.UploadMaxBytes()) + 1024*1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ActionResult{Error: fe.Message})
			}
			log.Printf("Error: %v", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports database and Redis health. Only the database gates readiness:
// without Redis the service runs uncached, so an absent Redis is "unavailable" and an
// unreachable one reports the service as "degraded" with a 200.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if s.db == nil {
		dbStatus = "unhealthy"
	} else if sqlDB, err := s.db.DB(); err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	switch {
	case dbStatus == "unhealthy":
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	case redisStatus == "unhealthy":
		overallStatus = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"flags": s.flags.Names(),
		"time":  time.Now(),
	})
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.NewApp()

	if s.notifier != nil && s.hub != nil {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				log.Printf("failed to start %s wiring: %v", s.hub.Name(), err)
			}
		}()
	}

	log.Printf("Server starting on port %s...", s.config.Port)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if s.hub != nil {
		if err := s.hub.Shutdown(ctx); err != nil {
			log.Printf("error shutting down %s: %v", s.hub.Name(), err)
		}
	}

	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			if cerr := sqlDB.Close(); cerr != nil {
				log.Printf("error closing sql DB: %v", cerr)
			}
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
