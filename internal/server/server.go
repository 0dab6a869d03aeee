// Package server contains the HTTP and WebSocket handlers for Mosaic.
package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	_ "mosaic/docs" // swagger docs
	"mosaic/internal/config"
	"mosaic/internal/database"
	"mosaic/internal/events"
	"mosaic/internal/media"
	"mosaic/internal/middleware"
	"mosaic/internal/notifications"
	"mosaic/internal/repository"
	"mosaic/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the already-initialized collaborators a Server is built from.
type Deps struct {
	DB    *gorm.DB
	Redis *redis.Client
	Media media.Store
	// Events receives every domain event next to the realtime hub. Optional.
	Events events.Publisher
}

// Server holds the application's dependencies and the Fiber app.
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	limiter        *middleware.RateLimiter
	notifier       *notifications.Notifier
	hub            *notifications.Hub
	publisher      events.Publisher
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	authService   *service.AuthService
	feedService   *service.FeedService
	postService   *service.PostService
	socialService *service.SocialGraphService
	userService   *service.UserService
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when the bootstrap layer has established DB, Redis
// and the media store.
func NewServerWithDeps(cfg *config.Config, deps Deps) (*Server, error) {
	if deps.DB == nil {
		return nil, errors.New("database is required")
	}
	if deps.Media == nil {
		return nil, errors.New("media store is required")
	}

	userRepo := repository.NewUserRepository(deps.DB)
	followRepo := repository.NewFollowRepository(deps.DB)
	postRepo := repository.NewPostRepository(deps.DB)
	commentRepo := repository.NewCommentRepository(deps.DB)

	s := &Server{
		config:         cfg,
		db:             deps.DB,
		redis:          deps.Redis,
		promMiddleware: middleware.InitMetrics("mosaic-api"),
		limiter:        middleware.NewRateLimiter(deps.Redis, cfg.Env),
		notifier:       notifications.NewNotifier(deps.Redis),
		hub:            notifications.NewHub(),
	}
	s.shutdownCtx, s.shutdownFn = context.WithCancel(context.Background())
	s.publisher = s.buildPublisher(deps.Events)

	mediaService := service.NewMediaService(deps.Media, cfg)
	creds := service.NewCredentialService(cfg)

	s.authService = service.NewAuthService(userRepo, creds)
	s.feedService = service.NewFeedService(postRepo)
	s.postService = service.NewPostService(postRepo, commentRepo, mediaService, s.publisher)
	s.socialService = service.NewSocialGraphService(userRepo, followRepo, postRepo, s.publisher)
	s.userService = service.NewUserService(userRepo, followRepo, postRepo, mediaService)

	s.app = s.NewApp()
	return s, nil
}

// NewApp builds the Fiber app with views, middleware and routes.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Mosaic",
		Views:        newViewEngine(),
		ViewsLayout:  "layouts/main",
		BodyLimit:    int(s.config.MaxUploadBytes()) + 1<<20,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: s.handleError,
	})

	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// App exposes the Fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	// Propagate the request id before anything logs.
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.TracingMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Media may be served from another origin (S3), so cross-origin
	// embedding stays allowed.
	app.Use(helmet.New(helmet.Config{
		CrossOriginEmbedderPolicy: "unsafe-none",
		CrossOriginResourcePolicy: "cross-origin",
	}))

	app.Use(middleware.StructuredLogger())

	// CORS runs before middlewares that can short-circuit (e.g. limiter)
	// so browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:3000,http://127.0.0.1:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return s.config.Env == "test" || c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return s.fail(c, &fiber.Error{
				Code:    fiber.StatusTooManyRequests,
				Message: "Too many requests, please try again later.",
			})
		},
	}))

	app.Use(NegotiateFormat())
	app.Use(middleware.Session(s.authService))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	app.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Mosaic Metrics Dashboard",
	}))

	app.Get("/swagger/*", swagger.HandlerDefault)

	if s.config.MediaBackend == "local" {
		app.Static(s.config.MediaBaseURL, s.config.MediaDir, fiber.Static{
			MaxAge: 86400,
		})
	}

	// Pages
	app.Get("/", s.Index)
	app.Get("/login", s.LoginPage)
	app.Get("/register", s.RegisterPage)

	// Auth
	app.Post("/register", s.limiter.Limit("register", 3, 10*time.Minute, middleware.FailClosed), s.Register)
	app.Post("/login", s.limiter.Limit("login", 10, 5*time.Minute, middleware.FailClosed), s.Login)
	app.Get("/logout", s.Logout)

	auth := s.RequireSession()
	toggles := s.limiter.Limit("toggle", 60, time.Minute, middleware.FailOpen)

	app.Get("/feed", auth, s.Feed)
	app.Get("/create-post", auth, s.CreatePostPage)
	app.Get("/edit-post/:id", auth, s.EditPostPage)

	// Posts. The POST aliases serve HTML forms, which cannot send PUT or DELETE.
	app.Post("/post", auth, s.limiter.Limit("create_post", 10, 5*time.Minute, middleware.FailOpen), s.CreatePost)
	app.Get("/post/:id", auth, s.GetPost)
	app.Put("/post/:id/like", auth, toggles, s.ToggleLike)
	app.Post("/post/:id/like", auth, toggles, s.ToggleLike)
	app.Post("/post/:id/comment", auth, s.limiter.Limit("comment", 30, time.Minute, middleware.FailOpen), s.AddComment)
	app.Post("/post/:id/edit", auth, s.UpdatePost)
	app.Post("/post/:id/delete", auth, s.DeletePost)
	app.Put("/post/:id", auth, s.UpdatePost)
	app.Delete("/post/:id", auth, s.DeletePost)

	// Profiles
	app.Post("/profile/upload-pic", auth, s.UploadProfilePic)
	app.Put("/profile/:id/follow", auth, toggles, s.ToggleFollow)
	app.Post("/profile/:id/follow", auth, toggles, s.ToggleFollow)
	app.Get("/profile/:username", auth, s.GetProfile)

	// Realtime events
	app.Get("/api/ws", auth, s.WebsocketHandler())
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck pings the database, and Redis when one is configured.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start wires the hub to Redis and serves until the listener stops.
func (s *Server) Start() error {
	if s.notifier.Enabled() {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				middleware.Logger.Error("failed to start hub wiring", "hub", s.hub.Name(), "error", err)
			}
		}()
	}

	middleware.Logger.Info("server starting", "port", s.config.Port, "env", s.config.Env)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	// Stop the Redis subscription first so no new fan-out starts.
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	var errs []error
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}

	if err := s.hub.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("%s shutdown: %w", s.hub.Name(), err))
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			errs = append(errs, fmt.Errorf("close sql db: %w", cerr))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", rerr))
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return errors.Join(errs...)
}
