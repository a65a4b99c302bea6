// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"strings"
	"time"

	"bloodconnect/internal/auth"
	"bloodconnect/internal/bootstrap"
	"bloodconnect/internal/config"
	_ "bloodconnect/internal/docs" // swagger docs
	"bloodconnect/internal/featureflags"
	"bloodconnect/internal/locations"
	"bloodconnect/internal/middleware"
	"bloodconnect/internal/models"
	"bloodconnect/internal/notifications"
	"bloodconnect/internal/otp"
	"bloodconnect/internal/repository"
	"bloodconnect/internal/service"
	"bloodconnect/internal/session"

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

// wireableHub is implemented by every WebSocket hub that can be wired to
// Redis pub/sub and gracefully shut down.
type wireableHub interface {
	Name() string
	StartWiring(ctx context.Context, n *notifications.Notifier) error
	Shutdown(ctx context.Context) error
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	identityRepo repository.IdentityRepository
	profileRepo  repository.ProfileRepository
	postRepo     repository.PostRepository

	notifier     *notifications.Notifier
	sessionHub   *notifications.SessionHub
	hubs         []wireableHub
	featureFlags *featureflags.Manager
	catalog      *locations.Catalog

	authService    *service.AuthService
	sessionService *service.SessionService
	profileService *service.ProfileService
	postService    *service.PostService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, rdb, err := bootstrap.InitRuntime(cfg, bootstrap.OptionsFromConfig(cfg))
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, db, rdb)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Sign-in state lives in Redis, so a Redis client is required.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if redisClient == nil {
		return nil, errors.New("redis client is required")
	}

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("bloodconnect-api"),
		identityRepo:   repository.NewIdentityRepository(db),
		profileRepo:    repository.NewProfileRepository(db),
		postRepo:       repository.NewPostRepository(db),
		notifier:       notifications.NewNotifier(redisClient),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		catalog:        locations.Default(),
	}
	challenges := otp.NewStore(
		redisClient,
		otp.LogSender{},
		time.Duration(cfg.OTPTTLSeconds)*time.Second,
		cfg.OTPMaxAttempts,
		otp.WithEcho(cfg.OTPDevEcho && !cfg.IsProduction()),
	)

	s.sessionService = service.NewSessionService(s.profileRepo)
	s.sessionHub = notifications.NewSessionHub(s.sessionService)
	s.hubs = []wireableHub{s.sessionHub}
	s.authService = service.NewAuthService(
		s.identityRepo,
		challenges,
		auth.NewTokens(cfg.JWTSecret),
		auth.NewSessionStore(redisClient),
		s.sessionService,
		s.notifier,
	)
	s.profileService = service.NewProfileService(s.profileRepo, s.catalog, s.notifier).
		WithSuperadminPhone(cfg.DevSuperadminPhone)
	s.postService = service.NewPostService(s.postRepo, s.profileRepo, s.featureFlags, s.notifier)

	return s, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.TracingMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so error responses still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:8081,http://localhost:19006"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: origins != "*",
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
			return models.RespondWithError(c, fiber.StatusTooManyRequests,
				models.NewRateLimitedError("Too many requests, please try again later."))
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "BloodConnect API Metrics",
	}))

	api.Get("/swagger/*", swagger.HandlerDefault)

	api.Get("/locations", s.GetLocations)

	authGroup := api.Group("/auth")
	otpGroup := authGroup.Group("/otp")
	otpGroup.Post("/send", middleware.RateLimit(s.redis, 3, 10*time.Minute, "otp_send"), s.SendOTP)
	otpGroup.Post("/resend", middleware.RateLimit(s.redis, 3, 10*time.Minute, "otp_send"), s.ResendOTP)
	otpGroup.Post("/verify", middleware.RateLimit(s.redis, 10, 10*time.Minute, "otp_verify"), s.VerifyOTP)
	authGroup.Get("/me", s.AuthRequired(), s.Me)
	authGroup.Post("/refresh", s.AuthRequired(), s.Refresh)
	authGroup.Post("/logout", s.AuthRequired(), s.Logout)

	protected := api.Group("", s.AuthRequired())

	protected.Get("/session", s.GetSession)

	users := protected.Group("/users/me")
	users.Get("/", s.GetMyProfile)
	users.Post("/profile", s.CompleteProfile)
	users.Patch("/fields/:field", s.UpdateProfileField)
	users.Post("/availability", s.ToggleAvailability)
	users.Get("/posts", s.GetMyPosts)

	posts := protected.Group("/posts")
	posts.Get("/", s.GetFeed)
	posts.Post("/", middleware.RateLimit(s.redis, 5, 10*time.Minute, "create_post"), s.CreatePost)
	posts.Get("/:id", s.GetPost)

	admin := protected.Group("/admin", s.RoleRequired(models.RoleAdmin))
	admin.Get("/feature-flags", s.GetFeatureFlags)
	admin.Get("/staff", s.ListStaff)
	admin.Put("/users/:uid/role", s.RoleRequired(models.RoleSuperAdmin), s.SetUserRole)

	// The protected group already authenticates /api/ws; a second pass would
	// find the single-use ticket consumed.
	protected.Post("/ws/ticket", s.IssueWSTicket)
	protected.Get("/ws", s.SessionSocketHandler())
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if s.db == nil {
		dbStatus = "unavailable"
	} else if sqlDB, err := s.db.DB(); err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis == nil {
		redisStatus = "unavailable"
	} else if err := s.redis.Ping(ctx).Err(); err != nil {
		redisStatus = "unhealthy"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" || redisStatus != "healthy" {
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

// AuthRequired returns the authentication middleware. WebSocket routes accept a
// single-use ticket; everything else takes a Bearer token.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		isWSPath := strings.HasPrefix(c.Path(), "/api/ws") && c.Path() != "/api/ws/ticket"

		if ticket := c.Query("ticket"); ticket != "" {
			grant, err := s.authService.RedeemWSTicket(c.UserContext(), ticket)
			if err == nil {
				s.setIdentity(c, grant.UID, nil)
				c.Locals("sessionID", grant.SessionID)
				return c.Next()
			}
			if isWSPath {
				return respondServiceError(c, err)
			}
		}

		tokenString := ""
		if parts := strings.SplitN(c.Get("Authorization"), " ", 2); len(parts) == 2 && parts[0] == "Bearer" {
			tokenString = strings.TrimSpace(parts[1])
		}
		if tokenString == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		claims, err := s.authService.Authenticate(c.UserContext(), tokenString)
		if err != nil {
			return respondServiceError(c, err)
		}

		s.setIdentity(c, claims.UID(), claims)
		return c.Next()
	}
}

func (s *Server) setIdentity(c *fiber.Ctx, uid string, claims *auth.Claims) {
	c.Locals("userID", uid)
	if claims != nil {
		c.Locals("claims", claims)
	}
	c.SetUserContext(middleware.WithUserID(c.UserContext(), uid))
}

// RoleRequired rejects callers whose profile role is below minimum. It must be
// placed after AuthRequired.
func (s *Server) RoleRequired(minimum string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uid, _ := c.Locals("userID").(string)
		if uid == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		profile, err := s.profileService.GetProfile(c.UserContext(), uid)
		if err != nil {
			if models.IsCode(err, models.CodeNotFound) {
				return models.RespondWithError(c, fiber.StatusForbidden,
					models.NewForbiddenError("Complete your profile first"))
			}
			return respondServiceError(c, err)
		}
		if !session.RoleAtLeast(profile.EffectiveRole(), minimum) {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError(minimum+" access required"))
		}

		c.Locals("role", profile.EffectiveRole())
		return c.Next()
	}
}

// App returns a configured Fiber app without starting it.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "BloodConnect API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				return models.RespondWithError(c, fiberErr.Code, errors.New(fiberErr.Message))
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.App()

	if s.notifier != nil {
		for _, h := range s.hubs {
			h := h
			go func() {
				if err := h.StartWiring(s.shutdownCtx, s.notifier); err != nil {
					middleware.Logger.Error("hub wiring failed", "hub", h.Name(), "error", err)
				}
			}()
		}
	}

	middleware.Logger.Info("server starting", "port", s.config.Port)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", "error", err)
		}
	}

	for _, h := range s.hubs {
		if err := h.Shutdown(ctx); err != nil {
			middleware.Logger.Error("error shutting down hub", "hub", h.Name(), "error", err)
		}
	}

	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			if cerr := sqlDB.Close(); cerr != nil {
				middleware.Logger.Error("error closing sql DB", "error", cerr)
			}
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", "error", rerr)
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
