// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/marinaua13/social-media-api/docs" // swagger docs
	"github.com/marinaua13/social-media-api/internal/bootstrap"
	"github.com/marinaua13/social-media-api/internal/config"
	"github.com/marinaua13/social-media-api/internal/middleware"
	"github.com/marinaua13/social-media-api/internal/models"
	"github.com/marinaua13/social-media-api/internal/notifications"
	"github.com/marinaua13/social-media-api/internal/repository"
	"github.com/marinaua13/social-media-api/internal/scheduler"
	"github.com/marinaua13/social-media-api/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	serviceName = "social-media-api"

	// Budget for each shutdown step.
	shutdownStepTimeout = 5 * time.Second

	tokenPurgeInterval = time.Hour
)

// Server holds all dependencies and provides handlers
type Server struct {
	config *config.Config
	db     *gorm.DB
	redis  *redis.Client
	app    *fiber.App

	background context.CancelFunc

	userRepo    repository.UserRepository
	postRepo    repository.PostRepository
	likeRepo    repository.LikeRepository
	commentRepo repository.CommentRepository
	followRepo  repository.FollowRepository
	tokenRepo   repository.TokenRepository

	tokenService   *service.TokenService
	userService    *service.UserService
	followService  *service.FollowService
	imageService   *service.ImageService
	postService    *service.PostService
	likeService    *service.LikeService
	commentService *service.CommentService

	scheduler *scheduler.Scheduler
	notifier  *notifications.Notifier
	hub       *notifications.Hub
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	// A nil Redis client means Redis is unreachable; the server then runs single-process.
	db, redisClient, err := bootstrap.InitRuntime(cfg, bootstrap.Options{SeedDemoData: cfg.SeedDemoData})
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, db, redisClient)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil: the scheduler then keeps its queue in memory and
// notifications are delivered only to this process's sockets.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if cfg == nil || db == nil {
		return nil, errors.New("config and database are required")
	}

	s := &Server{
		config:      cfg,
		db:          db,
		redis:       redisClient,
		userRepo:    repository.NewUserRepository(db),
		postRepo:    repository.NewPostRepository(db),
		likeRepo:    repository.NewLikeRepository(db),
		commentRepo: repository.NewCommentRepository(db),
		followRepo:  repository.NewFollowRepository(db),
		tokenRepo:   repository.NewTokenRepository(db),
	}

	s.tokenService = service.NewTokenService(cfg, s.tokenRepo, s.userRepo)
	s.userService = service.NewUserService(s.userRepo)
	s.followService = service.NewFollowService(s.followRepo, s.userRepo)
	s.imageService = service.NewImageService(cfg)
	s.postService = service.NewPostService(s.postRepo, s.userRepo, s.imageService)
	s.likeService = service.NewLikeService(s.likeRepo, s.postRepo)
	s.commentService = service.NewCommentService(s.commentRepo, s.postRepo)

	s.notifier = notifications.NewNotifier(redisClient)
	s.hub = notifications.NewHub(s.notifier)

	var queue scheduler.Queue = scheduler.NewMemoryQueue()
	if redisClient != nil {
		queue = scheduler.NewRedisQueue(redisClient)
	}
	s.scheduler = scheduler.New(queue, s.postService, s.userRepo, scheduler.Config{
		Workers:      cfg.SchedulerWorkers,
		PollInterval: cfg.SchedulerPollInterval,
	})
	s.scheduler.OnCreated(func(ctx context.Context, post *models.Post) {
		s.hub.Publish(ctx, post.UserID, notifications.Event{
			Type: notifications.EventScheduledPostCreated,
			Payload: map[string]interface{}{
				"post_id":    post.ID,
				"created_at": post.CreatedAt.UTC().Format(time.RFC3339Nano),
			},
		})
	})

	return s, nil
}

// NewApp builds the Fiber application with the full middleware chain and routes.
func (s *Server) NewApp() *fiber.App {
	maxBody := s.imageService.MaxUploadSizeBytes() + 1024*1024
	app := fiber.New(fiber.Config{
		AppName:      "Social Media API",
		BodyLimit:    int(maxBody),
		ErrorHandler: errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return models.RespondWithError(c, fiberErr.Code, &models.AppError{
			Code:    httpStatusCode(fiberErr.Code),
			Message: fiberErr.Message,
		})
	}
	middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
	return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
}

func httpStatusCode(status int) string {
	switch status {
	case fiber.StatusNotFound:
		return models.CodeNotFound
	case fiber.StatusUnauthorized:
		return models.CodeUnauthorized
	case fiber.StatusForbidden:
		return models.CodeForbidden
	case fiber.StatusInternalServerError:
		return models.CodeInternal
	default:
		return models.CodeValidation
	}
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.MetricsMiddleware(app, serviceName))
	app.Use(helmet.New(helmet.Config{
		// Uploaded pictures are embedded by other origins.
		CrossOriginResourcePolicy: "cross-origin",
	}))
	app.Use(compress.New(compress.Config{
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/api/ws")
		},
	}))
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so throttled browser clients still get CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		MaxAge:       86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return models.RespondWithError(c, fiber.StatusTooManyRequests, &models.AppError{
				Code:    "RATE_LIMITED",
				Message: "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	app.Get("/swagger/*", swagger.HandlerDefault)
	app.Static(s.imageService.MediaURL(), s.imageService.UploadDir(), fiber.Static{
		MaxAge: 3600,
	})

	api := app.Group("/api")
	auth := middleware.AuthRequired(s.tokenService)

	// Accounts
	user := api.Group("/user")
	user.Post("/create", s.CreateUser)
	user.Post("/token", middleware.RateLimit(s.redis, 10, 5*time.Minute, "token"), s.ObtainToken)
	user.Post("/token/refresh", s.RefreshToken)
	user.Post("/logout", auth, s.Logout)
	user.Get("/me", auth, s.GetMe)
	user.Patch("/me", auth, s.UpdateMe)
	user.Get("/follow-unfollow", auth, s.ListFollows)
	user.Post("/follow-unfollow", auth, s.Follow)
	user.Delete("/follow-unfollow", auth, s.Unfollow)
	user.Get("/profiles", auth, s.SearchProfiles)
	user.Get("/profiles/:email", auth, s.GetProfile)
	user.Patch("/profiles/:email", auth, s.UpdateProfile)
	user.Delete("/profiles/:email", auth, s.DeleteProfile)

	// Content
	social := api.Group("/social", auth)

	posts := social.Group("/posts")
	posts.Get("/", s.ListPosts)
	posts.Post("/", middleware.RateLimit(s.redis, 30, time.Minute, "create_post"), s.CreatePost)
	// Static segments before /:id
	posts.Post("/schedule_post_creation", s.SchedulePostCreation)
	posts.Post("/:id/upload-image", middleware.RateLimit(s.redis, 10, time.Minute, "upload_image"), s.UploadPostImage)
	posts.Get("/:id", s.GetPost)
	posts.Delete("/:id", s.DeletePost)

	social.Post("/likes", s.LikePost)
	social.Delete("/likes/:post_id", s.UnlikePost)

	comments := social.Group("/comments")
	comments.Get("/", s.ListComments)
	comments.Post("/", middleware.RateLimit(s.redis, 30, time.Minute, "create_comment"), s.CreateComment)
	comments.Get("/:id", s.GetComment)
	comments.Put("/:id", s.UpdateComment)
	comments.Patch("/:id", s.UpdateComment)
	comments.Delete("/:id", s.DeleteComment)

	// Notifications
	api.Get("/ws", middleware.WebSocketAuthRequired(s.tokenService), s.WebSocketHandler())
}

// LivenessCheck handles liveness check requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness check requests. Redis is only checked when configured.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
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

// StartBackground starts the scheduler, the Redis notification wiring, and the
// revoked-token purge loop. It is idempotent per Shutdown.
func (s *Server) StartBackground() error {
	if s.background != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.background = cancel

	if err := s.hub.StartWiring(ctx); err != nil {
		cancel()
		s.background = nil
		return fmt.Errorf("start notification wiring: %w", err)
	}
	s.scheduler.Start(ctx)
	go s.purgeRevokedTokens(ctx)
	return nil
}

func (s *Server) purgeRevokedTokens(ctx context.Context) {
	ticker := time.NewTicker(tokenPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := s.tokenRepo.PurgeExpired(ctx, now)
			if err != nil {
				middleware.Logger.WarnContext(ctx, "revoked token purge failed", slog.String("error", err.Error()))
				continue
			}
			if n > 0 {
				middleware.Logger.InfoContext(ctx, "purged expired revoked tokens", slog.Int64("count", n))
			}
		}
	}
}

// Start builds the app, starts background work, and listens on the configured port.
func (s *Server) Start() error {
	app := s.NewApp()
	if err := s.StartBackground(); err != nil {
		return err
	}
	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown stops the HTTP server, then the scheduler, then the notification hub,
// and finally closes the database and Redis.
func (s *Server) Shutdown(ctx context.Context) error {
	step := func(name string, fn func(context.Context) error) {
		stepCtx, cancel := context.WithTimeout(ctx, shutdownStepTimeout)
		defer cancel()
		if err := fn(stepCtx); err != nil {
			middleware.Logger.Error("shutdown step failed", slog.String("step", name), slog.String("error", err.Error()))
		}
	}

	if s.app != nil {
		step("http", s.app.ShutdownWithContext)
	}
	step("scheduler", s.scheduler.Stop)
	if s.background != nil {
		s.background()
		s.background = nil
	}
	step("hub", s.hub.Shutdown)

	step("database", func(context.Context) error {
		sqlDB, err := s.db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})
	if s.redis != nil {
		step("redis", func(context.Context) error { return s.redis.Close() })
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
