package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"member-intake/config"
	deliveryHttp "member-intake/internal/delivery/http"
	"member-intake/internal/delivery/http/handler"
	"member-intake/internal/delivery/http/middleware"
	"member-intake/internal/infrastructure/cache"
	"member-intake/internal/infrastructure/database"
	"member-intake/internal/infrastructure/endpoint"
	"member-intake/internal/repository"
	"member-intake/internal/schema"
	"member-intake/internal/service"
	"member-intake/internal/usecase"
	"member-intake/pkg/jwt"
	"member-intake/pkg/validator"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// App holds all dependencies for the application
type App struct {
	Config       *config.Config
	DB           *gorm.DB
	RedisClient  *redis.Client
	SessionGuard *service.SessionGuard
	Server       *http.Server
}

// New creates a new App instance with all dependencies initialized
func New() (*App, error) {
	app := &App{}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	app.Config = cfg

	// Setup logger
	setupLogger(cfg.Log)
	logrus.Info("Configuration loaded successfully")

	if cfg.Endpoint.BaseURL == "" {
		logrus.Warn("MEMBER_ENDPOINT_URL is not set; submissions and address lookups will fail")
	}

	// Apply database migrations
	if err := database.RunMigrations(cfg.DB); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Initialize database
	db, err := database.NewPostgresConnection(cfg.DB, gormLogLevel(cfg.App.Env))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = db
	logrus.Info("Database connected successfully")

	// Initialize Redis
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	app.RedisClient = redisClient
	logrus.Info("Redis connected successfully")

	// Initialize all layers
	server, err := app.initializeServer(cfg, db, redisClient)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Server = server

	return app, nil
}

// setupLogger configures the logrus logger
func setupLogger(cfg config.LogConfig) {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

func gormLogLevel(env string) logger.LogLevel {
	if env == "development" {
		return logger.Info
	}
	return logger.Warn
}

// initializeServer creates and configures the HTTP server
func (app *App) initializeServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*http.Server, error) {
	// Initialize logger
	log := logrus.StandardLogger()

	// Initialize JWT service
	jwtService := jwt.NewJWTService(cfg.JWT)

	// Initialize validator and member schema
	customValidator := validator.NewValidator()
	memberSchema, err := schema.NewMemberSchema(customValidator)
	if err != nil {
		return nil, fmt.Errorf("failed to build member schema: %w", err)
	}

	// Initialize repositories
	auditLogRepo := repository.NewAuditLogRepository()
	formSessionRepo := repository.NewFormSessionRepository(redisClient, cfg.Session.TTL)

	// Initialize services
	auditService := service.NewAuditService(db, log, auditLogRepo)
	app.SessionGuard = service.NewSessionGuard(log)
	endpointClient := endpoint.NewClient(cfg.Endpoint, log)

	// Initialize usecases
	memberFormUsecase := usecase.NewMemberFormUsecase(log, formSessionRepo, memberSchema, endpointClient, app.SessionGuard, auditService, jwtService, staleExchangeAfter(cfg.Endpoint))
	optionsUsecase := usecase.NewOptionsUsecase()
	auditLogUsecase := usecase.NewAuditLogUsecase(log, auditService)

	// Initialize handlers
	memberFormHandler := handler.NewMemberFormHandler(memberFormUsecase, customValidator)
	optionsHandler := handler.NewOptionsHandler(optionsUsecase)
	auditLogHandler := handler.NewAuditLogHandler(auditLogUsecase)

	// Initialize middleware
	sessionMiddleware := middleware.NewSessionMiddleware(jwtService)
	corsMiddleware := middleware.NewCORSMiddleware(cfg.CORS)

	// Initialize router
	router := deliveryHttp.NewRouter(memberFormHandler, optionsHandler, auditLogHandler, sessionMiddleware, corsMiddleware)

	// Create server
	serverAddr := fmt.Sprintf(":%s", cfg.App.Port)
	return &http.Server{
		Addr:              serverAddr,
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}

// Run starts the HTTP server and handles graceful shutdown
func (app *App) Run() {
	// Start server in goroutine
	go func() {
		logrus.Infof("Server starting on port %s", app.Config.App.Port)
		logrus.Infof("Environment: %s", app.Config.App.Env)
		if err := app.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	app.waitForShutdown()
}

// waitForShutdown blocks until an interrupt signal is received
func (app *App) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	// Give in-flight exchanges their full endpoint timeout to finish
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(app.Config.Endpoint))
	defer cancel()

	// Shutdown HTTP server gracefully
	if err := app.Server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	// Close connections
	app.Close()

	logrus.Info("Server shutdown complete")
}

// Close stops background work and closes all connections (database, redis).
func (app *App) Close() {
	if app.SessionGuard != nil {
		app.SessionGuard.Stop()
	}

	// Close database connection
	if app.DB != nil {
		sqlDB, err := app.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}

	// Close Redis connection
	if app.RedisClient != nil {
		app.RedisClient.Close()
	}
}

// staleExchangeAfter is how long a saved in-flight flag is trusted before the
// exchange is considered interrupted.
func staleExchangeAfter(cfg config.EndpointConfig) time.Duration {
	return 2 * cfg.Timeout
}

func shutdownTimeout(cfg config.EndpointConfig) time.Duration {
	return max(10*time.Second, cfg.Timeout+5*time.Second)
}
