// @title Callboard API
// @version 1.0
// @description Classified-ads board: users post calls (listings) with images, search and favourite them.
// @host localhost:8080
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer <token>"
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xyz-asif/callboard/internal/config"
	"github.com/xyz-asif/callboard/internal/database"
	"github.com/xyz-asif/callboard/internal/features/calls"
	"github.com/xyz-asif/callboard/internal/middleware"
	"github.com/xyz-asif/callboard/internal/pkg/cache"
	"github.com/xyz-asif/callboard/internal/pkg/events"
	"github.com/xyz-asif/callboard/internal/pkg/logger"
	"github.com/xyz-asif/callboard/internal/pkg/metrics"
	"github.com/xyz-asif/callboard/internal/pkg/ratelimit"
	"github.com/xyz-asif/callboard/internal/pkg/response"
	"github.com/xyz-asif/callboard/internal/pkg/storage"
	"github.com/xyz-asif/callboard/internal/pkg/validator"
	"github.com/xyz-asif/callboard/internal/routes"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	docs "github.com/xyz-asif/callboard/docs"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	zlog, err := logger.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		log.Fatal("Failed to build logger:", err)
	}
	defer func() { _ = zlog.Sync() }()

	docs.SwaggerInfo.Title = "Callboard API"
	docs.SwaggerInfo.Version = "1.0"
	docs.SwaggerInfo.Host = "localhost:" + cfg.Port
	docs.SwaggerInfo.BasePath = "/"
	docs.SwaggerInfo.Schemes = []string{"http"}

	if err := validator.Setup(); err != nil {
		zlog.Fatal("Failed to register validators", zap.Error(err))
	}
	if err := calls.RegisterValidators(); err != nil {
		zlog.Fatal("Failed to register call validators", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		zlog.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer func() { _ = db.Disconnect(context.Background()) }()

	uploader, err := storage.New(ctx, cfg, zlog.Named("storage"))
	if err != nil {
		zlog.Fatal("Failed to initialize image storage", zap.String("backend", cfg.ImageStorage), zap.Error(err))
	}

	var callCache cache.Cache = cache.Noop{}
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CacheTTL)
		if err != nil {
			zlog.Warn("Redis unavailable, running without cache", zap.Error(err))
		} else {
			defer func() { _ = rc.Close() }()
			callCache = rc
		}
	}

	var publisher events.Publisher = events.Noop{}
	if cfg.NATSURL != "" {
		nc, err := events.NewNATS(cfg.NATSURL, zlog.Named("events"))
		if err != nil {
			zlog.Warn("NATS unavailable, call events disabled", zap.Error(err))
		} else {
			publisher = nc
		}
	}
	defer publisher.Close()

	m := metrics.New("callboard")

	limiter := ratelimit.New(cfg.AuthRateLimit, cfg.AuthRateWindow)
	limiter.StartCleanup(ctx, time.Minute)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery(zlog))
	router.Use(middleware.Logger(zlog.Named("http")))
	router.Use(middleware.CORS(cfg.FrontendURL))
	router.Use(m.Middleware())

	router.GET("/health", func(c *gin.Context) {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(pingCtx); err != nil {
			response.ServiceUnavailable(c, "Database unreachable", "MONGO_DOWN")
			return
		}
		response.Success(c, map[string]interface{}{
			"status": "ok",
			"time":   time.Now().Unix(),
		})
	})
	router.GET("/metrics", m.Handler())

	router.GET(
		"/swagger/*any",
		ginSwagger.WrapHandler(
			swaggerFiles.Handler,
			ginSwagger.URL("/swagger/doc.json"),
			ginSwagger.DeepLinking(true),
			ginSwagger.DefaultModelsExpandDepth(-1),
			ginSwagger.DocExpansion("none"),
			ginSwagger.PersistAuthorization(true),
		),
	)

	routes.SetupRoutes(router, routes.Dependencies{
		Config:   cfg,
		Mongo:    db,
		Uploader: uploader,
		Cache:    callCache,
		Events:   publisher,
		Metrics:  m,
		Limiter:  limiter,
		Logger:   zlog,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		zlog.Info("Server starting", zap.String("port", cfg.Port), zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()

	zlog.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("Server forced to shutdown", zap.Error(err))
		os.Exit(1)
	}

	zlog.Info("Server exited")
}
