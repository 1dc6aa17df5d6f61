package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/xyz-asif/callboard/internal/config"
	"github.com/xyz-asif/callboard/internal/database"
	"github.com/xyz-asif/callboard/internal/features/auth"
	"github.com/xyz-asif/callboard/internal/features/calls"
	"github.com/xyz-asif/callboard/internal/features/users"
	"github.com/xyz-asif/callboard/internal/pkg/cache"
	"github.com/xyz-asif/callboard/internal/pkg/events"
	"github.com/xyz-asif/callboard/internal/pkg/jwt"
	"github.com/xyz-asif/callboard/internal/pkg/metrics"
	"github.com/xyz-asif/callboard/internal/pkg/ratelimit"
	"github.com/xyz-asif/callboard/internal/pkg/storage"
	"go.uber.org/zap"
)

// Dependencies are the process-wide clients main builds before routing
type Dependencies struct {
	Config   *config.Config
	Mongo    *database.MongoDB
	Uploader storage.Uploader
	Cache    cache.Cache
	Events   events.Publisher
	Metrics  *metrics.Metrics
	Limiter  *ratelimit.RateLimiter
	Logger   *zap.Logger
}

func SetupRoutes(router *gin.Engine, deps Dependencies) {
	cfg := deps.Config
	db := deps.Mongo.Database
	api := router.Group("")

	usersRepo := users.NewRepository(db)
	sessionsRepo := auth.NewRepository(db)
	callsRepo := calls.NewRepository(db)

	tokens := TokenConfig(cfg)

	google := auth.NewGoogle(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.BaseURL)
	authHandler := auth.NewHandler(usersRepo, sessionsRepo, google, tokens, cfg.HashPower, deps.Logger.Named("auth"))
	authorize := authHandler.Authorize()

	opts := []calls.Option{
		calls.WithCache(deps.Cache),
		calls.WithEvents(deps.Events),
		calls.WithMetrics(deps.Metrics),
		calls.WithLogger(deps.Logger.Named("calls")),
	}
	if cfg.MongoTransactions {
		opts = append(opts, calls.WithTransactions(deps.Mongo))
	}
	callService := calls.NewService(callsRepo, usersRepo, deps.Uploader, opts...)

	auth.RegisterRoutes(api, authHandler, deps.Limiter)
	users.RegisterRoutes(api, users.NewHandler(usersRepo), authorize)
	calls.RegisterRoutes(api, calls.NewHandler(callService), authorize)
}

// TokenConfig builds the JWT settings, keeping the defaults for expiries
// that are not positive.
func TokenConfig(cfg *config.Config) *jwt.Config {
	tokens := jwt.DefaultConfig(cfg.JWTAccessSecret, cfg.JWTRefreshSecret)
	if cfg.JWTAccessExpire > 0 {
		tokens.AccessExpiry = cfg.JWTAccessExpire
	}
	if cfg.JWTRefreshExpire > 0 {
		tokens.RefreshExpiry = cfg.JWTRefreshExpire
	}
	return tokens
}
