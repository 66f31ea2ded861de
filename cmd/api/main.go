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

	_ "posbackend/api/swagger" // swagger docs
	"posbackend/internal/config"
	"posbackend/internal/database"
	"posbackend/internal/events"
	"posbackend/internal/handler"
	"posbackend/internal/logger"
	"posbackend/internal/middleware"
	"posbackend/internal/repository"
	"posbackend/internal/service"
	"posbackend/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// @title           POS Settlement API
// @version         1.0
// @description     Shift reconciliation, refunds and voids for the point of sale.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load("configs/.env")
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	logg, err := logger.New(cfg.LogLevel, cfg.GinMode)
	if err != nil {
		log.Fatalf("Logger setup failed: %v", err)
	}
	defer func() { _ = logg.Sync() }()

	if err := run(cfg, logg); err != nil {
		logg.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logg *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(cfg.DSN())
	if err != nil {
		return err
	}
	logg.Info("connected to PostgreSQL", zap.String("host", cfg.DBHost), zap.String("database", cfg.DBName))

	if cfg.DBAutoMigrate {
		if err := database.Migrate(db, logg); err != nil {
			return err
		}
	}
	capabilities := database.ResolveCapabilities(db)
	logg.Info("schema capabilities resolved", zap.Any("capabilities", capabilities))

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(logg.Named("ws"))

	publishers := events.Multi{wsHub}
	if cfg.AMQPURL != "" {
		amqpPublisher, err := events.ConnectAMQP(cfg.AMQPURL, logg.Named("amqp"))
		if err != nil {
			return err
		}
		defer amqpPublisher.Close()
		publishers = append(publishers, amqpPublisher)
	}

	// Set up dependencies (Repository -> Service -> Handler)
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	var limiter service.RateLimiter
	switch cfg.RateLimitBackend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		limiter = service.NewRedisRateLimiter(rdb, cfg.RateLimitPerMinute, logg)
	default:
		limiter = service.NewAuditRateLimiter(auditRepo, cfg.RateLimitPerMinute, logg)
	}

	defaults := service.DefaultPolicy()
	defaults.RefundPeriodDays = cfg.RefundPeriodDays
	defaults.VarianceThreshold = cfg.VarianceThreshold

	deps := service.SettlementDeps{
		TxManager:    repository.NewTransactionManager(db, cfg.LockTimeout),
		Orders:       repository.NewOrderRepository(db),
		Shifts:       repository.NewShiftRepository(db),
		Refunds:      repository.NewRefundRepository(db),
		Tables:       repository.NewTableRepository(db),
		Kitchen:      repository.NewKitchenRepository(db),
		CashSessions: repository.NewCashSessionRepository(db),
		Policies:     service.NewPolicyResolver(repository.NewSettingsRepository(db), defaults),
		Gate:         service.NewApprovalGate(userRepo),
		Audit:        service.NewAuditWriter(auditRepo, logg, cfg.AuditStrict),
		Limiter:      limiter,
		Publisher:    publishers,
		Capabilities: capabilities,
		Logger:       logg,
	}

	// Initialize Handlers
	settlementHandler := handler.NewSettlementHandler(
		service.NewShiftService(deps),
		service.NewRefundService(deps),
		service.NewVoidService(deps),
		service.NewAuditService(auditRepo),
		service.NewApproverService(userRepo, cfg.PINHashCost),
	)

	// Set up Gin Router
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(logg))

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{middleware.RequestIDHeader}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "schema_version": capabilities.Version})
	})

	// WebSocket endpoint
	secret := []byte(cfg.JWTSecret)
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, secret)
	})

	settlementHandler.RegisterRoutes(router.Group("", middleware.Authenticate(secret)))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		wsHub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		logg.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		logg.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
