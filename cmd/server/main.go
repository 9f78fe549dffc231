// Package main runs the webinar enrollment gateway: the browser-facing
// service that drives enrollment and payment confirmation against the
// webinar backend and the hosted checkout.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aura-webinar/client/config"
	"github.com/aura-webinar/client/internal/backend"
	"github.com/aura-webinar/client/internal/catalog"
	"github.com/aura-webinar/client/internal/enrollment"
	"github.com/aura-webinar/client/internal/metrics"
	"github.com/aura-webinar/client/internal/middleware"
	"github.com/aura-webinar/client/internal/payment"
	"github.com/aura-webinar/client/internal/realtime"
	"github.com/aura-webinar/client/pkg/redis"
	"github.com/aura-webinar/client/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	metrics.Register()

	backendClient := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.RequestTimeout, logger)

	// Catalog cache is best-effort; the gateway runs without Redis.
	var cache catalog.Cache
	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Warn("catalog cache disabled", zap.Error(err))
	} else {
		defer rdb.Close()
		cache = catalog.NewRedisCache(rdb.Client, logger)
	}

	// Catalog
	catalogService := catalog.NewService(backendClient, cache, cfg.Catalog.CacheTTL, logger)
	catalogHandler := catalog.NewHandler(catalogService)

	// Enrollment flow
	hub := realtime.NewHub(logger)
	checker := enrollment.NewStatusChecker(backendClient, logger)
	initiator := payment.NewInitiator(backendClient, logger)
	gateway := payment.NewHostedGateway(logger)
	verifier := payment.NewVerifier(backendClient, logger)
	controller := enrollment.NewController(checker, initiator, gateway, verifier, hub, enrollment.CheckoutConfig{
		Currency:    cfg.Gateway.Currency,
		Description: cfg.Gateway.CheckoutDescription,
	}, logger)
	enrollmentHandler := enrollment.NewHandler(controller, catalogService, gateway, cfg.Gateway.CompleteWait, logger)

	// When the last watcher of an attempt disconnects, its checkout session
	// has no hosting page left; tear it down so the attempt settles.
	hub.SetDetachHandler(func(attemptID string) {
		snap, ok := controller.Attempt(attemptID)
		if !ok || snap.State != enrollment.StateAwaitingPayment {
			return
		}
		gateway.Abandon(snap.OrderID)
	})

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Catalog (public)
	router.GET("/webinars", catalogHandler.List)

	// Enrollment flow (credential travels in the Authorization header; its
	// absence is the flow's own Unauthenticated outcome, not a 401 at the door)
	router.POST("/webinars/:id/enroll", enrollmentHandler.Enroll)
	router.GET("/attempts/:id", enrollmentHandler.Get)
	router.POST("/attempts/:id/complete", enrollmentHandler.Complete)
	router.POST("/attempts/:id/cancel", enrollmentHandler.Cancel)

	// WebSocket (attempt state push)
	router.GET("/ws", realtime.ServeWs(hub, logger, func(attemptID string) (interface{}, bool) {
		snap, ok := controller.Attempt(attemptID)
		return snap, ok
	}))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
