package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/zumerkk/entas-sub001/common/auth"
	apperrors "github.com/zumerkk/entas-sub001/common/errors"
	"github.com/zumerkk/entas-sub001/common/logger"
	commonmw "github.com/zumerkk/entas-sub001/common/middleware"
	"github.com/zumerkk/entas-sub001/controllers"
	"github.com/zumerkk/entas-sub001/database"
	"github.com/zumerkk/entas-sub001/middleware"
	awspkg "github.com/zumerkk/entas-sub001/pkg/aws"
	"github.com/zumerkk/entas-sub001/repository"
	"github.com/zumerkk/entas-sub001/routes"
	"github.com/zumerkk/entas-sub001/services"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Bootstrap logger until config decides on the CloudWatch sink
	bootLog, err := logger.New(os.Getenv("APP_ENV"), nil)
	if err != nil {
		log.Fatal("failed to initialize logger: ", err)
	}

	awsCfg, awsErr := awspkg.LoadAWSConfig(ctx)
	if awsErr != nil {
		bootLog.Warn("AWS config unavailable, AWS integrations disabled", zap.Error(awsErr))
	}

	var secrets awspkg.SecretGetter
	if awsErr == nil {
		secrets = awspkg.NewSecretsClient(awsCfg)
	}
	cfg, err := LoadConfig(ctx, secrets, bootLog)
	if err != nil {
		bootLog.Fatal("failed to load configuration", zap.Error(err))
	}

	// --- 1. Logging & metrics ---
	appLog := bootLog
	if cfg.CloudWatchEnabled && awsErr == nil {
		sink, err := awspkg.NewCloudWatchLogsClient(ctx, awsCfg, cfg.CloudWatchLogGroup, serviceName)
		if err != nil {
			bootLog.Warn("CloudWatch Logs unavailable, logging to stdout only", zap.Error(err))
		} else if appLog, err = logger.New(cfg.AppEnv, sink); err != nil {
			bootLog.Fatal("failed to initialize logger", zap.Error(err))
		}
	} else if appLog, err = logger.New(cfg.AppEnv, nil); err != nil {
		bootLog.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer func() { _ = appLog.Sync() }()
	zap.ReplaceGlobals(appLog)

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	var metrics awspkg.MetricsRecorder
	if awsErr == nil && cfg.CloudWatchEnabled {
		metrics = awspkg.NewMetricsClient(awsCfg, cfg.CloudWatchNamespace, cfg.CloudWatchEnabled)
	}

	// --- 2. Storage ---
	mongoDB, err := database.Connect(ctx, cfg.MongoURI, cfg.MongoDB, appLog)
	if err != nil {
		appLog.Fatal("failed to connect to MongoDB", zap.Error(err))
	}

	attrSetRepo := repository.NewAttributeSetRepository(mongoDB.DB)
	variantRepo := repository.NewVariantRepository(mongoDB.DB)
	paymentRepo := repository.NewPaymentRepository(mongoDB.DB)
	for name, ensure := range map[string]func(context.Context) error{
		repository.AttributeSetsCollection:   attrSetRepo.EnsureIndexes,
		repository.ProductVariantsCollection: variantRepo.EnsureIndexes,
		repository.PaymentsCollection:        paymentRepo.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			appLog.Fatal("failed to ensure indexes", zap.String("collection", name), zap.Error(err))
		}
	}

	var cache services.AttributeSetCache
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			appLog.Warn("failed to parse REDIS_URL, attribute set cache disabled", zap.Error(err))
		} else {
			redisClient = redis.NewClient(opts)
			cache = services.NewCacheManager(redisClient, cfg.CacheTTL, appLog)
		}
	}

	// --- 3. Services ---
	var references services.ReferenceChecker
	if cfg.ProductServiceURL != "" || cfg.OrderServiceURL != "" || cfg.CustomerServiceURL != "" {
		references = services.NewReferenceClient(cfg.ProductServiceURL, cfg.OrderServiceURL, cfg.CustomerServiceURL, appLog)
	}

	var publisher awspkg.SNSPublisher
	if cfg.PaymentTopicARN != "" && awsErr == nil {
		publisher = awspkg.NewSNSClient(awsCfg)
	}

	attrSetService := services.NewAttributeSetService(attrSetRepo, cache, metrics, appLog)
	variantService := services.NewVariantService(variantRepo, attrSetService, references, metrics, appLog)
	paymentService := services.NewPaymentService(paymentRepo, references, publisher, cfg.PaymentTopicARN, metrics, appLog)
	stripeService := services.NewStripeService(cfg.StripeWebhookSecret)

	// --- 4. Background workers ---
	var workers sync.WaitGroup

	if cfg.PaymentCallbackQueue != "" && awsErr == nil {
		consumer := awspkg.NewSQSConsumer(awsCfg, cfg.PaymentCallbackQueue, appLog)
		callbacks := services.NewGatewayCallbackHandler(paymentService, metrics, appLog)
		workers.Add(1)
		go func() {
			defer workers.Done()
			if err := consumer.StartPolling(ctx, callbacks.Handle); err != nil && !errors.Is(err, context.Canceled) {
				appLog.Error("payment callback consumer stopped", zap.Error(err))
			}
		}()
	}

	if publisher != nil {
		reconciler := services.NewPaymentReconciler(paymentService, cfg.ReconcileInterval, cfg.ReconcileGrace, cfg.ReconcileBatch, appLog)
		workers.Add(1)
		go func() {
			defer workers.Done()
			reconciler.Run(ctx)
		}()
	}

	limiter := commonmw.NewRateLimiter(rate.Limit(cfg.RateLimitPerSecond), cfg.RateLimitBurst, 5*time.Minute)
	go limiter.RunCleanup(ctx)

	// --- 5. HTTP server & middleware ---
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(commonmw.RequestID())
	r.Use(commonmw.RequestLogger(appLog))
	r.Use(commonmw.MetricsMiddleware(metrics, serviceName))
	// Renders errors attached by anything registered after it
	r.Use(apperrors.ErrorMiddleware())
	r.Use(commonmw.SecurityHeaders())
	r.Use(commonmw.CORS(cfg.AllowedOrigins))
	r.Use(commonmw.RateLimitMiddleware(limiter))
	r.Use(commonmw.Timeout(30 * time.Second))

	routes.RegisterRoutes(r, routes.Controllers{
		Health:        controllers.NewHealthController(serviceName, mongoDB),
		AttributeSets: controllers.NewAttributeSetController(attrSetService),
		Variants:      controllers.NewVariantController(variantService),
		Payments:      controllers.NewPaymentController(paymentService, stripeService, appLog),
	}, middleware.AuthOptions{
		Tokens:              auth.NewTokenValidator(cfg.JWTSecret),
		TrustGatewayHeaders: cfg.TrustGatewayHeaders,
	})

	r.NoRoute(func(c *gin.Context) {
		apperrors.Abort(c, apperrors.ErrNotFound)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLog.Info("service starting", zap.String("service", serviceName), zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// --- 6. Graceful shutdown ---
	<-ctx.Done()
	appLog.Info("shutting down service")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("server forced to shutdown", zap.Error(err))
	}
	workers.Wait()

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			appLog.Error("failed to close Redis", zap.Error(err))
		}
	}
	if err := mongoDB.Close(); err != nil {
		appLog.Error("failed to disconnect MongoDB", zap.Error(err))
	}

	appLog.Info("service stopped gracefully")
}
