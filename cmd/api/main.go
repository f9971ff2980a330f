package main

import (
	"context"
	"crypto/rsa"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric/global"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/E-Bousk/natours/cmd"
	"github.com/E-Bousk/natours/metrics"
	_MyMiddleware "github.com/E-Bousk/natours/middleware"
	_ReviewHttpDelivery "github.com/E-Bousk/natours/review/delivery/http"
	_ReviewRepo "github.com/E-Bousk/natours/review/repository"
	_ReviewUcase "github.com/E-Bousk/natours/review/usecase"
	"github.com/E-Bousk/natours/mail"
	"github.com/E-Bousk/natours/store"
	_TourHttpDelivery "github.com/E-Bousk/natours/tour/delivery/http"
	_TourRepo "github.com/E-Bousk/natours/tour/repository"
	_TourUcase "github.com/E-Bousk/natours/tour/usecase"
	_UserHttpDelivery "github.com/E-Bousk/natours/user/delivery/http"
	_UserRepo "github.com/E-Bousk/natours/user/repository"
	_UserUcase "github.com/E-Bousk/natours/user/usecase"
	"github.com/E-Bousk/natours/web"
	"github.com/E-Bousk/natours/web/auth"
)

func main() {
	// Logging
	logger, err := zap.NewDevelopment(zap.AddCaller())
	if err != nil {
		log.Println("can't create logger: ", err)
		return
	}
	defer func() {
		// do not need to check for errors
		_ = logger.Sync()
	}()

	if err := run(logger); err != nil {
		logger.Error("shutting down, error: ", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	// Configuration
	configPath, ok := os.LookupEnv("NATOURS_CONFIG")
	if !ok {
		return fmt.Errorf("NATOURS_CONFIG environment variable is not specified")
	}
	logger.Info("Config path", zap.String(configPath, configPath))
	cfg, err := cmd.AppConfig(configPath, logger)
	if err != nil {
		return err
	}

	// Initialize authentication support
	authenticator, err := createAuth(cfg.Auth.PrivateKeyFile, cfg.Auth.KeyID, cfg.Auth.Algorithm)
	if err != nil {
		return err
	}
	tokenExpiry := time.Duration(cfg.Auth.TokenExpiration) * time.Hour

	// Initialize context
	timeoutContext := time.Duration(cfg.Server.Timeout) * time.Second
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize tracing
	traceExporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithInsecure(),
		otlptracegrpc.WithEndpoint(cfg.Server.OtlpAddress),
		otlptracegrpc.WithDialOption(grpc.WithBlock()),
	)
	if err != nil {
		return err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			// the service name used to display traces in backends
			semconv.ServiceNameKey.String("natours-api"),
		),
	)
	if err != nil {
		return err
	}

	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()), // dev env only
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp),
	)
	otel.SetTracerProvider(tp)
	tracer := otel.Tracer("natours-tracer")
	defer func() {
		if err = tp.Shutdown(ctx); err != nil {
			logger.Error("shutdown tracer provider", zap.Error(err))
		}
		if err = traceExporter.Shutdown(ctx); err != nil {
			logger.Error("shutdown tracing exporter", zap.Error(err))
		}
	}()

	// Initialize metrics
	metricExporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithInsecure(),
		otlpmetricgrpc.WithEndpoint(cfg.Server.OtlpAddress),
		otlpmetricgrpc.WithDialOption(grpc.WithBlock()),
	)
	if err != nil {
		return err
	}

	meterProvider := metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(metricExporter, metric.WithInterval(10*time.Second))),
		metric.WithResource(res),
	)
	global.SetMeterProvider(meterProvider)

	defer func() {
		if err = meterProvider.Shutdown(ctx); err != nil {
			logger.Error("shutdown meter provider", zap.Error(err))
		}
		if err = metricExporter.Shutdown(ctx); err != nil {
			logger.Error("shutdown metric exporter", zap.Error(err))
		}
	}()

	// Create database connection
	client, err := store.Open(ctx, cfg.MongoConfig, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err = client.Disconnect(ctx); err != nil {
			logger.Error("mongodb client disconnect error: ", zap.Error(err))
		}
	}()

	// Repositories
	tr := _TourRepo.NewMongoTourRepository(client, cfg.MongoConfig.Name, logger, tracer)
	ur := _UserRepo.NewMongoUserRepository(client, cfg.MongoConfig.Name, logger, tracer)
	rr := _ReviewRepo.NewMongoReviewRepository(client, cfg.MongoConfig.Name, logger, tracer)

	// Echo configure
	e := echo.New()
	middL := _MyMiddleware.InitMiddleware(logger, ur)
	e.Pre(middleware.Rewrite(map[string]string{
		"/api/*": "/$1",
	}))
	e.Use(middL.CORS)
	e.Use(middL.Logger)
	e.Use(middleware.RecoverWithConfig(middleware.DefaultRecoverConfig))
	e.Use(middleware.Secure())
	if cfg.Server.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))
	}
	e.Use(otelecho.Middleware("natours", otelecho.WithTracerProvider(tp)))
	e.Use(metrics.Middleware(metrics.WithMeterProvider(meterProvider)))

	// Rate limiting
	var rdb *redis.Client
	if cfg.RateLimit.Enabled {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RateLimit.RedisAddr})
		defer func() {
			if err = rdb.Close(); err != nil {
				logger.Error("redis client close error: ", zap.Error(err))
			}
		}()
	}
	e.Use(middL.RateLimit(cfg.RateLimit, rdb))

	// Initialize validator
	v, err := web.NewAppValidator()
	if err != nil {
		return err
	}
	e.Validator = v

	// Mail
	mailer := mail.New(cfg.Email)

	// Create Tour API
	tu := _TourUcase.NewTourUsecase(tr, timeoutContext, tracer)
	th := _TourHttpDelivery.NewTourHandler(tu, authenticator, v, logger, tracer)
	th.RegisterRoutes(e, middL)

	// Create User API
	uu := _UserUcase.NewUserUsecase(ur, mailer, tokenExpiry, timeoutContext, logger, tracer)
	uh := _UserHttpDelivery.NewUserHandler(uu, authenticator, v, logger, tracer)
	uh.RegisterRoutes(e, middL)

	// Create Review API
	ru := _ReviewUcase.NewReviewUsecase(rr, tr, timeoutContext, logger, tracer)
	rh := _ReviewHttpDelivery.NewReviewHandler(ru, authenticator, v, logger, tracer)
	rh.RegisterRoutes(e, middL)

	// Status check
	store.NewStatusHandler(e, client.Database(cfg.MongoConfig.Name), logger)

	go func() {
		if err := e.Start(cfg.Server.Address); err != nil {
			logger.Error("can't start server: ", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	shutdownCtx, cancelSrv := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelSrv()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("can't shutdownn server: %w", err)
	}

	return nil
}

func createAuth(privateKeyFile, keyID, algorithm string) (*auth.Authenticator, error) {
	keyContents, err := os.ReadFile(privateKeyFile)
	if err != nil {
		return nil, fmt.Errorf("can't read auth private key: %w", err)
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM(keyContents)
	if err != nil {
		return nil, fmt.Errorf("can't parse auth private key: %w", err)
	}

	public := auth.NewSimpleKeyLookupFunc(keyID, key.Public().(*rsa.PublicKey))

	return auth.NewAuthenticator(key, keyID, algorithm, public)
}
