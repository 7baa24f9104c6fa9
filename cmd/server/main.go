package main // Entry point package

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/movie-catalog/internal/config"
	"github.com/iliyamo/movie-catalog/internal/database"
	"github.com/iliyamo/movie-catalog/internal/handler"
	"github.com/iliyamo/movie-catalog/internal/logging"
	"github.com/iliyamo/movie-catalog/internal/media"
	"github.com/iliyamo/movie-catalog/internal/middleware"
	"github.com/iliyamo/movie-catalog/internal/queue"
	"github.com/iliyamo/movie-catalog/internal/repository"
	"github.com/iliyamo/movie-catalog/internal/router"
	"github.com/iliyamo/movie-catalog/internal/service"
)

func main() {
	cfg, err := config.Load() // .env first, then the process environment
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	// Database and schema
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return err
	}
	defer db.Close()
	version, err := database.Migrate(db, cfg.DBName)
	if err != nil {
		return err
	}
	logger.Info("schema up to date", zap.Uint("version", version))

	// Redis is optional: without it the limiter is per-process and nothing
	// is cached.
	redisCfg, err := config.LoadRedisConfig()
	if err != nil {
		return err
	}
	rdb := config.NewRedisClient(redisCfg)
	if rdb == nil {
		logger.Warn("redis unavailable; using in-process rate limiting, cache disabled", zap.String("addr", redisCfg.Addr))
	} else {
		defer rdb.Close()
	}

	// Media host
	host, err := media.NewS3Host(ctx, cfg.Media)
	if err != nil {
		return err
	}

	// Catalog events
	var events queue.Publisher = queue.NopPublisher{}
	if cfg.Queue.Enabled {
		events = queue.NewAMQPPublisher(cfg.Queue.URL, cfg.Queue.Name, logger)
		consumer := &queue.Consumer{URL: cfg.Queue.URL, Queue: cfg.Queue.Name, LogDir: cfg.Queue.LogDir, Log: logger}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("catalog consumer stopped", zap.Error(err))
			}
		}()
	}

	// Services
	auth := service.NewAuthService(repository.NewUserRepo(db), service.AuthConfig{
		Secret:     cfg.JWTSecret,
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
		BcryptCost: cfg.BcryptCost,
	}, logger)
	catalog := service.NewCatalogService(repository.NewMovieRepo(db), host, events, service.CatalogConfig{
		StrictDelete: cfg.Media.StrictDelete,
		MediaFolder:  cfg.Media.Folder,
	}, logger)

	// Middleware configuration
	apiLimitCfg, err := config.LoadRateLimitConfig()
	if err != nil {
		return err
	}
	authLimitCfg, err := config.LoadAuthRateLimitConfig()
	if err != nil {
		return err
	}
	cacheCfg, err := config.LoadCacheConfig()
	if err != nil {
		return err
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = handler.HTTPErrorHandler(logger)
	e.Use(echomw.RequestID())
	e.Use(logging.RequestLogger(logger))
	e.Use(echomw.Recover())

	router.RegisterRoutes(e)
	router.RegisterAuth(e,
		handler.NewAuthHandler(auth, cfg.RequestTimeout, logger),
		cfg.JWTSecret,
		middleware.NewTokenBucket(authLimitCfg, rdb, logger),
	)
	router.RegisterMovies(e,
		handler.NewMovieHandler(catalog, cfg.RequestTimeout, cfg.Media.UploadTimeout, cfg.Media.MaxPosterBytes, logger),
		cfg.JWTSecret,
		// Room for the multipart framing and text fields around the poster.
		echomw.BodyLimit(fmt.Sprintf("%dK", cfg.Media.MaxPosterBytes/1024+512)),
		middleware.NewTokenBucket(apiLimitCfg, rdb, logger),
		middleware.InvalidateOnWrite(cacheCfg, rdb, logger),
		middleware.NewRedisCache(cacheCfg, rdb, logger),
	)

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
