package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"moviebase/internal/auth"
	"moviebase/internal/config"
	apphttp "moviebase/internal/http"
	"moviebase/internal/repository/sqlite"
	"moviebase/internal/service"
	"moviebase/internal/tmdb"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		logger.Fatalf("auth jwt secret is required")
	}
	if strings.TrimSpace(cfg.TMDB.APIKey) == "" {
		logger.Warn("tmdb api key is not set, catalog requests will fail")
	} else {
		logger.Info("tmdb api key configured")
	}
	logger.Infof("environment: %s, database: %s", cfg.Environment, cfg.Database.Path)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	// a failing ping is reported by /api/health, not treated as fatal
	if err := db.PingContext(ctx); err != nil {
		logger.Warnf("database ping: %v", err)
	}

	userRepo := sqlite.NewUserRepository(db)
	if err := userRepo.Init(ctx); err != nil {
		logger.Fatalf("init user repository: %v", err)
	}

	userService, err := service.NewUserService(userRepo)
	if err != nil {
		logger.Fatalf("setup user service: %v", err)
	}

	catalog := tmdb.NewClient(tmdb.Config{
		BaseURL:  cfg.TMDB.BaseURL,
		APIKey:   cfg.TMDB.APIKey,
		Language: cfg.TMDB.Language,
	})

	aggregator := service.NewFavoritesAggregator(userService, catalog, service.AggregatorConfig{
		Concurrency: cfg.Aggregator.Concurrency,
		Timeout:     time.Duration(cfg.Aggregator.TimeoutSeconds) * time.Second,
		Logger:      logger,
	})

	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(
		userService,
		aggregator,
		catalog,
		tokens,
		db,
		cfg.TMDB.ImageBaseURL,
		cfg.Environment,
		logger,
	)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
}
