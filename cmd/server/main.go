// Package main initializes and starts the development chat server, setting
// up configuration, logging, the database, repositories, services, handlers
// and optional TLS.
package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/atinyakov/GophChat/internal/config"
	"github.com/atinyakov/GophChat/internal/db"
	"github.com/atinyakov/GophChat/internal/logger"
	"github.com/atinyakov/GophChat/internal/middleware"
	"github.com/atinyakov/GophChat/internal/repository"
	"github.com/atinyakov/GophChat/internal/server/handler/http"
	"github.com/atinyakov/GophChat/internal/service"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	options, err := config.ParseServer(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	postgresDB, err := db.InitPostgres(options.DatabaseDSN)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}
	defer postgresDB.Close()

	db.StartTokenCleaner(ctx, postgresDB,
		time.Hour,
		time.Duration(options.TokenRetentionHours)*time.Hour,
		zapLogger,
	)

	userRepo := repository.NewPostgresUserRepository(postgresDB)
	tokenRepo := repository.NewPostgresTokenRepository(postgresDB)
	catalogRepo := repository.NewPostgresCatalogRepository(postgresDB)

	authService := service.NewAuthService(userRepo, tokenRepo)
	catalogService := service.NewCatalogService(catalogRepo, userRepo, service.DefaultPresenceWindow)

	authHandler := &http.AuthHandler{AuthService: authService}
	catalogHandler := &http.CatalogHandler{CatalogService: catalogService}

	router := http.NewRouter(authHandler, catalogHandler, middleware.NewMetrics(), rate.Limit(options.LoginRate), zapLogger)

	server := &nethttp.Server{
		Addr:              options.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zapLogger.Error("failed to shut down server", zap.Error(err))
		}
	}()

	if options.TLSCert != "" {
		zapLogger.Info("starting HTTPS server", zap.String("addr", options.Port))
		err = server.ListenAndServeTLS(options.TLSCert, options.TLSKey)
	} else {
		zapLogger.Info("starting HTTP server", zap.String("addr", options.Port))
		err = server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		zapLogger.Fatal("server failed", zap.Error(err))
	}
}
