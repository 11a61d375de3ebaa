// Package main is the terminal chat client. It keeps the login session of
// the selected server and drives it from a small shell.
package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/atinyakov/GophChat/internal/client/browser"
	"github.com/atinyakov/GophChat/internal/client/database"
	"github.com/atinyakov/GophChat/internal/client/i18n"
	"github.com/atinyakov/GophChat/internal/client/oauth"
	"github.com/atinyakov/GophChat/internal/client/remote"
	"github.com/atinyakov/GophChat/internal/client/session"
	"github.com/atinyakov/GophChat/internal/client/storage"
	"github.com/atinyakov/GophChat/internal/config"
	"github.com/atinyakov/GophChat/internal/logger"
	"github.com/atinyakov/GophChat/internal/models"
)

var (
	version   string
	buildDate string
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Printf("GophChat Client\nVersion: %s\nBuild Date: %s\n", cmp.Or(version, "N/A"), cmp.Or(buildDate, "N/A"))
		return
	}

	cfg, err := config.ParseClient(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(cfg.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := run(cfg, log.Log); err != nil {
		log.Log.Fatal("client failed", zap.Error(err))
	}
}

func run(cfg *config.ClientOptions, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	creds, closeCreds, err := openCredentials(cfg)
	if err != nil {
		return err
	}
	defer closeCreds()

	db, err := database.Open(filepath.Join(cfg.DataDir, "db"), false, log)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.Server(cfg.Server); errors.Is(err, database.ErrNotFound) {
		if err := db.AddServer(models.ServerIdentity{URL: cfg.Server, Services: cfg.Services}); err != nil {
			return fmt.Errorf("register server: %w", err)
		}
	} else if err != nil {
		return err
	}

	httpClient, err := remote.NewHTTPClient(cfg.CAFile, time.Duration(cfg.RequestTimeout)*time.Second)
	if err != nil {
		return err
	}
	api := remote.New(httpClient, nil, cfg.PushToken, log)

	locale, err := i18n.New(cfg.Languages...)
	if err != nil {
		return err
	}

	out := &printer{out: os.Stdout}
	o := session.New(session.Deps{
		Remote:      api,
		Credentials: creds,
		Store:       db,
		Locale:      locale,
		Emitter:     out,
		Provider:    cfg.OAuthProvider,
		Log:         log,
	}, session.WithServer(cfg.Server))

	out.openLogout = func(url string) {
		reinit := func() {
			if err := o.Dispatch(ctx, session.AppInitRequested{}); err != nil {
				log.Warn("failed to restart session", zap.Error(err))
			}
		}
		flow := oauth.NewFlow(o.Server(), browser.New(cfg.Browser, log), o, reinit, log)
		if err := flow.Run(ctx, url); err != nil {
			log.Warn("logout web flow failed", zap.Error(err))
		}
	}

	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	if err := o.Dispatch(ctx, session.AppInitRequested{}); err != nil {
		return err
	}

	sh := &shell{o: o, servers: db, services: cfg.Services, locale: locale.Current, out: os.Stdout}
	shellDone := make(chan struct{})
	go func() {
		defer close(shellDone)
		sh.run(ctx, os.Stdin)
	}()
	select {
	case <-shellDone:
	case <-ctx.Done():
	}

	stop()
	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// openCredentials opens the configured credential backend.
func openCredentials(cfg *config.ClientOptions) (storage.CredentialStore, func(), error) {
	switch cfg.CredentialBackend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return storage.NewRedisStore(rdb, storage.DefaultRedisPrefix), func() { _ = rdb.Close() }, nil
	default:
		key, err := storage.LoadOrCreateDeviceKey(filepath.Join(cfg.DataDir, "device.key"))
		if err != nil {
			return nil, nil, err
		}
		aead, err := storage.NewAEAD(key)
		if err != nil {
			return nil, nil, err
		}
		fs, err := storage.NewFileStore(filepath.Join(cfg.DataDir, "credentials.json"), aead)
		if err != nil {
			return nil, nil, err
		}
		return fs, func() {}, nil
	}
}
