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

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/cricstream/live-backend/internal/config"
	"github.com/cricstream/live-backend/internal/httpapi"
	"github.com/cricstream/live-backend/internal/hub"
	"github.com/cricstream/live-backend/internal/identity"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		logger.Fatal("opening database", zap.Error(err))
	}
	store := identity.NewStore(db)
	if err := store.Migrate(); err != nil {
		logger.Fatal("migrating identity tables", zap.Error(err))
	}

	// Build the hub first, inject it into the routes.
	h := hub.New(ctx, logger)
	handler := httpapi.SetupRoutes(h, store, logger, cfg.AllowedOrigins)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: handler}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
