// Package main initializes and starts the local artrecord HTTP API,
// setting up configuration, logging, storage, the catalog engine,
// palettes, the orphan janitor and handlers.
package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/artrecord/internal/backend"
	"github.com/atinyakov/artrecord/internal/catalog"
	"github.com/atinyakov/artrecord/internal/config"
	"github.com/atinyakov/artrecord/internal/logger"
	"github.com/atinyakov/artrecord/internal/server/handler/http"
	"github.com/atinyakov/artrecord/internal/store"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line and environment configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open the storage buckets.
	buckets, err := backend.Open(options, zapLogger)
	if err != nil {
		zapLogger.Fatal("cannot open storage", zap.Error(err))
	}
	defer func() { _ = buckets.Close() }()

	// Build the catalog engine and the palettes service.
	engine := catalog.New(ctx,
		store.NewRecordStore(buckets.Containers, zapLogger),
		store.NewBlobStore(buckets.Images, zapLogger),
		catalog.WithLogger(zapLogger),
	)
	palettes := catalog.NewPalettes(ctx,
		store.NewPaletteStore(buckets.Containers, zapLogger),
		catalog.LoadSitePalettes(options.PalettesPath, zapLogger),
		zapLogger,
	)

	// Sweep images left behind by interrupted writes.
	if options.JanitorInterval.Duration > 0 {
		catalog.StartJanitor(ctx, engine, options.JanitorInterval.Duration, zapLogger)
	}

	// Build the router with middleware and routes.
	router := http.NewRouter(
		&http.RecordHandler{Catalog: engine},
		&http.PaletteHandler{Palettes: palettes},
		options.AllowedOrigins(),
		zapLogger,
	)

	server := &nethttp.Server{
		Addr:              options.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	zapLogger.Info("starting HTTP server", zap.String("addr", options.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		zapLogger.Fatal("failed to start HTTP server", zap.Error(err))
	}
}
