package main

import (
	"alcyxob/checkin-scheduler/internal/api"
	"alcyxob/checkin-scheduler/internal/config"
	"alcyxob/checkin-scheduler/internal/notify"
	"alcyxob/checkin-scheduler/internal/schedule"
	"alcyxob/checkin-scheduler/internal/service"
	"alcyxob/checkin-scheduler/internal/storage"
	"alcyxob/checkin-scheduler/internal/telemetry"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		return serve(cmd.Context(), cfg)
	},
}

func serve(ctx context.Context, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.JWT.Secret == "" {
		return errors.New("jwt.secret is required")
	}

	// --- Tracing ---
	shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(ctx); err != nil {
			slog.Error("Failed to flush traces", "error", err)
		}
	}()

	// --- Operating clock ---
	loc, err := schedule.ParseUTCOffset(cfg.Schedule.UTCOffset)
	if err != nil {
		return fmt.Errorf("schedule.utc_offset: %w", err)
	}
	clock := schedule.NewOperatingClock(loc)

	// --- Storage ---
	store, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.close()

	// --- Notifications ---
	var next notify.Dispatcher = notify.LogDispatcher{}
	if cfg.NATS.URL != "" {
		nd, err := notify.NewNatsDispatcher(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		defer nd.Close()
		next = nd
	}
	notifier := notify.NewAsync(next, cfg.Schedule.NotificationTimeout)

	// --- Archive storage ---
	var archiver service.Archiver
	if cfg.S3.Enabled() {
		s3Archive, err := storage.NewS3Archive(ctx, cfg.S3)
		if err != nil {
			return fmt.Errorf("init s3 archive: %w", err)
		}
		archiver = s3Archive
	}

	// --- Services ---
	grid := schedule.DefaultGrid()
	bookingService := service.NewBookingService(store.checkIns, store.subscriptions, grid, clock, notifier)
	slotService := service.NewSlotService(store.checkIns, grid, clock)
	quotaService := service.NewQuotaService(store.checkIns, store.subscriptions, clock)
	notesService := service.NewNotesService(store.checkIns)
	purgeService := service.NewPurgeService(store.checkIns, archiver)

	// --- HTTP ---
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(
		gin.Recovery(),
		otelgin.Middleware(cfg.Telemetry.ServiceName),
		api.MetricsMiddleware(),
		api.RequestLogger(),
	)
	api.SetupRoutes(router, cfg.JWT.Secret, bookingService, slotService, quotaService, notesService, purgeService)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Server starting", "address", cfg.Server.Address, "utc_offset", cfg.Schedule.UTCOffset, "driver", cfg.Database.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// --- Graceful Shutdown ---
	select {
	case err := <-serverErr:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}
	slog.Info("Shutting down server")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()
	if err := server.Shutdown(ctxShutdown); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	// Let in-flight confirmations reach the broker before it is closed.
	notifier.Wait()
	slog.Info("Server exiting")
	return nil
}
