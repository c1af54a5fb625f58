package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/coopmetrics/internal/config"
	"github.com/mamadbah2/coopmetrics/internal/export/sheets"
	"github.com/mamadbah2/coopmetrics/internal/repository/mongodb"
	"github.com/mamadbah2/coopmetrics/internal/scheduler"
	"github.com/mamadbah2/coopmetrics/internal/server/handlers"
	"github.com/mamadbah2/coopmetrics/internal/server/router"
	analyticssvc "github.com/mamadbah2/coopmetrics/internal/service/analytics"
	reportingsvc "github.com/mamadbah2/coopmetrics/internal/service/reporting"
	"github.com/mamadbah2/coopmetrics/pkg/clients/notify"
	"github.com/mamadbah2/coopmetrics/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Server.LogLevel))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	store, err := mongodb.NewMongoStore(context.Background(), cfg.MongoDB.URI, cfg.MongoDB.DBName)
	if err != nil {
		baseLogger.Fatal("failed to init mongodb store", zap.Error(err))
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close mongodb connection", zap.Error(err))
		}
	}()

	analyticsSvc := analyticssvc.NewService(store, cfg.Analytics, baseLogger.Named("svc.analytics"))
	reportingSvc := reportingsvc.NewService(store, analyticsSvc, baseLogger.Named("svc.reporting"))

	notifyClient := notify.NewWebhookClient(cfg.Notifier)

	var exporter scheduler.Exporter
	if cfg.Sheets.Enabled {
		sheetExporter, err := sheets.NewGoogleSheetExporter(context.Background(), cfg.Sheets, baseLogger.Named("export.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets exporter", zap.Error(err))
		}
		exporter = sheetExporter
		baseLogger.Info("google sheets export enabled", zap.String("spreadsheet_id", cfg.Sheets.SpreadsheetID))
	}

	sched := scheduler.NewScheduler(store, reportingSvc, notifyClient, exporter, cfg.Scheduler, baseLogger.Named("scheduler"))
	sched.Start()
	defer sched.Stop()

	analyticsHandler := handlers.NewAnalyticsHandler(reportingSvc, sched, baseLogger.Named("handlers.analytics"))
	engine := router.New(analyticsHandler, baseLogger.Named("router"))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
