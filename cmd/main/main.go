package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	conf "github.com/jarabaplatform/tenant-exporter/config"
	"github.com/jarabaplatform/tenant-exporter/internal/app"
	httphandler "github.com/jarabaplatform/tenant-exporter/internal/handler/http"
	"github.com/jarabaplatform/tenant-exporter/internal/otel"
)

func main() {

	// Load configuration
	config, appErr := conf.LoadConfig()
	if appErr != nil {
		slog.Error("tenant_exporter.main.configuration_error", slog.String("error", appErr.Error()))
		return
	}

	// Tracing
	shutdown, err := otel.Setup(context.Background(), config.Otel.Endpoint)
	if err != nil {
		slog.Error("tenant_exporter.main.tracing_initialization_error", slog.String("error", err.Error()))
		return
	}

	// Initialize the application
	application, appErr := app.New(config, shutdown)
	if appErr != nil {
		slog.Error("tenant_exporter.main.application_initialization_error", slog.String("error", appErr.Error()))
		return
	}

	// Initialize signal handling for graceful shutdown
	initSignals(application)

	// Log the configuration
	slog.Debug("tenant_exporter.main.configuration_loaded",
		slog.String("bind_addr", config.Service.BindAddr),
		slog.String("service_id", config.Service.Id),
		slog.String("storage_backend", config.Storage.Backend),
	)

	handler := httphandler.New(application).Router()

	// Start the application
	slog.Info("tenant_exporter.main.starting_application")
	startErr := application.Start(handler)
	if startErr != nil {
		slog.Error("tenant_exporter.main.application_start_error", slog.String("error", startErr.Error()))
	} else {
		slog.Info("tenant_exporter.main.application_started_successfully")
	}

}

func initSignals(application *app.App) {
	slog.Info("tenant_exporter.main.initializing_stop_signals")
	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch)

	go func() {
		for {
			s := <-sigch
			handleSignals(s, application)
		}
	}()
}

func handleSignals(signal os.Signal, application *app.App) {
	if signal == syscall.SIGTERM || signal == syscall.SIGINT {
		err := application.Stop()
		if err != nil {
			return
		}
		slog.Info(
			"tenant_exporter.main.received_kill_signal",
			slog.String(
				"signal",
				signal.String(),
			),
			slog.String(
				"status",
				"service gracefully stopped",
			),
		)
		os.Exit(0)
	}
}
