package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"fxrelay/internal/api"
	"fxrelay/internal/api/handler"
	"fxrelay/internal/config"
	httpserver "fxrelay/internal/platform/http"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Run wires the application components, starts HTTP server and scheduler
func Run(cfg *config.AppConfig) error {
	ConfigureLogging(cfg.Logging.Level)
	logrus.Info("✅ Config initialization successful")

	// Root context bound to OS signals for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := Build(ctx, cfg)
	if err != nil {
		logrus.WithError(err).Error("Failed to build app")
		return err
	}
	defer a.Close()
	logrus.WithFields(logrus.Fields{
		"currency_hub": a.Nodes.CurrencyHub,
		"requester":    a.Nodes.Requester,
		"relay":        a.Nodes.Relay,
		"reporter":     a.Nodes.Reporter,
	}).Info("✅ Nodes ready")

	if a.Scheduler != nil {
		// Ensure scheduler stops before the store closes
		defer func() {
			if shutDownErr := a.Scheduler.Shutdown(); shutDownErr != nil {
				logrus.Errorf("Scheduler shutdown error: %v", shutDownErr)
			}
		}()
		if startErr := a.Scheduler.Start(ctx); startErr != nil {
			logrus.WithError(startErr).Error("Failed to start scheduler")
			return startErr
		}
		logrus.Info("✅ Scheduler activation successful")
	}

	router := api.NewRouter(handler.NewHandler(a.Bus, a.Addr), a.Registry)

	g, gCtx := errgroup.WithContext(ctx)

	// Deferred message pump
	g.Go(func() error {
		a.Bus.Run(gCtx)
		return nil
	})

	// Block until context is canceled, then perform graceful shutdown.
	g.Go(func() error {
		logrus.Info("Starting http server")
		if serverErr := httpserver.Start(gCtx, cfg.HTTPServer, router); serverErr != nil {
			logrus.Errorf("HTTP server error: %v", serverErr)
			return serverErr
		}
		return nil
	})
	return g.Wait()
}
