package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rfid_locker_lending/app"
	"rfid_locker_lending/config"
	"rfid_locker_lending/logger"
	"rfid_locker_lending/routes"
)

func main() {
	config.LoadEnv()
	cfg := config.Load()

	log := logger.Setup(cfg.Env)
	log.Info("starting locker lending service", slog.String("env", cfg.Env), slog.String("store", cfg.StoreDriver))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application := app.MustNew(cfg, log)
	defer application.Close()

	if err := app.BootstrapLockers(ctx, application.Store, cfg.LockerCount, log); err != nil {
		log.Error("locker bootstrap failed", logger.Err(err))
	}

	r := application.Router
	routes.RegisterRoutes(r, application)

	application.Sweeper.Start(ctx)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("listening", slog.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", logger.Err(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", logger.Err(err))
	}
}
