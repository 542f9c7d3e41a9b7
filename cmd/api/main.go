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

	"github.com/emekaobi/payvault/internal/api"
	"github.com/emekaobi/payvault/internal/config"
	"github.com/emekaobi/payvault/internal/events"
	"github.com/emekaobi/payvault/internal/service"
	"github.com/emekaobi/payvault/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "error", err)
		os.Exit(1)
	}

	var ledgerStore store.Store
	if cfg.DBSource != "" {
		pg, err := store.NewPostgresStore(cfg.DBSource)
		if err != nil {
			slog.Error("unable to connect to database", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		ledgerStore = pg
	} else {
		slog.Warn("DB_SOURCE not set, using in-memory store")
		ledgerStore = store.NewMemoryStore()
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.KafkaBroker != "" {
		kp := events.NewKafkaPublisher(cfg.KafkaBroker, cfg.KafkaTopic)
		defer kp.Close()
		publisher = kp
	}

	directory := service.NewDirectoryService(ledgerStore)
	ledger := service.NewLedgerService(ledgerStore)
	transfers := service.NewTransferService(ledgerStore, publisher)
	requests := service.NewRequestService(ledgerStore, publisher)
	handler := api.NewHandler(directory, ledger, transfers, requests)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: api.NewRouter(handler),
	}

	go func() {
		slog.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}
}
