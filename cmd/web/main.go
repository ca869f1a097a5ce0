package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"invoice-extractor/internal/config"
	"invoice-extractor/internal/httpclient"
	"invoice-extractor/internal/invoice"
	"invoice-extractor/internal/logger"
	"invoice-extractor/internal/provider"
	"invoice-extractor/internal/web"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	httpClient := httpclient.New(httpclient.Options{
		PreferIPv4: cfg.PreferIPv4,
		Timeout:    cfg.HTTPTimeout,
		Logger:     log,
	})

	asker, err := provider.New(cfg, httpClient, log)
	if err != nil {
		log.Error("model client init failed", "err", err)
		os.Exit(1)
	}

	svc := invoice.NewService(invoice.Options{
		Asker:       asker,
		Instruction: cfg.Instruction,
		Logger:      log,
	})

	srv, err := web.NewServer(web.Options{
		Addr:      cfg.WebAddr,
		Submitter: svc,
		Logger:    log,
	})
	if err != nil {
		log.Error("web init failed", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting", "provider", cfg.Provider, "addr", srv.Addr())
	if err := srv.Start(ctx); err != nil {
		log.Error("server error", "err", err)
		os.Exit(1)
	}
	log.Info("shutting down")
}
