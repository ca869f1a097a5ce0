package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"invoice-extractor/internal/config"
	"invoice-extractor/internal/handlers"
	"invoice-extractor/internal/httpclient"
	"invoice-extractor/internal/invoice"
	"invoice-extractor/internal/logger"
	"invoice-extractor/internal/mediagroup"
	"invoice-extractor/internal/provider"
	"invoice-extractor/internal/telegram"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := cfg.RequireTelegram(); err != nil {
		panic(err)
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	httpClient := httpclient.New(httpclient.Options{
		PreferIPv4: cfg.PreferIPv4,
		Timeout:    cfg.HTTPTimeout,
		Logger:     log,
	})

	tg, err := telegram.New(telegram.Options{
		Token:      cfg.TelegramToken,
		HTTPClient: httpClient,
		Logger:     log,
		Debug:      cfg.Debug,
	})
	if err != nil {
		log.Error("telegram init failed", "err", err)
		os.Exit(1)
	}

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

	handler := handlers.New(handlers.Options{
		Telegram:  tg,
		Submitter: svc,
		Logger:    log,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sem := make(chan struct{}, cfg.MaxConcurrent)
	onGroupFlush := func(group mediagroup.Group) {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return
		}

		go func() {
			defer func() { <-sem }()
			handler.HandleMediaGroup(ctx, group)
		}()
	}

	aggregator := mediagroup.New(mediagroup.Options{
		Debounce: cfg.MediaGroupDebounce,
		OnFlush:  onGroupFlush,
	})
	handler.SetMediaGroupAggregator(aggregator)

	log.Info("bot started", "username", tg.Username(), "provider", cfg.Provider)

	updates := tg.Updates(telegram.UpdatesOptions{
		Timeout: 30 * time.Second,
	})
	defer tg.StopUpdates()

	for {
		select {
		case <-ctx.Done():
			log.Info("shutting down")
			return
		case update, ok := <-updates:
			if !ok {
				log.Info("updates channel closed")
				return
			}

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}

			go func(update telegram.Update) {
				defer func() { <-sem }()

				if err := handler.HandleUpdate(ctx, update); err != nil && !errors.Is(err, context.Canceled) {
					log.Error("handle update failed", "err", err)
				}
			}(update)
		}
	}
}
