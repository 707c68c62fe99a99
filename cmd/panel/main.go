// Package main запускает HTTP-сервер и сверку заказов панели.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/smm-panel/internal/config"
	"github.com/mmeshcher/smm-panel/internal/handler"
	"github.com/mmeshcher/smm-panel/internal/middleware"
	"github.com/mmeshcher/smm-panel/internal/notify"
	"github.com/mmeshcher/smm-panel/internal/provider"
	"github.com/mmeshcher/smm-panel/internal/repository"
	"github.com/mmeshcher/smm-panel/internal/service"
)

func main() {
	cfg, err := config.Parse()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger initialization error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	sugar := logger.Sugar()

	if err := cfg.Validate(); err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}

	providerClient := provider.NewClient(cfg.ProviderAPIURL, cfg.ProviderAPIKey, cfg.ProviderTimeout, cfg.ProviderRPS)
	notifier := notify.New(cfg.TelegramAPIURL, cfg.TelegramToken, cfg.TelegramChatID, logger)

	svc := service.NewService(repo, providerClient, notifier, logger)
	defer svc.Close()

	reconciler := service.NewReconciler(repo, providerClient, logger.Named("reconciler"), cfg.ReconcileSchedule, cfg.ReconcileBatchSize)

	if cfg.AuthSecret == "" {
		sugar.Warn("AUTH_SECRET is not set, tokens will not survive restart")
	}
	authMiddleware := middleware.NewAuthMiddleware(cfg.AuthSecret)
	h := handler.NewHandler(svc, logger, authMiddleware)

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Сверка статусов заказов с поставщиком
	g.Go(func() error {
		if err := reconciler.Start(ctx); err != nil {
			return fmt.Errorf("reconciler error: %w", err)
		}
		return nil
	})

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting panel server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	err = g.Wait()

	if tg, ok := notifier.(*notify.Telegram); ok {
		tg.Wait()
	}

	if err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
		zcfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	return zcfg.Build()
}
