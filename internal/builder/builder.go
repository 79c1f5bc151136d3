package builder

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/futig/news-rag/internal/api"
	newsapi "github.com/futig/news-rag/internal/api/news"
	"github.com/futig/news-rag/internal/config"
	"github.com/futig/news-rag/internal/telegram"
)

// Build creates the HTTP application.
func Build() (*App, error) {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	core, err := NewCore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger := core.Logger

	logger.Info("Building application",
		zap.String("environment", cfg.Environment),
		zap.String("server_addr", cfg.ServerAddr),
	)

	newsHandler := newsapi.NewHandler(core.Query, core.Ingest)
	router := api.SetupRouter(newsHandler, logger)
	logger.Info("HTTP router configured")

	server := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Answers may wait on generation retries.
		WriteTimeout: 150 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("Application built successfully")

	return &App{
		server: server,
		core:   core,
		logger: logger,
	}, nil
}

// BuildTelegramBot creates the Telegram bot. The returned core must be
// closed after the bot is stopped.
func BuildTelegramBot() (telegram.Bot, *Core, error) {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.TelegramCfg.BotToken == "" {
		return nil, nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	core, err := NewCore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	core.Logger.Info("Building Telegram bot", zap.String("environment", cfg.Environment))

	bot, err := telegram.NewBot(&cfg.TelegramCfg, core.Query, cfg.RetrievalCfg.TopK, core.Logger)
	if err != nil {
		_ = core.Close(ctx)
		return nil, nil, fmt.Errorf("initialize telegram bot: %w", err)
	}

	core.Logger.Info("Telegram bot built successfully")

	return bot, core, nil
}
