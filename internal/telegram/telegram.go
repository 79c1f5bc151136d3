// Package telegram exposes the question answering pipeline as a Telegram bot.
package telegram

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/futig/news-rag/internal/config"
	"github.com/futig/news-rag/internal/telegram/bot"
	"github.com/futig/news-rag/internal/telegram/handlers"
)

// Bot is the main telegram bot interface
type Bot interface {
	Start(ctx context.Context) error
	Stop() error
}

// NewBot creates the bot. Every non-command text message is answered with
// query.Ask using topK passages.
func NewBot(cfg *config.TelegramConfig, query handlers.QueryUsecase, topK int, logger *zap.Logger) (Bot, error) {
	b, err := bot.New(cfg, query, topK, logger)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	logger.Info("telegram bot initialized successfully")
	return b, nil
}
