package middleware

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// Next is the rest of the update processing chain.
type Next func(ctx context.Context, update tgbotapi.Update)

// LoggingMiddleware attaches an update-scoped logger to the context and logs
// every processed update.
type LoggingMiddleware struct {
	logger *zap.Logger
}

func NewLoggingMiddleware(logger *zap.Logger) *LoggingMiddleware {
	return &LoggingMiddleware{logger: logger}
}

func (m *LoggingMiddleware) Handle(ctx context.Context, update tgbotapi.Update, next Next) {
	start := time.Now()

	userID, chatID := updateIDs(update)
	updateLogger := m.logger.With(
		zap.Int("update_id", update.UpdateID),
		zap.Int64("user_id", userID),
		zap.Int64("chat_id", chatID),
	)
	ctx = ctxzap.ToContext(ctx, updateLogger)

	updateLogger.Debug("telegram update received")

	next(ctx, update)

	updateLogger.Info("telegram update processed", zap.Duration("duration", time.Since(start)))
}

// updateIDs returns the sender and chat of an update, zero for update kinds
// the bot ignores.
func updateIDs(update tgbotapi.Update) (userID, chatID int64) {
	if update.Message != nil {
		if update.Message.From != nil {
			userID = update.Message.From.ID
		}
		if update.Message.Chat != nil {
			chatID = update.Message.Chat.ID
		}
	}
	return userID, chatID
}
