package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/futig/news-rag/internal/config"
	"github.com/futig/news-rag/internal/telegram/handlers"
	"github.com/futig/news-rag/internal/telegram/middleware"
	"github.com/futig/news-rag/internal/telegram/render"
	"github.com/futig/news-rag/internal/telegram/state"
)

// Bot answers news questions sent as Telegram messages.
type Bot struct {
	api         *tgbotapi.BotAPI
	sender      handlers.Sender
	cfg         *config.TelegramConfig
	ask         *handlers.AskHandler
	history     *state.History
	logger      *zap.Logger
	loggingMW   *middleware.LoggingMiddleware
	recoveryMW  *middleware.RecoveryMiddleware
	rateLimitMW *middleware.RateLimiterMiddleware
	updatesChan tgbotapi.UpdatesChannel
	stopChan    chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

// New authorizes against the Bot API and builds the bot.
func New(cfg *config.TelegramConfig, query handlers.QueryUsecase, topK int, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("create bot API: %w", err)
	}

	logger.Info("telegram bot authorized",
		zap.String("username", api.Self.UserName),
		zap.Int64("id", api.Self.ID),
	)

	b := newBot(api, cfg, query, topK, logger)
	b.api = api
	return b, nil
}

func newBot(sender handlers.Sender, cfg *config.TelegramConfig, query handlers.QueryUsecase, topK int, logger *zap.Logger) *Bot {
	history := state.NewHistory(cfg.HistorySize, cfg.HistoryTTL)
	return &Bot{
		sender:      sender,
		cfg:         cfg,
		ask:         handlers.NewAskHandler(sender, query, topK, cfg.AnswerTimeout).WithHistory(history),
		history:     history,
		logger:      logger,
		loggingMW:   middleware.NewLoggingMiddleware(logger),
		recoveryMW:  middleware.NewRecoveryMiddleware(sender),
		rateLimitMW: middleware.NewRateLimiterMiddleware(cfg.RateLimitPerMinute, cfg.RateLimitBurst, sender),
		stopChan:    make(chan struct{}),
	}
}

// Start starts long polling and processes updates in the background.
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("starting telegram bot")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.UpdateTimeout
	b.updatesChan = b.api.GetUpdatesChan(u)

	go b.processUpdates(ctxzap.ToContext(ctx, b.logger))

	b.logger.Info("telegram bot started successfully")
	return nil
}

// Stop stops polling and waits, up to the shutdown timeout, for in-flight
// answers to be sent.
func (b *Bot) Stop() error {
	b.logger.Info("stopping telegram bot")

	b.stopOnce.Do(func() {
		close(b.stopChan)
		if b.api != nil {
			b.api.StopReceivingUpdates()
		}
	})

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	shutdownTimeout := time.Duration(b.cfg.ShutdownTimeout) * time.Second
	select {
	case <-done:
		b.logger.Info("all handlers completed gracefully")
	case <-time.After(shutdownTimeout):
		b.logger.Warn("shutdown timeout exceeded, some handlers may not have completed",
			zap.Duration("timeout", shutdownTimeout),
		)
		return fmt.Errorf("shutdown timeout exceeded")
	}

	b.logger.Info("telegram bot stopped successfully")
	return nil
}

func (b *Bot) processUpdates(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			ctxzap.Info(ctx, "context cancelled, stopping update processing")
			return
		case <-b.stopChan:
			ctxzap.Info(ctx, "stop signal received, stopping update processing")
			return
		case update, ok := <-b.updatesChan:
			if !ok {
				return
			}
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.dispatch(ctx, update)
			}()
		}
	}
}

// dispatch runs an update through rate limiting, logging and recovery.
func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	b.rateLimitMW.Handle(ctx, update, func(ctx context.Context, u tgbotapi.Update) {
		b.loggingMW.Handle(ctx, u, func(ctx context.Context, u tgbotapi.Update) {
			b.recoveryMW.Handle(ctx, u, b.handleUpdate)
		})
	})
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	message := update.Message
	if message == nil || message.Chat == nil || message.From == nil {
		return
	}

	if message.IsCommand() {
		b.handleCommand(ctx, message)
		return
	}

	msg := &handlers.Message{
		ChatID:    message.Chat.ID,
		UserID:    message.From.ID,
		MessageID: message.MessageID,
		Text:      message.Text,
	}
	if err := b.ask.Handle(ctx, msg); err != nil {
		ctxzap.Error(ctx, "failed to reply", zap.Error(err))
	}
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	command := message.Command()
	ctxzap.Info(ctx, "command received", zap.String("command", command))

	var text string
	switch command {
	case "start":
		text = render.MsgWelcome
	case "help":
		text = render.MsgHelp
	case "history":
		text = render.FormatHistory(b.history.Recent(message.Chat.ID))
	case "clear":
		b.history.Clear(message.Chat.ID)
		text = render.MsgHistoryCleared
	default:
		text = render.MsgUnknownCommand
	}

	if _, err := b.sender.Send(tgbotapi.NewMessage(message.Chat.ID, text)); err != nil {
		ctxzap.Error(ctx, "failed to send command reply", zap.Error(err), zap.String("command", command))
	}
}
