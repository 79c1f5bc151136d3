package handlers

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/futig/news-rag/internal/entity"
)

// Message is a normalized incoming Telegram text message.
type Message struct {
	ChatID    int64
	UserID    int64
	MessageID int
	Text      string
}

// Sender is the part of the Bot API the handlers use. *tgbotapi.BotAPI
// implements it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type QueryUsecase interface {
	Ask(ctx context.Context, question string, k int) (*entity.Answer, error)
}
