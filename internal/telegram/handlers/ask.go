package handlers

import (
	"context"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/futig/news-rag/internal/telegram/render"
	"github.com/futig/news-rag/internal/telegram/state"
)

// AskHandler answers a text message as a news question.
type AskHandler struct {
	sender   Sender
	query    QueryUsecase
	topK     int
	timeout  time.Duration
	typingIn time.Duration
	history  *state.History
}

func NewAskHandler(sender Sender, query QueryUsecase, topK int, timeout time.Duration) *AskHandler {
	return &AskHandler{
		sender:   sender,
		query:    query,
		topK:     topK,
		timeout:  timeout,
		typingIn: typingInterval,
	}
}

// WithHistory records every answered question in history.
func (h *AskHandler) WithHistory(history *state.History) *AskHandler {
	h.history = history
	return h
}

func (h *AskHandler) Handle(ctx context.Context, msg *Message) error {
	question := strings.TrimSpace(msg.Text)
	if question == "" {
		return h.reply(msg, render.MsgEmptyQuestion)
	}

	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	typing := NewTypingNotifier(h.sender, msg.ChatID, h.typingIn)
	typing.Start(ctx)
	defer typing.Stop()
	answer, err := h.query.Ask(ctx, question, h.topK)
	typing.Stop()

	if err != nil {
		ctxzap.Error(ctx, "failed to answer question", zap.Error(err))
		return h.reply(msg, render.ClassifyError(err))
	}

	ctxzap.Info(ctx, "question answered", zap.Int("answer_len", len(answer.Text)))

	if strings.TrimSpace(answer.Text) == "" {
		return h.reply(msg, render.MsgEmptyAnswer)
	}

	h.history.Append(msg.ChatID, state.Exchange{
		Question: question,
		Answer:   answer.Text,
		AskedAt:  time.Now().UTC(),
	})

	for _, part := range render.SplitMessage(answer.Text, render.MaxMessageLength) {
		if err := h.reply(msg, part); err != nil {
			return err
		}
	}
	return nil
}

func (h *AskHandler) reply(msg *Message, text string) error {
	out := tgbotapi.NewMessage(msg.ChatID, text)
	out.ReplyToMessageID = msg.MessageID
	_, err := h.sender.Send(out)
	return err
}
