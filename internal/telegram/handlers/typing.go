package handlers

import (
	"context"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// Telegram shows "typing" for 5 seconds after each chat action.
const typingInterval = 4 * time.Second

// TypingNotifier keeps the "typing" indicator on while an answer is generated.
type TypingNotifier struct {
	sender   Sender
	chatID   int64
	interval time.Duration
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewTypingNotifier(sender Sender, chatID int64, interval time.Duration) *TypingNotifier {
	return &TypingNotifier{
		sender:   sender,
		chatID:   chatID,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start sends a typing action now and then every interval until Stop is
// called or ctx is done.
func (t *TypingNotifier) Start(ctx context.Context) {
	t.send(ctx)

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				t.send(ctx)
			case <-t.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the indicator and waits for the background sender to exit.
func (t *TypingNotifier) Stop() {
	t.stopOnce.Do(func() { close(t.done) })
	t.wg.Wait()
}

func (t *TypingNotifier) send(ctx context.Context) {
	action := tgbotapi.NewChatAction(t.chatID, tgbotapi.ChatTyping)
	if _, err := t.sender.Request(action); err != nil {
		ctxzap.Warn(ctx, "failed to send typing action", zap.Error(err), zap.Int64("chat_id", t.chatID))
	}
}
