package bot

import (
	"context"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/futig/news-rag/internal/config"
	"github.com/futig/news-rag/internal/entity"
	"github.com/futig/news-rag/internal/telegram/render"
)

type fakeSender struct {
	mu    sync.Mutex
	texts []string
}

func (s *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		s.texts = append(s.texts, m.Text)
	}
	return tgbotapi.Message{}, nil
}

func (s *fakeSender) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

type fakeQuery struct {
	questions []string
}

func (q *fakeQuery) Ask(_ context.Context, question string, _ int) (*entity.Answer, error) {
	q.questions = append(q.questions, question)
	if question == "panic" {
		panic("handler bug")
	}
	return &entity.Answer{Text: "answer to " + question}, nil
}

func testConfig() *config.TelegramConfig {
	return &config.TelegramConfig{
		RateLimitPerMinute: 60,
		RateLimitBurst:     10,
		ShutdownTimeout:    1,
	}
}

func message(text string) tgbotapi.Update {
	m := &tgbotapi.Message{
		MessageID: 3,
		From:      &tgbotapi.User{ID: 1},
		Chat:      &tgbotapi.Chat{ID: 2},
		Text:      text,
	}
	if len(text) > 0 && text[0] == '/' {
		m.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}}
	}
	return tgbotapi.Update{UpdateID: 1, Message: m}
}

func TestDispatch_Question(t *testing.T) {
	sender, query := &fakeSender{}, &fakeQuery{}
	b := newBot(sender, testConfig(), query, 5, zap.NewNop())

	b.dispatch(context.Background(), message("who won the match?"))

	assert.Equal(t, []string{"who won the match?"}, query.questions)
	assert.Equal(t, []string{"answer to who won the match?"}, sender.texts)
}

func TestDispatch_Commands(t *testing.T) {
	sender, query := &fakeSender{}, &fakeQuery{}
	b := newBot(sender, testConfig(), query, 5, zap.NewNop())

	b.dispatch(context.Background(), message("/start"))
	b.dispatch(context.Background(), message("/help"))
	b.dispatch(context.Background(), message("/nope"))

	assert.Empty(t, query.questions)
	assert.Equal(t, []string{render.MsgWelcome, render.MsgHelp, render.MsgUnknownCommand}, sender.texts)
}

func TestDispatch_HistoryCommands(t *testing.T) {
	cfg := testConfig()
	cfg.HistorySize = 5
	cfg.HistoryTTL = time.Hour
	sender, query := &fakeSender{}, &fakeQuery{}
	b := newBot(sender, cfg, query, 5, zap.NewNop())
	ctx := context.Background()

	b.dispatch(ctx, message("/history"))
	b.dispatch(ctx, message("who won the match?"))
	b.dispatch(ctx, message("/history"))
	b.dispatch(ctx, message("/clear"))
	b.dispatch(ctx, message("/history"))

	require.Len(t, sender.texts, 5)
	assert.Equal(t, render.MsgHistoryEmpty, sender.texts[0])
	assert.Contains(t, sender.texts[2], "1. who won the match?\nanswer to who won the match?")
	assert.Equal(t, render.MsgHistoryCleared, sender.texts[3])
	assert.Equal(t, render.MsgHistoryEmpty, sender.texts[4])
	assert.Equal(t, []string{"who won the match?"}, query.questions)
}

func TestDispatch_RecoversFromPanics(t *testing.T) {
	sender := &fakeSender{}
	b := newBot(sender, testConfig(), &fakeQuery{}, 5, zap.NewNop())

	require.NotPanics(t, func() {
		b.dispatch(context.Background(), message("panic"))
	})
	assert.Equal(t, []string{render.ErrGeneric}, sender.texts)
}

func TestDispatch_IgnoresNonMessageUpdates(t *testing.T) {
	sender, query := &fakeSender{}, &fakeQuery{}
	b := newBot(sender, testConfig(), query, 5, zap.NewNop())

	b.dispatch(context.Background(), tgbotapi.Update{UpdateID: 9})

	assert.Empty(t, query.questions)
	assert.Empty(t, sender.texts)
}

func TestStop_WithoutStart(t *testing.T) {
	b := newBot(&fakeSender{}, testConfig(), &fakeQuery{}, 5, zap.NewNop())
	assert.NoError(t, b.Stop())
	assert.NoError(t, b.Stop())
}
