// Package render holds the texts the bot sends to users.
package render

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"unicode/utf8"

	"github.com/futig/news-rag/internal/entity"
	"github.com/futig/news-rag/internal/telegram/state"
)

// Telegram rejects longer messages.
const MaxMessageLength = 4096

const (
	MsgWelcome = `👋 Hi! Ask me anything about recent news.

Just send a question as a normal message, for example:
"What happened with interest rates this week?"`

	MsgHelp = `🤖 Commands:

/start - Show the welcome message
/help - Show this help
/history - Show your recent questions
/clear - Forget your recent questions

Any other text is treated as a question. I search the indexed news for the
most relevant passages and answer from them only.`

	MsgEmptyQuestion   = "✍️ Please send your question as text."
	MsgEmptyAnswer     = "🤷 No answer was generated. Please try rephrasing the question."
	MsgHistoryEmpty    = "📭 No recent questions."
	MsgHistoryCleared  = "🧹 Your recent questions were forgotten."
	MsgUnknownCommand  = "❌ Unknown command. Use /help"
	MsgRateLimited     = "⚠️ Too many questions. Please wait a little before asking again."
	MsgRateLimitedHard = "🛑 You are sending questions too often. Please wait a minute."

	ErrGeneric            = "❌ Something went wrong. Please try again."
	ErrTimeout            = "⏱ The request took too long. Please try again."
	ErrNetworkIssue       = "🌐 Network problem. Please try again in a moment."
	ErrServiceUnavailable = "🛠 The answering service is temporarily unavailable. Please try again later."
	ErrIndexMissing       = "📭 The news index is empty. Ask the administrator to ingest the corpus."
	ErrInvalidQuestion    = "✍️ This question cannot be processed. Please rephrase it."
)

// ClassifyError maps an error to a user-facing message.
func ClassifyError(err error) string {
	switch {
	case err == nil:
		return ErrGeneric
	case errors.Is(err, entity.ErrInvalidArgument):
		return ErrInvalidQuestion
	case errors.Is(err, entity.ErrNotFound):
		return ErrIndexMissing
	case errors.Is(err, entity.ErrEmbeddingUnavailable), errors.Is(err, entity.ErrMalformedEmbedding),
		errors.Is(err, entity.ErrGenerationUnavailable):
		return ErrServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ErrTimeout
		}
		return ErrNetworkIssue
	}

	return ErrGeneric
}

// Answers longer than this are shortened in the history listing.
const historyAnswerRunes = 200

// FormatHistory lists exchanges oldest first.
func FormatHistory(exchanges []state.Exchange) string {
	if len(exchanges) == 0 {
		return MsgHistoryEmpty
	}

	var b strings.Builder
	b.WriteString("🕘 Recent questions:")
	for i, ex := range exchanges {
		answer := strings.TrimSpace(ex.Answer)
		if utf8.RuneCountInString(answer) > historyAnswerRunes {
			answer = string([]rune(answer)[:historyAnswerRunes]) + "…"
		}
		fmt.Fprintf(&b, "\n\n%d. %s\n%s", i+1, ex.Question, answer)
	}
	return b.String()
}

// SplitMessage splits text into parts of at most limit bytes, preferring
// paragraph and line boundaries and never cutting a rune in half.
func SplitMessage(text string, limit int) []string {
	var parts []string
	for len(text) > limit {
		cut := strings.LastIndex(text[:limit], "\n\n")
		if cut <= 0 {
			cut = strings.LastIndex(text[:limit], "\n")
		}
		if cut <= 0 {
			cut = strings.LastIndex(text[:limit], " ")
		}
		if cut <= 0 {
			cut = limit
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
			if cut == 0 {
				_, cut = utf8.DecodeRuneInString(text)
			}
		}
		parts = append(parts, strings.TrimSpace(text[:cut]))
		text = strings.TrimSpace(text[cut:])
	}
	if text != "" {
		parts = append(parts, text)
	}
	return parts
}
