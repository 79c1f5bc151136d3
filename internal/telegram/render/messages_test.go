package render

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/futig/news-rag/internal/entity"
	"github.com/futig/news-rag/internal/telegram/state"
)

func TestClassifyError(t *testing.T) {
	cases := map[string]struct {
		err  error
		want string
	}{
		"nil":        {nil, ErrGeneric},
		"invalid":    {fmt.Errorf("retrieve: %w", entity.ErrInvalidArgument), ErrInvalidQuestion},
		"not found":  {entity.ErrNotFound, ErrIndexMissing},
		"embedding":  {fmt.Errorf("x: %w", entity.ErrEmbeddingUnavailable), ErrServiceUnavailable},
		"generation": {entity.ErrGenerationUnavailable, ErrServiceUnavailable},
		"malformed":  {fmt.Errorf("embed: %w", entity.ErrMalformedEmbedding), ErrServiceUnavailable},
		"deadline":   {context.DeadlineExceeded, ErrTimeout},
		"other":      {errors.New("boom"), ErrGeneric},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyError(tc.err))
		})
	}
}

func TestFormatHistory(t *testing.T) {
	assert.Equal(t, MsgHistoryEmpty, FormatHistory(nil))

	got := FormatHistory([]state.Exchange{
		{Question: "q1", Answer: "  a1\n"},
		{Question: "q2", Answer: strings.Repeat("я", historyAnswerRunes+10)},
	})
	assert.True(t, strings.HasPrefix(got, "🕘 Recent questions:\n\n1. q1\na1\n\n2. q2\n"))
	assert.True(t, strings.HasSuffix(got, strings.Repeat("я", historyAnswerRunes)+"…"))
	assert.True(t, utf8.ValidString(got))
}

func TestSplitMessage(t *testing.T) {
	assert.Nil(t, SplitMessage("", 10))
	assert.Equal(t, []string{"short"}, SplitMessage("short", 10))
	assert.Equal(t, []string{"first para", "second"}, SplitMessage("first para\n\nsecond", 12))
	assert.Equal(t, []string{"aaaa", "bbbb"}, SplitMessage("aaaa bbbb", 6))
}

func TestSplitMessage_KeepsRunesWhole(t *testing.T) {
	text := strings.Repeat("ж", 10)
	parts := SplitMessage(text, 5)

	assert.Equal(t, text, strings.Join(parts, ""))
	for _, p := range parts {
		assert.True(t, utf8.ValidString(p))
		assert.LessOrEqual(t, len(p), 5)
	}
}
