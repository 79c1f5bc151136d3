package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const DefaultMockDimension = 64

// MockConnector embeds text locally by hashing lower-cased words into a
// fixed number of buckets. Texts sharing words get similar vectors, which is
// enough for local runs and tests.
type MockConnector struct {
	dim    int
	logger *zap.Logger
}

func NewMockConnector(dim int, logger *zap.Logger) *MockConnector {
	if dim <= 0 {
		dim = DefaultMockDimension
	}
	return &MockConnector{dim: dim, logger: logger}
}

func (m *MockConnector) Name() string { return "mock" }

func (m *MockConnector) Embed(ctx context.Context, texts []string) ([]any, error) {
	ctxzap.Debug(ctx, "[MOCK] embedding texts", zap.Int("texts", len(texts)))

	out := make([]any, len(texts))
	for i, t := range texts {
		out[i] = m.vector(t)
	}
	return out, nil
}

func (m *MockConnector) vector(text string) []float32 {
	v := make([]float32, m.dim)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:\"'()[]")
		if word == "" {
			continue
		}
		h := fnv.New32a()
		_, _ = h.Write([]byte(word))
		v[h.Sum32()%uint32(m.dim)] += 1
	}

	var norm float64
	for _, f := range v {
		norm += float64(f) * float64(f)
	}
	if norm == 0 {
		// Keep vectors well-formed for empty or punctuation-only text.
		v[0] = 1
		return v
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range v {
		v[i] *= scale
	}
	return v
}
