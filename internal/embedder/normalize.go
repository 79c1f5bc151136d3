package embedder

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/futig/news-rag/internal/entity"
)

// Normalize converts one decoded provider vector into an Embedding. Some
// providers wrap a single vector in an extra list; exactly one such level is
// unwrapped. Anything else that is not a flat non-empty list of finite
// numbers is malformed.
func Normalize(raw any) (entity.Embedding, error) {
	if inner, ok := singleNested(raw); ok {
		raw = inner
	}

	switch v := raw.(type) {
	case entity.Embedding:
		return checkFinite(append(entity.Embedding(nil), v...))
	case []float32:
		return checkFinite(append(entity.Embedding(nil), v...))
	case []float64:
		out := make(entity.Embedding, len(v))
		for i, f := range v {
			out[i] = float32(f)
		}
		return checkFinite(out)
	case []any:
		out := make(entity.Embedding, len(v))
		for i, el := range v {
			f, ok := toFloat(el)
			if !ok {
				return nil, fmt.Errorf("%w: element %d is %T, not a number", entity.ErrMalformedEmbedding, i, el)
			}
			out[i] = float32(f)
		}
		return checkFinite(out)
	case nil:
		return nil, fmt.Errorf("%w: missing vector", entity.ErrMalformedEmbedding)
	default:
		return nil, fmt.Errorf("%w: unexpected vector type %T", entity.ErrMalformedEmbedding, raw)
	}
}

// singleNested reports the inner list of a one-element list of lists.
func singleNested(raw any) (any, bool) {
	switch v := raw.(type) {
	case []any:
		if len(v) != 1 {
			return nil, false
		}
		switch v[0].(type) {
		case []any, []float32, []float64:
			return v[0], true
		}
	case [][]float32:
		if len(v) == 1 {
			return v[0], true
		}
	case [][]float64:
		if len(v) == 1 {
			return v[0], true
		}
	}
	return nil, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func checkFinite(v entity.Embedding) (entity.Embedding, error) {
	if len(v) == 0 {
		return nil, fmt.Errorf("%w: empty vector", entity.ErrMalformedEmbedding)
	}
	for i, f := range v {
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return nil, fmt.Errorf("%w: element %d is not finite", entity.ErrMalformedEmbedding, i)
		}
	}
	return v, nil
}
