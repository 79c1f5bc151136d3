package common

import (
	"context"
	"errors"

	"github.com/openai/openai-go"

	pkgHTTP "github.com/futig/news-rag/pkg/http"
)

// MapOpenAIError converts SDK errors into the connector error types so the
// shared retry classification applies.
func MapOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &pkgHTTP.HTTPError{StatusCode: apiErr.StatusCode, Message: apiErr.Error()}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &pkgHTTP.NetworkError{Err: err}
}
