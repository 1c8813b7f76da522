package openai

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"

	"github.com/finvox/finvox-go/pkg/ai"
)

// classify maps go-openai errors onto the recoverable/fatal split.
// Errors without an HTTP status are network failures and recoverable.
func classify(err error, message string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return ai.ClassifyStatus(apiErr.HTTPStatusCode, err, message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return ai.ClassifyStatus(reqErr.HTTPStatusCode, err, message)
	}
	return ai.NewRecoverableError(err, message)
}
