// Package genai abstracts the text-generation provider behind a single
// completion call so the orchestrator can be tested without network access.
package genai

import "context"

// Request is one completion call. The pipeline repeats it once per
// candidate; calls are independent.
type Request struct {
	SystemPrompt string
	Prompt       string
	Temperature  float64
	MaxTokens    int64
}

// Provider produces one raw text per call. Implementations must be safe
// for concurrent use.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
}
