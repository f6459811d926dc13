// Package llm wraps the generation provider behind a small client
// interface so the agent can be tested without network access.
package llm

import (
	"context"
	"iter"
)

// Client is the generation contract the agent depends on. Stream returns a
// finite, ordered sequence of text fragments; concatenating every fragment
// reproduces the full generated text. Ranging over the sequence again
// issues a fresh upstream request.
type Client interface {
	Complete(ctx context.Context, prompt string, temperature float64) (string, error)
	Stream(ctx context.Context, prompt string, temperature float64) iter.Seq2[string, error]
}
