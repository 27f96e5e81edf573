// Package generator abstracts the external image generation provider. The
// pipeline needs exactly two calls per job: a fresh render on a white
// background and an edit of that render swapping the background to black.
package generator

import (
	"context"
	"fmt"
	"time"
)

// GenerateRequest asks for a fresh render of the subject on a solid
// reference background.
type GenerateRequest struct {
	Prompt         string
	AspectRatio    string
	RenderSizeHint int
	RequestID      string
}

// EditRequest asks for a modification of a previous render. The edit must
// preserve subject identity and pixel alignment; only the instruction's
// target (the background) may change.
type EditRequest struct {
	Image       []byte
	Instruction string
	RequestID   string
}

// Generator is the external provider surface consumed by the orchestrator.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) ([]byte, error)
	Edit(ctx context.Context, req EditRequest) ([]byte, error)
}

// RateLimitError is the distinguishable transient provider failure. The
// orchestrator retries these with backoff; anything else from the provider
// is terminal for the attempt loop.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("generator: rate limited, retry after %s", e.RetryAfter)
	}
	return "generator: rate limited"
}
