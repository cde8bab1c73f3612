package ai

import (
	"context"
)

// Generator is the single boundary to an external text-generation model.
// Implementations are network-bound and may fail; callers own retries.
type Generator interface {
	// Generate sends the rendered prompt together with the expected output shape
	// and returns the model's raw answer.
	Generate(ctx context.Context, prompt string, output *Schema) (*RawOutput, error)
}

// GeneratorFunc adapts an ordinary function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt string, output *Schema) (*RawOutput, error)

// Generate calls f(ctx, prompt, output).
func (f GeneratorFunc) Generate(ctx context.Context, prompt string, output *Schema) (*RawOutput, error) {
	return f(ctx, prompt, output)
}

var (
	_ Generator = (*GeminiProvider)(nil)
	_ Generator = (*MockProvider)(nil)
)
