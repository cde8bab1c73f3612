package ai

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Options selects and configures the Generator built by NewGenerator.
type Options struct {
	Mock        bool
	APIKey      string
	Model       string
	Temperature float32
}

// NewGenerator builds the model adapter described by opts. The returned close
// function releases provider resources and is safe to call once.
func NewGenerator(ctx context.Context, opts Options, logger *zap.Logger) (Generator, func(), error) {
	if opts.Mock {
		logger.Info("mock AI mode detected, using mock generator")
		return NewMockProvider(), func() {}, nil
	}
	if opts.APIKey == "" {
		return nil, nil, errors.New("ai: missing Gemini api key")
	}

	provider, err := NewGeminiProvider(ctx, opts.APIKey, opts.Model, opts.Temperature)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("gemini generator ready", zap.String("model", provider.modelName))
	return provider, func() {
		if err := provider.Close(); err != nil {
			logger.Warn("close gemini client", zap.Error(err))
		}
	}, nil
}
