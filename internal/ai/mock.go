package ai

import (
	"context"
	"encoding/json"
	"fmt"
)

// MockModelName is reported in RawOutput.Model by MockProvider.
const MockModelName = "mock"

// MockProvider answers every prompt with the smallest object that satisfies the
// output schema. It lets the service run without network access.
type MockProvider struct{}

// NewMockProvider creates a new mock generator.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// Generate returns a schema-shaped JSON object.
func (m *MockProvider) Generate(ctx context.Context, prompt string, output *Schema) (*RawOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var value any = map[string]any{}
	if output != nil {
		value = mockValue(output)
	}
	b, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("mock: marshal response: %w", err)
	}
	return &RawOutput{
		Text:         string(b),
		Model:        MockModelName,
		PromptTokens: int32(len(prompt) / 4),
	}, nil
}

func mockValue(s *Schema) any {
	switch s.Type {
	case TypeString:
		return fmt.Sprintf("[MOCK] %s", s.Name)
	case TypeNumber, TypeInteger:
		return 0
	case TypeBoolean:
		return false
	case TypeArray:
		return []any{}
	default:
		obj := make(map[string]any, len(s.Properties))
		for _, prop := range s.Properties {
			if prop.Required {
				obj[prop.Name] = mockValue(prop)
			}
		}
		return obj
	}
}
