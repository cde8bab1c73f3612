package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultGeminiModel is used when no model name is configured.
const DefaultGeminiModel = "gemini-2.0-flash"

// GeminiProvider implements Generator using Google's Gemini models.
type GeminiProvider struct {
	client      *genai.Client
	modelName   string
	temperature float32
}

// NewGeminiProvider initializes a new Gemini client.
// apiKey should be provided from configuration, never hard-coded.
func NewGeminiProvider(ctx context.Context, apiKey, modelName string, temperature float32) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if modelName == "" {
		modelName = DefaultGeminiModel
	}
	return &GeminiProvider{
		client:      client,
		modelName:   modelName,
		temperature: temperature,
	}, nil
}

// Close cleans up the Gemini client resources.
func (p *GeminiProvider) Close() error {
	return p.client.Close()
}

// Generate runs the prompt in JSON mode, constraining the answer with the output schema.
func (p *GeminiProvider) Generate(ctx context.Context, prompt string, output *Schema) (*RawOutput, error) {
	// A model handle carries its generation config, so each call gets its own.
	model := p.client.GenerativeModel(p.modelName)
	model.ResponseMIMEType = "application/json"
	model.SetTemperature(p.temperature)
	if output != nil {
		model.ResponseSchema = toGenaiSchema(output)
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("gemini generation error: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("no response candidates from Gemini")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			responseText.WriteString(string(txt))
		}
	}

	raw := &RawOutput{
		Text:  responseText.String(),
		Model: p.modelName,
	}
	if resp.UsageMetadata != nil {
		raw.PromptTokens = resp.UsageMetadata.PromptTokenCount
		raw.CandidateTokens = resp.UsageMetadata.CandidatesTokenCount
	}
	return raw, nil
}

func toGenaiSchema(s *Schema) *genai.Schema {
	out := &genai.Schema{
		Description: s.Description,
		Nullable:    !s.Required,
	}
	switch s.Type {
	case TypeString:
		out.Type = genai.TypeString
	case TypeNumber:
		out.Type = genai.TypeNumber
	case TypeInteger:
		out.Type = genai.TypeInteger
	case TypeBoolean:
		out.Type = genai.TypeBoolean
	case TypeArray:
		out.Type = genai.TypeArray
		if s.Items != nil {
			out.Items = toGenaiSchema(s.Items)
		}
	case TypeObject:
		out.Type = genai.TypeObject
		if len(s.Properties) > 0 {
			out.Properties = make(map[string]*genai.Schema, len(s.Properties))
			for _, prop := range s.Properties {
				out.Properties[prop.Name] = toGenaiSchema(prop)
				if prop.Required {
					out.Required = append(out.Required, prop.Name)
				}
			}
		}
	}
	return out
}
