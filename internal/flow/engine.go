package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"skyplan/internal/ai"
)

// Invoker runs one flow call. *Engine is the production implementation.
type Invoker interface {
	Invoke(ctx context.Context, def *Definition, input map[string]any) (map[string]any, error)
}

// Engine executes flow definitions against a model adapter. It keeps no
// per-call state and is safe for concurrent use.
type Engine struct {
	gen    ai.Generator
	logger *zap.Logger
}

var _ Invoker = (*Engine)(nil)

// NewEngine creates an Engine. A nil logger disables logging.
func NewEngine(gen ai.Generator, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{gen: gen, logger: logger}
}

// Invoke validates input, renders the prompt, makes exactly one model call and
// returns the answer coerced to the output contract. It never retries.
func (e *Engine) Invoke(ctx context.Context, def *Definition, input map[string]any) (map[string]any, error) {
	requestID := "flow_" + uuid.NewString()[:8]
	log := e.logger.With(zap.String("flow", def.name), zap.String("request_id", requestID))

	valid, err := def.input.Validate(input)
	if err != nil {
		field, reason := fieldOf(err)
		log.Debug("rejected flow input", zap.String("field", field), zap.String("reason", reason))
		return nil, &ValidationError{Flow: def.name, Field: field, Reason: reason}
	}

	prompt, err := Render(def, valid)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, &AdapterError{Flow: def.name, Err: err}
	}

	if err := Admit(ctx); err != nil {
		log.Debug("flow call not admitted", zap.Error(err))
		return nil, err
	}

	start := time.Now()
	raw, err := e.gen.Generate(ctx, prompt, def.output.Schema())
	latency := time.Since(start)
	if err != nil {
		log.Warn("model call failed", zap.Int64("latency_ms", latency.Milliseconds()), zap.Error(err))
		return nil, &AdapterError{Flow: def.name, Err: err}
	}

	out, err := decodeOutput(def, raw)
	if err != nil {
		log.Warn("model output rejected", zap.Int64("latency_ms", latency.Milliseconds()), zap.Error(err))
		return nil, err
	}

	log.Info("flow completed",
		zap.String("model", raw.Model),
		zap.Int64("latency_ms", latency.Milliseconds()),
		zap.Int32("prompt_tokens", raw.PromptTokens),
		zap.Int32("candidate_tokens", raw.CandidateTokens),
	)
	return out, nil
}

func decodeOutput(def *Definition, raw *ai.RawOutput) (map[string]any, error) {
	if raw == nil || strings.TrimSpace(raw.Text) == "" {
		return nil, &OutputContractError{Flow: def.name, Reason: "empty response"}
	}

	text := cleanJSONString(raw.Text)
	if !gjson.Valid(text) {
		text = extractCodeBlock(raw.Text)
	}
	if !gjson.Valid(text) {
		return nil, &OutputContractError{Flow: def.name, Reason: "response is not valid JSON", Raw: raw.Text}
	}

	obj, ok := gjson.Parse(text).Value().(map[string]any)
	if !ok {
		return nil, &OutputContractError{Flow: def.name, Reason: "response is not a JSON object", Raw: raw.Text}
	}

	out, err := def.output.Coerce(obj)
	if err != nil {
		field, reason := fieldOf(err)
		return nil, &OutputContractError{Flow: def.name, Field: field, Reason: reason, Raw: raw.Text}
	}
	return out, nil
}

func cleanJSONString(input string) string {
	input = strings.TrimSpace(input)
	input = strings.TrimPrefix(input, "```json")
	input = strings.TrimPrefix(input, "```")
	input = strings.TrimSuffix(input, "```")
	return strings.TrimSpace(input)
}

var codeBlock = regexp.MustCompile("(?s)```(?:\\w+)?\\s*\\n(.*?)```")

// extractCodeBlock returns the body of the first fenced block, or the input
// unchanged when there is none.
func extractCodeBlock(input string) string {
	if m := codeBlock.FindStringSubmatch(input); m != nil {
		return strings.TrimSpace(m[1])
	}
	return input
}

// Run is the typed form of Invoke. in is converted to the input map through its
// JSON tags; use omitempty on optional fields so an unset value counts as absent.
func Run[Out any](ctx context.Context, inv Invoker, def *Definition, in any) (Out, error) {
	var zero Out

	input, err := toMap(in)
	if err != nil {
		return zero, fmt.Errorf("flow %s: encode input: %w", def.name, err)
	}

	result, err := inv.Invoke(ctx, def, input)
	if err != nil {
		return zero, err
	}

	b, err := json.Marshal(result)
	if err != nil {
		return zero, fmt.Errorf("flow %s: encode output: %w", def.name, err)
	}
	var out Out
	if err := json.Unmarshal(b, &out); err != nil {
		return zero, &OutputContractError{Flow: def.name, Reason: err.Error(), Raw: string(b)}
	}
	return out, nil
}

func toMap(in any) (map[string]any, error) {
	if m, ok := in.(map[string]any); ok {
		return m, nil
	}
	b, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}
