package ai

// RawOutput is the unvalidated answer of a model call.
type RawOutput struct {
	// Text is the concatenated text of the first candidate. For JSON-mode calls
	// it should hold a single JSON object, possibly wrapped in a code fence.
	Text string

	// Model names the model that produced the answer.
	Model string

	PromptTokens    int32
	CandidateTokens int32
}

// SchemaType is the primitive shape of a schema node.
type SchemaType string

const (
	TypeString  SchemaType = "string"
	TypeNumber  SchemaType = "number"
	TypeInteger SchemaType = "integer"
	TypeBoolean SchemaType = "boolean"
	TypeArray   SchemaType = "array"
	TypeObject  SchemaType = "object"
)

// Schema describes the structured output a caller expects from the model.
// It is a provider-neutral tree; each provider translates it to its own format.
type Schema struct {
	Name        string
	Type        SchemaType
	Description string
	Required    bool

	// Properties lists the fields of an object node, in declaration order.
	Properties []*Schema

	// Items describes the elements of an array node. Nil means any element.
	Items *Schema
}
