package queryparse

import (
	_ "embed"

	"skyplan/internal/flow"
)

//go:embed flow.yaml
var definitionYAML []byte

// Definition is the compiled query parser flow.
var Definition = flow.MustLoad(definitionYAML)

// Request is the flow input.
type Request struct {
	Query string `json:"query"`
	Today string `json:"today,omitempty"`
}

// Result is what the model could extract. Every field may be empty.
type Result struct {
	Destination  string `json:"destination,omitempty"`
	Dates        string `json:"dates,omitempty"`
	OtherDetails string `json:"otherDetails,omitempty"`
}

// Empty reports whether nothing was extracted.
func (r Result) Empty() bool {
	return r.Destination == "" && r.Dates == "" && r.OtherDetails == ""
}
