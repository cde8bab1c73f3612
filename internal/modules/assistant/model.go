// README: Booking assistant flow types and the caller-owned conversation state.
package assistant

import (
	_ "embed"
	"errors"
	"strings"
	"time"

	"skyplan/internal/flow"
	"skyplan/internal/modules/search"
)

//go:embed flow.yaml
var definitionYAML []byte

// Definition is the compiled booking assistant flow.
var Definition = flow.MustLoad(definitionYAML)

// FallbackReply is shown to the user whenever a conversation turn fails.
const FallbackReply = "Sorry, I encountered an error. Please try again."

var (
	ErrNotFound         = errors.New("conversation not found")
	ErrConversationBusy = errors.New("conversation is busy with another message")
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Phase is the conversation state after the last completed turn.
type Phase string

const (
	PhaseGathering Phase = "gathering"
	PhaseAnalyzing Phase = "analyzing"
)

// FlightDetails is what the model extracted so far. Every field is optional.
type FlightDetails struct {
	Origin      string `json:"origin,omitempty"`
	Destination string `json:"destination,omitempty"`
	Dates       string `json:"dates,omitempty"`
	Passengers  int    `json:"passengers,omitempty"`
}

// Complete reports whether all four details are present.
func (d FlightDetails) Complete() bool {
	return strings.TrimSpace(d.Origin) != "" &&
		strings.TrimSpace(d.Destination) != "" &&
		strings.TrimSpace(d.Dates) != "" &&
		d.Passengers > 0
}

func (d FlightDetails) empty() bool {
	return d == FlightDetails{}
}

// Request is the flow input. Only ConversationHistory is required.
type Request struct {
	ConversationHistory string `json:"conversationHistory"`
	AvailableFlights    string `json:"availableFlights,omitempty"`
	RankingNotes        string `json:"rankingNotes,omitempty"`
	RouteMismatch       string `json:"routeMismatch,omitempty"`
	RouteNotes          string `json:"routeNotes,omitempty"`
}

// Reply is the flow output.
type Reply struct {
	Text     string         `json:"reply"`
	Complete bool           `json:"isFlightDetailsComplete"`
	Details  *FlightDetails `json:"flightDetails,omitempty"`
}

// Conversation is the state the caller keeps between turns.
type Conversation struct {
	ID          string          `json:"id"`
	UID         string          `json:"uid,omitempty"`
	Turns       []Turn          `json:"turns"`
	Phase       Phase           `json:"phase"`
	Details     *FlightDetails  `json:"details,omitempty"`
	SearchQuery string          `json:"searchQuery,omitempty"`
	Candidates  []search.Flight `json:"candidates,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Outcome is the result of one user message.
type Outcome struct {
	Reply       string          `json:"reply"`
	Phase       Phase           `json:"phase"`
	Complete    bool            `json:"isFlightDetailsComplete"`
	Details     *FlightDetails  `json:"flightDetails,omitempty"`
	SearchQuery string          `json:"searchQuery,omitempty"`
	Candidates  []search.Flight `json:"candidates,omitempty"`
	Picks       *search.Picks   `json:"picks,omitempty"`

	// Failed is set when Reply is FallbackReply and the conversation was left unchanged.
	Failed bool `json:"failed,omitempty"`
}
