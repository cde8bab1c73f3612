package itinerary

import (
	_ "embed"
	"errors"
	"time"

	"skyplan/internal/flow"
)

//go:embed flow.yaml
var definitionYAML []byte

// Definition is the compiled itinerary generator flow.
var Definition = flow.MustLoad(definitionYAML)

// ErrNotFound is returned when an itinerary does not exist for the user.
var ErrNotFound = errors.New("itinerary not found")

// Preferences is the flow input. All five fields are required.
type Preferences struct {
	Budget              string `json:"budget"`
	TravelStyle         string `json:"travelStyle"`
	Interests           string `json:"interests"`
	Duration            string `json:"duration"`
	LocationPreferences string `json:"locationPreferences"`
}

type generated struct {
	Itinerary string `json:"itinerary"`
}

// Itinerary is a generated plan, optionally saved for a user.
type Itinerary struct {
	ID          string      `json:"id,omitempty"`
	UID         string      `json:"uid,omitempty"`
	Preferences Preferences `json:"preferences"`
	Text        string      `json:"itinerary"`
	CreatedAt   time.Time   `json:"createdAt"`
}
