package assistant

import (
	"encoding/json"
	"fmt"
	"strings"

	"skyplan/internal/modules/search"
)

// SerializeHistory renders turns as "role: content" lines.
func SerializeHistory(turns []Turn) string {
	lines := make([]string, len(turns))
	for i, t := range turns {
		lines[i] = string(t.Role) + ": " + t.Content
	}
	return strings.Join(lines, "\n")
}

// SearchQuery builds the search phrase for details. Each clause is present
// only when its detail is.
func SearchQuery(d FlightDetails) string {
	var b strings.Builder
	b.WriteString("Flights")
	if d.Destination != "" {
		b.WriteString(" to " + d.Destination)
	}
	if d.Origin != "" {
		b.WriteString(" from " + d.Origin)
	}
	if d.Dates != "" {
		b.WriteString(" on " + d.Dates)
	}
	if d.Passengers > 0 {
		fmt.Fprintf(&b, " for %d people", d.Passengers)
	}
	return b.String()
}

// EncodeFlights serializes candidates for the prompt.
func EncodeFlights(flights []search.Flight) (string, error) {
	b, err := json.Marshal(flights)
	if err != nil {
		return "", fmt.Errorf("encode flights: %w", err)
	}
	return string(b), nil
}

func cloneTurns(turns []Turn) []Turn {
	return append(make([]Turn, 0, len(turns)+2), turns...)
}
