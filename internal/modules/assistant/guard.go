package assistant

import (
	"fmt"
	"strings"

	"skyplan/internal/modules/search"
)

const refineAdvice = "Please refine your search with the correct origin and destination."

var summaryMarkers = []string{"best flight", "cheapest", "fastest"}

// RouteMismatch reports whether no candidate flies the requested route. The
// returned notice describes the difference.
func RouteMismatch(d FlightDetails, flights []search.Flight) (string, bool) {
	if len(flights) == 0 {
		return "", false
	}
	for _, f := range flights {
		from, to := endpoints(f)
		if matchesPlace(d.Origin, from) && matchesPlace(d.Destination, to) {
			return "", false
		}
	}
	from, to := endpoints(flights[0])
	return fmt.Sprintf("The available flights are from %s to %s, but you asked for %s to %s.",
		describe(from), describe(to), d.Origin, d.Destination), true
}

// MismatchReply is the reply used when the model summarized flights for the wrong route.
func MismatchReply(notice string) string {
	return notice + " " + refineAdvice
}

// acceptableMismatchReply reports whether reply talks about the mismatch
// without summarizing the flights.
func acceptableMismatchReply(reply string) bool {
	lower := strings.ToLower(reply)
	for _, m := range summaryMarkers {
		if strings.Contains(lower, m) {
			return false
		}
	}
	return strings.Contains(lower, "match")
}

func endpoints(f search.Flight) (*search.Endpoint, *search.Endpoint) {
	from, to := f.From, f.To
	if len(f.Legs) > 0 {
		if from == nil && f.Legs[0].FromCode != "" {
			from = &search.Endpoint{Code: f.Legs[0].FromCode}
		}
		if to == nil && f.Legs[0].ToCode != "" {
			to = &search.Endpoint{Code: f.Legs[0].ToCode}
		}
	}
	return from, to
}

func matchesPlace(want string, ep *search.Endpoint) bool {
	w := strings.ToLower(strings.TrimSpace(want))
	if w == "" {
		return true
	}
	if ep == nil {
		return false
	}
	if ep.Code != "" && strings.EqualFold(ep.Code, w) {
		return true
	}
	airport := strings.ToLower(strings.TrimSpace(ep.Airport))
	if airport == "" {
		return false
	}
	return strings.Contains(w, airport) || strings.Contains(airport, w)
}

func describe(ep *search.Endpoint) string {
	switch {
	case ep == nil:
		return "an unknown airport"
	case ep.Airport != "" && ep.Code != "":
		return ep.Airport + " (" + ep.Code + ")"
	case ep.Airport != "":
		return ep.Airport
	default:
		return ep.Code
	}
}

// RankingNotes lists the best order and the cheapest and fastest picks of flights.
func RankingNotes(flights []search.Flight) string {
	if len(flights) == 0 {
		return ""
	}
	best := search.SortBy(flights, search.Best)
	labels := make([]string, len(best))
	for i, f := range best {
		labels[i] = label(f)
	}
	picks := search.SelectPicks(flights)

	var b strings.Builder
	b.WriteString("Best order: " + strings.Join(labels, "; ") + "\n")
	b.WriteString("Cheapest: " + label(*picks.Cheapest) + "\n")
	b.WriteString("Fastest: " + label(*picks.Fastest))
	return b.String()
}

func label(f search.Flight) string {
	name := f.Airline
	if name == "" {
		name = f.Provider
	}
	return fmt.Sprintf("flight %s %s %s %s, %d stop(s)", f.ID, name, f.Price, f.Duration, f.Stops)
}
