// README: Candidate flight model shared by search, ranking and the booking assistant.
package search

import (
	"context"

	"skyplan/internal/types"
)

// Flight is one bookable itinerary offered by a provider.
type Flight struct {
	ID          string      `json:"id"`
	Provider    string      `json:"provider"`
	Legs        []Leg       `json:"legs"`
	Price       types.Money `json:"price"`
	Airline     string      `json:"airline,omitempty"`
	From        *Endpoint   `json:"from,omitempty"`
	To          *Endpoint   `json:"to,omitempty"`
	Duration    string      `json:"duration,omitempty"`
	Stops       int         `json:"stops"`
	StopDetails string      `json:"stopDetails,omitempty"`
	Emissions   *Emissions  `json:"emissions,omitempty"`
}

// Leg is one direction of a flight.
type Leg struct {
	Airline       string `json:"airline"`
	DepartureTime string `json:"departureTime"`
	ArrivalTime   string `json:"arrivalTime"`
	Duration      string `json:"duration"`
	Stops         string `json:"stops"`
	FromCode      string `json:"fromCode,omitempty"`
	ToCode        string `json:"toCode,omitempty"`
}

// Endpoint is the departure or arrival airport of the outbound leg.
type Endpoint struct {
	Code    string `json:"code"`
	Time    string `json:"time"`
	Airport string `json:"airport"`
}

type Emissions struct {
	CO2        int    `json:"co2"`
	Comparison string `json:"comparison,omitempty"`
}

// Provider returns candidate flights for an opaque query string.
type Provider interface {
	Search(ctx context.Context, query string) ([]Flight, error)
}

// SortOrder selects how a result list is ordered.
type SortOrder string

const (
	Best     SortOrder = "best"
	Cheapest SortOrder = "cheapest"
	Fastest  SortOrder = "fastest"
)

// ParseSortOrder maps a query parameter to a SortOrder. Unknown values mean Best.
func ParseSortOrder(s string) SortOrder {
	switch SortOrder(s) {
	case Cheapest, Fastest:
		return SortOrder(s)
	default:
		return Best
	}
}

// Picks holds the headline flight of each sort order.
type Picks struct {
	Best     *Flight `json:"best,omitempty"`
	Cheapest *Flight `json:"cheapest,omitempty"`
	Fastest  *Flight `json:"fastest,omitempty"`
}

func (f Flight) clone() Flight {
	out := f
	out.Legs = append([]Leg(nil), f.Legs...)
	if f.From != nil {
		from := *f.From
		out.From = &from
	}
	if f.To != nil {
		to := *f.To
		out.To = &to
	}
	if f.Emissions != nil {
		em := *f.Emissions
		out.Emissions = &em
	}
	return out
}
