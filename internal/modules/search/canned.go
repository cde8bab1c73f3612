package search

import (
	"context"

	"skyplan/internal/types"
)

// CannedProvider serves a fixed Glasgow to Chennai result set for every query.
type CannedProvider struct {
	flights []Flight
}

// NewCannedProvider returns a provider over the built-in dataset.
func NewCannedProvider() *CannedProvider {
	return &CannedProvider{flights: cannedFlights}
}

// NewStaticProvider returns a provider that always answers with flights.
func NewStaticProvider(flights []Flight) *CannedProvider {
	return &CannedProvider{flights: flights}
}

// Search ignores the query and returns a deep copy of the dataset.
func (p *CannedProvider) Search(ctx context.Context, query string) ([]Flight, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]Flight, len(p.flights))
	for i, f := range p.flights {
		out[i] = f.clone()
	}
	return out, nil
}

func gbp(amount int64) types.Money {
	return types.Money{Amount: amount, Currency: "GBP"}
}

func glaMaa(airline, depart, arrive, duration, via string, inbound Leg) []Leg {
	return []Leg{
		{Airline: airline, DepartureTime: depart, ArrivalTime: arrive, Duration: duration, Stops: "1 stop " + via, FromCode: "GLA", ToCode: "MAA"},
		inbound,
	}
}

var cannedFlights = []Flight{
	{
		ID: "1", Provider: "Emirates", Airline: "Emirates", Price: gbp(843),
		Legs: glaMaa("Emirates", "14:35", "08:05", "13h 30m", "DXB",
			Leg{Airline: "Emirates", DepartureTime: "04:00", ArrivalTime: "12:45", Duration: "12h 15m", Stops: "1 stop DXB", FromCode: "MAA", ToCode: "GLA"}),
		From:     &Endpoint{Code: "GLA", Time: "14:35", Airport: "Glasgow"},
		To:       &Endpoint{Code: "MAA", Time: "08:05", Airport: "Chennai"},
		Duration: "13h 30m", Stops: 1, StopDetails: "1 stop",
		Emissions: &Emissions{CO2: 13, Comparison: "less"},
	},
	{
		ID: "2", Provider: "Wizz Air", Airline: "Wizz Air", Price: gbp(653),
		Legs: glaMaa("Wizz Air", "06:55", "03:30", "16h 05m", "LHR",
			Leg{Airline: "Wizz Air", DepartureTime: "05:35", ArrivalTime: "15:35", Duration: "14h 30m", Stops: "1 stop LHR", FromCode: "MAA", ToCode: "GLA"}),
		From:     &Endpoint{Code: "GLA", Time: "06:55", Airport: "Glasgow"},
		To:       &Endpoint{Code: "MAA", Time: "03:30", Airport: "Chennai"},
		Duration: "16h 05m", Stops: 1, StopDetails: "1 stop",
	},
	{
		ID: "3", Provider: "Lufthansa", Airline: "Lufthansa", Price: gbp(674),
		Legs: glaMaa("Lufthansa", "06:10", "00:10", "13h 30m", "FRA",
			Leg{Airline: "Lufthansa", DepartureTime: "01:55", ArrivalTime: "12:25", Duration: "15h 00m", Stops: "1 stop FRA", FromCode: "MAA", ToCode: "GLA"}),
		From:     &Endpoint{Code: "GLA", Time: "06:10", Airport: "Glasgow"},
		To:       &Endpoint{Code: "MAA", Time: "00:10", Airport: "Chennai"},
		Duration: "13h 30m", Stops: 1, StopDetails: "1 stop",
	},
	{
		ID: "4", Provider: "British Airways", Airline: "British Airways", Price: gbp(783),
		Legs: glaMaa("British Airways", "09:15", "04:45", "15h 00m", "LHR",
			Leg{Airline: "British Airways", DepartureTime: "06:30", ArrivalTime: "17:00", Duration: "15h 00m", Stops: "1 stop LHR", FromCode: "MAA", ToCode: "GLA"}),
		From:     &Endpoint{Code: "GLA", Time: "09:15", Airport: "Glasgow"},
		To:       &Endpoint{Code: "MAA", Time: "04:45", Airport: "Chennai"},
		Duration: "13h 08m", Stops: 1, StopDetails: "1 stop",
	},
	{
		ID: "5", Provider: "KLM", Airline: "KLM", Price: gbp(628),
		Legs: glaMaa("KLM", "11:20", "07:50", "15h 50m", "AMS",
			Leg{Airline: "KLM", DepartureTime: "09:45", ArrivalTime: "20:00", Duration: "14h 45m", Stops: "1 stop AMS", FromCode: "MAA", ToCode: "GLA"}),
		From:     &Endpoint{Code: "GLA", Time: "11:20", Airport: "Glasgow"},
		To:       &Endpoint{Code: "MAA", Time: "07:50", Airport: "Chennai"},
		Duration: "20h 08m", Stops: 1, StopDetails: "1 stop",
	},
}
