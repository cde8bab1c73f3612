package maps

import (
	"context"
	"fmt"
	"strings"
	"time"

	"googlemaps.github.io/maps"
)

// RouteInfo describes the driving route between two places.
type RouteInfo struct {
	Origin      string
	Destination string
	Found       bool
	Distance    string
	Duration    time.Duration
}

// Notes renders the route as one line for a prompt.
func (r RouteInfo) Notes() string {
	if !r.Found {
		return fmt.Sprintf("There is no driving route from %s to %s.", r.Origin, r.Destination)
	}
	return fmt.Sprintf("Driving from %s to %s covers %s and takes about %s.",
		r.Origin, r.Destination, r.Distance, r.Duration.Round(time.Minute))
}

// RouteService handles interactions with Google Maps API.
type RouteService struct {
	client *maps.Client
}

// NewRouteService creates a new RouteService with the given API Key.
func NewRouteService(apiKey string) (*RouteService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &RouteService{client: client}, nil
}

// GroundRoute looks up the driving route from origin to destination.
// A route that does not exist is reported with Found false, not as an error.
func (s *RouteService) GroundRoute(ctx context.Context, origin, destination string) (RouteInfo, error) {
	info := RouteInfo{Origin: origin, Destination: destination}
	r := &maps.DirectionsRequest{
		Origin:      origin,
		Destination: destination,
		Mode:        maps.TravelModeDriving,
		Language:    "en",
	}

	routes, _, err := s.client.Directions(ctx, r)
	if err != nil {
		if isZeroResults(err) {
			return info, nil
		}
		return info, fmt.Errorf("maps api error: %w", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return info, nil
	}

	leg := routes[0].Legs[0]
	info.Found = true
	info.Distance = leg.Distance.HumanReadable
	info.Duration = leg.Duration
	return info, nil
}

// The client reports directions status codes only through the error text.
func isZeroResults(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "ZERO_RESULTS") || strings.Contains(msg, "NOT_FOUND")
}
