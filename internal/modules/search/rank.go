package search

import (
	"regexp"
	"sort"
	"strconv"
)

var durationPattern = regexp.MustCompile(`(\d+)h\s*(\d*)m`)

// DurationMinutes converts a "13h 30m" style duration to minutes.
// Unparseable input counts as zero.
func DurationMinutes(d string) int {
	m := durationPattern.FindStringSubmatch(d)
	if m == nil {
		return 0
	}
	hours, _ := strconv.Atoi(m[1])
	mins, _ := strconv.Atoi(m[2])
	return hours*60 + mins
}

// BestScore balances price against journey time; lower is better.
func BestScore(f Flight) float64 {
	return float64(f.Price.Amount)/2 + float64(DurationMinutes(f.Duration))
}

func less(order SortOrder) func(a, b Flight) bool {
	switch order {
	case Cheapest:
		return func(a, b Flight) bool { return a.Price.Amount < b.Price.Amount }
	case Fastest:
		return func(a, b Flight) bool { return DurationMinutes(a.Duration) < DurationMinutes(b.Duration) }
	default:
		return func(a, b Flight) bool { return BestScore(a) < BestScore(b) }
	}
}

// SortBy returns a sorted copy of flights. Ties keep their input order.
func SortBy(flights []Flight, order SortOrder) []Flight {
	out := append([]Flight(nil), flights...)
	cmp := less(order)
	sort.SliceStable(out, func(i, j int) bool { return cmp(out[i], out[j]) })
	return out
}

// PickOf returns the first flight under order, or nil for an empty list.
func PickOf(flights []Flight, order SortOrder) *Flight {
	if len(flights) == 0 {
		return nil
	}
	top := SortBy(flights, order)[0]
	return &top
}

// SelectPicks returns the best, cheapest and fastest flight of the list.
func SelectPicks(flights []Flight) Picks {
	return Picks{
		Best:     PickOf(flights, Best),
		Cheapest: PickOf(flights, Cheapest),
		Fastest:  PickOf(flights, Fastest),
	}
}
