package aiusage

import "errors"

// ErrInsufficientTokens is returned when a user has no tokens remaining for the current month.
var ErrInsufficientTokens = errors.New("insufficient tokens")

// DefaultTokens is the number of flow calls granted per month.
const DefaultTokens = 100

// Usage is a user's allowance for the current month.
type Usage struct {
	UID       string `json:"uid"`
	Remaining int    `json:"remaining"`
	Month     string `json:"month"`
}
