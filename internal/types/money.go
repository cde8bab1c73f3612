// README: Common money value object used across modules.
package types

import "fmt"

// Money is a whole-unit amount in an ISO 4217 currency.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

var currencySymbols = map[string]string{
	"GBP": "£",
	"USD": "$",
	"EUR": "€",
}

func (m Money) String() string {
	if sym, ok := currencySymbols[m.Currency]; ok {
		return fmt.Sprintf("%s%d", sym, m.Amount)
	}
	return fmt.Sprintf("%d %s", m.Amount, m.Currency)
}
