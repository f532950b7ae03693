package models

import (
	"github.com/shopspring/decimal"
)

// MenuItem is an entry of the fixed meal menu.
type MenuItem struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Price   decimal.Decimal `json:"price"`
	ETAMins int             `json:"eta_mins"`
}

// CartLine is one "add to cart" action. Repeated adds of the same item produce
// separate lines.
type CartLine struct {
	ItemID    string          `json:"id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"price"`
	Quantity  int             `json:"qty"`
}

func (l CartLine) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Subtotal sums the line totals; zero for no lines.
func Subtotal(lines []CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Total())
	}
	return total
}

// Trip is a saved booking used to fill passenger details.
type Trip struct {
	BusNo         string `json:"bus_no"`
	Route         string `json:"route"`
	BoardingPoint string `json:"boarding_point"`
	Seat          string `json:"seat"`
	Departure     string `json:"departure"`
}
