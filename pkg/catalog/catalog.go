// Package catalog holds the fixed meal menu and the saved sample trips.
package catalog

import (
	"github.com/example/foodonbus/pkg/models"
	"github.com/shopspring/decimal"
)

type Catalog struct {
	items []models.MenuItem
	byID  map[string]models.MenuItem
}

func New(items []models.MenuItem) *Catalog {
	c := &Catalog{
		items: make([]models.MenuItem, len(items)),
		byID:  make(map[string]models.MenuItem, len(items)),
	}
	copy(c.items, items)
	for _, it := range items {
		c.byID[it.ID] = it
	}
	return c
}

// Default returns the menu served on every bus.
func Default() *Catalog {
	return New([]models.MenuItem{
		{ID: "m1", Name: "Veg Biryani", Price: decimal.NewFromInt(120), ETAMins: 15},
		{ID: "m2", Name: "Chicken Biryani", Price: decimal.NewFromInt(160), ETAMins: 18},
		{ID: "m3", Name: "Paneer Butter Masala + Roti", Price: decimal.NewFromInt(140), ETAMins: 12},
		{ID: "m4", Name: "Masala Dosa", Price: decimal.NewFromInt(70), ETAMins: 10},
		{ID: "m5", Name: "Samosa (2 pcs)", Price: decimal.NewFromInt(40), ETAMins: 8},
		{ID: "m6", Name: "Cold Drink 500ml", Price: decimal.NewFromInt(40), ETAMins: 5},
	})
}

// Items returns the menu in display order.
func (c *Catalog) Items() []models.MenuItem {
	out := make([]models.MenuItem, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Catalog) Lookup(id string) (models.MenuItem, bool) {
	it, ok := c.byID[id]
	return it, ok
}

var sampleTrips = []models.Trip{
	{BusNo: "TN01AB1234", Route: "Chennai → Bangalore", BoardingPoint: "Chennai Airport", Seat: "12A", Departure: "2025-11-26 22:00"},
	{BusNo: "KA05CD5678", Route: "Bangalore → Mysore", BoardingPoint: "Majestic Bus Stop", Seat: "7B", Departure: "2025-11-27 06:30"},
	{BusNo: "AP09EF9012", Route: "Vijayawada → Hyderabad", BoardingPoint: "Main Bus Stand", Seat: "3C", Departure: "2025-11-27 14:15"},
}

// Trips lists the saved bookings a passenger can pick to auto-fill details.
func Trips() []models.Trip {
	out := make([]models.Trip, len(sampleTrips))
	copy(out, sampleTrips)
	return out
}

// TripByBusNo finds a saved booking by bus number.
func TripByBusNo(busNo string) (models.Trip, bool) {
	for _, t := range sampleTrips {
		if t.BusNo == busNo {
			return t, true
		}
	}
	return models.Trip{}, false
}
