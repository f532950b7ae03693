// Package history projects stored orders into the past-orders table.
package history

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/example/foodonbus/pkg/models"
	"github.com/shopspring/decimal"
)

// Source is anything that can read back the whole order log.
type Source interface {
	LoadAll(ctx context.Context) []models.Order
}

// OrderSummary is one row of the history table. Every value is display text;
// fields missing from the stored record are empty.
type OrderSummary struct {
	OrderID      string `json:"order_id"`
	PlacedAt     string `json:"placed_at"`
	BusNo        string `json:"bus_no"`
	Seat         string `json:"seat"`
	DeliveryMode string `json:"delivery_mode"`
	Subtotal     string `json:"subtotal"`
	Tax          string `json:"tax"`
	Total        string `json:"total"`
	Status       string `json:"status"`
}

const placedAtLayout = "2006-01-02 15:04:05"

type View struct {
	source Source
	symbol string
}

func NewView(source Source, currencySymbol string) *View {
	return &View{source: source, symbol: currencySymbol}
}

// ListOrders returns a summary per stored order, newest first. Orders with the
// same placed_at keep reverse storage order; orders without a usable placed_at
// sort after the rest.
func (v *View) ListOrders(ctx context.Context) []OrderSummary {
	orders := v.source.LoadAll(ctx)

	for i, j := 0, len(orders)-1; i < j; i, j = i+1, j-1 {
		orders[i], orders[j] = orders[j], orders[i]
	}
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].PlacedAt.After(orders[j].PlacedAt)
	})

	out := make([]OrderSummary, 0, len(orders))
	for i := range orders {
		out = append(out, v.summarize(&orders[i]))
	}
	return out
}

func (v *View) summarize(o *models.Order) OrderSummary {
	text := func(field, value string) string {
		if o.Missing(field) {
			return ""
		}
		return value
	}
	money := func(field string, amount decimal.Decimal) string {
		if o.Missing(field) {
			return ""
		}
		return models.FormatCurrency(v.symbol, amount)
	}

	placedAt := ""
	if !o.Missing(models.FieldPlacedAt) && !o.PlacedAt.IsZero() {
		placedAt = o.PlacedAt.Format(placedAtLayout)
	}

	return OrderSummary{
		OrderID:      text(models.FieldOrderID, o.OrderID),
		PlacedAt:     placedAt,
		BusNo:        text(models.FieldBusNo, o.BusNo),
		Seat:         text(models.FieldSeat, o.Seat),
		DeliveryMode: text(models.FieldDeliveryMode, o.Delivery.Mode.Label()),
		Subtotal:     money(models.FieldSubtotal, o.Subtotal),
		Tax:          money(models.FieldTax, o.Tax),
		Total:        money(models.FieldTotal, o.Total),
		Status:       text(models.FieldStatus, string(o.Status)),
	}
}

// ItemCount is how often a menu item appears across stored orders.
type ItemCount struct {
	Name     string `json:"name"`
	Lines    int    `json:"lines"`
	Quantity int    `json:"qty"`
}

// OrderStats summarizes the order log.
type OrderStats struct {
	Orders       int         `json:"orders"`
	Pending      int         `json:"pending"`
	PopularItems []ItemCount `json:"popular_items"`
}

// Stats counts orders, orders not yet delivered, and ranks items by the number
// of cart lines naming them, most frequent first, ties by name. top limits the
// ranking; zero or less keeps every item. Orders whose items could not be read
// count towards the totals only.
func (v *View) Stats(ctx context.Context, top int) OrderStats {
	orders := v.source.LoadAll(ctx)

	stats := OrderStats{Orders: len(orders), PopularItems: []ItemCount{}}
	byName := make(map[string]*ItemCount)
	for i := range orders {
		o := &orders[i]
		if !strings.EqualFold(string(o.Status), string(models.OrderStatusDelivered)) {
			stats.Pending++
		}
		if o.Missing(models.FieldItems) {
			continue
		}
		for _, line := range o.Items {
			ic, ok := byName[line.Name]
			if !ok {
				ic = &ItemCount{Name: line.Name}
				byName[line.Name] = ic
			}
			ic.Lines++
			ic.Quantity += line.Quantity
		}
	}

	for _, ic := range byName {
		stats.PopularItems = append(stats.PopularItems, *ic)
	}
	sort.Slice(stats.PopularItems, func(i, j int) bool {
		a, b := stats.PopularItems[i], stats.PopularItems[j]
		if a.Lines != b.Lines {
			return a.Lines > b.Lines
		}
		return a.Name < b.Name
	})
	if top > 0 && len(stats.PopularItems) > top {
		stats.PopularItems = stats.PopularItems[:top]
	}
	return stats
}

// Render writes the summaries as an aligned text table.
func Render(w io.Writer, summaries []OrderSummary) error {
	if len(summaries) == 0 {
		_, err := fmt.Fprintln(w, "No orders found.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ORDER ID\tPLACED AT\tBUS\tSEAT\tDELIVERY\tSUBTOTAL\tTAX\tTOTAL\tSTATUS")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			s.OrderID, s.PlacedAt, s.BusNo, s.Seat, s.DeliveryMode,
			s.Subtotal, s.Tax, s.Total, s.Status)
	}
	return tw.Flush()
}
