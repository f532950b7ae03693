package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusReceived OrderStatus = "received"
	// OrderStatusDelivered is never written here; records carrying it come
	// from whoever fulfils the order.
	OrderStatusDelivered OrderStatus = "delivered"
)

// Passenger carries the trip and contact details typed in with an order.
type Passenger struct {
	BusNo         string `json:"bus_no"`
	Seat          string `json:"seat"`
	Route         string `json:"route"`
	BoardingPoint string `json:"boarding_point"`
	Phone         string `json:"phone"`
	Notes         string `json:"notes"`
}

// Normalize trims surrounding whitespace from every field.
func (p Passenger) Normalize() Passenger {
	return Passenger{
		BusNo:         strings.TrimSpace(p.BusNo),
		Seat:          strings.TrimSpace(p.Seat),
		Route:         strings.TrimSpace(p.Route),
		BoardingPoint: strings.TrimSpace(p.BoardingPoint),
		Phone:         strings.TrimSpace(p.Phone),
		Notes:         strings.TrimSpace(p.Notes),
	}
}

// FillFromTrip copies trip details into the fields the passenger left blank.
func (p Passenger) FillFromTrip(t Trip) Passenger {
	if p.BusNo == "" {
		p.BusNo = t.BusNo
	}
	if p.Seat == "" {
		p.Seat = t.Seat
	}
	if p.Route == "" {
		p.Route = t.Route
	}
	if p.BoardingPoint == "" {
		p.BoardingPoint = t.BoardingPoint
	}
	return p
}

// Order is an immutable record of a placed order.
type Order struct {
	OrderID  string
	PlacedAt time.Time
	Passenger
	Delivery DeliverySchedule
	Items    []CartLine
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
	Status   OrderStatus

	// missing lists the stored fields that could not be decoded.
	missing map[string]bool
}

// Persisted field names.
const (
	FieldOrderID       = "order_id"
	FieldPlacedAt      = "placed_at"
	FieldBusNo         = "bus_no"
	FieldSeat          = "seat"
	FieldRoute         = "route"
	FieldBoardingPoint = "boarding_point"
	FieldPhone         = "phone"
	FieldNotes         = "notes"
	FieldDeliveryMode  = "delivery_mode"
	FieldSchedule      = "schedule"
	FieldItems         = "items"
	FieldSubtotal      = "subtotal"
	FieldTax           = "tax"
	FieldTotal         = "total"
	FieldStatus        = "status"
)

// Missing reports whether a stored field was absent or malformed when the order
// was decoded. Orders built in memory have no missing fields.
func (o *Order) Missing(field string) bool {
	return o.missing[field]
}

// MarkMissing flags a field as unavailable; stores with their own decoding use it.
func (o *Order) MarkMissing(field string) {
	if o.missing == nil {
		o.missing = make(map[string]bool)
	}
	o.missing[field] = true
}

type orderJSON struct {
	OrderID       string            `json:"order_id"`
	PlacedAt      string            `json:"placed_at"`
	BusNo         string            `json:"bus_no"`
	Seat          string            `json:"seat"`
	Route         string            `json:"route"`
	BoardingPoint string            `json:"boarding_point"`
	Phone         string            `json:"phone"`
	Notes         string            `json:"notes"`
	DeliveryMode  string            `json:"delivery_mode"`
	Schedule      map[string]string `json:"schedule"`
	Items         []CartLine        `json:"items"`
	Subtotal      decimal.Decimal   `json:"subtotal"`
	Tax           decimal.Decimal   `json:"tax"`
	Total         decimal.Decimal   `json:"total"`
	Status        OrderStatus       `json:"status"`
}

func (o Order) MarshalJSON() ([]byte, error) {
	items := o.Items
	if items == nil {
		items = []CartLine{}
	}
	return json.Marshal(orderJSON{
		OrderID:       o.OrderID,
		PlacedAt:      FormatTimestamp(o.PlacedAt),
		BusNo:         o.BusNo,
		Seat:          o.Seat,
		Route:         o.Route,
		BoardingPoint: o.BoardingPoint,
		Phone:         o.Phone,
		Notes:         o.Notes,
		DeliveryMode:  o.Delivery.Mode.Label(),
		Schedule:      o.Delivery.Fields(),
		Items:         items,
		Subtotal:      o.Subtotal,
		Tax:           o.Tax,
		Total:         o.Total,
		Status:        o.Status,
	})
}

// UnmarshalJSON decodes field by field. A field that is absent or has the wrong
// shape is left zero and reported by Missing; only a non-object fails.
func (o *Order) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("order record is not an object: %w", err)
	}

	*o = Order{}
	field := func(name string, dst any) bool {
		msg, ok := raw[name]
		if !ok || string(msg) == "null" {
			o.MarkMissing(name)
			return false
		}
		if err := json.Unmarshal(msg, dst); err != nil {
			o.MarkMissing(name)
			return false
		}
		return true
	}

	field(FieldOrderID, &o.OrderID)
	field(FieldBusNo, &o.BusNo)
	field(FieldSeat, &o.Seat)
	field(FieldRoute, &o.Route)
	field(FieldBoardingPoint, &o.BoardingPoint)
	field(FieldPhone, &o.Phone)
	field(FieldNotes, &o.Notes)
	field(FieldItems, &o.Items)
	field(FieldSubtotal, &o.Subtotal)
	field(FieldTax, &o.Tax)
	field(FieldTotal, &o.Total)
	field(FieldStatus, &o.Status)

	var placedAt string
	if field(FieldPlacedAt, &placedAt) {
		ts, err := ParseTimestamp(placedAt)
		if err != nil {
			o.MarkMissing(FieldPlacedAt)
		}
		o.PlacedAt = ts
	}

	var label string
	if field(FieldDeliveryMode, &label) {
		mode, err := ParseDeliveryMode(label)
		if err != nil {
			o.MarkMissing(FieldDeliveryMode)
		} else {
			var fields map[string]string
			field(FieldSchedule, &fields)
			o.Delivery = ScheduleFromFields(mode, fields)
		}
	}

	return nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// FormatTimestamp renders placed_at; the zero time renders empty.
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

// ParseTimestamp reads RFC 3339 and the "YYYY-MM-DD HH:MM:SS.ffffff" form written
// by older order files. Timestamps without a zone are taken as local time.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}
