package order

import (
	"context"
	"fmt"
	"time"

	"github.com/example/foodonbus/pkg/cart"
	"github.com/example/foodonbus/pkg/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultTaxRate is the 5% levy added to every order.
var DefaultTaxRate = decimal.RequireFromString("0.05")

// Appender persists a placed order.
type Appender interface {
	Append(ctx context.Context, order *models.Order) error
}

// Builder validates a cart, prices it and commits the resulting order.
type Builder struct {
	store   Appender
	logger  *zap.Logger
	taxRate decimal.Decimal
	symbol  string
	now     func() time.Time
	newID   func() string
}

type Option func(*Builder)

func WithTaxRate(rate decimal.Decimal) Option {
	return func(b *Builder) { b.taxRate = rate }
}

func WithCurrencySymbol(symbol string) Option {
	return func(b *Builder) { b.symbol = symbol }
}

func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(b *Builder) { b.newID = newID }
}

func NewBuilder(store Appender, logger *zap.Logger, opts ...Option) *Builder {
	b := &Builder{
		store:   store,
		logger:  logger.Named("order-builder"),
		taxRate: DefaultTaxRate,
		symbol:  models.DefaultCurrencySymbol,
		now:     time.Now,
		newID:   ShortID,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ShortID is the first 8 characters of a random UUID. Collisions are unlikely,
// not impossible.
func ShortID() string {
	return uuid.NewString()[:8]
}

// Receipt is what the passenger sees after a successful order.
type Receipt struct {
	Order   *models.Order
	OrderID string
	Total   string
}

// Totals prices a line list: tax is rounded half up to two places.
func Totals(lines []models.CartLine, taxRate decimal.Decimal) (subtotal, tax, total decimal.Decimal) {
	subtotal = models.Subtotal(lines)
	tax = models.RoundHalfUp(subtotal.Mul(taxRate), 2)
	total = subtotal.Add(tax)
	return subtotal, tax, total
}

// PlaceOrder validates the cart and passenger details, appends the order once
// and clears the cart. On any error the cart is left as it was.
func (b *Builder) PlaceOrder(ctx context.Context, c *cart.Cart, passenger models.Passenger, delivery models.DeliverySchedule) (*Receipt, error) {
	if c.IsEmpty() {
		return nil, ErrEmptyCart
	}

	passenger = passenger.Normalize()
	if err := validatePassenger(passenger); err != nil {
		return nil, err
	}

	items := c.Lines()
	subtotal, tax, total := Totals(items, b.taxRate)

	order := &models.Order{
		OrderID:   b.newID(),
		PlacedAt:  b.now(),
		Passenger: passenger,
		Delivery:  delivery,
		Items:     items,
		Subtotal:  subtotal,
		Tax:       tax,
		Total:     total,
		Status:    models.OrderStatusReceived,
	}

	if err := b.store.Append(ctx, order); err != nil {
		b.logger.Error("Failed to persist order",
			zap.String("order_id", order.OrderID), zap.Error(err))
		return nil, fmt.Errorf("failed to place order: %w", err)
	}

	c.Clear()

	b.logger.Info("Order placed",
		zap.String("order_id", order.OrderID),
		zap.String("bus_no", order.BusNo),
		zap.String("seat", order.Seat),
		zap.String("delivery_mode", string(delivery.Mode)),
		zap.Int("lines", len(items)),
		zap.String("total", total.StringFixed(2)))

	return &Receipt{
		Order:   order,
		OrderID: order.OrderID,
		Total:   models.FormatCurrency(b.symbol, total),
	}, nil
}

func validatePassenger(p models.Passenger) error {
	var missing []string
	if p.Phone == "" {
		missing = append(missing, "phone")
	}
	if p.BusNo == "" {
		missing = append(missing, "bus number")
	}
	if p.Seat == "" {
		missing = append(missing, "seat number")
	}
	if len(missing) > 0 {
		return &MissingFieldError{Fields: missing}
	}
	return nil
}
