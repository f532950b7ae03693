package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/example/foodonbus/pkg/config"
	"github.com/example/foodonbus/pkg/models"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *zap.Logger
}

func NewMongoStore(cfg *config.MongoDBConfig, logger *zap.Logger) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	return &MongoStore{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		logger:     logger.Named("mongo-store"),
	}, nil
}

// Ping checks the server is reachable; the driver connects lazily.
func (m *MongoStore) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

func (m *MongoStore) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

type lineDocument struct {
	ItemID    string               `bson:"id"`
	Name      string               `bson:"name"`
	UnitPrice primitive.Decimal128 `bson:"price"`
	Quantity  int                  `bson:"qty"`
}

type orderDocument struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty"`
	OrderID       string               `bson:"order_id"`
	PlacedAt      time.Time            `bson:"placed_at"`
	BusNo         string               `bson:"bus_no"`
	Seat          string               `bson:"seat"`
	Route         string               `bson:"route"`
	BoardingPoint string               `bson:"boarding_point"`
	Phone         string               `bson:"phone"`
	Notes         string               `bson:"notes"`
	DeliveryMode  string               `bson:"delivery_mode"`
	Schedule      map[string]string    `bson:"schedule"`
	Items         []lineDocument       `bson:"items"`
	Subtotal      primitive.Decimal128 `bson:"subtotal"`
	Tax           primitive.Decimal128 `bson:"tax"`
	Total         primitive.Decimal128 `bson:"total"`
	Status        string               `bson:"status"`
}

// LoadAll returns orders in insertion order. Documents are read field by
// field: a field with an unexpected type is reported by Order.Missing instead
// of dropping the order. A failed query reads as empty.
func (m *MongoStore) LoadAll(ctx context.Context) []models.Order {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})

	cursor, err := m.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		m.logger.Warn("Failed to load orders, treating as empty", zap.Error(err))
		return []models.Order{}
	}
	defer cursor.Close(ctx)

	orders := []models.Order{}
	for cursor.Next(ctx) {
		orders = append(orders, orderFromRaw(cursor.Current))
	}
	if err := cursor.Err(); err != nil {
		m.logger.Warn("Order cursor stopped early", zap.Error(err))
	}
	return orders
}

func (m *MongoStore) Append(ctx context.Context, order *models.Order) error {
	doc, err := newOrderDocument(order)
	if err != nil {
		return err
	}
	if _, err := m.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

func newOrderDocument(o *models.Order) (*orderDocument, error) {
	subtotal, err := toDecimal128(o.Subtotal)
	if err != nil {
		return nil, err
	}
	tax, err := toDecimal128(o.Tax)
	if err != nil {
		return nil, err
	}
	total, err := toDecimal128(o.Total)
	if err != nil {
		return nil, err
	}

	lines := make([]lineDocument, len(o.Items))
	for i, it := range o.Items {
		price, err := toDecimal128(it.UnitPrice)
		if err != nil {
			return nil, err
		}
		lines[i] = lineDocument{ItemID: it.ItemID, Name: it.Name, UnitPrice: price, Quantity: it.Quantity}
	}

	return &orderDocument{
		OrderID:       o.OrderID,
		PlacedAt:      o.PlacedAt,
		BusNo:         o.BusNo,
		Seat:          o.Seat,
		Route:         o.Route,
		BoardingPoint: o.BoardingPoint,
		Phone:         o.Phone,
		Notes:         o.Notes,
		DeliveryMode:  o.Delivery.Mode.Label(),
		Schedule:      o.Delivery.Fields(),
		Items:         lines,
		Subtotal:      subtotal,
		Tax:           tax,
		Total:         total,
		Status:        string(o.Status),
	}, nil
}

func orderFromRaw(raw bson.Raw) models.Order {
	var o models.Order

	lookup := func(field string) (bson.RawValue, bool) {
		v, err := raw.LookupErr(field)
		if err != nil || v.Type == bsontype.Null || v.Type == bsontype.Undefined {
			o.MarkMissing(field)
			return bson.RawValue{}, false
		}
		return v, true
	}
	str := func(field string, dst *string) bool {
		v, ok := lookup(field)
		if !ok {
			return false
		}
		s, ok := v.StringValueOK()
		if !ok {
			o.MarkMissing(field)
			return false
		}
		*dst = s
		return true
	}
	money := func(field string, dst *decimal.Decimal) {
		v, ok := lookup(field)
		if !ok {
			return
		}
		d, err := decimalFromBSON(v)
		if err != nil {
			o.MarkMissing(field)
			return
		}
		*dst = d
	}

	str(models.FieldOrderID, &o.OrderID)
	str(models.FieldBusNo, &o.BusNo)
	str(models.FieldSeat, &o.Seat)
	str(models.FieldRoute, &o.Route)
	str(models.FieldBoardingPoint, &o.BoardingPoint)
	str(models.FieldPhone, &o.Phone)
	str(models.FieldNotes, &o.Notes)

	var status string
	if str(models.FieldStatus, &status) {
		o.Status = models.OrderStatus(status)
	}

	money(models.FieldSubtotal, &o.Subtotal)
	money(models.FieldTax, &o.Tax)
	money(models.FieldTotal, &o.Total)

	if v, ok := lookup(models.FieldPlacedAt); ok {
		o.PlacedAt = placedAtFromBSON(v)
		if o.PlacedAt.IsZero() {
			o.MarkMissing(models.FieldPlacedAt)
		}
	}

	var label string
	if str(models.FieldDeliveryMode, &label) {
		mode, err := models.ParseDeliveryMode(label)
		if err != nil {
			o.MarkMissing(models.FieldDeliveryMode)
		} else {
			var fields map[string]string
			if v, ok := lookup(models.FieldSchedule); ok {
				if err := v.Unmarshal(&fields); err != nil {
					o.MarkMissing(models.FieldSchedule)
					fields = nil
				}
			}
			o.Delivery = models.ScheduleFromFields(mode, fields)
		}
	}

	if v, ok := lookup(models.FieldItems); ok {
		items, err := linesFromBSON(v)
		if err != nil {
			o.MarkMissing(models.FieldItems)
		} else {
			o.Items = items
		}
	}

	return o
}

// linesFromBSON fails as a whole when any line is unreadable, so a bad price
// never turns into a zero amount.
func linesFromBSON(v bson.RawValue) ([]models.CartLine, error) {
	arr, ok := v.ArrayOK()
	if !ok {
		return nil, fmt.Errorf("items is %s, not an array", v.Type)
	}
	values, err := arr.Values()
	if err != nil {
		return nil, err
	}

	lines := make([]models.CartLine, 0, len(values))
	for i, val := range values {
		doc, ok := val.DocumentOK()
		if !ok {
			return nil, fmt.Errorf("item %d is %s, not a document", i, val.Type)
		}

		var line models.CartLine
		id, idOK := doc.Lookup("id").StringValueOK()
		name, nameOK := doc.Lookup("name").StringValueOK()
		if !idOK || !nameOK {
			return nil, fmt.Errorf("item %d has no id or name", i)
		}
		line.ItemID, line.Name = id, name

		if line.UnitPrice, err = decimalFromBSON(doc.Lookup("price")); err != nil {
			return nil, fmt.Errorf("item %d price: %w", i, err)
		}
		if line.Quantity, err = intFromBSON(doc.Lookup("qty")); err != nil {
			return nil, fmt.Errorf("item %d qty: %w", i, err)
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// decimalFromBSON accepts Decimal128, the numeric types and decimal strings.
func decimalFromBSON(v bson.RawValue) (decimal.Decimal, error) {
	switch v.Type {
	case bsontype.Decimal128:
		return fromDecimal128(v.Decimal128())
	case bsontype.Double:
		return decimal.NewFromFloat(v.Double()), nil
	case bsontype.Int32:
		return decimal.NewFromInt32(v.Int32()), nil
	case bsontype.Int64:
		return decimal.NewFromInt(v.Int64()), nil
	case bsontype.String:
		return decimal.NewFromString(v.StringValue())
	default:
		return decimal.Decimal{}, fmt.Errorf("cannot read %s as an amount", v.Type)
	}
}

func intFromBSON(v bson.RawValue) (int, error) {
	switch v.Type {
	case bsontype.Int32:
		return int(v.Int32()), nil
	case bsontype.Int64:
		return int(v.Int64()), nil
	case bsontype.Double:
		f := v.Double()
		if f != float64(int64(f)) {
			return 0, fmt.Errorf("%v is not a whole number", f)
		}
		return int(f), nil
	default:
		return 0, fmt.Errorf("cannot read %s as a quantity", v.Type)
	}
}

// placedAtFromBSON reads a BSON datetime or a timestamp string; anything else
// is the zero time.
func placedAtFromBSON(v bson.RawValue) time.Time {
	if t, ok := v.TimeOK(); ok {
		return t
	}
	if s, ok := v.StringValueOK(); ok {
		if t, err := models.ParseTimestamp(s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("failed to convert %s to Decimal128: %w", d, err)
	}
	return v, nil
}

func fromDecimal128(v primitive.Decimal128) (decimal.Decimal, error) {
	return decimal.NewFromString(v.String())
}
