package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/example/foodonbus/pkg/config"
	"github.com/example/foodonbus/pkg/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// orderRow is the SQL shape of an order. Items and schedule are JSON text.
type orderRow struct {
	Seq           uint            `gorm:"primaryKey;autoIncrement"`
	OrderID       string          `gorm:"type:varchar(16);index;not null"`
	PlacedAt      time.Time       `gorm:"index"`
	BusNo         string          `gorm:"type:varchar(32)"`
	Seat          string          `gorm:"type:varchar(16)"`
	Route         string          `gorm:"type:varchar(128)"`
	BoardingPoint string          `gorm:"type:varchar(128)"`
	Phone         string          `gorm:"type:varchar(32)"`
	Notes         string          `gorm:"type:text"`
	DeliveryMode  string          `gorm:"type:varchar(64)"`
	Schedule      string          `gorm:"type:text"`
	Items         string          `gorm:"type:text"`
	Subtotal      decimal.Decimal `gorm:"type:decimal(10,2)"`
	Tax           decimal.Decimal `gorm:"type:decimal(10,2)"`
	Total         decimal.Decimal `gorm:"type:decimal(10,2)"`
	Status        string          `gorm:"type:varchar(20);default:'received'"`
}

func (orderRow) TableName() string {
	return "orders"
}

// GormStore keeps orders in a SQL table. Rows are only ever inserted.
type GormStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewSQLiteStore(cfg *config.SQLiteConfig, logger *zap.Logger) (*GormStore, error) {
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}
	return newGormStore(db, logger)
}

func NewMySQLStore(cfg *config.MySQLConfig, logger *zap.Logger) (*GormStore, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get MySQL handle: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)

	return newGormStore(db, logger)
}

func newGormStore(db *gorm.DB, logger *zap.Logger) (*GormStore, error) {
	if err := db.AutoMigrate(&orderRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return &GormStore{db: db, logger: logger.Named("gorm-store")}, nil
}

// LoadAll returns orders in insertion order; a query failure reads as empty.
func (s *GormStore) LoadAll(ctx context.Context) []models.Order {
	var rows []orderRow
	if err := s.db.WithContext(ctx).Order("seq asc").Find(&rows).Error; err != nil {
		s.logger.Warn("Failed to load orders, treating as empty", zap.Error(err))
		return []models.Order{}
	}

	orders := make([]models.Order, 0, len(rows))
	for _, r := range rows {
		orders = append(orders, r.toOrder())
	}
	return orders
}

func (s *GormStore) Append(ctx context.Context, order *models.Order) error {
	row, err := newOrderRow(order)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

func (s *GormStore) Close(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func newOrderRow(o *models.Order) (*orderRow, error) {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize items: %w", err)
	}
	schedule, err := json.Marshal(o.Delivery.Fields())
	if err != nil {
		return nil, fmt.Errorf("failed to serialize schedule: %w", err)
	}

	return &orderRow{
		OrderID:       o.OrderID,
		PlacedAt:      o.PlacedAt,
		BusNo:         o.BusNo,
		Seat:          o.Seat,
		Route:         o.Route,
		BoardingPoint: o.BoardingPoint,
		Phone:         o.Phone,
		Notes:         o.Notes,
		DeliveryMode:  o.Delivery.Mode.Label(),
		Schedule:      string(schedule),
		Items:         string(items),
		Subtotal:      o.Subtotal,
		Tax:           o.Tax,
		Total:         o.Total,
		Status:        string(o.Status),
	}, nil
}

// toOrder goes through the lenient JSON decoder so rows with bad item or
// schedule text come back with those fields blank.
func (r orderRow) toOrder() models.Order {
	doc := map[string]any{
		models.FieldOrderID:       r.OrderID,
		models.FieldPlacedAt:      models.FormatTimestamp(r.PlacedAt),
		models.FieldBusNo:         r.BusNo,
		models.FieldSeat:          r.Seat,
		models.FieldRoute:         r.Route,
		models.FieldBoardingPoint: r.BoardingPoint,
		models.FieldPhone:         r.Phone,
		models.FieldNotes:         r.Notes,
		models.FieldDeliveryMode:  r.DeliveryMode,
		models.FieldSchedule:      json.RawMessage(nonEmptyJSON(r.Schedule)),
		models.FieldItems:         json.RawMessage(nonEmptyJSON(r.Items)),
		models.FieldSubtotal:      r.Subtotal,
		models.FieldTax:           r.Tax,
		models.FieldTotal:         r.Total,
		models.FieldStatus:        r.Status,
	}

	var o models.Order
	data, err := json.Marshal(doc)
	if err == nil {
		err = json.Unmarshal(data, &o)
	}
	if err != nil {
		o = models.Order{OrderID: r.OrderID, PlacedAt: r.PlacedAt}
		o.MarkMissing(models.FieldItems)
	}
	return o
}

func nonEmptyJSON(s string) string {
	if s == "" || !json.Valid([]byte(s)) {
		return "null"
	}
	return s
}
