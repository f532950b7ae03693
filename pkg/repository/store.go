package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/example/foodonbus/pkg/config"
	"github.com/example/foodonbus/pkg/models"
	"go.uber.org/zap"
)

// OrderStore is an append-only log of orders. LoadAll never fails: an absent or
// unreadable backing resource reads as an empty log.
type OrderStore interface {
	LoadAll(ctx context.Context) []models.Order
	Append(ctx context.Context, order *models.Order) error
	Close(ctx context.Context) error
}

// OpenOrderStore builds the backend named by cfg.Store.Backend and wraps it in
// a SerializedStore.
func OpenOrderStore(cfg *config.Config, logger *zap.Logger) (*SerializedStore, error) {
	var (
		inner OrderStore
		err   error
	)

	switch cfg.Store.Backend {
	case "file":
		inner = NewFileStore(cfg.Store.Path, logger)
	case "sqlite":
		inner, err = NewSQLiteStore(&cfg.SQLite, logger)
	case "mysql":
		inner, err = NewMySQLStore(&cfg.MySQL, logger)
	case "mongo":
		inner, err = openMongoStore(&cfg.MongoDB, logger)
	default:
		err = fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("Order store opened", zap.String("backend", cfg.Store.Backend))
	return NewSerializedStore(inner, logger), nil
}

const pingTimeout = 5 * time.Second

func openMongoStore(cfg *config.MongoDBConfig, logger *zap.Logger) (*MongoStore, error) {
	store, err := NewMongoStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		_ = store.Close(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return store, nil
}
