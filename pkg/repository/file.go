package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/example/foodonbus/pkg/models"
	"go.uber.org/zap"
)

// FileStore keeps every order in one JSON array document. Each Append rereads
// and rewrites the whole file; writers in other processes can overwrite each
// other's appends.
type FileStore struct {
	path   string
	logger *zap.Logger
}

func NewFileStore(path string, logger *zap.Logger) *FileStore {
	return &FileStore{
		path:   path,
		logger: logger.Named("file-store"),
	}
}

// LoadAll returns an empty log when the file is absent or is not a JSON array.
// Records that are not objects are skipped; bad fields inside a record are
// left blank by models.Order.
func (s *FileStore) LoadAll(_ context.Context) []models.Order {
	records := s.readRecords()

	orders := make([]models.Order, 0, len(records))
	for i, rec := range records {
		var o models.Order
		if err := json.Unmarshal(rec, &o); err != nil {
			s.logger.Warn("Skipping unreadable order record",
				zap.String("path", s.path), zap.Int("index", i), zap.Error(err))
			continue
		}
		orders = append(orders, o)
	}
	return orders
}

// Append keeps the stored records as written and adds the new order at the end.
func (s *FileStore) Append(_ context.Context, order *models.Order) error {
	rec, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to encode order: %w", err)
	}

	records := append(s.readRecords(), rec)
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode orders: %w", err)
	}

	if err := writeFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("failed to write orders file: %w", err)
	}

	s.logger.Debug("Order appended",
		zap.String("order_id", order.OrderID), zap.Int("count", len(records)))
	return nil
}

func (s *FileStore) readRecords() []json.RawMessage {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("Failed to read orders file, treating as empty",
				zap.String("path", s.path), zap.Error(err))
		}
		return nil
	}

	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		s.logger.Warn("Orders file is not a JSON array, treating as empty",
			zap.String("path", s.path), zap.Error(err))
		return nil
	}
	return records
}

func (s *FileStore) Close(context.Context) error { return nil }

// writeFileAtomic replaces path with data through a temp file in the same
// directory, so readers never observe a half-written document.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".orders-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
