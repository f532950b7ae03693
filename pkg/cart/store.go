package cart

import (
	"context"
	"sync"

	"github.com/example/foodonbus/pkg/catalog"
	"github.com/example/foodonbus/pkg/models"
)

// Store keeps carts between requests, keyed by session id. Loading a session
// that was never saved yields an empty cart.
type Store interface {
	Load(ctx context.Context, session string) (*Cart, error)
	Save(ctx context.Context, session string, c *Cart) error
	Delete(ctx context.Context, session string) error
}

// MemoryStore keeps carts in process memory.
type MemoryStore struct {
	catalog *catalog.Catalog

	mu    sync.Mutex
	carts map[string][]models.CartLine
}

func NewMemoryStore(cat *catalog.Catalog) *MemoryStore {
	return &MemoryStore{
		catalog: cat,
		carts:   make(map[string][]models.CartLine),
	}
}

func (s *MemoryStore) Load(_ context.Context, session string) (*Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Restore(s.catalog, s.carts[session]), nil
}

func (s *MemoryStore) Save(_ context.Context, session string, c *Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.IsEmpty() {
		delete(s.carts, session)
		return nil
	}
	s.carts[session] = c.Lines()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, session string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, session)
	return nil
}
