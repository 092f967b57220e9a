package inventory

import (
	"context"
	"sync"

	"github.com/ariefcatur/flora-checkout/internal/catalog"
)

// MemoryStock reserves against a catalog.MemoryStore.
type MemoryStock struct {
	mu      sync.Mutex
	Catalog *catalog.MemoryStore
}

func (m *MemoryStock) ReserveAll(ctx context.Context, items []ItemQty) ([]catalog.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]catalog.Item, 0, len(items))
	for _, it := range items {
		item, err := m.Catalog.FindByID(ctx, it.ItemID)
		if err != nil {
			return nil, err
		}
		if item.Stock < it.Quantity {
			return nil, Shortage(item, it.Quantity)
		}
		item.Stock -= it.Quantity
		out = append(out, item)
	}
	for _, item := range out {
		if _, err := m.Catalog.Save(ctx, item); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (m *MemoryStock) ReleaseAll(ctx context.Context, items []ItemQty) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, it := range items {
		item, err := m.Catalog.FindByID(ctx, it.ItemID)
		if err != nil {
			return err
		}
		item.Stock += it.Quantity
		if _, err := m.Catalog.Save(ctx, item); err != nil {
			return err
		}
	}
	return nil
}
