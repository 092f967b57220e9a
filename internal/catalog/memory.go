package catalog

import (
	"context"
	"sync"

	"github.com/ariefcatur/flora-checkout/internal/apperr"
)

type MemoryStore struct {
	mu     sync.RWMutex
	items  map[int64]Item
	nextID int64
}

func NewMemoryStore(items ...Item) *MemoryStore {
	m := &MemoryStore{items: make(map[int64]Item)}
	for _, it := range items {
		if _, err := m.Save(context.Background(), it); err != nil {
			panic(err)
		}
	}
	return m
}

func (m *MemoryStore) FindByID(_ context.Context, id int64) (Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	it, ok := m.items[id]
	if !ok {
		return Item{}, NotFound(id)
	}
	return clone(it), nil
}

// Save inserts items without an id and replaces existing ones.
func (m *MemoryStore) Save(_ context.Context, it Item) (Item, error) {
	if err := it.Validate(); err != nil {
		return Item{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, other := range m.items {
		if id != it.ID && other.Category == it.Category && other.Name == it.Name {
			return Item{}, apperr.New(apperr.AlreadyExists, "plant name %s in category %s already exists", it.Name, it.Category)
		}
	}
	if it.ID == 0 {
		m.nextID++
		it.ID = m.nextID
	} else if it.ID > m.nextID {
		m.nextID = it.ID
	}
	m.items[it.ID] = clone(it)
	return clone(it), nil
}

func (m *MemoryStore) ExistsByID(_ context.Context, id int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.items[id]
	return ok, nil
}

func (m *MemoryStore) DeleteByID(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return NotFound(id)
	}
	delete(m.items, id)
	return nil
}

func clone(it Item) Item {
	if it.Flower != nil {
		f := *it.Flower
		it.Flower = &f
	}
	if it.IndoorPlant != nil {
		p := *it.IndoorPlant
		it.IndoorPlant = &p
	}
	return it
}
