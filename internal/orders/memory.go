package orders

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ariefcatur/flora-checkout/internal/apperr"
)

type MemoryRepo struct {
	mu     sync.RWMutex
	orders map[int64]Order
	nextID int64
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{orders: make(map[int64]Order)}
}

func (m *MemoryRepo) Create(_ context.Context, o *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.orders {
		if other.Code == o.Code {
			return apperr.New(apperr.AlreadyExists, "order code %s already exists", o.Code)
		}
	}
	m.nextID++
	o.ID = m.nextID
	m.orders[o.ID] = cloneOrder(*o)
	return nil
}

func (m *MemoryRepo) FindByID(_ context.Context, id int64) (Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return Order{}, NotFound(id)
	}
	return cloneOrder(o), nil
}

func (m *MemoryRepo) ListByCustomer(_ context.Context, customerID int64) ([]Order, error) {
	return m.filter(func(o Order) bool { return o.Customer.ID == customerID }), nil
}

func (m *MemoryRepo) ListAll(context.Context) ([]Order, error) {
	return m.filter(func(Order) bool { return true }), nil
}

func (m *MemoryRepo) UpdateShipping(_ context.Context, id int64, from, to ShippingStatus, expected *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return NotFound(id)
	}
	if o.ShippingStatus != from {
		return apperr.New(apperr.InvalidArgument, "order %d is no longer %s", id, from)
	}
	o.ShippingStatus = to
	if expected != nil {
		d := *expected
		o.ExpectedDeliveryDate = &d
	}
	m.orders[id] = o
	return nil
}

func (m *MemoryRepo) filter(keep func(Order) bool) []Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Order
	for _, o := range m.orders {
		if keep(o) {
			out = append(out, cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OrderDate.Equal(out[j].OrderDate) {
			return out[i].OrderDate.After(out[j].OrderDate)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func cloneOrder(o Order) Order {
	o.Lines = append([]Line(nil), o.Lines...)
	if o.ExpectedDeliveryDate != nil {
		d := *o.ExpectedDeliveryDate
		o.ExpectedDeliveryDate = &d
	}
	return o
}
