package orders

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/flora-checkout/internal/catalog"
)

type CustomerRef struct {
	ID    int64
	Name  string
	Email string
}

// Line is one ordered plant with a snapshot of the item as it was sold.
type Line struct {
	ItemID   int64
	Quantity int
	Item     catalog.Item
}

type Order struct {
	ID                   int64
	Code                 string
	OrderDate            time.Time
	Customer             CustomerRef
	Lines                []Line
	TotalAmount          decimal.Decimal
	TotalItems           int
	Status               PaymentStatus
	ShippingStatus       ShippingStatus
	ShippingAddress      string
	CustomerNotes        string
	ExpectedDeliveryDate *time.Time
}

func (o Order) Quantities() map[int64]int {
	out := make(map[int64]int, len(o.Lines))
	for _, l := range o.Lines {
		out[l.ItemID] += l.Quantity
	}
	return out
}

type Repository interface {
	// Create persists o and its lines and sets o.ID.
	Create(ctx context.Context, o *Order) error
	FindByID(ctx context.Context, id int64) (Order, error)
	// ListByCustomer and ListAll return newest orders first.
	ListByCustomer(ctx context.Context, customerID int64) ([]Order, error)
	ListAll(ctx context.Context) ([]Order, error)
	// UpdateShipping moves an order from one shipping status to another. A nil expected
	// keeps the stored delivery date.
	UpdateShipping(ctx context.Context, id int64, from, to ShippingStatus, expected *time.Time) error
}
