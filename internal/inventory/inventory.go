// Package inventory reserves catalog stock for a cart.
package inventory

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/ariefcatur/flora-checkout/internal/apperr"
	"github.com/ariefcatur/flora-checkout/internal/catalog"
	"github.com/ariefcatur/flora-checkout/internal/logging"
	"github.com/ariefcatur/flora-checkout/internal/metrics"
)

type ItemQty struct {
	ItemID   int64 `json:"item_id"`
	Quantity int   `json:"quantity"`
}

type Line struct {
	Item     catalog.Item `json:"item"`
	Quantity int          `json:"quantity"`
}

type Reservation struct {
	Lines      []Line `json:"lines"`
	TotalItems int    `json:"total_items"`
}

func (r Reservation) Items() []ItemQty {
	out := make([]ItemQty, 0, len(r.Lines))
	for _, l := range r.Lines {
		out = append(out, ItemQty{ItemID: l.Item.ID, Quantity: l.Quantity})
	}
	return out
}

// Stock decrements every requested item or none of them.
type Stock interface {
	// ReserveAll returns the reserved items in request order, with stock already decremented.
	ReserveAll(ctx context.Context, items []ItemQty) ([]catalog.Item, error)
	ReleaseAll(ctx context.Context, items []ItemQty) error
}

type Service struct {
	Stock   Stock
	Log     *zap.Logger
	Metrics *metrics.Metrics
}

// Reserve validates the cart and reserves it. Items are processed in ascending id order.
func (s *Service) Reserve(ctx context.Context, cart map[int64]int) (res Reservation, err error) {
	defer func() { s.Metrics.Reservation(err) }()

	items, err := ValidateCart(cart)
	if err != nil {
		return Reservation{}, err
	}
	reserved, err := s.Stock.ReserveAll(ctx, items)
	if err != nil {
		logging.FromContext(ctx, s.Log).Warn("reservation_failed",
			zap.String("kind", string(apperr.KindOf(err))), zap.Error(err))
		return Reservation{}, err
	}
	for i, it := range reserved {
		res.Lines = append(res.Lines, Line{Item: it, Quantity: items[i].Quantity})
		res.TotalItems += items[i].Quantity
	}
	return res, nil
}

func (s *Service) Release(ctx context.Context, res Reservation) error {
	if len(res.Lines) == 0 {
		return nil
	}
	return s.Stock.ReleaseAll(ctx, res.Items())
}

// ValidateCart checks that the cart is non-empty with positive quantities and returns its
// entries in ascending item id order.
func ValidateCart(cart map[int64]int) ([]ItemQty, error) {
	if len(cart) == 0 {
		return nil, apperr.New(apperr.InvalidArgument, "cart is empty")
	}
	items := make([]ItemQty, 0, len(cart))
	for id, qty := range cart {
		items = append(items, ItemQty{ItemID: id, Quantity: qty})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ItemID < items[j].ItemID })
	for _, it := range items {
		if it.Quantity <= 0 {
			return nil, apperr.New(apperr.InvalidArgument, "quantity for plant %d must be positive, got %d",
				it.ItemID, it.Quantity).
				With("item_id", it.ItemID).
				With("requested", it.Quantity)
		}
	}
	return items, nil
}

// Shortage is the Insufficient error for an item with too little stock.
func Shortage(it catalog.Item, requested int) error {
	return apperr.New(apperr.Insufficient, "insufficient stock for %s: available %d, requested %d",
		it.Name, it.Stock, requested).
		With("item_id", it.ID).
		With("available", it.Stock).
		With("requested", requested)
}
