// Package tracking projects order events into the order status cache read by the API.
package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/ariefcatur/flora-checkout/internal/kafka"
	"github.com/ariefcatur/flora-checkout/internal/orders"
	"github.com/ariefcatur/flora-checkout/internal/redisx"
)

// Status is the cached view of an order's shipping progress.
type Status struct {
	OrderID              int64                 `json:"order_id"`
	OrderCode            string                `json:"order_code,omitempty"`
	ShippingStatus       orders.ShippingStatus `json:"shipping_status"`
	ExpectedDeliveryDate *string               `json:"expected_delivery_date,omitempty"`
	UpdatedAt            time.Time             `json:"updated_at"`
}

func StatusOf(s orders.Snapshot, at time.Time) Status {
	return Status{
		OrderID:              s.ID,
		OrderCode:            s.OrderCode,
		ShippingStatus:       s.ShippingStatus,
		ExpectedDeliveryDate: s.ExpectedDeliveryDate,
		UpdatedAt:            at.UTC(),
	}
}

type Projector struct {
	Cache   Cache
	Service string // dedup namespace
	Log     *zap.Logger
}

// HandleOrderEvent is installed as the consumer handler for both order topics.
func (p *Projector) HandleOrderEvent(ctx context.Context, m kafkago.Message) error {
	env, err := kafkax.Decode[orders.Envelope](m.Value)
	if err != nil {
		// a poison message would block the partition forever
		p.logger().Error("drop undecodable event", zap.ByteString("key", m.Key), zap.Error(err))
		return nil
	}

	var st Status
	switch env.EventType {
	case orders.EventOrderPlaced:
		pl, err := kafkax.Decode[orders.OrderPlacedPayload](env.Payload)
		if err != nil {
			return err
		}
		st = Status{OrderID: pl.OrderID, OrderCode: pl.OrderCode, ShippingStatus: pl.ShippingStatus}
	case orders.EventShippingStatusChanged:
		pl, err := kafkax.Decode[orders.ShippingStatusChangedPayload](env.Payload)
		if err != nil {
			return err
		}
		st = Status{OrderID: pl.OrderID, ShippingStatus: pl.To, ExpectedDeliveryDate: pl.ExpectedDeliveryDate}
	default:
		return nil
	}
	st.UpdatedAt = env.OccurredAt

	dkey := fmt.Sprintf(redisx.KeyDedup, p.Service, env.EventID)
	won, err := p.Cache.Claim(ctx, dkey, redisx.TTLDedup)
	if err != nil {
		return err
	}
	if !won {
		return nil
	}
	if err := Put(ctx, p.Cache, st); err != nil {
		_ = p.Cache.Delete(ctx, dkey)
		return err
	}
	p.logger().Info("order status cached", zap.Int64("order_id", st.OrderID),
		zap.String("shipping_status", string(st.ShippingStatus)), zap.String("event_id", env.EventID))
	return nil
}

func (p *Projector) logger() *zap.Logger {
	if p.Log == nil {
		return zap.NewNop()
	}
	return p.Log
}

// Put writes st unless the cache already holds a newer status for the order.
func Put(ctx context.Context, c Cache, st Status) error {
	key := fmt.Sprintf(redisx.KeyOrderStatus, st.OrderID)
	if cur, ok, err := Lookup(ctx, c, st.OrderID); err == nil && ok && cur.UpdatedAt.After(st.UpdatedAt) {
		return nil
	}
	b, err := json.Marshal(st)
	if err != nil {
		return errors.Wrap(err, "encode status")
	}
	return c.Put(ctx, key, b, redisx.TTLStatusCache)
}

func Lookup(ctx context.Context, c Cache, orderID int64) (Status, bool, error) {
	b, ok, err := c.Get(ctx, fmt.Sprintf(redisx.KeyOrderStatus, orderID))
	if err != nil || !ok {
		return Status{}, false, err
	}
	var st Status
	if err := json.Unmarshal(b, &st); err != nil {
		return Status{}, false, errors.Wrap(err, "decode status")
	}
	return st, true, nil
}
