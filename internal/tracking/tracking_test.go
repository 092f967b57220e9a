package tracking

import (
	"context"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kafkax "github.com/ariefcatur/flora-checkout/internal/kafka"
	"github.com/ariefcatur/flora-checkout/internal/orders"
)

func message(t *testing.T, eventType string, orderID int64, payload any, at time.Time) (kafkago.Message, orders.Envelope) {
	t.Helper()
	env, err := orders.NewEnvelope(eventType, "flora-api", "", orderID, payload, at)
	require.NoError(t, err)
	return kafkago.Message{Key: orders.PartitionKey(orderID), Value: kafkax.MustMarshal(env)}, env
}

func TestHandleOrderEvent(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()
	p := &Projector{Cache: cache, Service: "tracking"}
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	placed, _ := message(t, orders.EventOrderPlaced, 5, orders.OrderPlacedPayload{
		OrderID: 5, OrderCode: "PLANT-1-000001", TotalAmount: decimal.NewFromInt(10),
		TotalItems: 1, ShippingStatus: orders.ShippingPending,
	}, t0)
	require.NoError(t, p.HandleOrderEvent(ctx, placed))

	st, ok, err := Lookup(ctx, cache, 5)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, orders.ShippingPending, st.ShippingStatus)
	assert.Equal(t, "PLANT-1-000001", st.OrderCode)

	due := "2026-03-02"
	shipped, _ := message(t, orders.EventShippingStatusChanged, 5, orders.ShippingStatusChangedPayload{
		OrderID: 5, From: orders.ShippingPending, To: orders.ShippingOutForDelivery, ExpectedDeliveryDate: &due,
	}, t0.Add(time.Minute))
	require.NoError(t, p.HandleOrderEvent(ctx, shipped))

	st, _, _ = Lookup(ctx, cache, 5)
	assert.Equal(t, orders.ShippingOutForDelivery, st.ShippingStatus)
	assert.Equal(t, due, *st.ExpectedDeliveryDate)

	// redelivery of the older event is deduplicated
	require.NoError(t, p.HandleOrderEvent(ctx, placed))
	st, _, _ = Lookup(ctx, cache, 5)
	assert.Equal(t, orders.ShippingOutForDelivery, st.ShippingStatus)
}

func TestPutKeepsNewest(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()
	t0 := time.Now().UTC()

	require.NoError(t, Put(ctx, cache, Status{OrderID: 1, ShippingStatus: orders.ShippingDelivered, UpdatedAt: t0}))
	require.NoError(t, Put(ctx, cache, Status{OrderID: 1, ShippingStatus: orders.ShippingPending, UpdatedAt: t0.Add(-time.Second)}))

	st, ok, err := Lookup(ctx, cache, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, orders.ShippingDelivered, st.ShippingStatus)
}

func TestHandleIgnoresJunk(t *testing.T) {
	ctx := context.Background()
	p := &Projector{Cache: NewMemoryCache(), Service: "tracking"}

	assert.NoError(t, p.HandleOrderEvent(ctx, kafkago.Message{Value: []byte("not json")}))

	other, _ := message(t, "SomethingElse", 1, map[string]string{}, time.Now())
	assert.NoError(t, p.HandleOrderEvent(ctx, other))
	_, ok, _ := Lookup(ctx, p.Cache, 1)
	assert.False(t, ok)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	c := NewMemoryCache()
	c.Now = func() time.Time { return now }

	won, _ := c.Claim(ctx, "k", time.Minute)
	assert.True(t, won)
	won, _ = c.Claim(ctx, "k", time.Minute)
	assert.False(t, won)

	now = now.Add(2 * time.Minute)
	won, _ = c.Claim(ctx, "k", time.Minute)
	assert.True(t, won)
}
