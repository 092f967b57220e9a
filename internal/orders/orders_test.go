package orders

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/flora-checkout/internal/apperr"
	"github.com/ariefcatur/flora-checkout/internal/catalog"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to ShippingStatus
		ok       bool
	}{
		{ShippingPending, ShippingOutForDelivery, true},
		{ShippingPending, ShippingDelivered, true},
		{ShippingOutForDelivery, ShippingDelivered, true},
		{ShippingOutForDelivery, ShippingPending, false},
		{ShippingDelivered, ShippingPending, false},
		{ShippingDelivered, ShippingOutForDelivery, false},
		{ShippingPending, ShippingPending, false},
		{"LOST", ShippingDelivered, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.ok, CanTransition(c.from, c.to), "%s -> %s", c.from, c.to)
	}
}

func TestParseShippingStatus(t *testing.T) {
	st, ok := ParseShippingStatus("out_for_delivery")
	assert.True(t, ok)
	assert.Equal(t, ShippingOutForDelivery, st)

	_, ok = ParseShippingStatus("SHIPPED")
	assert.False(t, ok)
}

func sampleOrder(customerID int64, at time.Time) Order {
	return Order{
		Code:      "PLANT-1-000001",
		OrderDate: at,
		Customer:  CustomerRef{ID: customerID, Name: "John Doe", Email: "john@example.com"},
		Lines: []Line{
			{ItemID: 1, Quantity: 2, Item: catalog.Item{ID: 1, Name: "Rose", Price: decimal.NewFromInt(10),
				Category: "blooms", Kind: catalog.KindFlower, Flower: &catalog.Flower{Color: catalog.ColorRed, Piece: 12}}},
			{ItemID: 42, Quantity: 1, Item: catalog.Item{ID: 42, Name: "Monstera", Price: decimal.NewFromInt(45),
				Category: "greenery", Kind: catalog.KindIndoorPlant, IndoorPlant: &catalog.IndoorPlant{PlantSize: "L", EasyToCare: true}}},
		},
		TotalAmount:    decimal.NewFromInt(65),
		TotalItems:     3,
		Status:         StatusPaid,
		ShippingStatus: ShippingPending,
	}
}

func TestSnapshot(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	o := sampleOrder(7, at)
	o.ID = 5
	due := at.AddDate(0, 0, 1)
	o.ExpectedDeliveryDate = &due

	s := o.Snapshot()
	assert.Equal(t, "PLANT-1-000001", s.OrderCode)
	assert.Equal(t, "John Doe", s.CustomerName)
	assert.Equal(t, map[int64]int{1: 2, 42: 1}, s.PlantQuantities)
	require.NotNil(t, s.ExpectedDeliveryDate)
	assert.Equal(t, "2026-03-02", *s.ExpectedDeliveryDate)

	require.Len(t, s.Plants, 2)
	assert.Equal(t, "RED", s.Plants[0].Color)
	assert.Equal(t, 12, *s.Plants[0].Piece)
	assert.Nil(t, s.Plants[0].EasyToCare)
	assert.Equal(t, "L", s.Plants[1].PlantSize)
	assert.True(t, *s.Plants[1].EasyToCare)
	assert.Empty(t, s.Plants[1].Color)
}

func TestMemoryRepo(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepo()
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	first := sampleOrder(7, t0)
	require.NoError(t, r.Create(ctx, &first))
	assert.Equal(t, int64(1), first.ID)

	dup := sampleOrder(7, t0)
	assert.Equal(t, apperr.AlreadyExists, apperr.KindOf(r.Create(ctx, &dup)))

	second := sampleOrder(7, t0.Add(time.Hour))
	second.Code = "PLANT-2-000002"
	require.NoError(t, r.Create(ctx, &second))
	other := sampleOrder(8, t0.Add(2*time.Hour))
	other.Code = "PLANT-3-000003"
	require.NoError(t, r.Create(ctx, &other))

	mine, err := r.ListByCustomer(ctx, 7)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID)

	all, err := r.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, other.ID, all[0].ID)

	_, err = r.FindByID(ctx, 99)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestMemoryRepoUpdateShipping(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepo()
	o := sampleOrder(7, time.Now())
	require.NoError(t, r.Create(ctx, &o))

	due := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, r.UpdateShipping(ctx, o.ID, ShippingPending, ShippingOutForDelivery, &due))

	err := r.UpdateShipping(ctx, o.ID, ShippingPending, ShippingDelivered, nil)
	assert.Equal(t, apperr.InvalidArgument, apperr.KindOf(err))

	require.NoError(t, r.UpdateShipping(ctx, o.ID, ShippingOutForDelivery, ShippingDelivered, nil))
	got, err := r.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, ShippingDelivered, got.ShippingStatus)
	require.NotNil(t, got.ExpectedDeliveryDate)
	assert.True(t, due.Equal(*got.ExpectedDeliveryDate))

	assert.Equal(t, apperr.NotFound, apperr.KindOf(r.UpdateShipping(ctx, 99, ShippingPending, ShippingDelivered, nil)))
}

func TestNewEnvelope(t *testing.T) {
	o := sampleOrder(7, time.Now())
	o.ID = 12
	env, err := NewEnvelope(EventOrderPlaced, "flora-api", "abc", o.ID, Placed(o), time.Now())
	require.NoError(t, err)
	assert.Equal(t, "12", env.CorrelationID)
	assert.Equal(t, 1, env.EventVersion)
	assert.NotEmpty(t, env.EventID)

	var p OrderPlacedPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, "PLANT-1-000001", p.OrderCode)
	assert.True(t, decimal.NewFromInt(65).Equal(p.TotalAmount))
	assert.Equal(t, []byte("12"), PartitionKey(12))
}
