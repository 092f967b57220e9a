package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/flora-checkout/internal/apperr"
	"github.com/ariefcatur/flora-checkout/internal/auth"
	"github.com/ariefcatur/flora-checkout/internal/catalog"
	"github.com/ariefcatur/flora-checkout/internal/customer"
	"github.com/ariefcatur/flora-checkout/internal/inventory"
	"github.com/ariefcatur/flora-checkout/internal/ledger"
	"github.com/ariefcatur/flora-checkout/internal/orders"
	"github.com/ariefcatur/flora-checkout/internal/otp"
	"github.com/ariefcatur/flora-checkout/internal/payment"
)

const (
	johnAccount = "Z-JOHN-100000"
	shop        = DefaultMerchantAccount
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type recordingPublisher struct {
	mu   sync.Mutex
	envs []orders.Envelope
}

func (p *recordingPublisher) Publish(_ context.Context, _, value []byte, _ ...kafka.Header) error {
	var env orders.Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.envs = append(p.envs, env)
	return nil
}

type failingOrders struct{ orders.Repository }

func (failingOrders) Create(context.Context, *orders.Order) error { return errors.New("db down") }

type fixture struct {
	o       *Orchestrator
	ledger  *ledger.MemoryStore
	catalog *catalog.MemoryStore
	orders  *orders.MemoryRepo
	placed  *recordingPublisher
	ship    *recordingPublisher
	now     time.Time
}

func setupCheckoutTest(t *testing.T, balance string) *fixture {
	t.Helper()
	f := &fixture{
		ledger: ledger.NewMemoryStore(
			ledger.Account{Username: "john", AccountNumber: johnAccount, Balance: dec(balance)},
			ledger.Account{Username: "shop", AccountNumber: shop, Balance: dec("0")},
		),
		catalog: catalog.NewMemoryStore(
			catalog.Item{ID: 1, Name: "Rose", Price: dec("10"), Stock: 10, Category: "blooms",
				Kind: catalog.KindFlower, Flower: &catalog.Flower{Color: catalog.ColorRed, Piece: 1}},
			catalog.Item{ID: 42, Name: "Monstera", Price: dec("45"), Stock: 2, Category: "greenery",
				Kind: catalog.KindIndoorPlant, IndoorPlant: &catalog.IndoorPlant{PlantSize: "L"}},
		),
		orders: orders.NewMemoryRepo(),
		placed: &recordingPublisher{},
		ship:   &recordingPublisher{},
		now:    time.Date(2026, 3, 1, 22, 30, 0, 0, time.UTC),
	}
	codes := otp.NewMemoryStore()
	require.NoError(t, codes.Replace(context.Background(), otp.Code{UserID: 1, Username: "john", Code: "1234"}))

	f.o = &Orchestrator{
		Customers: customer.NewMemoryDirectory(customer.Customer{
			ID: 7, Username: "john", Email: "john@example.com", FirstName: "John", LastName: "Doe"}),
		Payments:  &payment.Engine{Ledger: f.ledger, Codes: &otp.Authority{Store: codes}},
		Inventory: &inventory.Service{Stock: &inventory.MemoryStock{Catalog: f.catalog}},
		Orders:    f.orders,
		Placed:    f.placed,
		Shipping:  f.ship,
		Producer:  "flora-api",
		Now:       func() time.Time { return f.now },
	}
	return f
}

func (f *fixture) balance(t *testing.T, number string) decimal.Decimal {
	t.Helper()
	a, err := f.ledger.FindAccount(context.Background(), number)
	require.NoError(t, err)
	return a.Balance
}

func (f *fixture) stock(t *testing.T, id int64) int {
	t.Helper()
	it, err := f.catalog.FindByID(context.Background(), id)
	require.NoError(t, err)
	return it.Stock
}

func request(total string, cart map[int64]int) Request {
	return Request{
		ItemQuantities:    cart,
		TotalAmount:       dec(total),
		CustomerEmail:     "john@example.com",
		ShippingAddress:   "Jl. Mawar 1",
		FromAccountNumber: johnAccount,
		PaymentUsername:   "john",
		Code:              "1234",
	}
}

func TestCheckout(t *testing.T) {
	ctx := context.Background()
	f := setupCheckoutTest(t, "500.00")

	snap, err := f.o.Checkout(ctx, request("65.00", map[int64]int{1: 2, 42: 1}))
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^PLANT-\d+-\d{6}$`), snap.OrderCode)
	assert.Equal(t, 3, snap.TotalItems)
	assert.Equal(t, orders.StatusPaid, snap.Status)
	assert.Equal(t, orders.ShippingPending, snap.ShippingStatus)
	assert.Nil(t, snap.ExpectedDeliveryDate)
	assert.Equal(t, "John Doe", snap.CustomerName)
	assert.Equal(t, map[int64]int{1: 2, 42: 1}, snap.PlantQuantities)
	require.Len(t, snap.Plants, 2)

	assert.True(t, f.balance(t, johnAccount).Equal(dec("435.00")))
	assert.True(t, f.balance(t, shop).Equal(dec("65.00")))
	assert.Equal(t, 8, f.stock(t, 1))
	assert.Equal(t, 1, f.stock(t, 42))

	require.Len(t, f.placed.envs, 1)
	assert.Equal(t, orders.EventOrderPlaced, f.placed.envs[0].EventType)
	assert.Equal(t, orders.CorrelationID(snap.ID), f.placed.envs[0].CorrelationID)
}

func TestCheckoutPaymentFailureLeavesStock(t *testing.T) {
	ctx := context.Background()
	f := setupCheckoutTest(t, "100.00")

	_, err := f.o.Checkout(ctx, request("150.00", map[int64]int{1: 1}))
	require.Error(t, err)
	assert.Equal(t, apperr.Insufficient, apperr.KindOf(err))

	assert.Equal(t, 10, f.stock(t, 1))
	assert.True(t, f.balance(t, johnAccount).Equal(dec("100.00")))
	all, _ := f.orders.ListAll(ctx)
	assert.Empty(t, all)
	assert.Empty(t, f.placed.envs)
}

func TestCheckoutWrongCode(t *testing.T) {
	f := setupCheckoutTest(t, "500.00")
	req := request("10.00", map[int64]int{1: 1})
	req.Code = "9999"

	_, err := f.o.Checkout(context.Background(), req)
	assert.Equal(t, apperr.SecurityCodeInvalid, apperr.KindOf(err))
	assert.Equal(t, 10, f.stock(t, 1))
	assert.True(t, f.balance(t, johnAccount).Equal(dec("500.00")))
}

func TestCheckoutReservationFailureRefunds(t *testing.T) {
	ctx := context.Background()
	f := setupCheckoutTest(t, "500.00")

	_, err := f.o.Checkout(ctx, request("135.00", map[int64]int{42: 3}))
	require.Error(t, err)
	assert.Equal(t, apperr.Insufficient, apperr.KindOf(err))
	assert.Equal(t, "insufficient stock for Monstera: available 2, requested 3", err.Error())

	assert.Equal(t, 2, f.stock(t, 42))
	assert.True(t, f.balance(t, johnAccount).Equal(dec("500.00")))
	assert.True(t, f.balance(t, shop).Equal(dec("0")))
}

func TestCheckoutPersistFailureCompensates(t *testing.T) {
	ctx := context.Background()
	f := setupCheckoutTest(t, "500.00")
	f.o.Orders = failingOrders{f.orders}

	_, err := f.o.Checkout(ctx, request("20.00", map[int64]int{1: 2}))
	require.Error(t, err)
	assert.Equal(t, apperr.Internal, apperr.KindOf(err))

	assert.Equal(t, 10, f.stock(t, 1))
	assert.True(t, f.balance(t, johnAccount).Equal(dec("500.00")))
	assert.Empty(t, f.placed.envs)
}

func TestCheckoutValidation(t *testing.T) {
	ctx := context.Background()
	f := setupCheckoutTest(t, "500.00")

	cases := map[string]Request{
		"empty cart":     request("10.00", nil),
		"zero quantity":  request("10.00", map[int64]int{1: 0}),
		"zero total":     request("0", map[int64]int{1: 1}),
		"sub-cent total": request("10.005", map[int64]int{1: 1}),
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.o.Checkout(ctx, req)
			assert.Equal(t, apperr.InvalidArgument, apperr.KindOf(err))
		})
	}

	req := request("10.00", map[int64]int{1: 1})
	req.CustomerEmail = "nobody@example.com"
	_, err := f.o.Checkout(ctx, req)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
	assert.True(t, f.balance(t, johnAccount).Equal(dec("500.00")))
}

func TestUpdateShippingStatus(t *testing.T) {
	ctx := context.Background()
	f := setupCheckoutTest(t, "500.00")
	snap, err := f.o.Checkout(ctx, request("10.00", map[int64]int{1: 1}))
	require.NoError(t, err)

	got, err := f.o.UpdateShippingStatus(ctx, snap.ID, orders.ShippingOutForDelivery)
	require.NoError(t, err)
	assert.Equal(t, orders.ShippingOutForDelivery, got.ShippingStatus)
	require.NotNil(t, got.ExpectedDeliveryDate)
	assert.Equal(t, "2026-03-02", *got.ExpectedDeliveryDate)

	_, err = f.o.UpdateShippingStatus(ctx, snap.ID, orders.ShippingPending)
	assert.Equal(t, apperr.InvalidArgument, apperr.KindOf(err))

	got, err = f.o.UpdateShippingStatus(ctx, snap.ID, orders.ShippingDelivered)
	require.NoError(t, err)
	assert.Equal(t, orders.ShippingDelivered, got.ShippingStatus)
	assert.Equal(t, "2026-03-02", *got.ExpectedDeliveryDate)

	_, err = f.o.UpdateShippingStatus(ctx, snap.ID, orders.ShippingOutForDelivery)
	assert.Equal(t, apperr.InvalidArgument, apperr.KindOf(err))

	_, err = f.o.UpdateShippingStatus(ctx, 999, orders.ShippingDelivered)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))

	require.Len(t, f.ship.envs, 2)
	var p orders.ShippingStatusChangedPayload
	require.NoError(t, json.Unmarshal(f.ship.envs[0].Payload, &p))
	assert.Equal(t, orders.ShippingPending, p.From)
	assert.Equal(t, orders.ShippingOutForDelivery, p.To)
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	f := setupCheckoutTest(t, "500.00")

	first, err := f.o.Checkout(ctx, request("10.00", map[int64]int{1: 1}))
	require.NoError(t, err)
	f.now = f.now.Add(time.Hour)
	second, err := f.o.Checkout(ctx, request("10.00", map[int64]int{1: 1}))
	require.NoError(t, err)

	list, err := f.o.History(ctx, auth.Principal{Username: "john"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)

	_, err = f.o.History(ctx, auth.Principal{})
	assert.Equal(t, apperr.InvalidArgument, apperr.KindOf(err))
	_, err = f.o.History(ctx, auth.Principal{Username: "ghost"})
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))

	all, err := f.o.AllOrders(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	one, err := f.o.Order(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.OrderCode, one.OrderCode)
}

func TestOrderCode(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	code, err := OrderCode(at)
	require.NoError(t, err)
	assert.Regexp(t, `^PLANT-1700000000123-\d{6}$`, code)
}

func TestConcurrentCheckoutsOfLastStock(t *testing.T) {
	ctx := context.Background()
	f := setupCheckoutTest(t, "500.00")
	var seq atomic.Int64
	f.o.NewCode = func(at time.Time) (string, error) {
		return fmt.Sprintf("PLANT-%d-%06d", at.UnixMilli(), seq.Add(1)), nil
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		placed int
		short  int
	)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.o.Checkout(ctx, request("45.00", map[int64]int{42: 1}))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				placed++
			case apperr.KindOf(err) == apperr.Insufficient:
				short++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, placed)
	assert.Equal(t, 4, short)
	assert.Equal(t, 0, f.stock(t, 42))
	assert.True(t, f.balance(t, johnAccount).Equal(dec("410.00")))
	assert.True(t, f.balance(t, shop).Equal(dec("90.00")))
	all, err := f.orders.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
