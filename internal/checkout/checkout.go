// Package checkout sequences a purchase: payment, stock reservation, order persistence.
package checkout

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ariefcatur/flora-checkout/internal/apperr"
	"github.com/ariefcatur/flora-checkout/internal/auth"
	"github.com/ariefcatur/flora-checkout/internal/customer"
	"github.com/ariefcatur/flora-checkout/internal/inventory"
	kafkax "github.com/ariefcatur/flora-checkout/internal/kafka"
	"github.com/ariefcatur/flora-checkout/internal/ledger"
	"github.com/ariefcatur/flora-checkout/internal/logging"
	"github.com/ariefcatur/flora-checkout/internal/metrics"
	"github.com/ariefcatur/flora-checkout/internal/orders"
)

var tracer = otel.Tracer("github.com/ariefcatur/flora-checkout/internal/checkout")

const DefaultMerchantAccount = "ZJOHN161361"

type Payments interface {
	TransferAmount(ctx context.Context, from, to string, amount decimal.Decimal, username, code string) (decimal.Decimal, error)
	Refund(ctx context.Context, from, to string, amount decimal.Decimal) (decimal.Decimal, error)
}

type Inventory interface {
	Reserve(ctx context.Context, cart map[int64]int) (inventory.Reservation, error)
	Release(ctx context.Context, res inventory.Reservation) error
}

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, key, value []byte, headers ...kafka.Header) error
}

type Request struct {
	ItemQuantities    map[int64]int   `json:"item_quantities"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	CustomerEmail     string          `json:"customer_email"`
	ShippingAddress   string          `json:"shipping_address"`
	CustomerNotes     string          `json:"customer_notes"`
	FromAccountNumber string          `json:"from_account_number"`
	PaymentUsername   string          `json:"payment_username"`
	Code              string          `json:"code"`
}

func (r Request) Validate() error {
	if _, err := inventory.ValidateCart(r.ItemQuantities); err != nil {
		return err
	}
	if !r.TotalAmount.IsPositive() {
		return apperr.New(apperr.InvalidArgument, "total amount must be positive")
	}
	if !ledger.Representable(r.TotalAmount) {
		return apperr.New(apperr.InvalidArgument, "total amount %s has more than %d decimal places",
			r.TotalAmount, ledger.Scale)
	}
	if strings.TrimSpace(r.CustomerEmail) == "" {
		return apperr.New(apperr.InvalidArgument, "customer email is required")
	}
	if r.FromAccountNumber == "" {
		return apperr.New(apperr.InvalidArgument, "source account number is required")
	}
	return nil
}

type Orchestrator struct {
	Customers       customer.Directory
	Payments        Payments
	Inventory       Inventory
	Orders          orders.Repository
	Placed          Publisher
	Shipping        Publisher
	MerchantAccount string
	Producer        string // envelope producer name

	Now     func() time.Time
	NewCode func(at time.Time) (string, error)
	Log     *zap.Logger
	Metrics *metrics.Metrics
}

// Checkout charges the customer, reserves the cart and records the order. A failure after
// the payment refunds it, and a failure after the reservation also releases the stock.
func (o *Orchestrator) Checkout(ctx context.Context, req Request) (snap orders.Snapshot, err error) {
	started := time.Now()
	ctx, span := tracer.Start(ctx, "checkout", trace.WithAttributes(
		attribute.String("checkout.customer_email", req.CustomerEmail),
		attribute.String("checkout.total", req.TotalAmount.String()),
	))
	log := logging.FromContext(ctx, o.Log).With(zap.String("customer_email", req.CustomerEmail))
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = strings.ToLower(string(apperr.KindOf(err)))
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			log.Warn("checkout_failed", zap.String("kind", string(apperr.KindOf(err))), zap.Error(err))
		}
		o.Metrics.Checkout(started, outcome)
		span.End()
	}()

	if err = req.Validate(); err != nil {
		return orders.Snapshot{}, err
	}
	cust, err := o.Customers.FindByEmail(ctx, req.CustomerEmail)
	if err != nil {
		return orders.Snapshot{}, err
	}

	if _, err = o.Payments.TransferAmount(ctx, req.FromAccountNumber, o.merchant(), req.TotalAmount,
		req.PaymentUsername, req.Code); err != nil {
		return orders.Snapshot{}, err
	}
	log.Info("payment_verified", zap.String("from", req.FromAccountNumber))

	now := o.now()
	code, err := o.newCode(now)
	if err != nil {
		o.refund(ctx, log, req)
		return orders.Snapshot{}, err
	}

	res, err := o.Inventory.Reserve(ctx, req.ItemQuantities)
	if err != nil {
		o.refund(ctx, log, req)
		return orders.Snapshot{}, err
	}
	log.Info("stock_reserved", zap.Int("total_items", res.TotalItems))

	order := orders.Order{
		Code:            code,
		OrderDate:       now,
		Customer:        orders.CustomerRef{ID: cust.ID, Name: cust.FullName(), Email: cust.Email},
		TotalAmount:     req.TotalAmount,
		TotalItems:      res.TotalItems,
		Status:          orders.StatusPaid,
		ShippingStatus:  orders.ShippingPending,
		ShippingAddress: req.ShippingAddress,
		CustomerNotes:   req.CustomerNotes,
	}
	for _, l := range res.Lines {
		order.Lines = append(order.Lines, orders.Line{ItemID: l.Item.ID, Quantity: l.Quantity, Item: l.Item})
	}
	if err = o.Orders.Create(ctx, &order); err != nil {
		if rerr := o.Inventory.Release(ctx, res); rerr != nil {
			log.Error("stock_release_failed", zap.String("order_code", code), zap.Error(rerr))
		}
		o.refund(ctx, log, req)
		return orders.Snapshot{}, err
	}
	span.SetAttributes(attribute.Int64("checkout.order_id", order.ID))
	log.Info("order_persisted", zap.Int64("order_id", order.ID), zap.String("order_code", code))

	o.publish(ctx, log, o.Placed, orders.EventOrderPlaced, order.ID, orders.Placed(order))
	return order.Snapshot(), nil
}

// UpdateShippingStatus moves an order along PENDING, OUT_FOR_DELIVERY, DELIVERED.
func (o *Orchestrator) UpdateShippingStatus(ctx context.Context, orderID int64, target orders.ShippingStatus) (orders.Snapshot, error) {
	ord, err := o.Orders.FindByID(ctx, orderID)
	if err != nil {
		return orders.Snapshot{}, err
	}
	from := ord.ShippingStatus
	if !orders.CanTransition(from, target) {
		return orders.Snapshot{}, apperr.New(apperr.InvalidArgument,
			"cannot change shipping status of order %d from %s to %s", orderID, from, target).
			With("from", from).With("to", target)
	}

	var expected *time.Time
	if target == orders.ShippingOutForDelivery {
		n := o.now()
		d := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
		expected = &d
	}
	if err := o.Orders.UpdateShipping(ctx, orderID, from, target, expected); err != nil {
		return orders.Snapshot{}, err
	}
	ord.ShippingStatus = target
	if expected != nil {
		ord.ExpectedDeliveryDate = expected
	}

	snap := ord.Snapshot()
	log := logging.FromContext(ctx, o.Log)
	log.Info("shipping_status_changed", zap.Int64("order_id", orderID),
		zap.String("from", string(from)), zap.String("to", string(target)))
	o.publish(ctx, log, o.Shipping, orders.EventShippingStatusChanged, orderID, orders.ShippingStatusChangedPayload{
		OrderID: orderID, From: from, To: target, ExpectedDeliveryDate: snap.ExpectedDeliveryDate,
	})
	return snap, nil
}

// History lists the principal's orders, newest first.
func (o *Orchestrator) History(ctx context.Context, p auth.Principal) ([]orders.Snapshot, error) {
	if p.Username == "" {
		return nil, apperr.New(apperr.InvalidArgument, "principal is required")
	}
	cust, err := o.Customers.FindByUsername(ctx, p.Username)
	if err != nil {
		return nil, err
	}
	list, err := o.Orders.ListByCustomer(ctx, cust.ID)
	if err != nil {
		return nil, err
	}
	return snapshots(list), nil
}

func (o *Orchestrator) AllOrders(ctx context.Context) ([]orders.Snapshot, error) {
	list, err := o.Orders.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return snapshots(list), nil
}

func (o *Orchestrator) Order(ctx context.Context, id int64) (orders.Snapshot, error) {
	ord, err := o.Orders.FindByID(ctx, id)
	if err != nil {
		return orders.Snapshot{}, err
	}
	return ord.Snapshot(), nil
}

func snapshots(list []orders.Order) []orders.Snapshot {
	out := make([]orders.Snapshot, 0, len(list))
	for _, ord := range list {
		out = append(out, ord.Snapshot())
	}
	return out
}

func (o *Orchestrator) refund(ctx context.Context, log *zap.Logger, req Request) {
	if _, err := o.Payments.Refund(ctx, o.merchant(), req.FromAccountNumber, req.TotalAmount); err != nil {
		log.Error("refund_failed", zap.String("to", req.FromAccountNumber),
			zap.String("amount", req.TotalAmount.String()), zap.Error(err))
		return
	}
	log.Info("payment_refunded", zap.String("to", req.FromAccountNumber))
}

// publish is best effort; the order is already committed.
func (o *Orchestrator) publish(ctx context.Context, log *zap.Logger, p Publisher, eventType string, orderID int64, payload any) {
	if p == nil {
		return
	}
	var traceID string
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.HasTraceID() {
		traceID = sc.TraceID().String()
	}
	env, err := orders.NewEnvelope(eventType, o.Producer, traceID, orderID, payload, o.now())
	if err == nil {
		err = p.Publish(ctx, orders.PartitionKey(orderID), kafkax.MustMarshal(env),
			kafka.Header{Key: "event_type", Value: []byte(eventType)})
	}
	if err != nil {
		log.Warn("event_publish_failed", zap.String("event_type", eventType), zap.Int64("order_id", orderID), zap.Error(err))
	}
}

func (o *Orchestrator) merchant() string {
	if o.MerchantAccount == "" {
		return DefaultMerchantAccount
	}
	return o.MerchantAccount
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now().UTC()
}

func (o *Orchestrator) newCode(at time.Time) (string, error) {
	if o.NewCode != nil {
		return o.NewCode(at)
	}
	return OrderCode(at)
}

// OrderCode returns PLANT-<unix millis>-<6 random digits>.
func OrderCode(at time.Time) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", errors.Wrap(err, "order code")
	}
	return fmt.Sprintf("PLANT-%d-%06d", at.UnixMilli(), n.Int64()), nil
}
