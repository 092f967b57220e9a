package orders

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	EventOrderPlaced           = "OrderPlaced"
	EventShippingStatusChanged = "ShippingStatusChanged"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"` // e.g. "flora-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type OrderPlacedPayload struct {
	OrderID        int64           `json:"order_id"`
	OrderCode      string          `json:"order_code"`
	CustomerID     int64           `json:"customer_id"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	TotalItems     int             `json:"total_items"`
	ShippingStatus ShippingStatus  `json:"shipping_status"`
}

type ShippingStatusChangedPayload struct {
	OrderID              int64          `json:"order_id"`
	From                 ShippingStatus `json:"from"`
	To                   ShippingStatus `json:"to"`
	ExpectedDeliveryDate *string        `json:"expected_delivery_date,omitempty"`
}

func NewEnvelope(eventType, producer, traceID string, orderID int64, payload any, at time.Time) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, errors.Wrapf(err, "encode %s payload", eventType)
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    at.UTC(),
		Producer:      producer,
		TraceID:       traceID,
		CorrelationID: CorrelationID(orderID),
		Payload:       raw,
	}, nil
}

func Placed(o Order) OrderPlacedPayload {
	return OrderPlacedPayload{
		OrderID:        o.ID,
		OrderCode:      o.Code,
		CustomerID:     o.Customer.ID,
		TotalAmount:    o.TotalAmount,
		TotalItems:     o.TotalItems,
		ShippingStatus: o.ShippingStatus,
	}
}
