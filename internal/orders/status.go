package orders

import "strings"

type PaymentStatus string

const StatusPaid PaymentStatus = "PAID"

type ShippingStatus string

const (
	ShippingPending        ShippingStatus = "PENDING"
	ShippingOutForDelivery ShippingStatus = "OUT_FOR_DELIVERY"
	ShippingDelivered      ShippingStatus = "DELIVERED"
)

var validNext = map[ShippingStatus]map[ShippingStatus]bool{
	ShippingPending:        {ShippingOutForDelivery: true, ShippingDelivered: true},
	ShippingOutForDelivery: {ShippingDelivered: true},
	ShippingDelivered:      {},
}

func CanTransition(from, to ShippingStatus) bool {
	return validNext[from][to]
}

// ParseShippingStatus accepts the enumeration names case-insensitively.
func ParseShippingStatus(s string) (ShippingStatus, bool) {
	st := ShippingStatus(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := validNext[st]
	return st, ok
}
