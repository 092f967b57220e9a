package orders

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/flora-checkout/internal/catalog"
)

// Snapshot is the order view returned to callers.
type Snapshot struct {
	ID                   int64           `json:"id"`
	OrderCode            string          `json:"order_code"`
	OrderDate            time.Time       `json:"order_date"`
	TotalAmount          decimal.Decimal `json:"total_amount"`
	TotalItems           int             `json:"total_items"`
	Status               PaymentStatus   `json:"status"`
	ShippingStatus       ShippingStatus  `json:"shipping_status"`
	ShippingAddress      string          `json:"shipping_address"`
	CustomerNotes        string          `json:"customer_notes"`
	ExpectedDeliveryDate *string         `json:"expected_delivery_date"`
	CustomerName         string          `json:"customer_name"`
	CustomerEmail        string          `json:"customer_email"`
	Plants               []PlantLine     `json:"plants"`
	PlantQuantities      map[int64]int   `json:"plant_quantities"`
}

type PlantLine struct {
	ID               int64           `json:"id"`
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	Price            decimal.Decimal `json:"price"`
	CategoryName     string          `json:"category_name"`
	PlantType        catalog.Kind    `json:"plant_type"`
	Quantity         int             `json:"quantity"`
	Color            string          `json:"color,omitempty"`
	Piece            *int            `json:"piece,omitempty"`
	PlantSize        string          `json:"plant_size,omitempty"`
	EasyToCare       *bool           `json:"easy_to_care,omitempty"`
	CareInstructions string          `json:"care_instructions,omitempty"`
}

const DateLayout = "2006-01-02"

func (o Order) Snapshot() Snapshot {
	s := Snapshot{
		ID:              o.ID,
		OrderCode:       o.Code,
		OrderDate:       o.OrderDate,
		TotalAmount:     o.TotalAmount,
		TotalItems:      o.TotalItems,
		Status:          o.Status,
		ShippingStatus:  o.ShippingStatus,
		ShippingAddress: o.ShippingAddress,
		CustomerNotes:   o.CustomerNotes,
		CustomerName:    o.Customer.Name,
		CustomerEmail:   o.Customer.Email,
		Plants:          make([]PlantLine, 0, len(o.Lines)),
		PlantQuantities: o.Quantities(),
	}
	if o.ExpectedDeliveryDate != nil {
		d := o.ExpectedDeliveryDate.Format(DateLayout)
		s.ExpectedDeliveryDate = &d
	}
	for _, l := range o.Lines {
		s.Plants = append(s.Plants, plantLine(l))
	}
	return s
}

func plantLine(l Line) PlantLine {
	it := l.Item
	pl := PlantLine{
		ID:           l.ItemID,
		Name:         it.Name,
		Description:  it.Description,
		Price:        it.Price,
		CategoryName: it.Category,
		PlantType:    it.Kind,
		Quantity:     l.Quantity,
	}
	switch it.Kind {
	case catalog.KindFlower:
		if f := it.Flower; f != nil {
			piece := f.Piece
			pl.Color, pl.Piece = string(f.Color), &piece
		}
	case catalog.KindIndoorPlant:
		if p := it.IndoorPlant; p != nil {
			easy := p.EasyToCare
			pl.PlantSize, pl.EasyToCare, pl.CareInstructions = p.PlantSize, &easy, p.CareInstructions
		}
	}
	return pl
}
