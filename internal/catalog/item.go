// Package catalog holds plant items. An item is a Flower or an IndoorPlant; the Kind tag
// says which payload is set.
package catalog

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/flora-checkout/internal/apperr"
)

type Kind string

const (
	KindFlower      Kind = "FLOWER"
	KindIndoorPlant Kind = "INDOOR_PLANT"
)

type Color string

const (
	ColorRed    Color = "RED"
	ColorWhite  Color = "WHITE"
	ColorPink   Color = "PINK"
	ColorYellow Color = "YELLOW"
	ColorPurple Color = "PURPLE"
	ColorOrange Color = "ORANGE"
	ColorBlue   Color = "BLUE"
	ColorMixed  Color = "MIXED"
)

func ParseColor(s string) (Color, bool) {
	c := Color(strings.ToUpper(strings.TrimSpace(s)))
	switch c {
	case ColorRed, ColorWhite, ColorPink, ColorYellow, ColorPurple, ColorOrange, ColorBlue, ColorMixed:
		return c, true
	}
	return "", false
}

type Flower struct {
	Color Color `json:"color"`
	Piece int   `json:"piece"`
}

type IndoorPlant struct {
	PlantSize        string `json:"plant_size"`
	EasyToCare       bool   `json:"easy_to_care"`
	CareInstructions string `json:"care_instructions"`
}

type Item struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	UpdatePrice decimal.Decimal `json:"update_price"`
	Stock       int             `json:"stock"`
	Category    string          `json:"category"`
	Kind        Kind            `json:"kind"`

	Flower      *Flower      `json:"flower,omitempty"`
	IndoorPlant *IndoorPlant `json:"indoor_plant,omitempty"`
}

// Validate checks that exactly the payload named by Kind is present.
func (it Item) Validate() error {
	if strings.TrimSpace(it.Name) == "" {
		return apperr.New(apperr.InvalidArgument, "item name is required")
	}
	if it.Stock < 0 {
		return apperr.New(apperr.InvalidArgument, "stock of %s must not be negative", it.Name)
	}
	if it.Price.IsNegative() {
		return apperr.New(apperr.InvalidArgument, "price of %s must not be negative", it.Name)
	}
	switch it.Kind {
	case KindFlower:
		if it.Flower == nil || it.IndoorPlant != nil {
			return apperr.New(apperr.InvalidArgument, "flower %s needs flower details only", it.Name)
		}
	case KindIndoorPlant:
		if it.IndoorPlant == nil || it.Flower != nil {
			return apperr.New(apperr.InvalidArgument, "indoor plant %s needs indoor plant details only", it.Name)
		}
	default:
		return apperr.New(apperr.InvalidArgument, "invalid plant type: %s", it.Kind)
	}
	return nil
}

// Store is the catalog boundary used by the checkout core.
type Store interface {
	FindByID(ctx context.Context, id int64) (Item, error)
	Save(ctx context.Context, it Item) (Item, error)
	ExistsByID(ctx context.Context, id int64) (bool, error)
	DeleteByID(ctx context.Context, id int64) error
}

func NotFound(id int64) error {
	return apperr.New(apperr.NotFound, "plant not found with id: %d", id)
}
