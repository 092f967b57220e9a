package catalog

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/flora-checkout/internal/apperr"
	"github.com/ariefcatur/flora-checkout/internal/postgres"
)

type Repo struct{ DB *pgxpool.Pool }

// Columns shared with the inventory store, which scans the same rows under FOR UPDATE.
const Columns = `id, name, description, price::text, update_price::text, stock, category, kind,
	color, piece, plant_size, easy_to_care, care_instructions`

// ScanItem reads one row selected with Columns.
func ScanItem(row pgx.Row) (Item, error) {
	var (
		it                 Item
		price, updatePrice string
		color, size, care  sql.NullString
		piece              sql.NullInt32
		easy               sql.NullBool
	)
	if err := row.Scan(&it.ID, &it.Name, &it.Description, &price, &updatePrice, &it.Stock,
		&it.Category, &it.Kind, &color, &piece, &size, &easy, &care); err != nil {
		return Item{}, err
	}
	var err error
	if it.Price, err = decimal.NewFromString(price); err != nil {
		return Item{}, errors.Wrap(err, "parse price")
	}
	if it.UpdatePrice, err = decimal.NewFromString(updatePrice); err != nil {
		return Item{}, errors.Wrap(err, "parse update price")
	}
	switch it.Kind {
	case KindFlower:
		it.Flower = &Flower{Color: Color(color.String), Piece: int(piece.Int32)}
	case KindIndoorPlant:
		it.IndoorPlant = &IndoorPlant{PlantSize: size.String, EasyToCare: easy.Bool, CareInstructions: care.String}
	}
	return it, nil
}

func (r *Repo) FindByID(ctx context.Context, id int64) (Item, error) {
	return FindByID(ctx, r.DB, id, false)
}

// FindByID loads an item through q, optionally locking the row.
func FindByID(ctx context.Context, q postgres.Querier, id int64, lock bool) (Item, error) {
	query := `SELECT ` + Columns + ` FROM plants WHERE id=$1`
	if lock {
		query += ` FOR UPDATE`
	}
	it, err := ScanItem(q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, NotFound(id)
	}
	if err != nil {
		return Item{}, errors.Wrapf(err, "select plant %d", id)
	}
	return it, nil
}

func (r *Repo) Save(ctx context.Context, it Item) (Item, error) {
	if err := it.Validate(); err != nil {
		return Item{}, err
	}
	var (
		color, size, care *string
		piece             *int
		easy              *bool
	)
	if f := it.Flower; f != nil {
		c := string(f.Color)
		color, piece = &c, &f.Piece
	}
	if p := it.IndoorPlant; p != nil {
		size, easy, care = &p.PlantSize, &p.EasyToCare, &p.CareInstructions
	}

	var err error
	if it.ID == 0 {
		err = r.DB.QueryRow(ctx, `
			INSERT INTO plants(name, description, price, update_price, stock, category, kind,
			                   color, piece, plant_size, easy_to_care, care_instructions)
			VALUES ($1, $2, $3::text::numeric, $4::text::numeric, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING id`,
			it.Name, it.Description, it.Price.String(), it.UpdatePrice.String(), it.Stock, it.Category, string(it.Kind),
			color, piece, size, easy, care).Scan(&it.ID)
	} else {
		var ct pgconn.CommandTag
		ct, err = r.DB.Exec(ctx, `
			UPDATE plants SET name=$2, description=$3, price=$4::text::numeric, update_price=$5::text::numeric,
			       stock=$6, category=$7, kind=$8, color=$9, piece=$10, plant_size=$11,
			       easy_to_care=$12, care_instructions=$13
			WHERE id=$1`,
			it.ID, it.Name, it.Description, it.Price.String(), it.UpdatePrice.String(), it.Stock, it.Category, string(it.Kind),
			color, piece, size, easy, care)
		if err == nil && ct.RowsAffected() == 0 {
			return Item{}, NotFound(it.ID)
		}
	}
	if postgres.IsUniqueViolation(err) {
		return Item{}, apperr.New(apperr.AlreadyExists, "plant name %s in category %s already exists", it.Name, it.Category)
	}
	if err != nil {
		return Item{}, errors.Wrapf(err, "save plant %s", it.Name)
	}
	return it, nil
}

func (r *Repo) ExistsByID(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := r.DB.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM plants WHERE id=$1)`, id).Scan(&ok)
	return ok, errors.Wrapf(err, "exists plant %d", id)
}

func (r *Repo) DeleteByID(ctx context.Context, id int64) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM plants WHERE id=$1`, id)
	if err != nil {
		return errors.Wrapf(err, "delete plant %d", id)
	}
	if ct.RowsAffected() == 0 {
		return NotFound(id)
	}
	return nil
}
