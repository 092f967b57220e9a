package orders

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/flora-checkout/internal/apperr"
	"github.com/ariefcatur/flora-checkout/internal/postgres"
)

type Repo struct{ DB *pgxpool.Pool }

const orderColumns = `id, order_code, order_date, customer_id, customer_name, customer_email,
	total_amount::text, total_items, status, shipping_status, shipping_address, customer_notes,
	expected_delivery_date`

func NotFound(id int64) error {
	return apperr.New(apperr.NotFound, "order not found with id: %d", id)
}

func (r *Repo) Create(ctx context.Context, o *Order) error {
	return postgres.InTx(ctx, r.DB, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO checkouts(order_code, order_date, customer_id, customer_name, customer_email,
			                      total_amount, total_items, status, shipping_status, shipping_address,
			                      customer_notes, expected_delivery_date)
			VALUES ($1, $2, $3, $4, $5, $6::text::numeric, $7, $8, $9, $10, $11, $12)
			RETURNING id`,
			o.Code, o.OrderDate, o.Customer.ID, o.Customer.Name, o.Customer.Email,
			o.TotalAmount.String(), o.TotalItems, string(o.Status), string(o.ShippingStatus),
			o.ShippingAddress, o.CustomerNotes, o.ExpectedDeliveryDate).Scan(&o.ID)
		if postgres.IsUniqueViolation(err) {
			return apperr.New(apperr.AlreadyExists, "order code %s already exists", o.Code)
		}
		if err != nil {
			return errors.Wrapf(err, "insert order %s", o.Code)
		}

		for _, l := range o.Lines {
			item, err := json.Marshal(l.Item)
			if err != nil {
				return errors.Wrapf(err, "encode line %d", l.ItemID)
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO checkout_lines(checkout_id, plant_id, quantity, item)
				VALUES ($1, $2, $3, $4::jsonb)`,
				o.ID, l.ItemID, l.Quantity, string(item)); err != nil {
				return errors.Wrapf(err, "insert line %d of order %s", l.ItemID, o.Code)
			}
		}
		return nil
	})
}

func (r *Repo) FindByID(ctx context.Context, id int64) (Order, error) {
	out, err := r.list(ctx, `SELECT `+orderColumns+` FROM checkouts WHERE id=$1`, id)
	if err != nil {
		return Order{}, err
	}
	if len(out) == 0 {
		return Order{}, NotFound(id)
	}
	return out[0], nil
}

func (r *Repo) ListByCustomer(ctx context.Context, customerID int64) ([]Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM checkouts WHERE customer_id=$1
		ORDER BY order_date DESC, id DESC`, customerID)
}

func (r *Repo) ListAll(ctx context.Context) ([]Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM checkouts ORDER BY order_date DESC, id DESC`)
}

func (r *Repo) UpdateShipping(ctx context.Context, id int64, from, to ShippingStatus, expected *time.Time) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE checkouts
		SET shipping_status=$2, expected_delivery_date=COALESCE($3, expected_delivery_date)
		WHERE id=$1 AND shipping_status=$4`,
		id, string(to), expected, string(from))
	if err != nil {
		return errors.Wrapf(err, "update shipping of order %d", id)
	}
	if ct.RowsAffected() > 0 {
		return nil
	}
	var exists bool
	if err := r.DB.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM checkouts WHERE id=$1)`, id).Scan(&exists); err != nil {
		return errors.Wrapf(err, "exists order %d", id)
	}
	if !exists {
		return NotFound(id)
	}
	return apperr.New(apperr.InvalidArgument, "order %d is no longer %s", id, from)
}

func (r *Repo) list(ctx context.Context, query string, args ...any) ([]Order, error) {
	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "select orders")
	}
	defer rows.Close()

	var (
		out []Order
		ids []int64
	)
	for rows.Next() {
		var (
			o               Order
			total           string
			status, shipped string
		)
		if err := rows.Scan(&o.ID, &o.Code, &o.OrderDate, &o.Customer.ID, &o.Customer.Name, &o.Customer.Email,
			&total, &o.TotalItems, &status, &shipped, &o.ShippingAddress, &o.CustomerNotes,
			&o.ExpectedDeliveryDate); err != nil {
			return nil, errors.Wrap(err, "scan order")
		}
		if o.TotalAmount, err = decimal.NewFromString(total); err != nil {
			return nil, errors.Wrapf(err, "parse total of order %d", o.ID)
		}
		o.Status, o.ShippingStatus = PaymentStatus(status), ShippingStatus(shipped)
		out = append(out, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate orders")
	}
	if len(ids) == 0 {
		return out, nil
	}

	lines, err := r.lines(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Lines = lines[out[i].ID]
	}
	return out, nil
}

func (r *Repo) lines(ctx context.Context, orderIDs []int64) (map[int64][]Line, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT checkout_id, plant_id, quantity, item FROM checkout_lines
		WHERE checkout_id = ANY($1) ORDER BY checkout_id, plant_id`, orderIDs)
	if err != nil {
		return nil, errors.Wrap(err, "select order lines")
	}
	defer rows.Close()

	out := make(map[int64][]Line, len(orderIDs))
	for rows.Next() {
		var (
			orderID int64
			l       Line
			raw     []byte
		)
		if err := rows.Scan(&orderID, &l.ItemID, &l.Quantity, &raw); err != nil {
			return nil, errors.Wrap(err, "scan order line")
		}
		if err := json.Unmarshal(raw, &l.Item); err != nil {
			return nil, errors.Wrapf(err, "decode line %d of order %d", l.ItemID, orderID)
		}
		out[orderID] = append(out[orderID], l)
	}
	return out, errors.Wrap(rows.Err(), "iterate order lines")
}
