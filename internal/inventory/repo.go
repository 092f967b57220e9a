package inventory

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/ariefcatur/flora-checkout/internal/catalog"
	"github.com/ariefcatur/flora-checkout/internal/postgres"
)

type Repo struct{ DB *pgxpool.Pool }

// ReserveAll: lock each plant (FOR UPDATE) -> check -> conditional decrement.
// Any shortage rolls back every line.
func (r *Repo) ReserveAll(ctx context.Context, items []ItemQty) ([]catalog.Item, error) {
	var out []catalog.Item
	err := postgres.InTx(ctx, r.DB, func(tx pgx.Tx) error {
		out = make([]catalog.Item, 0, len(items))
		for _, it := range items {
			item, err := catalog.FindByID(ctx, tx, it.ItemID, true)
			if err != nil {
				return err
			}
			if item.Stock < it.Quantity {
				return Shortage(item, it.Quantity)
			}

			ct, err := tx.Exec(ctx, `UPDATE plants SET stock = stock - $2 WHERE id=$1 AND stock >= $2`, it.ItemID, it.Quantity)
			if err != nil {
				return errors.Wrapf(err, "decrement plant %d", it.ItemID)
			}
			if ct.RowsAffected() != 1 {
				return Shortage(item, it.Quantity)
			}
			item.Stock -= it.Quantity
			out = append(out, item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) ReleaseAll(ctx context.Context, items []ItemQty) error {
	return postgres.InTx(ctx, r.DB, func(tx pgx.Tx) error {
		for _, it := range items {
			ct, err := tx.Exec(ctx, `UPDATE plants SET stock = stock + $2 WHERE id=$1`, it.ItemID, it.Quantity)
			if err != nil {
				return errors.Wrapf(err, "release plant %d", it.ItemID)
			}
			if ct.RowsAffected() != 1 {
				return catalog.NotFound(it.ItemID)
			}
		}
		return nil
	})
}
