package customer

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/ariefcatur/flora-checkout/internal/apperr"
	"github.com/ariefcatur/flora-checkout/internal/postgres"
)

type Repo struct{ DB *pgxpool.Pool }

const selectCustomer = `SELECT id, username, email, first_name, last_name, phone FROM customers `

func (r *Repo) FindByEmail(ctx context.Context, email string) (Customer, error) {
	c, err := scan(r.DB.QueryRow(ctx, selectCustomer+`WHERE lower(email)=lower($1)`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, notFoundByEmail(email)
	}
	return c, errors.Wrap(err, "select customer by email")
}

func (r *Repo) FindByUsername(ctx context.Context, username string) (Customer, error) {
	c, err := scan(r.DB.QueryRow(ctx, selectCustomer+`WHERE username=$1`, username))
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, notFoundByUsername(username)
	}
	return c, errors.Wrap(err, "select customer by username")
}

// Register inserts a customer. Used by operator tooling.
func (r *Repo) Register(ctx context.Context, c Customer) (Customer, error) {
	err := r.DB.QueryRow(ctx, `
		INSERT INTO customers(username, email, first_name, last_name, phone)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		c.Username, c.Email, c.FirstName, c.LastName, c.Phone).Scan(&c.ID)
	if postgres.IsUniqueViolation(err) {
		return Customer{}, apperr.New(apperr.AlreadyExists, "customer %s already exists", c.Username)
	}
	if err != nil {
		return Customer{}, errors.Wrap(err, "insert customer")
	}
	return c, nil
}

func scan(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.Username, &c.Email, &c.FirstName, &c.LastName, &c.Phone)
	return c, err
}
