package ledger

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/flora-checkout/internal/postgres"
)

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) FindAccount(ctx context.Context, accountNumber string) (Account, error) {
	return findAccount(ctx, r.DB, accountNumber, "", false)
}

func (r *Repo) FindOwnedAccount(ctx context.Context, accountNumber, owner string) (Account, error) {
	return findAccount(ctx, r.DB, accountNumber, owner, false)
}

func (r *Repo) Save(ctx context.Context, a Account) error {
	return saveAccount(ctx, r.DB, a)
}

// InTx locks every account read through s with FOR UPDATE until fn returns.
func (r *Repo) InTx(ctx context.Context, fn func(ctx context.Context, s Store) error) error {
	return postgres.InTx(ctx, r.DB, func(tx pgx.Tx) error {
		return fn(ctx, &txStore{tx: tx})
	})
}

type txStore struct{ tx pgx.Tx }

func (s *txStore) FindAccount(ctx context.Context, accountNumber string) (Account, error) {
	return findAccount(ctx, s.tx, accountNumber, "", true)
}

func (s *txStore) FindOwnedAccount(ctx context.Context, accountNumber, owner string) (Account, error) {
	return findAccount(ctx, s.tx, accountNumber, owner, true)
}

func (s *txStore) Save(ctx context.Context, a Account) error {
	return saveAccount(ctx, s.tx, a)
}

func findAccount(ctx context.Context, q postgres.Querier, accountNumber, owner string, lock bool) (Account, error) {
	sql := `SELECT id, username, account_number, balance::text FROM payment_accounts WHERE account_number=$1`
	args := []any{accountNumber}
	if owner != "" {
		sql += ` AND username=$2`
		args = append(args, owner)
	}
	if lock {
		sql += ` FOR UPDATE`
	}

	var (
		a       Account
		balance string
	)
	err := q.QueryRow(ctx, sql, args...).Scan(&a.ID, &a.Username, &a.AccountNumber, &balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, notFound(accountNumber)
	}
	if err != nil {
		return Account{}, errors.Wrapf(err, "select account %s", accountNumber)
	}
	if a.Balance, err = decimal.NewFromString(balance); err != nil {
		return Account{}, errors.Wrapf(err, "parse balance of %s", accountNumber)
	}
	return a, nil
}

func saveAccount(ctx context.Context, q postgres.Querier, a Account) error {
	if err := checkBalance(a); err != nil {
		return err
	}
	ct, err := q.Exec(ctx, `
		UPDATE payment_accounts SET balance = $2::text::numeric, updated_at = now()
		WHERE account_number = $1`, a.AccountNumber, a.Balance.String())
	if err != nil {
		return errors.Wrapf(err, "update account %s", a.AccountNumber)
	}
	if ct.RowsAffected() != 1 {
		return notFound(a.AccountNumber)
	}
	return nil
}

// Open creates an account. Used by operator tooling and fixtures.
func (r *Repo) Open(ctx context.Context, a Account) (Account, error) {
	if err := checkBalance(a); err != nil {
		return Account{}, err
	}
	err := r.DB.QueryRow(ctx, `
		INSERT INTO payment_accounts(username, account_number, balance)
		VALUES ($1, $2, $3::text::numeric) RETURNING id`,
		a.Username, a.AccountNumber, a.Balance.String()).Scan(&a.ID)
	if postgres.IsUniqueViolation(err) {
		return Account{}, errAlreadyExists(a.AccountNumber)
	}
	if err != nil {
		return Account{}, errors.Wrap(err, "insert account")
	}
	return a, nil
}
