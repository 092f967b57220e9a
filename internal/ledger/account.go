// Package ledger stores payment accounts and persists balance changes.
package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

type Account struct {
	ID            int64           `json:"id"`
	Username      string          `json:"username"`
	AccountNumber string          `json:"account_number"`
	Balance       decimal.Decimal `json:"balance"`
}

// Credit adds amount to the in-memory balance. Save persists it.
func (a *Account) Credit(amount decimal.Decimal) { a.Balance = a.Balance.Add(amount) }

// Debit subtracts amount from the in-memory balance. Callers check Covers first.
func (a *Account) Debit(amount decimal.Decimal) { a.Balance = a.Balance.Sub(amount) }

func (a Account) Covers(amount decimal.Decimal) bool { return a.Balance.GreaterThanOrEqual(amount) }

// Scale is the number of decimal places balances are stored with.
const Scale = 2

// Representable reports whether d can be stored without rounding.
func Representable(d decimal.Decimal) bool { return d.Equal(d.Round(Scale)) }

type Store interface {
	FindAccount(ctx context.Context, accountNumber string) (Account, error)
	FindOwnedAccount(ctx context.Context, accountNumber, owner string) (Account, error)
	Save(ctx context.Context, a Account) error
}

// Ledger is a Store that can group several reads and writes into one unit of work.
// Reads inside InTx hold the account until fn returns.
type Ledger interface {
	Store
	InTx(ctx context.Context, fn func(ctx context.Context, s Store) error) error
}
