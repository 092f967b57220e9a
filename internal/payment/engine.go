// Package payment moves money between ledger accounts on presentation of a one-time code.
package payment

import (
	"context"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ariefcatur/flora-checkout/internal/apperr"
	"github.com/ariefcatur/flora-checkout/internal/ledger"
	"github.com/ariefcatur/flora-checkout/internal/logging"
	"github.com/ariefcatur/flora-checkout/internal/metrics"
)

var tracer = otel.Tracer("github.com/ariefcatur/flora-checkout/internal/payment")

type CodeValidator interface {
	Validate(ctx context.Context, code, username string) (bool, error)
}

// Engine checks, in order: the presented code, account ownership, the amount sign, and funds.
type Engine struct {
	Ledger  ledger.Ledger
	Codes   CodeValidator
	Log     *zap.Logger
	Metrics *metrics.Metrics
}

func (e *Engine) Deposit(ctx context.Context, accountNumber string, amount decimal.Decimal, username, code string) (balance decimal.Decimal, err error) {
	ctx, span := e.start(ctx, "deposit", accountNumber, amount)
	defer func() { e.finish(ctx, span, "deposit", err) }()

	if err = e.authorize(ctx, username, code); err != nil {
		return decimal.Zero, err
	}
	err = e.Ledger.InTx(ctx, func(ctx context.Context, s ledger.Store) error {
		a, err := s.FindOwnedAccount(ctx, accountNumber, username)
		if err != nil {
			return err
		}
		if err := checkAmount(amount); err != nil {
			return err
		}
		a.Credit(amount)
		if err := s.Save(ctx, a); err != nil {
			return err
		}
		balance = a.Balance
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

func (e *Engine) Withdraw(ctx context.Context, accountNumber string, amount decimal.Decimal, username, code string) (balance decimal.Decimal, err error) {
	ctx, span := e.start(ctx, "withdraw", accountNumber, amount)
	defer func() { e.finish(ctx, span, "withdraw", err) }()

	if err = e.authorize(ctx, username, code); err != nil {
		return decimal.Zero, err
	}
	err = e.Ledger.InTx(ctx, func(ctx context.Context, s ledger.Store) error {
		a, err := withdraw(ctx, s, accountNumber, amount, username)
		if err != nil {
			return err
		}
		balance = a.Balance
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

// TransferAmount withdraws from the source before crediting the destination and returns the
// source balance. Both steps share one ledger transaction.
func (e *Engine) TransferAmount(ctx context.Context, from, to string, amount decimal.Decimal, username, code string) (balance decimal.Decimal, err error) {
	ctx, span := e.start(ctx, "transfer", from, amount)
	span.SetAttributes(attribute.String("payment.to", to))
	defer func() { e.finish(ctx, span, "transfer", err) }()

	if err = e.authorize(ctx, username, code); err != nil {
		return decimal.Zero, err
	}
	if from == to {
		return decimal.Zero, apperr.New(apperr.InvalidArgument, "cannot transfer from account %s to itself", from)
	}
	err = e.Ledger.InTx(ctx, func(ctx context.Context, s ledger.Store) error {
		src, err := withdraw(ctx, s, from, amount, username)
		if err != nil {
			return err
		}
		dst, err := s.FindAccount(ctx, to)
		if err != nil {
			return err
		}
		dst.Credit(amount)
		if err := s.Save(ctx, dst); err != nil {
			return err
		}
		balance = src.Balance
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

// Refund moves amount back from one account to another without a code. It is the
// compensation for a payment whose checkout could not complete, and returns the
// balance of the credited account.
func (e *Engine) Refund(ctx context.Context, from, to string, amount decimal.Decimal) (balance decimal.Decimal, err error) {
	ctx, span := e.start(ctx, "refund", from, amount)
	defer func() { e.finish(ctx, span, "refund", err) }()

	if err = checkAmount(amount); err != nil {
		return decimal.Zero, err
	}
	err = e.Ledger.InTx(ctx, func(ctx context.Context, s ledger.Store) error {
		src, err := s.FindAccount(ctx, from)
		if err != nil {
			return err
		}
		if !src.Covers(amount) {
			return insufficient(src, amount)
		}
		src.Debit(amount)
		if err := s.Save(ctx, src); err != nil {
			return err
		}
		dst, err := s.FindAccount(ctx, to)
		if err != nil {
			return err
		}
		dst.Credit(amount)
		if err := s.Save(ctx, dst); err != nil {
			return err
		}
		balance = dst.Balance
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

func withdraw(ctx context.Context, s ledger.Store, accountNumber string, amount decimal.Decimal, username string) (ledger.Account, error) {
	a, err := s.FindOwnedAccount(ctx, accountNumber, username)
	if err != nil {
		return ledger.Account{}, err
	}
	if err := checkAmount(amount); err != nil {
		return ledger.Account{}, err
	}
	if !a.Covers(amount) {
		return ledger.Account{}, insufficient(a, amount)
	}
	a.Debit(amount)
	if err := s.Save(ctx, a); err != nil {
		return ledger.Account{}, err
	}
	return a, nil
}

func (e *Engine) authorize(ctx context.Context, username, code string) error {
	ok, err := e.Codes.Validate(ctx, code, username)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.New(apperr.SecurityCodeInvalid, "security code is invalid for user %s", username)
	}
	return nil
}

func checkAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return apperr.New(apperr.InvalidArgument, "amount must not be negative, got %s", amount)
	}
	if !ledger.Representable(amount) {
		return apperr.New(apperr.InvalidArgument, "amount %s has more than %d decimal places", amount, ledger.Scale)
	}
	return nil
}

func insufficient(a ledger.Account, amount decimal.Decimal) error {
	return apperr.New(apperr.Insufficient, "insufficient funds in account %s: balance %s, requested %s",
		a.AccountNumber, a.Balance.StringFixed(2), amount.StringFixed(2)).
		With("account_number", a.AccountNumber).
		With("balance", a.Balance).
		With("requested", amount)
}

func (e *Engine) start(ctx context.Context, op, account string, amount decimal.Decimal) (context.Context, trace.Span) {
	return tracer.Start(ctx, "payment."+op,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("payment.account", account),
			attribute.String("payment.amount", amount.String()),
		))
}

func (e *Engine) finish(ctx context.Context, span trace.Span, op string, err error) {
	defer span.End()
	e.Metrics.LedgerOp(op, err)

	log := logging.FromContext(ctx, e.Log)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Warn("ledger_op_failed", zap.String("op", op), zap.String("kind", string(apperr.KindOf(err))), zap.Error(err))
		return
	}
	log.Info("ledger_op_done", zap.String("op", op))
}
