package httpx

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/flora-checkout/internal/auth"
	"github.com/ariefcatur/flora-checkout/internal/customer"
)

type PaymentService interface {
	Deposit(ctx context.Context, accountNumber string, amount decimal.Decimal, username, code string) (decimal.Decimal, error)
	Withdraw(ctx context.Context, accountNumber string, amount decimal.Decimal, username, code string) (decimal.Decimal, error)
	TransferAmount(ctx context.Context, from, to string, amount decimal.Decimal, username, code string) (decimal.Decimal, error)
}

type CodeIssuer interface {
	Issue(ctx context.Context, userID int64, username string) (string, error)
}

// UserDirectory resolves the user a code is bound to.
type UserDirectory interface {
	FindByUsername(ctx context.Context, username string) (customer.Customer, error)
}

type PaymentHandler struct {
	Payments PaymentService
	Codes    CodeIssuer
	// Codes are issued only to the authenticated owner; the user id comes from Users.
	Verifier *auth.Verifier
	Users    UserDirectory
	Timeout  time.Duration
}

type otpReq struct {
	Username string `json:"username"`
}

type accountReq struct {
	AccountNumber string          `json:"account_number"`
	Amount        decimal.Decimal `json:"amount"`
	Username      string          `json:"username"`
	Code          string          `json:"code"`
}

type transferReq struct {
	FromAccountNumber string          `json:"from_account_number"`
	ToAccountNumber   string          `json:"to_account_number"`
	Amount            decimal.Decimal `json:"amount"`
	Username          string          `json:"username"`
	Code              string          `json:"code"`
}

type balanceResp struct {
	Balance decimal.Decimal `json:"balance"`
}

func (h *PaymentHandler) Register(r chi.Router) {
	v := *h.Verifier
	v.OnError = writeUnauthorized

	r.With(v.Middleware).Post("/api/payment/otp", h.issueCode)
	r.Post("/api/payment/deposit", h.deposit)
	r.Post("/api/payment/withdraw", h.withdraw)
	r.Post("/api/payment/transfer", h.transfer)
}

func (h *PaymentHandler) issueCode(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	var req otpReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Username == "" {
		req.Username = p.Username
	}
	if req.Username != p.Username {
		writeForbidden(w, r, fmt.Errorf("cannot issue a code for %s as %s", req.Username, p.Username))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeoutOr(h.Timeout))
	defer cancel()

	user, err := h.Users.FindByUsername(ctx, p.Username)
	if err != nil {
		writeError(w, r, err)
		return
	}
	code, err := h.Codes.Issue(ctx, user.ID, user.Username)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"code": code})
}

func (h *PaymentHandler) deposit(w http.ResponseWriter, r *http.Request) {
	h.account(w, r, h.Payments.Deposit)
}

func (h *PaymentHandler) withdraw(w http.ResponseWriter, r *http.Request) {
	h.account(w, r, h.Payments.Withdraw)
}

func (h *PaymentHandler) account(w http.ResponseWriter, r *http.Request,
	op func(context.Context, string, decimal.Decimal, string, string) (decimal.Decimal, error)) {
	var req accountReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeoutOr(h.Timeout))
	defer cancel()

	bal, err := op(ctx, req.AccountNumber, req.Amount, req.Username, req.Code)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResp{Balance: bal})
}

func (h *PaymentHandler) transfer(w http.ResponseWriter, r *http.Request) {
	var req transferReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeoutOr(h.Timeout))
	defer cancel()

	bal, err := h.Payments.TransferAmount(ctx, req.FromAccountNumber, req.ToAccountNumber, req.Amount, req.Username, req.Code)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResp{Balance: bal})
}

func timeoutOr(d time.Duration) time.Duration {
	if d <= 0 {
		return 5 * time.Second
	}
	return d
}
