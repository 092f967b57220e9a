package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ariefcatur/flora-checkout/internal/apperr"
	"github.com/ariefcatur/flora-checkout/internal/auth"
	"github.com/ariefcatur/flora-checkout/internal/checkout"
	"github.com/ariefcatur/flora-checkout/internal/logging"
	"github.com/ariefcatur/flora-checkout/internal/orders"
	"github.com/ariefcatur/flora-checkout/internal/tracking"
)

type CheckoutService interface {
	Checkout(ctx context.Context, req checkout.Request) (orders.Snapshot, error)
	UpdateShippingStatus(ctx context.Context, orderID int64, target orders.ShippingStatus) (orders.Snapshot, error)
	History(ctx context.Context, p auth.Principal) ([]orders.Snapshot, error)
	AllOrders(ctx context.Context) ([]orders.Snapshot, error)
	Order(ctx context.Context, id int64) (orders.Snapshot, error)
}

type CheckoutHandler struct {
	Checkout CheckoutService
	Verifier *auth.Verifier
	// Status is the order status cache; nil reads straight from the order store.
	Status  tracking.Cache
	Timeout time.Duration
}

func (h *CheckoutHandler) Register(r chi.Router) {
	v := *h.Verifier
	v.OnError = writeUnauthorized

	r.Post("/api/flora/checkout", h.checkout)
	r.With(v.Middleware).Get("/api/flora/history", h.history)
	r.Get("/api/flora/orders", h.allOrders)
	r.Get("/api/flora/orders/{id}", h.order)
	r.Get("/api/flora/orders/{id}/status", h.orderStatus)
	r.Put("/api/flora/{orderId}/status/{newStatus}", h.updateStatus)
}

func (h *CheckoutHandler) checkout(w http.ResponseWriter, r *http.Request) {
	var req checkout.Request
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeoutOr(h.Timeout))
	defer cancel()

	snap, err := h.Checkout.Checkout(ctx, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.cache(ctx, snap)
	writeJSON(w, http.StatusCreated, snap)
}

func (h *CheckoutHandler) history(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	ctx, cancel := context.WithTimeout(r.Context(), timeoutOr(h.Timeout))
	defer cancel()

	list, err := h.Checkout.History(ctx, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *CheckoutHandler) allOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeoutOr(h.Timeout))
	defer cancel()

	list, err := h.Checkout.AllOrders(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *CheckoutHandler) order(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeoutOr(h.Timeout))
	defer cancel()

	snap, err := h.Checkout.Order(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// orderStatus serves from the status cache and falls back to the order store on a miss.
func (h *CheckoutHandler) orderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeoutOr(h.Timeout))
	defer cancel()

	if h.Status != nil {
		st, ok, err := tracking.Lookup(ctx, h.Status, id)
		if err != nil {
			logging.FromContext(ctx, nil).Warn("status cache read failed", zap.Int64("order_id", id), zap.Error(err))
		}
		if ok {
			writeJSON(w, http.StatusOK, st)
			return
		}
	}
	snap, err := h.Checkout.Order(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.cache(ctx, snap)
	writeJSON(w, http.StatusOK, tracking.StatusOf(snap, time.Now()))
}

func (h *CheckoutHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "orderId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	raw := chi.URLParam(r, "newStatus")
	target, ok := orders.ParseShippingStatus(raw)
	if !ok {
		writeError(w, r, apperr.New(apperr.InvalidArgument, "invalid shipping status: %s", raw))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeoutOr(h.Timeout))
	defer cancel()

	snap, err := h.Checkout.UpdateShippingStatus(ctx, id, target)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.cache(ctx, snap)
	writeJSON(w, http.StatusOK, snap)
}

func (h *CheckoutHandler) cache(ctx context.Context, snap orders.Snapshot) {
	if h.Status == nil {
		return
	}
	if err := tracking.Put(ctx, h.Status, tracking.StatusOf(snap, time.Now())); err != nil {
		logging.FromContext(ctx, nil).Warn("status cache write failed", zap.Int64("order_id", snap.ID), zap.Error(err))
	}
}
