package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.LedgerOp("withdraw", nil)
	m.LedgerOp("withdraw", errors.New("x"))
	m.LedgerOp("withdraw", nil)
	m.Checkout(time.Now(), "ok")
	m.OTPIssued()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ledgerOps.WithLabelValues("withdraw", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ledgerOps.WithLabelValues("withdraw", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.checkouts.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.otpIssued))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.LedgerOp("deposit", nil)
	m.Checkout(time.Now(), "ok")
	m.OTPIssued()
	m.Reservation(nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.Reservation(nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "flora_inventory_reservations_total")
}
