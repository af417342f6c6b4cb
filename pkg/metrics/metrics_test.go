package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveHTTP("POST", "/api/v1/ledger/purchase", 200, 15*time.Millisecond)
	m.LedgerMutation("purchase")
	m.LedgerMutation("purchase")
	m.PinFailure()
	m.RequestResolved("pay", "accepted")
	m.ClientConnected(2)
	m.ClientConnected(-1)
	m.EventDelivered("balance_updated")
	m.EventDropped()
	m.SweeperAffected("expire_reminders", 3)
	m.SweeperAffected("purge_requests", 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("POST", "/api/v1/ledger/purchase", "200")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ledgerMutations.WithLabelValues("purchase")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pinFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsResolved.WithLabelValues("pay", "accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.wsClients))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.eventsDelivered.WithLabelValues("balance_updated")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.eventsDropped))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.sweeperAffected.WithLabelValues("expire_reminders")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.sweeperAffected), "zero-row sweeps add no series")
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveHTTP("GET", "/health", 200, time.Millisecond)
		m.LedgerMutation("purchase")
		m.PinFailure()
		m.ClientConnected(1)
		m.EventDropped()
		m.SweeperAffected("expire_reminders", 1)
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetrics_Handler(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.LedgerMutation("add_balance")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `linkpay_ledger_mutations_total{source="add_balance"} 1`)
}
