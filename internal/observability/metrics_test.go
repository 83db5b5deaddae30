package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Recorders(t *testing.T) {
	m := NewIsolatedMetrics()

	m.RecordEventProcessed("swap", 0.01)
	m.RecordEventProcessed("swap", 0.02)
	m.RecordEventError("sync", "not_found")
	m.RecordEntityNotFound("token")
	m.RecordDivisionGuard("oracle_total_eth_reserve")
	m.RecordDBQuery("postgres", "get_pool", 0.001, nil)
	m.RecordDBQuery("postgres", "get_pool", 0.001, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.EventsProcessed.WithLabelValues("swap")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventProcessingErrors.WithLabelValues("sync", "not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EntityNotFound.WithLabelValues("token")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DivisionGuards.WithLabelValues("oracle_total_eth_reserve")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DBQueryErrors.WithLabelValues("postgres", "get_pool")))
}

func TestOrIsolated(t *testing.T) {
	m := NewIsolatedMetrics()
	assert.Same(t, m, OrIsolated(m))
	assert.NotNil(t, OrIsolated(nil))
}

func TestHandlerFor_ServesNamespace(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("pricing_test", reg)
	m.EthPriceUSD.Set(2025)

	rec := httptest.NewRecorder()
	HandlerFor(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "pricing_test_pricing_eth_price_usd 2025"), body)
}
