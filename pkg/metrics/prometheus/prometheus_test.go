package prometheus

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/staex-io/did-provisioner/internal/logger"
	"github.com/staex-io/did-provisioner/pkg/metrics/metricsTypes"
	"github.com/stretchr/testify/assert"
)

func newClient(t *testing.T) *PrometheusMetricsClient {
	l, err := logger.NewLogger(&logger.LoggerConfig{Level: "info"})
	assert.Nil(t, err)

	pmc, err := NewPrometheusMetricsClient(&PrometheusMetricsConfig{
		Metrics: metricsTypes.MetricTypes,
	}, l)
	assert.Nil(t, err)
	return pmc
}

func Test_UnexpectedLabelsParsing(t *testing.T) {
	pmc := newClient(t)

	t.Run("Should return no error for all labels", func(t *testing.T) {
		err := pmc.hasUnexpectedLabels(metricsTypes.MetricsType_Timing, metricsTypes.Metric_Timing_DryRunDuration, []metricsTypes.MetricsLabel{
			{Name: "message", Value: "get"},
			{Name: "hasError", Value: "false"},
		})
		assert.Nil(t, err)
	})
	t.Run("Should return no error for a subset labels", func(t *testing.T) {
		err := pmc.hasUnexpectedLabels(metricsTypes.MetricsType_Timing, metricsTypes.Metric_Timing_DryRunDuration, []metricsTypes.MetricsLabel{
			{Name: "message", Value: "get"},
		})
		assert.Nil(t, err)
	})
	t.Run("Should return an error for unexpected labels", func(t *testing.T) {
		err := pmc.hasUnexpectedLabels(metricsTypes.MetricsType_Timing, metricsTypes.Metric_Timing_DryRunDuration, []metricsTypes.MetricsLabel{
			{Name: "message", Value: "get"},
			{Name: "unexpectedLabel", Value: "unexpectedValue"},
		})
		assert.NotNil(t, err)
	})
	t.Run("Should return an error for unexpected labels when expecting 0 labels", func(t *testing.T) {
		err := pmc.hasUnexpectedLabels(metricsTypes.MetricsType_Gauge, metricsTypes.Metric_Gauge_CurrentBlockHeight, []metricsTypes.MetricsLabel{
			{Name: "message", Value: "get"},
		})
		assert.NotNil(t, err)
	})
}

func Test_PrometheusServer(t *testing.T) {
	pmc := newClient(t)

	t.Run("Should expose recorded metrics", func(t *testing.T) {
		assert.Nil(t, pmc.Incr(metricsTypes.Metric_Incr_BlockScanned, nil, 3))
		assert.Nil(t, pmc.Gauge(metricsTypes.Metric_Gauge_CurrentBlockHeight, 42, nil))
		assert.Nil(t, pmc.Incr(metricsTypes.Metric_Incr_LedgerEvent, []metricsTypes.MetricsLabel{
			{Name: "pallet", Value: "Balances"},
			{Name: "event", Value: "Transfer"},
		}, 1))
		assert.Nil(t, pmc.Timing(metricsTypes.Metric_Timing_DryRunDuration, 15*time.Millisecond, []metricsTypes.MetricsLabel{
			{Name: "message", Value: "get"},
		}))

		server := NewPrometheusServer(&PrometheusServerConfig{Port: 2112}, pmc.Registry(), pmc.logger)
		rec := httptest.NewRecorder()
		server.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
		body, _ := io.ReadAll(rec.Body)

		assert.Equal(t, 200, rec.Code)
		assert.Contains(t, string(body), "provisioner_scanner_blockScanned 3")
		assert.Contains(t, string(body), "provisioner_currentBlockHeight 42")
		assert.Contains(t, string(body), `provisioner_events_ledger{event="Transfer",pallet="Balances"} 1`)
		assert.Contains(t, string(body), "provisioner_contract_dryRun_duration_count")
	})
	t.Run("Should ignore unknown metrics", func(t *testing.T) {
		assert.Nil(t, pmc.Incr("unknown", nil, 1))
	})
}
