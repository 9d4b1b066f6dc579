package metricsTypes

import "time"

type IMetricsClient interface {
	Incr(name string, labels []MetricsLabel, value float64) error
	Gauge(name string, value float64, labels []MetricsLabel) error
	Timing(name string, value time.Duration, labels []MetricsLabel) error
	Flush()
}

type MetricsLabel struct {
	Name  string
	Value string
}

type MetricsType string

var (
	MetricsType_Incr   MetricsType = "incr"
	MetricsType_Gauge  MetricsType = "gauge"
	MetricsType_Timing MetricsType = "timing"
)

type MetricsTypeConfig struct {
	Name   string
	Labels []string
}

var (
	Metric_Incr_BlockScanned         = "scanner.blockScanned"
	Metric_Incr_LedgerEvent          = "events.ledger"
	Metric_Incr_ApplicationEvent     = "events.application"
	Metric_Incr_TransactionSubmitted = "tx.submitted"
	Metric_Incr_TransactionIncluded  = "tx.included"
	Metric_Incr_TransactionFailed    = "tx.failed"

	Metric_Gauge_CurrentBlockHeight = "currentBlockHeight"

	Metric_Timing_DryRunDuration   = "contract.dryRun.duration"
	Metric_Timing_FinalityDuration = "tx.finality.duration"
)

var MetricTypes = map[MetricsType][]MetricsTypeConfig{
	MetricsType_Incr: {
		MetricsTypeConfig{
			Name:   Metric_Incr_BlockScanned,
			Labels: []string{},
		},
		MetricsTypeConfig{
			Name: Metric_Incr_LedgerEvent,
			Labels: []string{
				"pallet",
				"event",
			},
		},
		MetricsTypeConfig{
			Name: Metric_Incr_ApplicationEvent,
			Labels: []string{
				"event",
			},
		},
		MetricsTypeConfig{
			Name: Metric_Incr_TransactionSubmitted,
			Labels: []string{
				"call",
			},
		},
		MetricsTypeConfig{
			Name: Metric_Incr_TransactionIncluded,
			Labels: []string{
				"call",
				"status",
			},
		},
		MetricsTypeConfig{
			Name: Metric_Incr_TransactionFailed,
			Labels: []string{
				"call",
				"reason",
			},
		},
	},
	MetricsType_Gauge: {
		MetricsTypeConfig{
			Name:   Metric_Gauge_CurrentBlockHeight,
			Labels: []string{},
		},
	},
	MetricsType_Timing: {
		MetricsTypeConfig{
			Name: Metric_Timing_DryRunDuration,
			Labels: []string{
				"message",
				"hasError",
			},
		},
		MetricsTypeConfig{
			Name: Metric_Timing_FinalityDuration,
			Labels: []string{
				"call",
				"status",
			},
		},
	},
}
