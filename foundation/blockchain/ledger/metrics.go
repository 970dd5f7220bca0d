package ledger

import "github.com/prometheus/client_golang/prometheus"

// metrics holds the collectors updated by the ledger.
type metrics struct {
	blocks      prometheus.Counter
	writes      prometheus.Counter
	integrity   *prometheus.CounterVec
	powSeconds  prometheus.Histogram
	chainLength prometheus.Gauge
	pending     prometheus.Gauge
}

// newMetrics constructs the ledger collectors. They are only registered
// when a registerer is provided, so tests can build many ledgers.
func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := metrics{
		blocks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "blocks_appended_total",
			Help:      "Number of blocks appended to the chain.",
		}),
		writes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "snapshot_writes_total",
			Help:      "Number of block snapshots written to storage.",
		}),
		integrity: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "integrity_failures_total",
			Help:      "Number of integrity violations found by validation.",
		}, []string{"check"}),
		powSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ledger",
			Name:      "pow_search_seconds",
			Help:      "Time spent searching for a proof.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		chainLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ledger",
			Name:      "chain_length",
			Help:      "Number of blocks in the chain.",
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ledger",
			Name:      "pending_transactions",
			Help:      "Number of staged transactions waiting for a block.",
		}),
	}

	if reg == nil {
		return &m, nil
	}

	collectors := []prometheus.Collector{m.blocks, m.writes, m.integrity, m.powSeconds, m.chainLength, m.pending}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return &m, nil
}
