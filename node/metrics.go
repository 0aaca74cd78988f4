package node

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/govm-net/counter/types"
)

type metrics struct {
	calls       prometheus.Counter
	rejected    prometheus.Counter
	txs         *prometheus.CounterVec
	gasUsed     prometheus.Histogram
	subscribers prometheus.Gauge
}

func newMetrics(r prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		calls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "calls",
			Help:      "number of read-only calls",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "rejected_txs",
			Help:      "number of transactions refused before execution",
		}),
		txs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "txs",
			Help:      "number of executed transactions by outcome",
		}, []string{"status"}),
		gasUsed: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ledger",
			Name:      "tx_gas_used",
			Help:      "gas used per executed transaction",
			Buckets:   prometheus.ExponentialBuckets(100, 4, 8),
		}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ledger",
			Name:      "event_subscribers",
			Help:      "number of open websocket event subscriptions",
		}),
	}
	return m, errors.Join(
		r.Register(m.calls),
		r.Register(m.rejected),
		r.Register(m.txs),
		r.Register(m.gasUsed),
		r.Register(m.subscribers),
	)
}

func (m *metrics) observe(receipt *types.Receipt) {
	status := "success"
	if receipt.Status != types.ReceiptStatusSuccessful {
		status = "failed"
	}
	m.txs.WithLabelValues(status).Inc()
	m.gasUsed.Observe(float64(receipt.GasUsed))
}
