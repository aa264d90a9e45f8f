package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	tradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "trades_total",
			Help:      "Stock trades by type and status",
		},
		[]string{"trade_type", "status"},
	)

	tradeVolume = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "volume_dinero_total",
			Help:      "Dinero moved by completed trades",
		},
		[]string{"trade_type"},
	)
)

type TradingMetrics struct{}

func NewTradingMetrics() *TradingMetrics {
	return &TradingMetrics{}
}

func (tm *TradingMetrics) RecordTrade(tradeType string, total int64) {
	if tm == nil {
		return
	}
	tradesTotal.WithLabelValues(tradeType, "completed").Inc()
	tradeVolume.WithLabelValues(tradeType).Add(float64(total))
}

func (tm *TradingMetrics) RecordRejected(tradeType string) {
	if tm == nil {
		return
	}
	tradesTotal.WithLabelValues(tradeType, "rejected").Inc()
}
