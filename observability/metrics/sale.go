package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// SaleMetrics aggregates the counters exposed by the sale module.
type SaleMetrics struct {
	tradesTotal     *prometheus.CounterVec
	rejectedTotal   *prometheus.CounterVec
	remainingSupply *prometheus.GaugeVec
}

var (
	saleOnce     sync.Once
	saleRegistry *SaleMetrics
)

// Sale returns the process-wide sale metrics registry, registering the
// collectors on first use.
func Sale() *SaleMetrics {
	saleOnce.Do(func() {
		saleRegistry = &SaleMetrics{
			tradesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "sale_trades_total",
				Help: "Count of executed purchases by category.",
			}, []string{"category"}),
			rejectedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "sale_rejected_total",
				Help: "Count of rejected purchase attempts by reason.",
			}, []string{"reason"}),
			remainingSupply: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "sale_remaining_supply",
				Help: "Remaining mintable supply per category.",
			}, []string{"category"}),
		}
		prometheus.MustRegister(
			saleRegistry.tradesTotal,
			saleRegistry.rejectedTotal,
			saleRegistry.remainingSupply,
		)
	})
	return saleRegistry
}

// RecordTrade counts an executed purchase for a category.
func (m *SaleMetrics) RecordTrade(categoryID uint64) {
	if m == nil {
		return
	}
	m.tradesTotal.WithLabelValues(strconv.FormatUint(categoryID, 10)).Inc()
}

// RecordRejection counts a rejected purchase attempt by reason.
func (m *SaleMetrics) RecordRejection(reason string) {
	if m == nil {
		return
	}
	m.rejectedTotal.WithLabelValues(reason).Inc()
}

// SetRemainingSupply publishes the remaining supply for a category.
func (m *SaleMetrics) SetRemainingSupply(categoryID uint64, remaining float64) {
	if m == nil {
		return
	}
	m.remainingSupply.WithLabelValues(strconv.FormatUint(categoryID, 10)).Set(remaining)
}
