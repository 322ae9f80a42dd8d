package token

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/congo-pay/feetoken/internal/tokenerr"
)

// Metrics holds the token's prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	transfers    prometheus.Counter
	feesCharged  prometheus.Counter
	forfeited    prometheus.Counter
	rejections   *prometheus.CounterVec
	adminActions *prometheus.CounterVec
	paused       prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with r.
func NewMetrics(r prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		transfers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "feetoken",
			Name:      "transfers_total",
			Help:      "number of successful transfers",
		}),
		feesCharged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "feetoken",
			Name:      "fees_charged_total",
			Help:      "number of transfers that paid a fee to the owner",
		}),
		forfeited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "feetoken",
			Name:      "fees_forfeited_total",
			Help:      "number of transfers whose fee was forfeited for lack of a beneficiary",
		}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "feetoken",
			Name:      "rejections_total",
			Help:      "number of rejected ledger mutations and transfers by reason and enforcement layer",
		}, []string{"reason", "layer"}),
		adminActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "feetoken",
			Name:      "admin_actions_total",
			Help:      "number of successful admin actions",
		}, []string{"action"}),
		paused: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "feetoken",
			Name:      "paused",
			Help:      "1 while transfers are paused",
		}),
	}
	for _, c := range []prometheus.Collector{m.transfers, m.feesCharged, m.forfeited, m.rejections, m.adminActions, m.paused} {
		if err := r.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observeTransfer(res TransferResult, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.rejections.WithLabelValues(tokenerr.Code(err), "transfer").Inc()
		return
	}
	m.transfers.Inc()
	switch {
	case res.FeeForfeited:
		m.forfeited.Inc()
	case res.Fee != nil && !res.Fee.IsZero():
		m.feesCharged.Inc()
	}
}

func (m *Metrics) rejected(err error, layer string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(tokenerr.Code(err), layer).Inc()
}

func (m *Metrics) admin(action string) {
	if m == nil {
		return
	}
	m.adminActions.WithLabelValues(action).Inc()
}

func (m *Metrics) setPaused(paused bool) {
	if m == nil {
		return
	}
	if paused {
		m.paused.Set(1)
		return
	}
	m.paused.Set(0)
}
