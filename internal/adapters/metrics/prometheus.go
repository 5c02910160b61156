package metrics

import (
	"net/http"
	"strconv"

	"github.com/alejandrodnm/vegavis/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus implementa ports.Metrics con un registry propio
// (no contamina el registry global en tests).
type Prometheus struct {
	registry *prometheus.Registry

	Probability    *prometheus.GaugeVec
	BestBid        *prometheus.GaugeVec
	BestAsk        *prometheus.GaugeVec
	Degenerate     *prometheus.CounterVec
	Skipped        *prometheus.CounterVec
	Cycles         prometheus.Counter
	CycleDuration  prometheus.Histogram
	MarketsPerScan prometheus.Gauge
}

// NewPrometheus crea y registra todas las métricas.
func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),

		Probability: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "vegavis_probability_of_trading",
				Help: "Probability of trading of each ladder level in the last cycle",
			},
			[]string{"market_id", "market", "side", "level"},
		),
		BestBid: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "vegavis_best_bid_price",
				Help: "Best bid price seen in the last cycle",
			},
			[]string{"market_id", "market"},
		),
		BestAsk: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "vegavis_best_ask_price",
				Help: "Best ask price seen in the last cycle",
			},
			[]string{"market_id", "market"},
		),
		Degenerate: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vegavis_degenerate_levels_total",
				Help: "Ladder levels whose valid-price window had no probability mass",
			},
			[]string{"market_id", "market"},
		),
		Skipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vegavis_markets_skipped_total",
				Help: "Markets that could not be evaluated, by reason",
			},
			[]string{"market_id", "reason"},
		),
		Cycles: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "vegavis_cycles_total",
				Help: "Total number of scoring cycles",
			},
		),
		CycleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "vegavis_cycle_duration_seconds",
				Help:    "Duration of each scoring cycle in seconds",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
		),
		MarketsPerScan: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "vegavis_markets_scored",
				Help: "Markets scored in the last cycle",
			},
		),
	}

	p.registry.MustRegister(
		p.Probability,
		p.BestBid,
		p.BestAsk,
		p.Degenerate,
		p.Skipped,
		p.Cycles,
		p.CycleDuration,
		p.MarketsPerScan,
	)
	return p
}

// ObserveScore publica el ladder de un mercado. Los niveles NaN se cuentan en
// Degenerate y su gauge se elimina, para no dejar publicada la última
// probabilidad válida.
func (p *Prometheus) ObserveScore(ms domain.MarketScore) {
	id, label := ms.Book.MarketID, ms.Book.Label
	p.BestBid.WithLabelValues(id, label).Set(ms.Book.BestBid)
	p.BestAsk.WithLabelValues(id, label).Set(ms.Book.BestAsk)

	for _, l := range ms.Levels {
		level := strconv.Itoa(l.Level)
		if l.Degenerate() {
			p.Degenerate.WithLabelValues(id, label).Inc()
			p.Probability.DeleteLabelValues(id, label, l.Side.Short(), level)
			continue
		}
		p.Probability.WithLabelValues(id, label, l.Side.Short(), level).Set(l.Probability)
	}
}

// ObserveSkipped cuenta un mercado que no se pudo evaluar.
func (p *Prometheus) ObserveSkipped(marketID, reason string) {
	p.Skipped.WithLabelValues(marketID, reason).Inc()
}

// ObserveCycle registra el cierre de un ciclo.
func (p *Prometheus) ObserveCycle(markets int, seconds float64) {
	p.Cycles.Inc()
	p.CycleDuration.Observe(seconds)
	p.MarketsPerScan.Set(float64(markets))
}

// Handler expone el registry en formato Prometheus.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
