package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"dogebot/internal/domain/models"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	lastPrice      prometheus.Gauge
	rsi            prometheus.Gauge
	portfolioValue prometheus.Gauge
	signalsTotal   *prometheus.CounterVec
	ordersTotal    *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	loopDuration   prometheus.Histogram
	learnDuration  prometheus.Histogram
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		lastPrice: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "dogebot_last_price",
			Help: "Last observed product price in quote currency",
		}),
		rsi: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "dogebot_rsi",
			Help: "RSI of the most recent closed candle",
		}),
		portfolioValue: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "dogebot_portfolio_value_usd",
			Help: "Current portfolio value in USD",
		}),
		signalsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dogebot_signals_total",
				Help: "Total trading signals by kind",
			},
			[]string{"signal"},
		),
		ordersTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dogebot_orders_total",
				Help: "Order attempts by side and result",
			},
			[]string{"side", "result"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dogebot_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		loopDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "dogebot_cycle_duration_seconds",
			Help:    "Duration of one trading cycle in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		learnDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "dogebot_learn_duration_seconds",
			Help:    "Duration of one learning pass in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}
}

// RecordLastPrice records the latest observed price.
func (r *Recorder) RecordLastPrice(price float64) {
	r.lastPrice.Set(price)
}

// RecordRSI records the RSI of the most recent closed candle.
func (r *Recorder) RecordRSI(rsi float64) {
	r.rsi.Set(rsi)
}

// RecordPortfolioValue records the current portfolio valuation.
func (r *Recorder) RecordPortfolioValue(value float64) {
	r.portfolioValue.Set(value)
}

// RecordSignal counts a trading signal.
func (r *Recorder) RecordSignal(signal models.Signal) {
	r.signalsTotal.WithLabelValues(string(signal)).Inc()
}

// RecordOrder counts an order attempt outcome.
func (r *Recorder) RecordOrder(side, result string) {
	r.ordersTotal.WithLabelValues(side, result).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLoopDuration records one trading cycle's duration in seconds.
func (r *Recorder) RecordLoopDuration(seconds float64) {
	r.loopDuration.Observe(seconds)
}

// RecordLearnDuration records one learning pass duration in seconds.
func (r *Recorder) RecordLearnDuration(seconds float64) {
	r.learnDuration.Observe(seconds)
}
