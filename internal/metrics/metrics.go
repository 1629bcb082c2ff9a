// Package metrics exposes run counters for batch backtests. Backtests are
// short-lived, so metrics are written to a node_exporter textfile instead of
// being scraped.
package metrics

import (
	"fmt"

	"github.com/newthinker/crossover/internal/backtest"
	"github.com/newthinker/crossover/internal/core"
	"github.com/prometheus/client_golang/prometheus"
)

// Run statuses
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	runsTotal        *prometheus.CounterVec
	runDuration      prometheus.Histogram
	barsTotal        *prometheus.CounterVec
	nullBarsTotal    *prometheus.CounterVec
	divisionWarnings *prometheus.CounterVec
	tradesTotal      *prometheus.CounterVec
	skippedTrades    *prometheus.CounterVec
	totalProfit      *prometheus.GaugeVec
	maxDrawdown      *prometheus.GaugeVec
	openPosition     *prometheus.GaugeVec
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	byStrategy := []string{"strategy"}

	r := &Registry{
		Registry: reg,

		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crossover_runs_total",
				Help: "Total number of backtest runs",
			},
			[]string{"status"},
		),
		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "crossover_run_duration_seconds",
				Help:    "Backtest run duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
			},
		),
		barsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crossover_bars_processed_total",
				Help: "Total number of bars processed",
			},
			byStrategy,
		),
		nullBarsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crossover_null_bars_total",
				Help: "Bars with a null mid close",
			},
			byStrategy,
		),
		divisionWarnings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crossover_division_warnings_total",
				Help: "Returns degraded to null for a zero or null denominator",
			},
			byStrategy,
		),
		tradesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crossover_trades_total",
				Help: "Completed trades in the trade table",
			},
			byStrategy,
		),
		skippedTrades: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crossover_skipped_trades_total",
				Help: "Paired trades excluded for an invalid price",
			},
			byStrategy,
		),
		totalProfit: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "crossover_total_profit_ratio",
				Help: "Total profit of the last run as a fraction",
			},
			byStrategy,
		),
		maxDrawdown: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "crossover_max_drawdown_ratio",
				Help: "Maximum drawdown of the last run as a fraction, never positive",
			},
			byStrategy,
		),
		openPosition: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "crossover_open_position",
				Help: "1 when the last run ended holding a position",
			},
			byStrategy,
		),
	}

	reg.MustRegister(
		r.runsTotal,
		r.runDuration,
		r.barsTotal,
		r.nullBarsTotal,
		r.divisionWarnings,
		r.tradesTotal,
		r.skippedTrades,
		r.totalProfit,
		r.maxDrawdown,
		r.openPosition,
	)

	return r
}

// RecordRun records a finished run and its duration.
func (r *Registry) RecordRun(status string, duration float64) {
	r.runsTotal.WithLabelValues(status).Inc()
	r.runDuration.Observe(duration)
}

// RecordReport records the counters and performance of a successful run.
func (r *Registry) RecordReport(strategy string, rep backtest.Report) {
	r.barsTotal.WithLabelValues(strategy).Add(float64(rep.Bars))
	r.nullBarsTotal.WithLabelValues(strategy).Add(float64(rep.NullBars))
	r.divisionWarnings.WithLabelValues(strategy).Add(float64(rep.DivisionWarnings))
	r.tradesTotal.WithLabelValues(strategy).Add(float64(rep.TotalTrades))
	r.skippedTrades.WithLabelValues(strategy).Add(float64(rep.SkippedTrades))
	r.totalProfit.WithLabelValues(strategy).Set(rep.TotalProfit)
	r.maxDrawdown.WithLabelValues(strategy).Set(rep.MaxDrawdown)

	open := 0.0
	if rep.OpenPosition != nil {
		open = 1
	}
	r.openPosition.WithLabelValues(strategy).Set(open)
}

// WriteTextfile writes every metric in text exposition format, atomically
// replacing path.
func (r *Registry) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.Registry); err != nil {
		return core.WrapError(core.ErrSinkFailed, fmt.Errorf("writing metrics textfile: %w", err))
	}
	return nil
}
