// Package metrics exports search progress as Prometheus metrics.
package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/GoSim-25-26J-441/optibench/pkg/models"
)

// SearchMetrics holds the Prometheus collectors fed by search events
type SearchMetrics struct {
	EvaluationsTotal   *prometheus.CounterVec
	EvaluationDuration *prometheus.HistogramVec

	CandidateInterval prometheus.Gauge
	CandidateGasLimit prometheus.Gauge
	LastThroughput    prometheus.Gauge
	IntervalPeak      *prometheus.GaugeVec
	BestThroughput    prometheus.Gauge

	ObservedGasLimit  prometheus.Gauge
	ObservedBlockTime prometheus.Gauge

	RunStatus *prometheus.GaugeVec

	mu   sync.Mutex
	best float64
}

// NewSearchMetrics creates and registers the search collectors on reg
func NewSearchMetrics(reg prometheus.Registerer) *SearchMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	return &SearchMetrics{
		EvaluationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "optibench_evaluations_total",
				Help: "Benchmark evaluations by search phase and result",
			},
			[]string{"phase", "result"},
		),

		EvaluationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "optibench_evaluation_duration_seconds",
				Help:    "Wall time of one deploy and workload run",
				Buckets: []float64{10, 30, 60, 120, 300, 600, 1200, 2400},
			},
			[]string{"phase"},
		),

		CandidateInterval: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "optibench_candidate_interval_seconds",
				Help: "Block interval of the last evaluated candidate",
			},
		),

		CandidateGasLimit: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "optibench_candidate_gas_limit",
				Help: "Block gas limit of the last evaluated candidate",
			},
		),

		LastThroughput: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "optibench_last_throughput_tps",
				Help: "Throughput of the last measured candidate",
			},
		),

		IntervalPeak: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "optibench_interval_peak_tps",
				Help: "Peak throughput found for each searched block interval",
			},
			[]string{"interval"},
		),

		BestThroughput: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "optibench_best_throughput_tps",
				Help: "Best interval peak so far",
			},
		),

		ObservedGasLimit: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "optibench_sut_gas_limit",
				Help: "Gas limit of the SUT head block after the last deployment",
			},
		),

		ObservedBlockTime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "optibench_sut_block_time_seconds",
				Help: "Time between the SUT head block and its parent after the last deployment",
			},
		),

		RunStatus: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "optibench_run_status",
				Help: "Current run status (1 if active, 0 otherwise)",
			},
			[]string{"status"},
		),
	}
}

// OnEvaluation records one finished evaluation
func (m *SearchMetrics) OnEvaluation(ev models.Evaluation) {
	result := "success"
	if !ev.Result.OK() {
		result = "failure"
	}
	m.EvaluationsTotal.WithLabelValues(string(ev.Phase), result).Inc()
	m.EvaluationDuration.WithLabelValues(string(ev.Phase)).Observe(ev.Duration.Seconds())
	m.CandidateInterval.Set(float64(ev.Candidate.Interval))
	m.CandidateGasLimit.Set(float64(ev.Candidate.GasLimit))
	if ev.Measured && ev.Result.OK() {
		m.LastThroughput.Set(ev.Result.Throughput)
	}
	if obs := ev.Observation; obs != nil {
		m.ObservedGasLimit.Set(float64(obs.GasLimit))
		m.ObservedBlockTime.Set(obs.BlockTime.Seconds())
	}
}

// OnPeak records an interval peak and raises the best throughput
func (m *SearchMetrics) OnPeak(peak models.PeakRecord) {
	m.IntervalPeak.WithLabelValues(strconv.Itoa(peak.Interval)).Set(peak.Throughput)
	m.mu.Lock()
	defer m.mu.Unlock()
	if peak.Throughput > m.best {
		m.best = peak.Throughput
		m.BestThroughput.Set(peak.Throughput)
	}
}

// SetRunStatus marks status as the only active run status
func (m *SearchMetrics) SetRunStatus(status models.RunStatus) {
	for _, s := range []models.RunStatus{
		models.RunStatusPending,
		models.RunStatusRunning,
		models.RunStatusCompleted,
		models.RunStatusFailed,
	} {
		v := 0.0
		if s == status {
			v = 1
		}
		m.RunStatus.WithLabelValues(string(s)).Set(v)
	}
}
