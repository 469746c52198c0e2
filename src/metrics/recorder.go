package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "thermal"
	subsystem = "pipeline"
)

// Recorder 流水线运行指标
// nil Recorder 的所有方法均为空操作
type Recorder struct {
	runs         *prometheus.CounterVec
	rows         prometheus.Counter
	imputed      *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
}

// NewRecorder 在给定注册表上创建并注册指标
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "runs_total",
				Help:      "Total pipeline runs by status",
			},
			[]string{"status"},
		),
		rows: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "rows_processed_total",
				Help:      "Total survey records processed",
			},
		),
		imputed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "values_imputed_total",
				Help:      "Missing values filled by the imputer",
			},
			[]string{"column"},
		),
		stepDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "step_duration_seconds",
				Help:      "Duration of each pipeline step",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
			},
			[]string{"step"},
		),
	}
}

func (r *Recorder) RunFinished(err error, rows int) {
	if r == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	r.runs.WithLabelValues(status).Inc()
	if err == nil {
		r.rows.Add(float64(rows))
	}
}

func (r *Recorder) Imputed(column string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.imputed.WithLabelValues(column).Add(float64(n))
}

// ObserveStep 用法: defer rec.ObserveStep("clean", time.Now())
func (r *Recorder) ObserveStep(step string, start time.Time) {
	if r == nil {
		return
	}
	r.stepDuration.WithLabelValues(step).Observe(time.Since(start).Seconds())
}
