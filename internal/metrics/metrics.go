// Package metrics exposes solver progress as prometheus collectors.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"knapevo/internal/evo"
)

const namespace = "knapevo"

type Collector struct {
	generations prometheus.Counter
	evaluations prometheus.Counter
	clamped     prometheus.Counter
	runs        *prometheus.CounterVec
	bestFitness *prometheus.GaugeVec
	duration    prometheus.Histogram
}

// New registers the solver collectors on reg. Passing nil uses the default
// registerer.
func New(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &Collector{
		generations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Generations evaluated across all runs.",
		}),
		evaluations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Fitness evaluations across all runs.",
		}),
		clamped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clamped_genes_total",
			Help:      "Out-of-range offspring genes clamped back into bounds.",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished runs by stop reason.",
		}, []string{"stop_reason"}),
		bestFitness: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "best_fitness",
			Help:      "Best-ever fitness of a run.",
		}, []string{"run_id"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a solver run.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
	}
	for _, collector := range []prometheus.Collector{c.generations, c.evaluations, c.clamped, c.runs, c.bestFitness, c.duration} {
		if err := reg.Register(collector); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Observer returns a monitor observer that reports one run under runID.
func (c *Collector) Observer(runID string) evo.Observer {
	return &runObserver{collector: c, best: c.bestFitness.WithLabelValues(runID)}
}

// RunFinished records the outcome of a run.
func (c *Collector) RunFinished(stopReason string, elapsed time.Duration) {
	c.runs.WithLabelValues(stopReason).Inc()
	c.duration.Observe(elapsed.Seconds())
}

// Forget drops the per-run gauge, for example after the run is deleted.
func (c *Collector) Forget(runID string) {
	c.bestFitness.DeleteLabelValues(runID)
}

type runObserver struct {
	collector *Collector
	best      prometheus.Gauge

	mu      sync.Mutex
	clamped int
}

func (o *runObserver) OnGeneration(report evo.GenerationReport) {
	o.collector.generations.Inc()
	o.collector.evaluations.Add(float64(report.Evaluations))
	o.best.Set(report.BestEver)

	o.mu.Lock()
	delta := report.Clamped - o.clamped
	o.clamped = report.Clamped
	o.mu.Unlock()
	if delta > 0 {
		o.collector.clamped.Add(float64(delta))
	}
}
