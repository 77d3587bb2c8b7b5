// Package metrics provides Prometheus metrics for a running search.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/smazurov/permutor/internal/events"
)

// Trial outcomes used as the outcome label.
const (
	OutcomeCompleted  = "completed"
	OutcomeOverloaded = "overloaded"
	OutcomeSkipped    = "skipped"
)

var (
	trialFPS = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "permutor",
		Subsystem: "trial",
		Name:      "fps",
		Help:      "Instantaneous fps of the running trial",
	}, []string{"encoder"})

	trialFrame = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "permutor",
		Subsystem: "trial",
		Name:      "frame",
		Help:      "Last frame reported by the running trial",
	}, []string{"encoder"})

	trialsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "permutor",
		Subsystem: "search",
		Name:      "trials_total",
		Help:      "Trials by outcome",
	}, []string{"outcome"})

	trialDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "permutor",
		Subsystem: "trial",
		Name:      "duration_seconds",
		Help:      "Wall time of a trial including its quality check",
		Buckets:   prometheus.ExponentialBuckets(5, 2, 10),
	})

	vmafScore = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "permutor",
		Subsystem: "trial",
		Name:      "vmaf_score",
		Help:      "VMAF score of the last quality-checked trial",
	}, []string{"encoder"})

	etaSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "permutor",
		Subsystem: "search",
		Name:      "eta_seconds",
		Help:      "Estimated time until the search finishes",
	})

	ignoreFactor = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "permutor",
		Subsystem: "search",
		Name:      "ignore_factor",
		Help:      "Share of first tier results kept rather than recorded as duplicates",
	})
)

// ObserveSample records one progress reading.
func ObserveSample(encoder string, frame uint64, fps int) {
	trialFPS.WithLabelValues(encoder).Set(float64(fps))
	trialFrame.WithLabelValues(encoder).Set(float64(frame))
}

// ObserveTrial records a finished trial.
func ObserveTrial(e events.TrialCompletedEvent) {
	outcome := OutcomeCompleted
	if e.WasOverloaded {
		outcome = OutcomeOverloaded
	}
	trialsTotal.WithLabelValues(outcome).Inc()
	trialDuration.Observe(e.Seconds)
	if e.HasScore {
		vmafScore.WithLabelValues(e.Encoder).Set(e.VmafScore)
	}
	trialFPS.DeleteLabelValues(e.Encoder)
	trialFrame.DeleteLabelValues(e.Encoder)
}

// Subscribe records search events from bus until the returned function is
// called.
func Subscribe(bus *events.Bus) func() {
	unsubs := []func(){
		bus.Subscribe(func(e events.ProgressSampleEvent) {
			ObserveSample(e.Encoder, e.Frame, e.FPS)
		}),
		bus.Subscribe(ObserveTrial),
		bus.Subscribe(func(events.TrialSkippedEvent) {
			trialsTotal.WithLabelValues(OutcomeSkipped).Inc()
		}),
		bus.Subscribe(func(e events.TrialStartedEvent) {
			if e.ETASeconds >= 0 {
				etaSeconds.Set(e.ETASeconds)
			}
		}),
		bus.Subscribe(func(e events.TierCompletedEvent) {
			ignoreFactor.Set(e.IgnoreFactor)
		}),
		bus.Subscribe(func(events.SearchFinishedEvent) {
			etaSeconds.Set(0)
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
