// Package metrics exports pipeline telemetry to Prometheus.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"redemption-guard/internal/domain/fraud"
	"redemption-guard/internal/domain/fraudcase"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "redemption_guard"

// PrometheusObserver implements shared.Observer. A nil receiver is a no-op.
type PrometheusObserver struct {
	redemptions       *prometheus.CounterVec
	flags             *prometheus.CounterVec
	caseDecisions     *prometheus.CounterVec
	caseTransitions   *prometheus.CounterVec
	detectionFailures *prometheus.CounterVec
	reconcileDuration *prometheus.HistogramVec
	reconcileItems    prometheus.Counter
}

// NewPrometheusObserver registers its collectors with reg. Registering twice
// on the same registry reuses the existing collectors.
func NewPrometheusObserver(reg prometheus.Registerer) (*PrometheusObserver, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	o := &PrometheusObserver{
		redemptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redemptions_total",
			Help:      "Redemption submissions by outcome.",
		}, []string{"outcome", "offline"}),
		flags: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fraud_flags_total",
			Help:      "Fraud flags raised by type and severity.",
		}, []string{"type", "severity"}),
		caseDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fraud_case_decisions_total",
			Help:      "Outcome of feeding flags into the case manager.",
		}, []string{"decision"}),
		caseTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fraud_case_transitions_total",
			Help:      "Fraud case status transitions by target status.",
		}, []string{"status"}),
		detectionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detection_failures_total",
			Help:      "Detection runs that could not complete, by stage.",
		}, []string{"stage"}),
		reconcileDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reconciliation_duration_seconds",
			Help:      "Duration of offline batch reconciliations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		reconcileItems: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciliation_items_total",
			Help:      "Offline records processed by reconciliation.",
		}),
	}

	var err error
	if o.redemptions, err = registerOrReuse(reg, o.redemptions); err != nil {
		return nil, err
	}
	if o.flags, err = registerOrReuse(reg, o.flags); err != nil {
		return nil, err
	}
	if o.caseDecisions, err = registerOrReuse(reg, o.caseDecisions); err != nil {
		return nil, err
	}
	if o.caseTransitions, err = registerOrReuse(reg, o.caseTransitions); err != nil {
		return nil, err
	}
	if o.detectionFailures, err = registerOrReuse(reg, o.detectionFailures); err != nil {
		return nil, err
	}
	if o.reconcileDuration, err = registerOrReuse(reg, o.reconcileDuration); err != nil {
		return nil, err
	}
	if o.reconcileItems, err = registerOrReuse(reg, o.reconcileItems); err != nil {
		return nil, err
	}
	return o, nil
}

func registerOrReuse[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (o *PrometheusObserver) RecordRedemption(outcome string, offline bool) {
	if o == nil {
		return
	}
	o.redemptions.WithLabelValues(outcome, strconv.FormatBool(offline)).Inc()
}

func (o *PrometheusObserver) RecordFlags(flags []fraud.Flag) {
	if o == nil {
		return
	}
	for _, f := range flags {
		o.flags.WithLabelValues(f.Type.String(), f.Severity.String()).Inc()
	}
}

func (o *PrometheusObserver) RecordCaseDecision(decision string) {
	if o == nil {
		return
	}
	o.caseDecisions.WithLabelValues(decision).Inc()
}

func (o *PrometheusObserver) RecordCaseTransition(to fraudcase.Status) {
	if o == nil {
		return
	}
	o.caseTransitions.WithLabelValues(to.String()).Inc()
}

func (o *PrometheusObserver) RecordDetectionFailure(stage string) {
	if o == nil {
		return
	}
	o.detectionFailures.WithLabelValues(stage).Inc()
}

func (o *PrometheusObserver) RecordReconciliation(d time.Duration, items int, err error) {
	if o == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	o.reconcileDuration.WithLabelValues(status).Observe(d.Seconds())
	o.reconcileItems.Add(float64(items))
}
