//go:build unit

package metrics_test

import (
	"errors"
	"testing"
	"time"

	"redemption-guard/internal/domain/fraud"
	"redemption-guard/internal/domain/fraudcase"
	"redemption-guard/internal/infra/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusObserver(t *testing.T) {
	reg := prometheus.NewRegistry()
	o, err := metrics.NewPrometheusObserver(reg)
	require.NoError(t, err)

	o.RecordRedemption("recorded", false)
	o.RecordRedemption("recorded", false)
	o.RecordRedemption("duplicate", true)
	o.RecordFlags([]fraud.Flag{
		{Type: fraud.FlagVelocity, Severity: fraud.SeverityMedium},
		{Type: fraud.FlagRapidRedemption, Severity: fraud.SeverityHigh},
	})
	o.RecordCaseDecision("opened")
	o.RecordCaseTransition(fraudcase.StatusOpen)
	o.RecordDetectionFailure("provider_lookup")
	o.RecordReconciliation(150*time.Millisecond, 4, nil)
	o.RecordReconciliation(time.Second, 2, errors.New("boom"))

	count, err := testutil.GatherAndCount(reg,
		"redemption_guard_redemptions_total",
		"redemption_guard_fraud_flags_total",
		"redemption_guard_reconciliation_duration_seconds",
	)
	require.NoError(t, err)
	assert.Equal(t, 6, count)

	families, err := reg.Gather()
	require.NoError(t, err)
	values := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if c := m.GetCounter(); c != nil {
				values[mf.GetName()] += c.GetValue()
			}
		}
	}
	assert.Equal(t, 3.0, values["redemption_guard_redemptions_total"])
	assert.Equal(t, 2.0, values["redemption_guard_fraud_flags_total"])
	assert.Equal(t, 1.0, values["redemption_guard_fraud_case_decisions_total"])
	assert.Equal(t, 1.0, values["redemption_guard_detection_failures_total"])
	assert.Equal(t, 6.0, values["redemption_guard_reconciliation_items_total"])

	t.Run("registering twice reuses collectors", func(t *testing.T) {
		again, err := metrics.NewPrometheusObserver(reg)
		require.NoError(t, err)
		again.RecordCaseDecision("opened")

		families, err := reg.Gather()
		require.NoError(t, err)
		for _, mf := range families {
			if mf.GetName() == "redemption_guard_fraud_case_decisions_total" {
				assert.Equal(t, 2.0, mf.GetMetric()[0].GetCounter().GetValue())
			}
		}
	})

	t.Run("nil observer is a no-op", func(t *testing.T) {
		var nilObserver *metrics.PrometheusObserver
		assert.NotPanics(t, func() {
			nilObserver.RecordRedemption("recorded", false)
			nilObserver.RecordFlags([]fraud.Flag{{Type: fraud.FlagVelocity, Severity: fraud.SeverityLow}})
			nilObserver.RecordReconciliation(time.Second, 1, nil)
		})
	})
}
