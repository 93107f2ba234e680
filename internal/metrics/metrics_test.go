package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObservePass(OutcomeCommitted)
	m.ObservePass(OutcomeCommitted)
	m.ObservePass(OutcomeYielded)
	m.AddUnits(7)
	m.AddUnits(-1)
	m.ObserveMutation("create")
	m.ObserveMutation("move")
	m.ObserveMutation("move")
	m.ObserveCommit(3 * time.Millisecond)
	m.SetPending(4)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.passes.WithLabelValues(OutcomeCommitted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.passes.WithLabelValues(OutcomeYielded)))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.units))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.mutations.WithLabelValues("move")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.pending))

	n, err := testutil.GatherAndCount(reg, "arbor_engine_commit_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObservePass(OutcomeFailed)
		m.AddUnits(1)
		m.ObserveMutation("delete")
		m.ObserveCommit(time.Second)
		m.SetPending(1)
	})
}

func TestNewWithoutRegistry(t *testing.T) {
	m := New(nil)
	m.ObservePass(OutcomeAbandoned)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.passes.WithLabelValues(OutcomeAbandoned)))
}
