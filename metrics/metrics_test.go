package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersInstruments(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RunsSubmitted.WithLabelValues(StatusAccepted, "").Inc()
	m.RunsFinished.WithLabelValues(StatusPersisted).Inc()
	m.TrialsTotal.WithLabelValues("array", "end").Add(3)
	m.QueueDepth.Set(2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsSubmitted.WithLabelValues(StatusAccepted, "")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.TrialsTotal.WithLabelValues("array", "end")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.QueueDepth))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "seqbench_runs_submitted_total")
	assert.Contains(t, names, "seqbench_pool_queue_depth")
}

func TestNewTwiceOnSameRegistryPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
