package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seqbench/benchmark"
)

func TestDisplayResults(t *testing.T) {
	color.NoColor = true

	cfg := benchmark.Configuration{
		Variant: benchmark.ArrayBacked, Position: benchmark.End, Size: 10, Bound: 100, Trials: 2,
	}
	start := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	rec := benchmark.ExecutionRecord{
		ID:     "run-1",
		Key:    cfg.Key(),
		Config: cfg,
		Measurements: []benchmark.MeasurementRecord{
			{GenerateNanos: 100, SortNanos: 200, InsertNanos: 30, DeleteNanos: 40, RetrieveNanos: 5},
			{GenerateNanos: 101, SortNanos: 201, InsertNanos: 31, DeleteNanos: 41, RetrieveNanos: 6},
		},
		StartedAt:  start,
		FinishedAt: start.Add(3 * time.Millisecond),
	}

	var buf bytes.Buffer
	require.NoError(t, DisplayResults(&buf, rec))
	out := buf.String()

	assert.Contains(t, out, "array:end results (run run-1)")
	assert.Contains(t, out, "Size: 10  Bound: 100  Trials: 2  Duration: 3ms")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.GreaterOrEqual(t, len(lines), 3)
	assert.Equal(t, []string{"2", "101", "201", "31", "41", "6"}, strings.Fields(lines[len(lines)-1]))
	assert.Equal(t, []string{"1", "100", "200", "30", "40", "5"}, strings.Fields(lines[len(lines)-2]))
}
