package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tutorialcms/internal/lifecycle"
)

func TestObserveRunCountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveRun(lifecycle.RunSummary{
		Due:      4,
		Executed: 2,
		Skipped:  1,
		Failures: []lifecycle.ExecutionFailure{{ActionID: 9, Err: errors.New("boom")}},
	}, 20*time.Millisecond)
	c.ObserveRun(lifecycle.RunSummary{Executed: 1}, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.runs))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.actions.WithLabelValues("executed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.actions.WithLabelValues("skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.actions.WithLabelValues("failed")))

	count, err := testutil.GatherAndCount(reg, "tutorialcms_executor_run_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
