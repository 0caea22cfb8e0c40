package metrics_test

import (
	"testing"
	"time"

	"github.com/delaneyj/watchparty/metrics"
	"github.com/delaneyj/watchparty/observer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func histogramCount(t *testing.T, h prometheus.Histogram) uint64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, h.Write(&m))
	require.NotNil(t, m.Histogram)
	return m.GetHistogram().GetSampleCount()
}

func TestCollector(t *testing.T) {
	t.Run("records a flush", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		c := metrics.New(metrics.WithRegistry(reg))

		c.OnFlush(observer.FlushInfo{
			Started:   time.Now(),
			Duration:  3 * time.Millisecond,
			Runs:      map[string]int{"user": 2, "render": 1},
			Abandoned: []string{"loop"},
			Activated: 1,
			Updated:   1,
		})

		assert.Equal(t, 1.0, testutil.ToFloat64(c.Flushes))
		assert.Equal(t, 2.0, testutil.ToFloat64(c.Runs.WithLabelValues("user")))
		assert.Equal(t, 1.0, testutil.ToFloat64(c.Runs.WithLabelValues("render")))
		assert.Equal(t, 1.0, testutil.ToFloat64(c.Abandoned))
		assert.Equal(t, 1.0, testutil.ToFloat64(c.Activated))
		assert.Equal(t, 1.0, testutil.ToFloat64(c.Updated))
		assert.Equal(t, 3.0, testutil.ToFloat64(c.LastFlushRuns))
		assert.Equal(t, uint64(1), histogramCount(t, c.Duration))
	})

	t.Run("namespace and labels", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		c := metrics.New(
			metrics.WithRegistry(reg),
			metrics.WithNamespace("app"),
			metrics.WithSubsystem("ui"),
			metrics.WithConstLabels(prometheus.Labels{"shard": "a"}),
			metrics.WithBuckets([]float64{0.001, 0.01}),
		)
		c.OnFlush(observer.FlushInfo{Runs: map[string]int{"computed": 1}})

		families, err := reg.Gather()
		require.NoError(t, err)
		names := make([]string, 0, len(families))
		for _, f := range families {
			names = append(names, f.GetName())
			for _, m := range f.GetMetric() {
				labels := map[string]string{}
				for _, l := range m.GetLabel() {
					labels[l.GetName()] = l.GetValue()
				}
				assert.Equal(t, "a", labels["shard"], f.GetName())
			}
		}
		assert.Contains(t, names, "app_ui_flushes_total")
		assert.Contains(t, names, "app_ui_watcher_runs_total")
		assert.Contains(t, names, "app_ui_flush_duration_seconds")
	})

	t.Run("wired into a runtime", func(t *testing.T) {
		//   a ──► user watcher (re-writes a) ──► abandoned after 2 re-runs
		//   b ──► render watcher
		reg := prometheus.NewRegistry()
		c := metrics.New(metrics.WithRegistry(reg))
		rt := observer.NewRuntime(
			observer.WithFlushHook(c),
			observer.WithMaxUpdateCount(2),
			observer.WithWarnHandler(func(string, observer.Component) {}),
			observer.WithErrorHandler(func(error, observer.Component, string) {}),
		)
		data := observer.ObjectOf("a", 0, "b", 0)
		rt.Observe(data, false)
		rt.NewWatcher(nil, func() any { return data.Get("a") }, func(n, _ any) error {
			data.Put("a", n.(int)+1)
			return nil
		}, &observer.WatcherOptions{User: true})
		rt.NewWatcher(nil, func() any { return data.Get("b") }, nil, &observer.WatcherOptions{Render: true})

		data.Put("a", 1)
		data.Put("b", 1)
		require.NoError(t, rt.Tick())

		assert.Equal(t, 1.0, testutil.ToFloat64(c.Flushes))
		assert.Equal(t, 3.0, testutil.ToFloat64(c.Runs.WithLabelValues("user")))
		assert.Equal(t, 1.0, testutil.ToFloat64(c.Runs.WithLabelValues("render")))
		assert.Equal(t, 1.0, testutil.ToFloat64(c.Abandoned))
		assert.Equal(t, 4.0, testutil.ToFloat64(c.LastFlushRuns))
	})
}
