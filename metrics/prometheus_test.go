package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorderCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewPrometheusRecorderWith(reg).(*PrometheusRecorder)

	labels := map[string]string{"method": "eth_requestAccounts", "outcome": "ok"}
	rec.IncCounter("request", labels)
	rec.IncCounter("request", labels)
	rec.ObserveLatency("request", 50*time.Millisecond, labels)

	counter := rec.counters.With(prometheus.Labels{
		"type": "request", "method": "eth_requestAccounts", "outcome": "ok",
	})
	assert.Equal(t, float64(2), testutil.ToFloat64(counter))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, len(families))
	for i, f := range families {
		names[i] = f.GetName()
	}
	assert.Contains(t, names, "popsign_events_total")
	assert.Contains(t, names, "popsign_latency_seconds")
}
