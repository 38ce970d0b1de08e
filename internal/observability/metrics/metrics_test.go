package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveInboundCounts(t *testing.T) {
	m := NewPipelineMetrics(prometheus.NewRegistry())

	m.ObserveInbound("accepted")
	m.ObserveInbound("accepted")
	m.ObserveInbound("dropped")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.inboundTotal.WithLabelValues("accepted")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.inboundTotal.WithLabelValues("dropped")))
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *PipelineMetrics
	m.ObserveInbound("accepted")
	m.ObserveAckLatency(0.1)
	m.ObserveReminder("sent")
}
