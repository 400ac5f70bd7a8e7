package metrics

import (
	"errors"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findMetric(t *testing.T, families []*dto.MetricFamily, name string) *dto.MetricFamily {
	t.Helper()
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("metric %s not gathered", name)
	return nil
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func TestRecordHTTPRequest(t *testing.T) {
	r := NewRegistry()
	r.RecordHTTPRequest("GET", "/api/graph", "200", 5*time.Millisecond)
	r.RecordHTTPRequest("GET", "/api/graph", "200", 7*time.Millisecond)

	families, err := r.Prometheus().Gather()
	require.NoError(t, err)

	mf := findMetric(t, families, "bowtie_http_requests_total")
	require.Len(t, mf.GetMetric(), 1)
	m := mf.GetMetric()[0]
	assert.Equal(t, "GET", labelValue(m, "method"))
	assert.Equal(t, float64(2), m.GetCounter().GetValue())

	hist := findMetric(t, families, "bowtie_http_request_duration_seconds")
	assert.Equal(t, uint64(2), hist.GetMetric()[0].GetHistogram().GetSampleCount())
}

func TestRecordGraphBuild(t *testing.T) {
	r := NewRegistry()
	r.RecordGraphBuild(false, 2*time.Millisecond, 7, 6)
	r.RecordGraphBuild(true, 0, 7, 6)

	families, err := r.Prometheus().Gather()
	require.NoError(t, err)

	builds := findMetric(t, families, "bowtie_graph_builds_total")
	counts := map[string]float64{}
	for _, m := range builds.GetMetric() {
		counts[labelValue(m, "source")] = m.GetCounter().GetValue()
	}
	assert.Equal(t, float64(1), counts["built"])
	assert.Equal(t, float64(1), counts["cache"])

	hits := findMetric(t, families, "bowtie_cache_hits_total")
	assert.Equal(t, float64(1), hits.GetMetric()[0].GetCounter().GetValue())

	// Node/edge histograms only observe real builds, not cache hits.
	nodes := findMetric(t, families, "bowtie_graph_nodes_per_build")
	assert.Equal(t, uint64(1), nodes.GetMetric()[0].GetHistogram().GetSampleCount())
}

func TestRecordInferenceCall(t *testing.T) {
	r := NewRegistry()
	r.RecordInferenceCall("bayes_net", nil)
	r.RecordInferenceCall("bayes_net", errors.New("engine down"))

	families, err := r.Prometheus().Gather()
	require.NoError(t, err)

	mf := findMetric(t, families, "bowtie_inference_calls_total")
	outcomes := map[string]float64{}
	for _, m := range mf.GetMetric() {
		outcomes[labelValue(m, "outcome")] = m.GetCounter().GetValue()
	}
	assert.Equal(t, float64(1), outcomes["ok"])
	assert.Equal(t, float64(1), outcomes["unavailable"])
}

func TestDefaultIsSingleton(t *testing.T) {
	assert.Same(t, Default(), Default())
}
