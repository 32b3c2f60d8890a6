package metrics

import (
	"testing"

	"github.com/montanaflynn/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeWeightedNodes(t *testing.T) {
	m := New()
	m.Advance(2, 1) // 1 node for 2s
	m.Advance(3, 3) // 3 nodes for 3s
	m.Advance(5, 2) // 2 nodes for 5s
	s := m.Summarize(0, 10)
	assert.InDelta(t, (2.0+9.0+10.0)/10.0, s.MeanNodes, 1e-9)
	assert.Equal(t, 3, s.PeakNodes)
}

func TestPeakDuringInvocation(t *testing.T) {
	m := New()
	m.Advance(1, 2)
	m.Peak(7)
	s := m.Summarize(0, 1)
	assert.Equal(t, 7, s.PeakNodes)
}

func TestNetworkAccounting(t *testing.T) {
	m := New()
	m.AddInvocationBytes(100)
	m.AddDefrag(40, 2)
	m.AddInvocationBytes(10)
	s := m.Summarize(0, 1)
	assert.Equal(t, 150.0, s.TotalNetworkBytes)
	assert.Equal(t, 40.0, s.DefragNetworkBytes)
	assert.Equal(t, 2, s.DefragMoves)
	assert.GreaterOrEqual(t, s.TotalNetworkBytes, s.DefragNetworkBytes)
}

func TestUtilSummary(t *testing.T) {
	m := New()
	us := []float64{0.1, 0.5, 0.9, 0.3, 0.7}
	for _, u := range us {
		m.SampleUtil(u)
	}
	m.Invocation()
	m.JobCompleted()
	s := m.Summarize(3, 1)

	mean, err := stats.Mean(us)
	require.NoError(t, err)
	p95, err := stats.Percentile(us, 95)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), s.Seed)
	assert.InDelta(t, mean, s.MeanUtil, 1e-9)
	assert.InDelta(t, p95, s.P95Util, 1e-9)
	assert.Equal(t, 5, s.UtilSamples)
	assert.Equal(t, 1, s.Invocations)
	assert.Equal(t, 1, s.JobsCompleted)
}

func TestEmptySummary(t *testing.T) {
	m := New()
	s := m.Summarize(0, 10)
	assert.Equal(t, 0.0, s.MeanUtil)
	assert.Equal(t, 0.0, s.P95Util)
	assert.Equal(t, 0.0, s.MeanNodes)
}
