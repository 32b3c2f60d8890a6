// Package metrics accumulates per-simulation statistics: time-
// weighted node counts, network traffic, and the utilization
// distribution, summarized into scalars at the end of the horizon.
package metrics

import (
	"fmt"

	"github.com/montanaflynn/stats"

	db "faassim/debug"
	"faassim/param"
)

type Metrics struct {
	nodeSeconds   float64
	peak          int
	network       float64
	defragBytes   float64
	defragMoves   int
	utils         []float64
	jobsCompleted int
	invocations   int
}

func New() *Metrics {
	return &Metrics{utils: make([]float64, 0)}
}

// Advance integrates the node count over dt simulated seconds.
func (m *Metrics) Advance(dt float64, nnodes int) {
	m.nodeSeconds += float64(nnodes) * dt
	m.Peak(nnodes)
}

func (m *Metrics) Peak(nnodes int) {
	if nnodes > m.peak {
		m.peak = nnodes
	}
}

func (m *Metrics) AddInvocationBytes(b float64) {
	m.network += b
}

func (m *Metrics) AddDefrag(b float64, moves int) {
	m.network += b
	m.defragBytes += b
	m.defragMoves += moves
}

func (m *Metrics) SampleUtil(u float64) {
	m.utils = append(m.utils, u)
}

func (m *Metrics) JobCompleted() {
	m.jobsCompleted++
}

func (m *Metrics) Invocation() {
	m.invocations++
}

// Summary collapses the accumulated statistics over a horizon of
// duration seconds.
type Summary struct {
	Seed               uint64
	MeanNodes          float64
	PeakNodes          int
	MeanUtil           float64
	StdevUtil          float64
	P50Util            float64
	P95Util            float64
	TotalNetworkBytes  float64
	DefragNetworkBytes float64
	DefragMoves        int
	JobsCompleted      int
	Invocations        int
	UtilSamples        int
}

func (m *Metrics) Summarize(seed uint64, duration float64) *Summary {
	return &Summary{
		Seed:               seed,
		MeanNodes:          m.nodeSeconds / duration,
		PeakNodes:          m.peak,
		MeanUtil:           mean(m.utils),
		StdevUtil:          stdev(m.utils),
		P50Util:            percentile(m.utils, 50.0),
		P95Util:            percentile(m.utils, param.Conf.Metrics.UTIL_PERCENTILE),
		TotalNetworkBytes:  m.network,
		DefragNetworkBytes: m.defragBytes,
		DefragMoves:        m.defragMoves,
		JobsCompleted:      m.jobsCompleted,
		Invocations:        m.invocations,
		UtilSamples:        len(m.utils),
	}
}

func (s *Summary) String() string {
	return fmt.Sprintf("{seed %d nodes %.2f/%d util %.2f/p95 %.2f net %.1f defrag %.1f jobs %d invocations %d}",
		s.Seed, s.MeanNodes, s.PeakNodes, s.MeanUtil, s.P95Util, s.TotalNetworkBytes, s.DefragNetworkBytes, s.JobsCompleted, s.Invocations)
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0.0
	}
	v, err := stats.Mean(xs)
	if err != nil {
		db.DFatalf("Error calculating mean: %v", err)
	}
	return v
}

func stdev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0.0
	}
	v, err := stats.StandardDeviation(xs)
	if err != nil {
		db.DFatalf("Error calculating stdev: %v", err)
	}
	return v
}

func percentile(xs []float64, p float64) float64 {
	if len(xs) == 0 {
		return 0.0
	}
	v, err := stats.Percentile(xs, p)
	if err != nil {
		db.DFatalf("Error calculating percentile %v: %v", p, err)
	}
	return v
}
