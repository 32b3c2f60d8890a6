package histo

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const NDRAW = 100000

func writeFile(t *testing.T, pn, content string) {
	require.NoError(t, os.MkdirAll(filepath.Dir(pn), 0o755))
	require.NoError(t, os.WriteFile(pn, []byte(content), 0o644))
}

// writeData lays out a complete data directory with single-bin
// distributions, so draws are fully deterministic.
func writeData(t *testing.T, dir string) {
	writeFile(t, filepath.Join(dir, "task_num.dat"), "3 1\n")
	writeFile(t, filepath.Join(dir, "task_cpu.dat"), "100 1\n")
	writeFile(t, filepath.Join(dir, "task_mem.dat"), "1 1\n")
	writeFile(t, filepath.Join(dir, "task_duration.dat"), "0.5 1\n")
	writeFile(t, filepath.Join(dir, "cpl", "3.dat"), "3 1\n")
	writeFile(t, filepath.Join(dir, "level", "3.dat"), "1 1\n")
}

func TestHistogramRatios(t *testing.T) {
	h, err := New([]float64{0, 1, 2, 3}, []float64{1, 10, 1, 10})
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(42))
	counts := make([]int, 4)
	for i := 0; i < NDRAW; i++ {
		counts[int(h.values[h.index(rng.Float64()*h.total)])]++
	}
	assert.InDelta(t, 10.0, float64(counts[1])/float64(counts[0]), 1.0)
	assert.InDelta(t, 10.0, float64(counts[3])/float64(counts[2]), 1.0)
}

func TestHistogramErrors(t *testing.T) {
	_, err := New(nil, nil)
	assert.Error(t, err)
	_, err = New([]float64{1}, []float64{0})
	assert.Error(t, err)
	_, err = New([]float64{1, 2}, []float64{1, -1})
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	pn := filepath.Join(t.TempDir(), "d.dat")
	writeFile(t, pn, "0.5 10\n\n1.5 20\n")
	h, err := Load(pn)
	require.NoError(t, err)
	assert.Equal(t, 2, h.NumBins())
}

func TestLoadMissing(t *testing.T) {
	pn := filepath.Join(t.TempDir(), "nope.dat")
	_, err := Load(pn)
	require.Error(t, err)
	assert.Contains(t, err.Error(), pn)
}

func TestLoadBadLine(t *testing.T) {
	pn := filepath.Join(t.TempDir(), "d.dat")
	writeFile(t, pn, "1 2 3\n")
	_, err := Load(pn)
	require.Error(t, err)
	assert.Contains(t, err.Error(), pn)
}

func TestRegistryMissingRequired(t *testing.T) {
	dir := t.TempDir()
	writeData(t, dir)
	require.NoError(t, os.Remove(filepath.Join(dir, "task_cpu.dat")))
	_, err := LoadRegistry(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task_cpu")
}

func TestRegistryOptionalInterval(t *testing.T) {
	dir := t.TempDir()
	writeData(t, dir)
	r, err := LoadRegistry(dir)
	require.NoError(t, err)
	assert.False(t, r.Has(JOB_INTERVAL))

	writeFile(t, filepath.Join(dir, "job_interval.dat"), "2 1\n")
	r, err = LoadRegistry(dir)
	require.NoError(t, err)
	assert.True(t, r.Has(JOB_INTERVAL))
}

func TestCondSaturation(t *testing.T) {
	dir := t.TempDir()
	writeData(t, dir)
	writeFile(t, filepath.Join(dir, "cpl", "5.dat"), "4 1\n")
	r, err := LoadRegistry(dir)
	require.NoError(t, err)
	s := NewSampler(r, 0)
	// below, at, between, and above the loaded conditioning values
	assert.Equal(t, 3, s.DrawCondInt(CPL, 1))
	assert.Equal(t, 3, s.DrawCondInt(CPL, 3))
	assert.Equal(t, 3, s.DrawCondInt(CPL, 4))
	assert.Equal(t, 4, s.DrawCondInt(CPL, 5))
	assert.Equal(t, 4, s.DrawCondInt(CPL, 100))
}

func TestSamplerDeterminism(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "task_num.dat"), "1 5\n2 10\n3 1\n")
	writeFile(t, filepath.Join(dir, "task_cpu.dat"), "10 1\n20 2\n40 1\n")
	writeFile(t, filepath.Join(dir, "task_mem.dat"), "0.1 1\n0.5 3\n1 1\n")
	writeFile(t, filepath.Join(dir, "task_duration.dat"), "0.5 1\n")
	writeFile(t, filepath.Join(dir, "cpl", "3.dat"), "1 1\n2 1\n3 1\n")
	writeFile(t, filepath.Join(dir, "level", "3.dat"), "1 1\n2 1\n")
	r, err := LoadRegistry(dir)
	require.NoError(t, err)

	s1 := NewSampler(r, 42)
	s2 := NewSampler(r, 42)
	for i := 0; i < 1000; i++ {
		assert.Equal(t, s1.DrawInt(TASK_NUM), s2.DrawInt(TASK_NUM))
		assert.Equal(t, s1.Draw(TASK_CPU), s2.Draw(TASK_CPU))
		assert.Equal(t, s1.DrawCondInt(LEVEL, 3), s2.DrawCondInt(LEVEL, 3))
	}
}

func TestJitterWithinBin(t *testing.T) {
	dir := t.TempDir()
	writeData(t, dir)
	writeFile(t, filepath.Join(dir, "task_cpu.dat"), "10 1\n20 1\n")
	r, err := LoadRegistry(dir)
	require.NoError(t, err)
	s := NewSampler(r, 7)
	sawJitter := false
	for i := 0; i < 1000; i++ {
		v := s.Draw(TASK_CPU)
		require.GreaterOrEqual(t, v, 10.0)
		require.LessOrEqual(t, v, 20.0)
		if v != 10.0 && v != 20.0 {
			sawJitter = true
		}
	}
	assert.True(t, sawJitter)
}
