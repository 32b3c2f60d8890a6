package histo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	db "faassim/debug"
	"faassim/param"
)

// Names of the distributions the simulator draws from.
const (
	TASK_NUM      = "task_num"
	TASK_CPU      = "task_cpu"
	TASK_MEM      = "task_mem"
	TASK_DURATION = "task_duration"
	JOB_INTERVAL  = "job_interval" // optional
	CPL           = "cpl"          // conditional on task_num
	LEVEL         = "level"        // conditional on cpl
)

var required = []string{TASK_NUM, TASK_CPU, TASK_MEM, TASK_DURATION}

// Registry holds all histograms of a data directory. It is immutable
// after Load and shared read-only across simulation workers.
type Registry struct {
	dists map[string]*Histogram
	cond  map[string]map[int]*Histogram
}

// LoadRegistry reads every named distribution from dir. A missing
// required distribution is an error carrying the offending path.
func LoadRegistry(dir string) (*Registry, error) {
	r := &Registry{
		dists: make(map[string]*Histogram),
		cond:  make(map[string]map[int]*Histogram),
	}
	suffix := param.Conf.Histo.FILE_SUFFIX
	for _, name := range required {
		h, err := Load(filepath.Join(dir, name+suffix))
		if err != nil {
			return nil, err
		}
		r.dists[name] = h
	}
	if h, err := Load(filepath.Join(dir, JOB_INTERVAL+suffix)); err == nil {
		r.dists[JOB_INTERVAL] = h
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	for name, max := range map[string]int{
		CPL:   param.Conf.Histo.MAX_CPL_COND,
		LEVEL: param.Conf.Histo.MAX_LEVEL_COND,
	} {
		m, err := loadCond(filepath.Join(dir, name), suffix, max)
		if err != nil {
			return nil, err
		}
		r.cond[name] = m
	}
	db.DPrintf(db.HISTO, "loaded registry from %q: %d dists, cpl %d, level %d",
		dir, len(r.dists), len(r.cond[CPL]), len(r.cond[LEVEL]))
	return r, nil
}

// loadCond reads a conditional distribution from a subdirectory whose
// files are named by the conditioning integer (e.g. cpl/12.dat).
func loadCond(dir string, suffix string, max int) (map[int]*Histogram, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("conditional distribution %q: %w", dir, err)
	}
	m := make(map[int]*Histogram)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), suffix) {
			continue
		}
		k, err := strconv.Atoi(strings.TrimSuffix(e.Name(), suffix))
		if err != nil {
			return nil, fmt.Errorf("conditional distribution %q: bad conditioning value %q", dir, e.Name())
		}
		if k > max {
			continue
		}
		h, err := Load(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		m[k] = h
	}
	if len(m) == 0 {
		return nil, fmt.Errorf("conditional distribution %q: no files", dir)
	}
	return m, nil
}

func (r *Registry) Has(name string) bool {
	_, ok := r.dists[name]
	return ok
}

func (r *Registry) dist(name string) *Histogram {
	h, ok := r.dists[name]
	if !ok {
		db.DFatalf("unknown distribution %q", name)
	}
	return h
}

// condDist saturates the conditioning value at the smallest and
// largest loaded index.
func (r *Registry) condDist(name string, k int) *Histogram {
	m, ok := r.cond[name]
	if !ok {
		db.DFatalf("unknown conditional distribution %q", name)
	}
	if h, ok := m[k]; ok {
		return h
	}
	ks := make([]int, 0, len(m))
	for i := range m {
		ks = append(ks, i)
	}
	sort.Ints(ks)
	if k < ks[0] {
		return m[ks[0]]
	}
	if k > ks[len(ks)-1] {
		return m[ks[len(ks)-1]]
	}
	// saturate at the nearest smaller loaded index
	i := sort.SearchInts(ks, k)
	return m[ks[i-1]]
}
