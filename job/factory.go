package job

import (
	db "faassim/debug"
	"faassim/histo"
	"faassim/param"
)

// Factory samples jobs from the empirical distributions. One factory
// per simulation; it owns no state beyond the sampler.
type Factory struct {
	s        *histo.Sampler
	stateMul float64
	argMul   float64
}

func NewFactory(s *histo.Sampler, stateMul, argMul float64) *Factory {
	return &Factory{s: s, stateMul: stateMul, argMul: argMul}
}

// Make samples one DAG: task count, critical path length, level
// widths, level-to-level edges, and per-task resources, in that
// order so a seed fixes the whole job.
func (f *Factory) Make() *Dag {
	n := f.s.DrawInt(histo.TASK_NUM)
	if n < 1 {
		n = 1
	}
	if n > param.Conf.Job.MAX_TASKS_PER_JOB {
		db.DFatalf("sampled job with %d tasks, cap %d", n, param.Conf.Job.MAX_TASKS_PER_JOB)
	}
	c := f.cpl(n)
	widths := f.levelWidths(n, c)
	d := newDag(widths)
	f.wire(d)
	for i := range d.Tasks {
		t := &d.Tasks[i]
		t.Id = Tid(i)
		t.CPU = f.s.Draw(histo.TASK_CPU)
		// state and argument sizes share the memory distribution
		// with distinct scale factors; two independent draws keep
		// them uncorrelated
		t.State = f.s.Draw(histo.TASK_MEM) * f.stateMul
		t.Arg = f.s.Draw(histo.TASK_MEM) * f.argMul
		t.Duration = f.s.Draw(histo.TASK_DURATION)
	}
	db.DPrintf(db.JOB, "made job %v", d)
	d.Dot()
	return d
}

// cpl draws the critical path length conditional on n and clamps it
// so a single source and a single sink fit in distinct levels.
func (f *Factory) cpl(n int) int {
	if n == 1 {
		return 1
	}
	c := f.s.DrawCondInt(histo.CPL, n)
	min := 2
	if n >= 3 {
		// with only source and sink levels the widths cannot sum to n
		min = 3
	}
	if c < min {
		c = min
	}
	if c > n {
		c = n
	}
	return c
}

// levelWidths draws interior level widths conditional on c and
// adjusts them deterministically so they sum to n with the source
// and sink levels pinned at width 1.
func (f *Factory) levelWidths(n, c int) []int {
	widths := make([]int, c)
	widths[0] = 1
	if c == 1 {
		return widths
	}
	widths[c-1] = 1
	sum := 2
	for i := 1; i < c-1; i++ {
		w := f.s.DrawCondInt(histo.LEVEL, c)
		if w < 1 {
			w = 1
		}
		widths[i] = w
		sum += w
	}
	// trim overflow from the last interior level downward
	for i := c - 2; i >= 1 && sum > n; i-- {
		for widths[i] > 1 && sum > n {
			widths[i]--
			sum--
		}
	}
	// pad shortfall round-robin across the interior levels
	for i := 1; sum < n; i = i%(c-2) + 1 {
		widths[i]++
		sum++
	}
	return widths
}

func newDag(widths []int) *Dag {
	n := 0
	for _, w := range widths {
		n += w
	}
	d := &Dag{
		Tasks:  make([]Task, n),
		Succs:  make([][]Tid, n),
		Levels: make([][]Tid, len(widths)),
	}
	id := Tid(0)
	for i, w := range widths {
		d.Levels[i] = make([]Tid, w)
		for j := 0; j < w; j++ {
			d.Levels[i][j] = id
			id++
		}
	}
	return d
}

// wire connects each vertex at level i to ceil(w[i+1]/w[i]) distinct
// random successors at level i+1, then attaches every orphan at
// level i+1 from a uniformly chosen vertex at level i.
func (f *Factory) wire(d *Dag) {
	rng := f.s.Rng()
	for i := 0; i+1 < len(d.Levels); i++ {
		cur, next := d.Levels[i], d.Levels[i+1]
		k := (len(next) + len(cur) - 1) / len(cur)
		hasPred := make([]bool, len(next))
		for _, u := range cur {
			for _, j := range rng.Perm(len(next))[:k] {
				d.Succs[u] = append(d.Succs[u], next[j])
				hasPred[j] = true
			}
		}
		for j, ok := range hasPred {
			if !ok {
				u := cur[rng.Intn(len(cur))]
				d.Succs[u] = append(d.Succs[u], next[j])
			}
		}
	}
}
