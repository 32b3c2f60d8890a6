// Package sim runs one seeded simulation: a chronological event loop
// interleaving job arrivals, periodic job invocations, terminations
// with state eviction, and defragmentation ticks.
package sim

import (
	"container/heap"
	"fmt"
	"math/rand"

	"faassim/cluster"
	db "faassim/debug"
	"faassim/defrag"
	"faassim/histo"
	"faassim/job"
	"faassim/metrics"
	"faassim/policy"
)

// Seed offsets separating the generator families of one simulation.
const (
	seedArrival   = 1000000
	seedPlacement = 1100000
)

type jobRec struct {
	id      cluster.TjobId
	dag     *job.Dag
	arrival float64
	end     float64
	period  float64
	started bool
}

type Simulation struct {
	cfg     Config
	pol     policy.Policy
	factory *job.Factory
	// arrivals draw from their own sampler so the job stream does
	// not perturb the DAG draws
	arrivals     *histo.Sampler
	empiricalArr bool
	placeRng     *rand.Rand
	clust        *cluster.Cluster
	jobs         map[cluster.TjobId]*jobRec
	events       eventq
	seq          uint64
	now          float64
	nextJob      cluster.TjobId
	m            *metrics.Metrics
}

func New(cfg Config, reg *histo.Registry) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	pol, err := policy.New(cfg.Policy)
	if err != nil {
		return nil, err
	}
	return &Simulation{
		cfg:          cfg,
		pol:          pol,
		factory:      job.NewFactory(histo.NewSampler(reg, cfg.Seed), cfg.StateMul, cfg.ArgMul),
		arrivals:     histo.NewSampler(reg, cfg.Seed+seedArrival),
		empiricalArr: reg.Has(histo.JOB_INTERVAL),
		placeRng:     rand.New(rand.NewSource(int64(cfg.Seed + seedPlacement))),
		clust:        cluster.New(cfg.NodeCapacity),
		jobs:         make(map[cluster.TjobId]*jobRec),
		events:       make(eventq, 0),
		m:            metrics.New(),
	}, nil
}

func (s *Simulation) push(t float64, kind Tkind, jid cluster.TjobId) {
	heap.Push(&s.events, &event{time: t, kind: kind, seq: s.seq, job: jid})
	s.seq++
}

// Run processes events chronologically up to the horizon and returns
// the summarized metrics. Events at or past the horizon are
// discarded; partial last periods are not counted.
func (s *Simulation) Run() (*metrics.Summary, error) {
	s.push(0, EARRIVAL, 0)
	if s.cfg.DefragInterval > 0 {
		s.push(s.cfg.DefragInterval, EDEFRAG, 0)
	}
	for len(s.events) > 0 {
		ev := heap.Pop(&s.events).(*event)
		if ev.time >= s.cfg.Duration {
			break
		}
		s.m.Advance(ev.time-s.now, s.clust.NNodes())
		s.now = ev.time
		var err error
		switch ev.kind {
		case EARRIVAL:
			s.arrive()
		case EINVOCATION:
			err = s.invoke(ev.job)
		case ETERMINATION:
			s.terminate(ev.job)
		case EDEFRAG:
			s.defragTick()
		}
		if err != nil {
			return nil, err
		}
	}
	s.m.Advance(s.cfg.Duration-s.now, s.clust.NNodes())
	return s.m.Summarize(s.cfg.Seed, s.cfg.Duration), nil
}

func (s *Simulation) arrive() {
	jid := s.nextJob
	s.nextJob++
	rec := &jobRec{
		id:      jid,
		dag:     s.factory.Make(),
		arrival: s.now,
		end:     s.now + s.cfg.JobLifetime,
		period:  1.0 / s.cfg.JobInvocationRate,
	}
	s.jobs[jid] = rec
	db.DPrintf(db.SIM, "A %v job %d %v", s.now, jid, rec.dag)
	s.push(s.now, EINVOCATION, jid)
	s.push(rec.end, ETERMINATION, jid)
	s.push(s.now+s.interarrival(), EARRIVAL, 0)
}

func (s *Simulation) interarrival() float64 {
	dt := s.cfg.JobInterarrival
	if s.empiricalArr {
		dt = s.arrivals.Draw(histo.JOB_INTERVAL)
	}
	if dt < cluster.Eps {
		dt = cluster.Eps
	}
	return dt
}

func (s *Simulation) invoke(jid cluster.TjobId) error {
	rec, ok := s.jobs[jid]
	if !ok {
		db.DFatalf("invocation of dead job %d", jid)
	}
	rec.started = true
	a, err := s.pol.Place(jid, rec.dag, s.clust, s.placeRng)
	if err != nil {
		return fmt.Errorf("job %d: %w", jid, err)
	}
	bytes := s.invocationBytes(jid, rec.dag, a)
	s.m.AddInvocationBytes(bytes)
	s.m.Invocation()
	s.m.Peak(s.clust.NNodes())
	for _, n := range s.clust.Nodes() {
		s.m.SampleUtil(n.Load() / n.Capacity())
	}
	db.DPrintf(db.SIM, "I %v job %d nodes %d bytes %.1f", s.now, jid, s.clust.NNodes(), bytes)
	s.clust.ReleaseCPU()
	if s.now+rec.period <= rec.end {
		s.push(s.now+rec.period, EINVOCATION, jid)
	}
	return nil
}

// invocationBytes charges the network for this invocation: the
// producer's argument size for each DAG edge crossing nodes, plus
// the remote-state cost. Stateful policies pay state size twice
// (fetch + write-back) per affinity miss; stateless policies hold no
// resident copy and fetch each task's state from outside the
// cluster once per invocation.
func (s *Simulation) invocationBytes(jid cluster.TjobId, d *job.Dag, a policy.Assignment) float64 {
	bytes := 0.0
	for u, succs := range d.Succs {
		for _, v := range succs {
			if a[job.Tid(u)] != a[v] {
				bytes += d.Tasks[u].Arg
			}
		}
	}
	for i := range d.Tasks {
		t := &d.Tasks[i]
		if !s.pol.Stateful() {
			bytes += t.State
			continue
		}
		k := cluster.TaskKey{Job: jid, Task: int(t.Id)}
		if home, ok := s.clust.Where(k); ok && home != a[t.Id] {
			bytes += 2 * t.State
		}
	}
	return bytes
}

func (s *Simulation) terminate(jid cluster.TjobId) {
	rec, ok := s.jobs[jid]
	if !ok {
		db.DFatalf("termination of dead job %d", jid)
	}
	touched := s.clust.EvictJob(jid)
	removed := s.clust.SweepEmpty(touched)
	delete(s.jobs, jid)
	s.m.JobCompleted()
	db.DPrintf(db.SIM, "T %v job %d started %v removed %d nodes", s.now, jid, rec.started, removed)
}

func (s *Simulation) defragTick() {
	bytes, moves := defrag.Run(s.clust)
	s.m.AddDefrag(bytes, moves)
	db.DPrintf(db.SIM, "D %v moves %d bytes %.1f nodes %d", s.now, moves, bytes, s.clust.NNodes())
	s.push(s.now+s.cfg.DefragInterval, EDEFRAG, 0)
}
