// Package policy implements the placement policies mapping a job's
// DAG onto cluster nodes. Policies may create nodes on demand and
// must respect the capacity invariant; everything else is policy.
package policy

import (
	"errors"
	"fmt"
	"math/rand"

	"faassim/cluster"
	db "faassim/debug"
	"faassim/job"
)

// ErrTaskTooBig marks a task that cannot fit even a fresh node: a
// configuration error, detected at first occurrence.
var ErrTaskTooBig = errors.New("task exceeds node capacity")

// Assignment maps every task of a DAG to the node running its CPU.
type Assignment map[job.Tid]cluster.Tnode

type Policy interface {
	Name() string
	// Stateful reports whether the policy persists task state on
	// nodes across invocations.
	Stateful() bool
	// Place assigns every task of d to a node, reserving CPU (and
	// establishing state, for stateful policies) on the cluster.
	Place(jid cluster.TjobId, d *job.Dag, c *cluster.Cluster, rng *rand.Rand) (Assignment, error)
}

const (
	STATELESS_MIN_NODES     = "stateless-min-nodes"
	STATELESS_MAX_BALANCING = "stateless-max-balancing"
	STATEFUL_BEST_FIT       = "stateful-best-fit"
	STATEFUL_RANDOM         = "stateful-random"
)

func New(name string) (Policy, error) {
	switch name {
	case STATELESS_MIN_NODES:
		return &statelessMinNodes{}, nil
	case STATELESS_MAX_BALANCING:
		return &statelessMaxBalancing{}, nil
	case STATEFUL_BEST_FIT:
		return &statefulBestFit{}, nil
	case STATEFUL_RANDOM:
		return &statefulRandom{}, nil
	default:
		return nil, fmt.Errorf("unknown policy: %s", name)
	}
}

func Names() []string {
	return []string{STATELESS_MIN_NODES, STATELESS_MAX_BALANCING, STATEFUL_BEST_FIT, STATEFUL_RANDOM}
}

func fits(n *cluster.Node, need float64) bool {
	return need <= n.Free()+cluster.Eps
}

// place reserves t's CPU on node id.
func place(c *cluster.Cluster, a Assignment, t *job.Task, id cluster.Tnode) {
	a[t.Id] = id
	c.PlaceCPU(id, t.CPU)
}

// newNode adds a node for t, or fails with ErrTaskTooBig when even
// an empty node cannot host it. need is t's CPU plus, for stateful
// establishment, its state size.
func newNode(c *cluster.Cluster, t *job.Task, need float64) (cluster.Tnode, error) {
	if need > c.Capacity()+cluster.Eps {
		return 0, fmt.Errorf("%w: task %d needs %.1f of %.1f", ErrTaskTooBig, t.Id, need, c.Capacity())
	}
	n := c.AddNode()
	db.DPrintf(db.PLACE, "new node %d for task %d (need %.1f)", n.Id(), t.Id, need)
	return n.Id(), nil
}

//
// stateless-min-nodes: first-fit over stable node order.
//

type statelessMinNodes struct{}

func (p *statelessMinNodes) Name() string {
	return STATELESS_MIN_NODES
}

func (p *statelessMinNodes) Stateful() bool {
	return false
}

func (p *statelessMinNodes) Place(jid cluster.TjobId, d *job.Dag, c *cluster.Cluster, rng *rand.Rand) (Assignment, error) {
	a := make(Assignment, d.NTasks())
	for i := range d.Tasks {
		t := &d.Tasks[i]
		id, ok := first(c, t.CPU)
		if !ok {
			var err error
			if id, err = newNode(c, t, t.CPU); err != nil {
				return nil, err
			}
		}
		place(c, a, t, id)
	}
	return a, nil
}

func first(c *cluster.Cluster, need float64) (cluster.Tnode, bool) {
	for _, n := range c.Nodes() {
		if fits(n, need) {
			return n.Id(), true
		}
	}
	return 0, false
}

//
// stateless-max-balancing: worst-fit, ties by ascending node id.
//

type statelessMaxBalancing struct{}

func (p *statelessMaxBalancing) Name() string {
	return STATELESS_MAX_BALANCING
}

func (p *statelessMaxBalancing) Stateful() bool {
	return false
}

func (p *statelessMaxBalancing) Place(jid cluster.TjobId, d *job.Dag, c *cluster.Cluster, rng *rand.Rand) (Assignment, error) {
	a := make(Assignment, d.NTasks())
	for i := range d.Tasks {
		t := &d.Tasks[i]
		id, ok := worstFit(c, t.CPU)
		if !ok {
			var err error
			if id, err = newNode(c, t, t.CPU); err != nil {
				return nil, err
			}
		}
		place(c, a, t, id)
	}
	return a, nil
}

func worstFit(c *cluster.Cluster, need float64) (cluster.Tnode, bool) {
	var best *cluster.Node
	for _, n := range c.Nodes() {
		if fits(n, need) && (best == nil || n.Free() > best.Free()) {
			best = n
		}
	}
	if best == nil {
		return 0, false
	}
	return best.Id(), true
}

//
// Stateful policies. Affinity first: if the task's state is already
// resident and its home node has room for the CPU, stay home.
// Otherwise the state stays put and only the CPU is placed (the
// remote-access charge is the simulator core's business).
//

func bestFit(c *cluster.Cluster, need float64) (cluster.Tnode, bool) {
	var best *cluster.Node
	for _, n := range c.Nodes() {
		if fits(n, need) && (best == nil || n.Free() < best.Free()) {
			best = n
		}
	}
	if best == nil {
		return 0, false
	}
	return best.Id(), true
}

func randomFit(c *cluster.Cluster, need float64, rng *rand.Rand) (cluster.Tnode, bool) {
	cands := make([]cluster.Tnode, 0)
	for _, n := range c.Nodes() {
		if fits(n, need) {
			cands = append(cands, n.Id())
		}
	}
	if len(cands) == 0 {
		return 0, false
	}
	return cands[rng.Intn(len(cands))], true
}

type pickFn func(c *cluster.Cluster, need float64, rng *rand.Rand) (cluster.Tnode, bool)

// placeStateful runs the shared stateful placement loop with the
// given fallback picker.
func placeStateful(jid cluster.TjobId, d *job.Dag, c *cluster.Cluster, rng *rand.Rand, pick pickFn) (Assignment, error) {
	a := make(Assignment, d.NTasks())
	for i := range d.Tasks {
		t := &d.Tasks[i]
		k := cluster.TaskKey{Job: jid, Task: int(t.Id)}
		if home, ok := c.Where(k); ok {
			if fits(c.Node(home), t.CPU) {
				place(c, a, t, home)
				continue
			}
			// affinity miss: place the CPU elsewhere, state stays home
			id, ok := pick(c, t.CPU, rng)
			if !ok {
				var err error
				if id, err = newNode(c, t, t.CPU); err != nil {
					return nil, err
				}
			}
			db.DPrintf(db.PLACE, "affinity miss %v: cpu on %d, state on %d", k, id, home)
			place(c, a, t, id)
			continue
		}
		// first invocation: establish the state with the CPU
		need := t.CPU + t.State
		id, ok := pick(c, need, rng)
		if !ok {
			var err error
			if id, err = newNode(c, t, need); err != nil {
				return nil, err
			}
		}
		c.PutState(k, t.State, id)
		place(c, a, t, id)
	}
	return a, nil
}

type statefulBestFit struct{}

func (p *statefulBestFit) Name() string {
	return STATEFUL_BEST_FIT
}

func (p *statefulBestFit) Stateful() bool {
	return true
}

func (p *statefulBestFit) Place(jid cluster.TjobId, d *job.Dag, c *cluster.Cluster, rng *rand.Rand) (Assignment, error) {
	return placeStateful(jid, d, c, rng, func(c *cluster.Cluster, need float64, rng *rand.Rand) (cluster.Tnode, bool) {
		return bestFit(c, need)
	})
}

type statefulRandom struct{}

func (p *statefulRandom) Name() string {
	return STATEFUL_RANDOM
}

func (p *statefulRandom) Stateful() bool {
	return true
}

func (p *statefulRandom) Place(jid cluster.TjobId, d *job.Dag, c *cluster.Cluster, rng *rand.Rand) (Assignment, error) {
	return placeStateful(jid, d, c, rng, randomFit)
}
