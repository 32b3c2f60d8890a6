// Package job models one FaaS job: a DAG of tasks, each with a CPU
// request, a persistent state size, an argument size, and a
// reference duration. Edges carry the producer's argument size to
// each consumer.
package job

import (
	"fmt"

	db "faassim/debug"
)

// Tid is a task id, dense within a job, assigned in level order so
// the source is always task 0.
type Tid int

type Task struct {
	Id    Tid
	CPU   float64 // percent of a core; 100 units = 1 core
	State float64 // persistent state size
	Arg   float64 // invocation argument size
	// Duration is kept for reference; the invocation model is
	// periodic and does not consume it.
	Duration float64
}

func (t *Task) String() string {
	return fmt.Sprintf("{cpu %.1f state %.1f arg %.1f}", t.CPU, t.State, t.Arg)
}

// Dag is a level-structured DAG. Edges only go from level i to level
// i+1, so cycles are impossible by construction.
type Dag struct {
	Tasks  []Task
	Succs  [][]Tid // successor lists, indexed by task id
	Levels [][]Tid // task ids per level; Levels[0] = {source}
}

func (d *Dag) NTasks() int {
	return len(d.Tasks)
}

func (d *Dag) Source() Tid {
	return d.Levels[0][0]
}

func (d *Dag) Sink() Tid {
	last := d.Levels[len(d.Levels)-1]
	return last[0]
}

func (d *Dag) TotalCPU() float64 {
	tot := 0.0
	for i := range d.Tasks {
		tot += d.Tasks[i].CPU
	}
	return tot
}

func (d *Dag) TotalState() float64 {
	tot := 0.0
	for i := range d.Tasks {
		tot += d.Tasks[i].State
	}
	return tot
}

// NPreds returns the in-degree of every task.
func (d *Dag) NPreds() []int {
	np := make([]int, len(d.Tasks))
	for _, succs := range d.Succs {
		for _, v := range succs {
			np[v]++
		}
	}
	return np
}

func (d *Dag) String() string {
	return fmt.Sprintf("{tasks %d levels %d cpu %.1f state %.1f}", len(d.Tasks), len(d.Levels), d.TotalCPU(), d.TotalState())
}

// Dot prints a Graphviz view of the DAG under the JOB selector.
func (d *Dag) Dot() {
	if !db.WillBePrinted(db.JOB) {
		return
	}
	s := "digraph job {\n"
	for i := range d.Tasks {
		s += fmt.Sprintf("  t%d [label=\"%d %v\"];\n", i, i, &d.Tasks[i])
	}
	for u, succs := range d.Succs {
		for _, v := range succs {
			s += fmt.Sprintf("  t%d -> t%d;\n", u, v)
		}
	}
	s += "}"
	db.DPrintf(db.JOB, "%v", s)
}
