// Package defrag consolidates resident task state onto fewer nodes.
// It runs between invocations, when no CPU load is in flight, so
// only state counts against capacity.
package defrag

import (
	"sort"

	"faassim/cluster"
	db "faassim/debug"
)

// Run attempts to evacuate lightly loaded nodes onto the rest of the
// cluster. Evacuation is all-or-nothing per source node; an emptied
// source is removed. Returns the moved state bytes and move count.
// A second Run immediately after the first performs no moves:
// sources that could not be evacuated only see fuller targets.
func Run(c *cluster.Cluster) (float64, int) {
	bytes := 0.0
	moves := 0
	for _, src := range candidates(c) {
		if src.Load() > 0 {
			// the event ordering keeps invocations off defrag ticks
			db.DFatalf("defrag found live cpu load on %v", src)
		}
		plan, ok := planEvacuation(c, src)
		if !ok {
			continue
		}
		for _, mv := range plan {
			bytes += c.MoveState(mv.key, mv.to)
			moves++
		}
		c.Remove(src.Id())
		db.DPrintf(db.DEFRAG, "evacuated node %d (%d moves)", src.Id(), len(plan))
	}
	return bytes, moves
}

// candidates are the non-empty nodes, cheapest state first; ties by
// ascending id for determinism.
func candidates(c *cluster.Cluster) []*cluster.Node {
	ns := make([]*cluster.Node, 0, c.NNodes())
	for _, n := range c.Nodes() {
		if n.StateSize() > 0 {
			ns = append(ns, n)
		}
	}
	sort.Slice(ns, func(i, j int) bool {
		if ns[i].StateSize() != ns[j].StateSize() {
			return ns[i].StateSize() < ns[j].StateSize()
		}
		return ns[i].Id() < ns[j].Id()
	})
	return ns
}

type move struct {
	key cluster.TaskKey
	to  cluster.Tnode
}

// planEvacuation best-fits the source's entries (largest first) onto
// the other nodes, tracking planned additions, and reports whether
// every entry found a home.
func planEvacuation(c *cluster.Cluster, src *cluster.Node) ([]move, bool) {
	entries := src.StateEntries()
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Size > entries[j].Size
	})
	planned := make(map[cluster.Tnode]float64)
	plan := make([]move, 0, len(entries))
	for _, e := range entries {
		var best *cluster.Node
		bestFree := 0.0
		for _, n := range c.Nodes() {
			if n.Id() == src.Id() {
				continue
			}
			free := n.Free() - planned[n.Id()]
			if e.Size <= free+cluster.Eps && (best == nil || free < bestFree) {
				best = n
				bestFree = free
			}
		}
		if best == nil {
			return nil, false
		}
		planned[best.Id()] += e.Size
		plan = append(plan, move{key: e.Key, to: best.Id()})
	}
	return plan, true
}
