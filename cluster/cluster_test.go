package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddRemoveIds(t *testing.T) {
	c := New(100)
	n0 := c.AddNode()
	n1 := c.AddNode()
	assert.Equal(t, Tnode(0), n0.Id())
	assert.Equal(t, Tnode(1), n1.Id())
	c.Remove(n0.Id())
	// ids are never reused
	n2 := c.AddNode()
	assert.Equal(t, Tnode(2), n2.Id())
	assert.Equal(t, 2, c.NNodes())
}

func TestCapacityAccounting(t *testing.T) {
	c := New(100)
	n := c.AddNode()
	k := TaskKey{Job: 1, Task: 0}
	c.PutState(k, 30, n.Id())
	c.PlaceCPU(n.Id(), 50)
	assert.InDelta(t, 20.0, n.Free(), Eps)
	assert.Equal(t, 30.0, n.StateSize())
	assert.Equal(t, 50.0, n.Load())
	c.ReleaseCPU()
	assert.InDelta(t, 70.0, n.Free(), Eps)
	assert.False(t, n.Empty())
}

func TestWhereAndMove(t *testing.T) {
	c := New(100)
	n0 := c.AddNode()
	n1 := c.AddNode()
	k := TaskKey{Job: 3, Task: 2}
	c.PutState(k, 40, n0.Id())
	id, ok := c.Where(k)
	require.True(t, ok)
	assert.Equal(t, n0.Id(), id)

	size := c.MoveState(k, n1.Id())
	assert.Equal(t, 40.0, size)
	id, ok = c.Where(k)
	require.True(t, ok)
	assert.Equal(t, n1.Id(), id)
	assert.Equal(t, 0.0, n0.StateSize())
	assert.Equal(t, 40.0, n1.StateSize())
	assert.True(t, n0.HasState(k) == false && n1.HasState(k))
}

func TestEvictJobSweep(t *testing.T) {
	c := New(100)
	n0 := c.AddNode()
	n1 := c.AddNode()
	c.PutState(TaskKey{Job: 1, Task: 0}, 10, n0.Id())
	c.PutState(TaskKey{Job: 1, Task: 1}, 10, n1.Id())
	c.PutState(TaskKey{Job: 2, Task: 0}, 10, n1.Id())

	touched := c.EvictJob(1)
	assert.Len(t, touched, 2)
	removed := c.SweepEmpty(touched)
	// n0 became empty, n1 still holds job 2
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, c.NNodes())
	assert.Equal(t, n1.Id(), c.Nodes()[0].Id())
	_, ok := c.Where(TaskKey{Job: 1, Task: 0})
	assert.False(t, ok)
	_, ok = c.Where(TaskKey{Job: 2, Task: 0})
	assert.True(t, ok)
}

func TestStateEntriesOrder(t *testing.T) {
	c := New(100)
	n := c.AddNode()
	c.PutState(TaskKey{Job: 2, Task: 1}, 5, n.Id())
	c.PutState(TaskKey{Job: 1, Task: 2}, 10, n.Id())
	c.PutState(TaskKey{Job: 1, Task: 0}, 15, n.Id())
	es := n.StateEntries()
	require.Len(t, es, 3)
	assert.Equal(t, TaskKey{Job: 1, Task: 0}, es[0].Key)
	assert.Equal(t, TaskKey{Job: 1, Task: 2}, es[1].Key)
	assert.Equal(t, TaskKey{Job: 2, Task: 1}, es[2].Key)
}
