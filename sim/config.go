package sim

import (
	"fmt"

	"faassim/policy"
)

// Config fully determines one simulation together with its seed.
type Config struct {
	// Simulated horizon, in s.
	Duration float64
	// Fixed lifetime of a job, in s.
	JobLifetime float64
	// Fixed inter-arrival time between jobs, in s; an empirical
	// job_interval distribution, when loaded, takes precedence.
	JobInterarrival float64
	// Invocations per second per job, in Hz.
	JobInvocationRate float64
	// Capacity of each node; every 100 units is one core.
	NodeCapacity float64
	// Defragmentation period, in s; 0 disables.
	DefragInterval float64
	// Scale factors applied to the task memory draws.
	StateMul float64
	ArgMul   float64
	// Placement policy name.
	Policy string
	// Seed for all of this simulation's generators.
	Seed uint64
}

func (c *Config) Validate() error {
	if c.Duration <= 0 {
		return fmt.Errorf("vanishing duration")
	}
	if c.JobLifetime <= 0 {
		return fmt.Errorf("vanishing job lifetime")
	}
	if c.JobInterarrival <= 0 {
		return fmt.Errorf("vanishing job interarrival time")
	}
	if c.JobInvocationRate <= 0 {
		return fmt.Errorf("vanishing job invocation rate")
	}
	if c.NodeCapacity <= 0 {
		return fmt.Errorf("vanishing node capacity")
	}
	if c.DefragInterval < 0 {
		return fmt.Errorf("negative defragmentation interval")
	}
	if c.StateMul < 0 || c.ArgMul < 0 {
		return fmt.Errorf("negative size multiplier")
	}
	if _, err := policy.New(c.Policy); err != nil {
		return err
	}
	return nil
}
