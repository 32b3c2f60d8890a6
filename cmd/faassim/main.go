package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"runtime"

	"faassim/batch"
	"faassim/histo"
	"faassim/sim"
)

func main() {
	var (
		duration          = flag.Float64("duration", 0, "duration of the simulation experiment, in s")
		jobLifetime       = flag.Float64("job-lifetime", 0, "fixed lifetime of a job, in s")
		jobInterarrival   = flag.Float64("job-interarrival", 0, "inter-arrival time between consecutive jobs, in s; overridden by a job_interval distribution")
		jobInvocationRate = flag.Float64("job-invocation-rate", 1, "invocation rate of a job in its lifetime, in Hz")
		nodeCapacity      = flag.Int("node-capacity", 0, "node capacity; every 100 units means 1 core")
		defragInterval    = flag.Float64("defragmentation-interval", 0, "defragmentation interval, in s; 0 disables")
		stateMul          = flag.Float64("state-mul", -1, "state size multiplier applied to the task memory draw")
		argMul            = flag.Float64("arg-mul", -1, "argument size multiplier applied to the task memory draw")
		seedInit          = flag.Uint64("seed-init", 0, "initial seed of the pseudo-random number generators")
		seedEnd           = flag.Uint64("seed-end", 0, "final seed, excluded")
		concurrency       = flag.Int("concurrency", runtime.NumCPU(), "number of parallel workers")
		policyName        = flag.String("policy", "", "task allocation policy")
		output            = flag.String("output", "", "CSV output file for the collected metrics")
		appendOut         = flag.Bool("append", false, "append to the output file")
		additionalFields  = flag.String("additional-fields", "", "additional fields recorded in each CSV row")
		additionalHeader  = flag.String("additional-header", "", "header of the additional fields")
		dataDir           = flag.String("data", "data", "directory holding the empirical distributions")
	)
	flag.Parse()

	cfg := &batch.Config{
		Sim: sim.Config{
			Duration:          *duration,
			JobLifetime:       *jobLifetime,
			JobInterarrival:   *jobInterarrival,
			JobInvocationRate: *jobInvocationRate,
			NodeCapacity:      float64(*nodeCapacity),
			DefragInterval:    *defragInterval,
			StateMul:          *stateMul,
			ArgMul:            *argMul,
			Policy:            *policyName,
		},
		SeedInit:         *seedInit,
		SeedEnd:          *seedEnd,
		Concurrency:      *concurrency,
		Output:           *output,
		Append:           *appendOut,
		AdditionalFields: *additionalFields,
		AdditionalHeader: *additionalHeader,
	}

	reg, err := histo.LoadRegistry(*dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if err := batch.Run(cfg, reg); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		if errors.Is(err, batch.ErrOutput) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
