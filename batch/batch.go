// Package batch runs many independent seeded simulations in
// parallel and appends one CSV row per seed to the output file. The
// CSV sink is the only shared object; a simulation owns everything
// else it touches.
package batch

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	db "faassim/debug"
	"faassim/histo"
	"faassim/metrics"
	"faassim/param"
	"faassim/sim"
	"faassim/util/retry"
)

// Error classes for the process exit code: ErrConfig exits 1,
// ErrOutput exits 2.
var (
	ErrConfig = errors.New("invalid configuration")
	ErrOutput = errors.New("output error")
)

const header = "seed,mean_nodes,peak_nodes,mean_utilization,p95_utilization,total_network_bytes,defrag_network_bytes,jobs_completed,invocations"

type Config struct {
	Sim sim.Config // Seed is overwritten per run
	// Half-open seed range [SeedInit, SeedEnd).
	SeedInit uint64
	SeedEnd  uint64
	// Maximum simulations in flight.
	Concurrency int
	// CSV output path; Append preserves an existing file and only
	// writes the header when the file did not previously exist.
	Output string
	Append bool
	// Verbatim prefix columns for each data row and the header.
	AdditionalFields string
	AdditionalHeader string
}

func (c *Config) Validate() error {
	if c.SeedEnd <= c.SeedInit {
		return fmt.Errorf("empty seed range [%d, %d)", c.SeedInit, c.SeedEnd)
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("vanishing concurrency")
	}
	if c.Output == "" {
		return fmt.Errorf("no output file")
	}
	return c.Sim.Validate()
}

// sink serializes row appends to the output file.
type sink struct {
	mu sync.Mutex
	f  *os.File
}

func (s *sink) writeRow(row string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return retry.Do(param.Conf.Batch.WRITE_RETRIES, "write row", func(int) error {
		_, err := fmt.Fprintln(s.f, row)
		return err
	})
}

// Run executes every seed in the range, up to cfg.Concurrency at a
// time. Rows land in completion order; a (config, seed) pair yields
// a bit-identical row regardless of concurrency.
func Run(cfg *Config, reg *histo.Registry) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}
	f, writeHeader, err := openOutput(cfg.Output, cfg.Append)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOutput, err)
	}
	s := &sink{f: f}
	if writeHeader {
		if err := s.writeRow(prefix(cfg.AdditionalHeader) + header); err != nil {
			f.Close()
			return fmt.Errorf("%w: %v", ErrOutput, err)
		}
	}

	var (
		wg       sync.WaitGroup
		slots    = make(chan struct{}, cfg.Concurrency)
		mu       sync.Mutex
		firstErr error
		rows     int
		totalNet float64
	)
	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
		}
	}
	for seed := cfg.SeedInit; seed < cfg.SeedEnd; seed++ {
		wg.Add(1)
		slots <- struct{}{}
		go func(seed uint64) {
			defer wg.Done()
			defer func() { <-slots }()
			scfg := cfg.Sim
			scfg.Seed = seed
			start := time.Now()
			sum, err := runOne(scfg, reg)
			if err != nil {
				fail(fmt.Errorf("%w: seed %d: %v", ErrConfig, seed, err))
				return
			}
			db.DPrintf(db.BATCH, "seed %d done in %v: %v", seed, time.Since(start), sum)
			if err := s.writeRow(prefix(cfg.AdditionalFields) + row(sum)); err != nil {
				fail(fmt.Errorf("%w: seed %d: %v", ErrOutput, seed, err))
				return
			}
			mu.Lock()
			rows++
			totalNet += sum.TotalNetworkBytes
			mu.Unlock()
		}(seed)
	}
	wg.Wait()
	if firstErr != nil {
		f.Close()
		return firstErr
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrOutput, err)
	}
	db.DPrintf(db.BATCH, "wrote %d rows to %s, total network %v", rows, cfg.Output, humanize.Bytes(uint64(totalNet)))
	return nil
}

func runOne(cfg sim.Config, reg *histo.Registry) (*metrics.Summary, error) {
	s, err := sim.New(cfg, reg)
	if err != nil {
		return nil, err
	}
	return s.Run()
}

// openOutput reports whether the header must be written: always
// after truncation, and in append mode only when the file is new.
func openOutput(pn string, appendMode bool) (*os.File, bool, error) {
	if !appendMode {
		f, err := os.Create(pn)
		return f, true, err
	}
	_, statErr := os.Stat(pn)
	existed := statErr == nil
	f, err := os.OpenFile(pn, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	return f, !existed, err
}

func prefix(extra string) string {
	if extra == "" {
		return ""
	}
	return extra + ","
}

func row(s *metrics.Summary) string {
	return fmt.Sprintf("%d,%.6f,%d,%.6f,%.6f,%.6f,%.6f,%d,%d",
		s.Seed, s.MeanNodes, s.PeakNodes, s.MeanUtil, s.P95Util,
		s.TotalNetworkBytes, s.DefragNetworkBytes, s.JobsCompleted, s.Invocations)
}
