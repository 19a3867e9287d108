// Copyright 2024 Intel Corporation. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package idlescan

import "time"

// Paths bundles the filesystem locations the scanner reads/writes.
// Tests substitute synthetic files standing in for the real kernel
// pseudo-files.
type Paths struct {
	Zoneinfo    string
	Kpageflags  string
	Kpagecgroup string
	IdleBitmap  string
	ProcMounts  string
	// MountPointOverride, if non-empty, is used as the memory cgroup
	// mount point directly, skipping ProcMounts discovery.
	MountPointOverride string
}

// DefaultPaths returns the real kernel pseudo-file locations.
func DefaultPaths() Paths {
	return Paths{
		Zoneinfo:    pathZoneinfo,
		Kpageflags:  pathKpageflags,
		Kpagecgroup: pathKpagecgroup,
		IdleBitmap:  pathIdleBitmap,
		ProcMounts:  "/proc/mounts",
	}
}

// IterResult reports whether a sweep needs more iterations.
type IterResult int

const (
	// More means the current sweep has not yet reached END_PFN.
	More IterResult = iota
	// Done means this iteration completed the sweep; Result() now
	// reflects the whole of [0, END_PFN).
	Done
)

// ScanStats is operational telemetry about the scanner's progress,
// independent of the per-cgroup result.
type ScanStats struct {
	EndPFN            PFN
	NrIters           uint64
	IterationsRun     uint64
	SweepsCompleted   uint64
	LastIterationTook time.Duration
}

// Scanner is the iteration controller: the only surface the rest of a
// memory manager needs. It is not safe for concurrent use; callers
// drive it with serial calls to Iterate, yielding to other work
// between calls.
type Scanner struct {
	paths Paths
	endPFN PFN

	cfg          SweepConfig
	pendingSamp  uint64
	nrIters      uint64

	flags  *perPFNStream
	cgroup *perPFNStream
	idle   *idleBitmapStream
	age    *ageTracker
	engine *sweepEngine
	agg    *cgroupAggregator

	scanIter uint64
	stats    ScanStats
}

// NewScanner discovers END_PFN, allocates the age tracker, and locates
// the memory cgroup mount point. Kernel pseudo-file handles are opened
// lazily, on the first call to Iterate.
func NewScanner(paths Paths, cfg SweepConfig) (*Scanner, error) {
	if cfg.BatchPages == 0 || cfg.BatchPages%wordsPerBitmapGroup != 0 {
		return nil, newConfigError("BatchPages must be a positive multiple of %d", wordsPerBitmapGroup)
	}
	if cfg.ScanChunk == 0 {
		return nil, newConfigError("ScanChunk must be positive")
	}
	if cfg.Sampling == 0 {
		cfg.Sampling = 1
	}

	endPFN, err := discoverEndPFN(paths.Zoneinfo)
	if err != nil {
		return nil, err
	}
	age, err := newAgeTracker(endPFN)
	if err != nil {
		return nil, err
	}
	var agg *cgroupAggregator
	if paths.MountPointOverride != "" {
		agg = &cgroupAggregator{mountPoint: paths.MountPointOverride}
	} else {
		agg, err = newCgroupAggregator(paths.ProcMounts)
		if err != nil {
			age.Close()
			return nil, err
		}
	}

	s := &Scanner{
		paths:       paths,
		endPFN:      endPFN,
		cfg:         cfg,
		pendingSamp: cfg.Sampling,
		age:         age,
		agg:         agg,
	}
	s.nrIters = nrIters(endPFN, cfg.iterSpan())
	s.stats.EndPFN = endPFN
	s.stats.NrIters = s.nrIters
	return s, nil
}

func nrIters(endPFN PFN, iterSpan uint64) uint64 {
	if iterSpan == 0 {
		return 0
	}
	return (endPFN + iterSpan - 1) / iterSpan
}

// NrIters returns the number of iterations one full sweep takes with
// the currently active (applied) sampling configuration.
func (s *Scanner) NrIters() uint64 { return s.nrIters }

// EndPFN returns the discovered page-frame-number space, [0, EndPFN).
func (s *Scanner) EndPFN() PFN { return s.endPFN }

// Stats returns a snapshot of operational telemetry.
func (s *Scanner) Stats() ScanStats { return s.stats }

// SetSampling sets the scanner to scan only 1-in-k batches. It takes
// effect at the next sweep boundary (the next time Iterate begins a
// fresh sweep), never mid-sweep, so age counters never desynchronize
// from the idle-bit ground truth of a sweep in progress.
func (s *Scanner) SetSampling(k uint64) error {
	if k < 1 {
		return newConfigError("sampling must be >= 1, got %d", k)
	}
	s.pendingSamp = k
	return nil
}

// SetSamplingRatio is SetSampling expressed as a ratio in (0, 1]:
// sampling is set to max(1, floor(1/ratio)).
func (s *Scanner) SetSamplingRatio(ratio float64) error {
	if ratio <= 0 || ratio > 1 {
		return newConfigError("sampling ratio must be in (0, 1], got %v", ratio)
	}
	k := uint64(1 / ratio)
	if k < 1 {
		k = 1
	}
	return s.SetSampling(k)
}

func (s *Scanner) ensureOpen() error {
	if s.engine != nil {
		return nil
	}
	flags, err := openPerPFNStream(s.paths.Kpageflags)
	if err != nil {
		return err
	}
	cgroup, err := openPerPFNStream(s.paths.Kpagecgroup)
	if err != nil {
		flags.Close()
		return err
	}
	idle, err := openIdleBitmapStream(s.paths.IdleBitmap)
	if err != nil {
		flags.Close()
		cgroup.Close()
		return err
	}
	s.flags, s.cgroup, s.idle = flags, cgroup, idle
	s.engine = newSweepEngine(s.cfg, flags, cgroup, idle, s.age, s.endPFN)
	return nil
}

// Iterate advances one iteration. On the first iteration of a fresh
// sweep (scanIter == 0), per-inode accumulators are cleared and any
// pending sampling change takes effect. An error leaves scanIter
// pointing at the failing iteration so a retry resumes from there;
// callers are expected to abandon and restart the sweep instead.
func (s *Scanner) Iterate() (IterResult, error) {
	if err := s.ensureOpen(); err != nil {
		return More, err
	}

	if s.scanIter == 0 {
		if s.cfg.Sampling != s.pendingSamp {
			s.cfg.Sampling = s.pendingSamp
			s.engine.cfg.Sampling = s.pendingSamp
			s.nrIters = nrIters(s.endPFN, s.cfg.iterSpan())
			s.stats.NrIters = s.nrIters
		}
		s.engine.resetInodeStats()
	}

	span := s.cfg.iterSpan()
	lo := s.scanIter * span
	hi := lo + span
	if hi > s.endPFN {
		hi = s.endPFN
	}

	start := time.Now()
	err := s.engine.runIteration(lo, hi)
	s.stats.LastIterationTook = time.Since(start)
	if err != nil {
		return More, err
	}
	s.stats.IterationsRun++

	if hi >= s.endPFN {
		s.scanIter = 0
		s.stats.SweepsCompleted++
		return Done, nil
	}
	s.scanIter++
	return More, nil
}

// Result aggregates the current sweep's per-inode statistics up the
// cgroup tree and returns a mapping from cgroup path to its anon/file
// idle-age histograms. It may be called between iterations to observe
// a partial, in-progress sweep, or after Done for the final result.
func (s *Scanner) Result() (map[string]ClassPair, error) {
	if s.engine == nil {
		return map[string]ClassPair{}, nil
	}
	return s.agg.Aggregate(s.engine.inodeStats)
}

// Close tears down kernel file handles and the age tracker mapping.
// The Scanner must not be used afterward.
func (s *Scanner) Close() error {
	var err error
	if s.flags != nil {
		if e := s.flags.Close(); e != nil {
			err = e
		}
	}
	if s.cgroup != nil {
		if e := s.cgroup.Close(); e != nil {
			err = e
		}
	}
	if s.idle != nil {
		if e := s.idle.Close(); e != nil {
			err = e
		}
	}
	if e := s.age.Close(); e != nil {
		err = e
	}
	return err
}
