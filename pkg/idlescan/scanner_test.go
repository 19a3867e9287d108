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

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// buildScannerFixture lays out a full synthetic kernel environment
// (zoneinfo, kpageflags, kpagecgroup, idle bitmap, mounts) plus a real
// cgroup directory with one anonymous idle page charged to it, and
// returns a ready-to-use Scanner.
func buildScannerFixture(t *testing.T, total PFN) (*Scanner, string) {
	t.Helper()
	dir := t.TempDir()

	cgroupRoot := filepath.Join(dir, "memory")
	cgroupDir := filepath.Join(cgroupRoot, "workload.slice")
	if err := os.MkdirAll(cgroupDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	inode := inodeOf(t, cgroupDir)

	zoneinfoPath := writeTempFile(t, dir, "zoneinfo", fmt.Sprintf(
		"Node 0, zone   Normal\n        spanned  %d\n        start_pfn: 0\n", total))

	flags := make([]uint64, total)
	cgroup := make([]uint64, total)
	idle := make([]uint64, total/wordsPerBitmapGroup)

	const targetPFN = 12
	flags[targetPFN] = kpfLRU | kpfAnon
	cgroup[targetPFN] = inode
	idle[targetPFN/wordsPerBitmapGroup] |= uint64(1) << (targetPFN % wordsPerBitmapGroup)

	flagsPath := filepath.Join(dir, "kpageflags")
	cgroupPath := filepath.Join(dir, "kpagecgroup")
	idlePath := filepath.Join(dir, "idle_bitmap")
	writeWordsFile(t, flagsPath, flags)
	writeWordsFile(t, cgroupPath, cgroup)
	writeWordsFile(t, idlePath, idle)

	mountsPath := writeTempFile(t, dir, "mounts",
		fmt.Sprintf("cgroup %s cgroup rw,memory 0 0\n", cgroupRoot))

	paths := Paths{
		Zoneinfo:    zoneinfoPath,
		Kpageflags:  flagsPath,
		Kpagecgroup: cgroupPath,
		IdleBitmap:  idlePath,
		ProcMounts:  mountsPath,
	}
	cfg := SweepConfig{BatchPages: 64, ScanChunk: total, Sampling: 1}

	s, err := NewScanner(paths, cfg)
	if err != nil {
		t.Fatalf("NewScanner: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, cgroupDir
}

func TestScannerFullSweepAndResult(t *testing.T) {
	s, cgroupDir := buildScannerFixture(t, 128)

	if got, want := s.EndPFN(), PFN(128); got != want {
		t.Fatalf("EndPFN = %d, want %d", got, want)
	}
	if got, want := s.NrIters(), uint64(1); got != want {
		t.Fatalf("NrIters = %d, want %d", got, want)
	}

	res, err := s.Iterate()
	if err != nil {
		t.Fatalf("Iterate: %v", err)
	}
	if res != Done {
		t.Fatalf("Iterate result = %v, want Done for a single-iteration sweep", res)
	}

	result, err := s.Result()
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	pair, ok := result[cgroupDir]
	if !ok {
		t.Fatalf("no result entry for %s; got %v", cgroupDir, result)
	}
	if pair.Anon[0] != 1 {
		t.Errorf("anon total = %d, want 1", pair.Anon[0])
	}
	if pair.Anon[1] != 1 {
		t.Errorf("anon idle>=1sweep = %d, want 1", pair.Anon[1])
	}

	stats := s.Stats()
	if stats.SweepsCompleted != 1 {
		t.Errorf("SweepsCompleted = %d, want 1", stats.SweepsCompleted)
	}
	if stats.IterationsRun != 1 {
		t.Errorf("IterationsRun = %d, want 1", stats.IterationsRun)
	}
}

func TestScannerMultiIterationSweep(t *testing.T) {
	s, cgroupDir := buildScannerFixture(t, 256)
	s.cfg.ScanChunk = 64
	s.nrIters = nrIters(s.endPFN, s.cfg.iterSpan())
	s.pendingSamp = s.cfg.Sampling

	if got, want := s.NrIters(), uint64(4); got != want {
		t.Fatalf("NrIters = %d, want %d", got, want)
	}

	var last IterResult
	var err error
	for i := 0; i < 4; i++ {
		last, err = s.Iterate()
		if err != nil {
			t.Fatalf("Iterate %d: %v", i, err)
		}
		if i < 3 && last != More {
			t.Fatalf("Iterate %d result = %v, want More", i, last)
		}
	}
	if last != Done {
		t.Fatalf("final Iterate result = %v, want Done", last)
	}

	result, err := s.Result()
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if result[cgroupDir].Anon[0] != 1 {
		t.Errorf("anon total = %d, want 1", result[cgroupDir].Anon[0])
	}
}

func TestScannerSetSamplingDeferredToSweepBoundary(t *testing.T) {
	s, _ := buildScannerFixture(t, 256)
	s.cfg.ScanChunk = 64
	s.nrIters = nrIters(s.endPFN, s.cfg.iterSpan())
	s.pendingSamp = s.cfg.Sampling

	// Start the sweep before changing sampling, so the change lands
	// mid-sweep rather than at scanIter 0.
	if _, err := s.Iterate(); err != nil {
		t.Fatalf("Iterate: %v", err)
	}
	if err := s.SetSampling(2); err != nil {
		t.Fatalf("SetSampling: %v", err)
	}
	if got, want := s.NrIters(), uint64(4); got != want {
		t.Errorf("NrIters mid-sweep = %d, want unchanged %d", got, want)
	}

	// Finish the sweep (3 more iterations); the pending sampling must
	// not apply until the sweep completes.
	var last IterResult
	var err error
	for i := 0; i < 3; i++ {
		last, err = s.Iterate()
		if err != nil {
			t.Fatalf("Iterate: %v", err)
		}
	}
	if last != Done {
		t.Fatalf("sweep result = %v, want Done", last)
	}

	// First iteration of the new sweep: the new sampling now applies.
	if _, err := s.Iterate(); err != nil {
		t.Fatalf("Iterate (first of new sweep): %v", err)
	}
	if got, want := s.NrIters(), uint64(2); got != want {
		t.Errorf("NrIters after boundary = %d, want %d", got, want)
	}
}

func TestScannerRejectsBadConfig(t *testing.T) {
	dir := t.TempDir()
	zoneinfoPath := writeTempFile(t, dir, "zoneinfo",
		"Node 0, zone Normal\n        spanned  128\n        start_pfn: 0\n")
	paths := Paths{Zoneinfo: zoneinfoPath}

	if _, err := NewScanner(paths, SweepConfig{BatchPages: 10, ScanChunk: 64, Sampling: 1}); err == nil {
		t.Error("expected an error for a BatchPages not a multiple of 64")
	}
	if _, err := NewScanner(paths, SweepConfig{BatchPages: 64, ScanChunk: 0, Sampling: 1}); err == nil {
		t.Error("expected an error for a zero ScanChunk")
	}
}
