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
	"golang.org/x/sys/unix"
)

// ageTracker holds one saturating age counter (0-255) per PFN in
// [0, END_PFN), backed by an anonymous private mapping so the kernel's
// demand paging keeps resident memory proportional to the PFN range
// actually touched by sweeps, not the full host-sized allocation.
type ageTracker struct {
	mem []byte
}

func newAgeTracker(endPFN PFN) (*ageTracker, error) {
	if endPFN == 0 {
		return &ageTracker{mem: nil}, nil
	}
	mem, err := unix.Mmap(-1, 0, int(endPFN),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, newInitError("age tracker: mmap", err)
	}
	return &ageTracker{mem: mem}, nil
}

func (a *ageTracker) Get(pfn PFN) uint8 {
	return a.mem[pfn]
}

// Bump saturates the age at pfn by one and returns the age observed
// before the increment (the bucket the caller should credit).
func (a *ageTracker) Bump(pfn PFN) uint8 {
	prev := a.mem[pfn]
	if prev < 255 {
		a.mem[pfn] = prev + 1
	}
	return prev
}

func (a *ageTracker) Reset(pfn PFN) {
	a.mem[pfn] = 0
}

func (a *ageTracker) Close() error {
	if a.mem == nil {
		return nil
	}
	err := unix.Munmap(a.mem)
	a.mem = nil
	return err
}
