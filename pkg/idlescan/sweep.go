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

// SweepConfig holds the sweep engine's batching and sampling tunables.
type SweepConfig struct {
	// BatchPages is the size, in PFNs, of each read/write burst
	// against the kernel pseudo-files. Must be a multiple of 64.
	BatchPages uint64 `yaml:"batchPages"`
	// ScanChunk is the number of PFNs covered by one iteration when
	// Sampling is 1.
	ScanChunk uint64 `yaml:"scanChunk"`
	// Sampling scans only 1-in-Sampling batches, skipping the rest.
	Sampling uint64 `yaml:"sampling"`
}

// DefaultSweepConfig returns the suggested tunables from the design:
// a 4096-page batch and a 32768-page iteration span, unsampled.
func DefaultSweepConfig() SweepConfig {
	return SweepConfig{BatchPages: 4096, ScanChunk: 32768, Sampling: 1}
}

// iterSpan is the number of PFNs advanced per iteration. Increasing
// Sampling does not lengthen a full sweep: each iteration still reads
// about ScanChunk PFNs, spread over a span Sampling times wider, so a
// sweep takes fewer iterations.
func (c SweepConfig) iterSpan() uint64 {
	return c.ScanChunk * c.Sampling
}

// sweepEngine implements the per-iteration count-then-mark algorithm
// over a single PFN range, as described in spec section 4.4.
type sweepEngine struct {
	cfg    SweepConfig
	flags  *perPFNStream
	cgroup *perPFNStream
	idle   *idleBitmapStream
	age    *ageTracker
	endPFN PFN

	inodeStats map[Inode]*[numClasses]classStat

	flagsBuf, cgroupBuf, idleBuf []uint64
}

func newSweepEngine(cfg SweepConfig, flags, cgroup *perPFNStream, idle *idleBitmapStream, age *ageTracker, endPFN PFN) *sweepEngine {
	return &sweepEngine{
		cfg:        cfg,
		flags:      flags,
		cgroup:     cgroup,
		idle:       idle,
		age:        age,
		endPFN:     endPFN,
		inodeStats: make(map[Inode]*[numClasses]classStat),
		flagsBuf:   make([]uint64, cfg.BatchPages),
		cgroupBuf:  make([]uint64, cfg.BatchPages),
		idleBuf:    make([]uint64, cfg.BatchPages/wordsPerBitmapGroup),
	}
}

func (e *sweepEngine) resetInodeStats() {
	e.inodeStats = make(map[Inode]*[numClasses]classStat)
}

func (e *sweepEngine) statFor(inode Inode, class Class) *classStat {
	entry, ok := e.inodeStats[inode]
	if !ok {
		entry = &[numClasses]classStat{}
		e.inodeStats[inode] = entry
	}
	return &entry[class]
}

type visitedBatch struct {
	start PFN // 64-aligned
	words uint64
}

func roundDown64(pfn PFN) PFN { return pfn &^ (wordsPerBitmapGroup - 1) }
func roundUp64(pfn PFN) PFN {
	return (pfn + wordsPerBitmapGroup - 1) &^ (wordsPerBitmapGroup - 1)
}

// runIteration counts and ages every LRU-eligible page in [lo, hi),
// then re-marks the same (sampled) PFNs idle for the next sweep.
func (e *sweepEngine) runIteration(lo, hi PFN) error {
	visited, err := e.countPhase(lo, hi)
	if err != nil {
		return err
	}
	return e.markIdlePhase(lo, hi, visited)
}

func (e *sweepEngine) countPhase(lo, hi PFN) ([]visitedBatch, error) {
	batch := e.cfg.BatchPages
	sampling := e.cfg.Sampling
	if sampling < 1 {
		sampling = 1
	}

	startAlign := roundDown64(lo)
	hiPad := roundUp64(hi)

	var visited []visitedBatch

	var headValid bool
	var headCg Inode
	var headLRU, headAnon, headUnevictable, headIdle bool

	for cStart := startAlign; cStart < hiPad; cStart += batch * sampling {
		chunkLen := batch
		if cStart+chunkLen > hiPad {
			chunkLen = hiPad - cStart
		}
		if chunkLen == 0 {
			break
		}

		flagsBuf := e.flagsBuf[:chunkLen]
		cgroupBuf := e.cgroupBuf[:chunkLen]
		idleWords := chunkLen / wordsPerBitmapGroup
		idleBuf := e.idleBuf[:idleWords]

		if err := e.flags.ReadWords(cStart, flagsBuf); err != nil {
			return nil, err
		}
		if err := e.cgroup.ReadWords(cStart, cgroupBuf); err != nil {
			return nil, err
		}
		if err := e.idle.ReadWords(cStart/wordsPerBitmapGroup, idleBuf); err != nil {
			return nil, err
		}

		for idx := PFN(0); idx < chunkLen; idx++ {
			pfn := cStart + idx
			flagWord := flagsBuf[idx]
			isTail := flagWord&kpfCompoundTail != 0

			if isTail && headValid {
				// Reuse the most recently captured head's
				// attributes; compound tails never carry
				// their own classification or idle bit.
			} else {
				headCg = cgroupBuf[idx]
				headLRU = flagWord&kpfLRU != 0
				headAnon = flagWord&kpfAnon != 0
				headUnevictable = flagWord&kpfUnevictable != 0
				idleWord := idleBuf[idx/wordsPerBitmapGroup]
				headIdle = (idleWord>>(pfn%wordsPerBitmapGroup))&1 != 0
				headValid = true
			}

			// PFNs outside [lo, hi) were only read to keep
			// batch buffers 64-aligned; they belong to a
			// neighboring iteration and are never counted or
			// aged here.
			if pfn < lo || pfn >= hi {
				continue
			}
			if !headLRU || headUnevictable {
				continue
			}

			class := ClassFile
			if headAnon {
				class = ClassAnon
			}
			st := e.statFor(headCg, class)
			st.total++
			if headIdle {
				age := e.age.Bump(pfn)
				st.hist[age]++
			} else {
				e.age.Reset(pfn)
			}
		}

		visited = append(visited, visitedBatch{start: cStart, words: idleWords})
	}

	return visited, nil
}

// markIdlePhase writes idle=1 across every sampled batch's PFNs,
// masking the two 64-PFN words straddling lo and hi so that bits
// belonging to neighboring PFNs outside [lo, hi) are preserved.
func (e *sweepEngine) markIdlePhase(lo, hi PFN, visited []visitedBatch) error {
	if hi <= lo || len(visited) == 0 {
		return nil
	}

	loWord := lo / wordsPerBitmapGroup
	hiWord := (hi - 1) / wordsPerBitmapGroup
	boundary := map[uint64]bool{loWord: true, hiWord: true}
	original := map[uint64]uint64{}

	for _, v := range visited {
		wordStart := v.start / wordsPerBitmapGroup
		for i := uint64(0); i < v.words; i++ {
			w := wordStart + i
			if boundary[w] {
				buf := make([]uint64, 1)
				if err := e.idle.ReadWords(w, buf); err != nil {
					return err
				}
				original[w] = buf[0]
			}
		}
	}

	for _, v := range visited {
		buf := e.idleBuf[:v.words]
		for i := range buf {
			buf[i] = ^uint64(0)
		}
		if err := e.idle.WriteWords(v.start/wordsPerBitmapGroup, buf); err != nil {
			return err
		}
	}

	for w, orig := range original {
		mask := maskForWord(w, lo, hi)
		newVal := orig | mask
		if err := e.idle.WriteWords(w, []uint64{newVal}); err != nil {
			return err
		}
	}
	return nil
}

// maskForWord returns the bitmask of positions within word that fall
// inside [lo, hi), i.e. the bits that should be forced to 1. Positions
// outside [lo, hi) are left as 0 in the mask so a caller can OR it
// into the word's pre-existing value without disturbing them.
func maskForWord(word uint64, lo, hi PFN) uint64 {
	base := word * wordsPerBitmapGroup
	mask := ^uint64(0)
	if base+wordsPerBitmapGroup <= lo || base >= hi {
		return 0
	}
	if base < lo {
		n := lo - base
		mask &^= (uint64(1) << n) - 1
	}
	if base+wordsPerBitmapGroup > hi {
		n := base + wordsPerBitmapGroup - hi
		if n >= wordsPerBitmapGroup {
			return 0
		}
		mask &^= ^uint64(0) << (wordsPerBitmapGroup - n)
	}
	return mask
}
