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

// classStat is the raw per-sweep accumulator for one (inode, class)
// pair: a count of LRU/evictable pages observed (total), and a
// histogram where bucket i (0 <= i < 255) holds the number of pages
// idle for exactly i+1 consecutive sweeps, and bucket 255 holds pages
// idle for 256 or more.
type classStat struct {
	total uint64
	hist  [256]uint64
}

func (c *classStat) add(o classStat) {
	c.total += o.total
	for i := range c.hist {
		c.hist[i] += o.hist[i]
	}
}

// IdleHistogram is the length-257 exported view of a classStat:
// position 0 is total, positions 1..256 are cumulative counts "pages
// idle for >= i sweeps".
type IdleHistogram [257]uint64

// cumulative transforms the per-bucket counters into the exported
// cumulative form via a right-to-left (suffix) sum: cumulative[i] for
// i in 1..256 is the number of pages idle for at least i sweeps.
func (c classStat) cumulative() IdleHistogram {
	var out IdleHistogram
	out[0] = c.total
	var suffix uint64
	for k := 255; k >= 0; k-- {
		suffix += c.hist[k]
		out[k+1] = suffix
	}
	return out
}

// ClassPair is one cgroup path's result: the anon and file idle-age
// histograms.
type ClassPair struct {
	Anon IdleHistogram
	File IdleHistogram
}
