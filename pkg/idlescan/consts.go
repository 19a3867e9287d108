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

// PFN is a page frame number, an index into [0, END_PFN).
type PFN = uint64

// Inode is a memory cgroup inode as reported by /proc/kpagecgroup. 0
// denotes the root/unaccounted pages.
type Inode = uint64

// Class is the memory class of a page.
type Class int

const (
	// ClassAnon is an anonymous page.
	ClassAnon Class = iota
	// ClassFile is a file-backed page.
	ClassFile
	numClasses = 2
)

func (c Class) String() string {
	if c == ClassAnon {
		return "anon"
	}
	return "file"
}

// /proc/kpageflags bits, from include/uapi/linux/kernel-page-flags.h.
// Only the bits the sweep engine consumes, plus COMPOUND_HEAD, are
// named.
const (
	kpfbLRU          = 5
	kpfbAnon         = 12
	kpfbCompoundHead = 15
	kpfbCompoundTail = 16
	kpfbUnevictable  = 18

	kpfLRU          = uint64(1) << kpfbLRU
	kpfAnon         = uint64(1) << kpfbAnon
	kpfCompoundTail = uint64(1) << kpfbCompoundTail
	kpfUnevictable  = uint64(1) << kpfbUnevictable
)

const (
	pathZoneinfo  = "/proc/zoneinfo"
	pathKpageflags = "/proc/kpageflags"
	pathKpagecgroup = "/proc/kpagecgroup"
	pathIdleBitmap  = "/sys/kernel/mm/page_idle/bitmap"
)

// wordsPerBitmapGroup is the number of PFNs packed into one 8-byte word
// of the idle bitmap, and the alignment boundary batching must respect.
const wordsPerBitmapGroup = 64
