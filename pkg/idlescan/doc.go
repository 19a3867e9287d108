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

// Package idlescan drives the kernel's page-idle tracking facility to
// estimate per-cgroup working-set size.
//
// A Scanner discovers the highest valid page frame number from
// /proc/zoneinfo, then repeatedly sweeps [0, END_PFN) in bounded
// iterations, classifying every LRU-eligible page by owning memory
// cgroup and anon/file class, and tracking how many consecutive sweeps
// each page has been observed idle. Results are exposed as a per-cgroup
// idle-age histogram, aggregated up the cgroup tree.
//
// The package does not reclaim, migrate, or modify page contents. It
// produces best-effort, statistically stable samples suitable for
// driving a memory guarantee/limit manager.
package idlescan
