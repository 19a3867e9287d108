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
	"bufio"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// cgroupAggregator walks the memory-cgroup filesystem tree and sums
// descendant inodes' sweep statistics into their ancestors.
type cgroupAggregator struct {
	mountPoint string
}

func newCgroupAggregator(mountsPath string) (*cgroupAggregator, error) {
	mp, err := findMemoryCgroupMount(mountsPath)
	if err != nil {
		return nil, newInitError("cgroup aggregator: find mount point", err)
	}
	return &cgroupAggregator{mountPoint: mp}, nil
}

// findMemoryCgroupMount scans a /proc/mounts-formatted file for a row
// with filesystem type "cgroup" whose comma-separated options contain
// "memory".
func findMemoryCgroupMount(mountsPath string) (string, error) {
	f, err := os.Open(mountsPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 {
			continue
		}
		mountPoint, fsType, opts := fields[1], fields[2], fields[3]
		if fsType != "cgroup" {
			continue
		}
		for _, opt := range strings.Split(opts, ",") {
			if opt == "memory" {
				return mountPoint, nil
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", errors.New("no cgroup mount with the memory option found")
}

type cgNode struct {
	path   string
	inode  Inode
	parent *cgNode
	agg    [numClasses]classStat
}

// Aggregate walks the cgroup tree and, for every directory, sums its
// own inode's stats (from inodeStats) together with every descendant's
// into its aggregate. The mount-point root itself is dropped from the
// result; a directory whose inode was never observed by the sweep
// still appears, with a zero result.
func (a *cgroupAggregator) Aggregate(inodeStats map[Inode]*[numClasses]classStat) (map[string]ClassPair, error) {
	nodes := map[string]*cgNode{}
	var errs *multierror.Error

	walkErr := filepath.WalkDir(a.mountPoint, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			errs = multierror.Append(errs, errors.Wrapf(err, "walking %s", path))
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			errs = multierror.Append(errs, errors.Wrapf(err, "stat %s", path))
			return nil
		}
		st, ok := info.Sys().(*syscall.Stat_t)
		if !ok {
			errs = multierror.Append(errs, errors.Errorf("no inode information for %s", path))
			return nil
		}
		nodes[path] = &cgNode{path: path, inode: st.Ino}
		return nil
	})
	if walkErr != nil {
		errs = multierror.Append(errs, walkErr)
	}

	for path, node := range nodes {
		if path == a.mountPoint {
			continue
		}
		node.parent = nodes[filepath.Dir(path)]
	}

	ordered := make([]*cgNode, 0, len(nodes))
	for _, n := range nodes {
		ordered = append(ordered, n)
	}
	// Deepest paths first, so a node's aggregate is complete
	// (self + all descendants already folded in) before it is
	// folded into its own parent. No recursion needed.
	sort.Slice(ordered, func(i, j int) bool {
		return strings.Count(ordered[i].path, string(filepath.Separator)) >
			strings.Count(ordered[j].path, string(filepath.Separator))
	})

	result := make(map[string]ClassPair, len(nodes))
	for _, node := range ordered {
		if own, ok := inodeStats[node.inode]; ok {
			node.agg[ClassAnon].add(own[ClassAnon])
			node.agg[ClassFile].add(own[ClassFile])
		}
		if node.parent != nil {
			node.parent.agg[ClassAnon].add(node.agg[ClassAnon])
			node.parent.agg[ClassFile].add(node.agg[ClassFile])
		}
		if node.path != a.mountPoint {
			result[node.path] = ClassPair{
				Anon: node.agg[ClassAnon].cumulative(),
				File: node.agg[ClassFile].cumulative(),
			}
		}
	}

	return result, errs.ErrorOrNil()
}
