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
	"syscall"
	"testing"
)

func inodeOf(t *testing.T, path string) Inode {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat %s: %v", path, err)
	}
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		t.Fatalf("no *syscall.Stat_t for %s", path)
	}
	return st.Ino
}

func TestFindMemoryCgroupMount(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "mounts",
		"sysfs /sys sysfs rw,nosuid,nodev,noexec,relatime 0 0\n"+
			"cgroup /sys/fs/cgroup/cpu cgroup rw,nosuid,nodev,noexec,relatime,cpu,cpuacct 0 0\n"+
			"cgroup /sys/fs/cgroup/memory cgroup rw,nosuid,nodev,noexec,relatime,memory 0 0\n")

	mp, err := findMemoryCgroupMount(path)
	if err != nil {
		t.Fatalf("findMemoryCgroupMount: %v", err)
	}
	if mp != "/sys/fs/cgroup/memory" {
		t.Errorf("mount point = %q, want /sys/fs/cgroup/memory", mp)
	}
}

func TestFindMemoryCgroupMountNotFound(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "mounts",
		"cgroup /sys/fs/cgroup/cpu cgroup rw,cpu,cpuacct 0 0\n")

	if _, err := findMemoryCgroupMount(path); err == nil {
		t.Fatal("expected an error when no memory cgroup mount is present")
	}
}

// TestCgroupAggregateBottomUp builds a small real directory tree
// standing in for a memory cgroup hierarchy:
//
//	root/
//	  parent/
//	    child/
//
// and checks that a child's stats are folded into its parent, and the
// parent's own stats plus the child's are folded together, while the
// mount-point root itself is excluded from the result.
func TestCgroupAggregateBottomUp(t *testing.T) {
	root := t.TempDir()
	parent := filepath.Join(root, "parent")
	child := filepath.Join(parent, "child")
	if err := os.MkdirAll(child, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	mountsDir := t.TempDir()
	mountsPath := writeTempFile(t, mountsDir, "mounts",
		fmt.Sprintf("cgroup %s cgroup rw,memory 0 0\n", root))

	agg, err := newCgroupAggregator(mountsPath)
	if err != nil {
		t.Fatalf("newCgroupAggregator: %v", err)
	}

	parentInode := inodeOf(t, parent)
	childInode := inodeOf(t, child)

	inodeStats := map[Inode]*[numClasses]classStat{
		parentInode: {
			classStat{total: 10, hist: [256]uint64{0: 10}},
			classStat{},
		},
		childInode: {
			classStat{total: 5, hist: [256]uint64{0: 5}},
			classStat{},
		},
	}

	result, err := agg.Aggregate(inodeStats)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	if _, ok := result[root]; ok {
		t.Error("mount-point root should not appear in the result")
	}

	childResult, ok := result[child]
	if !ok {
		t.Fatal("no result for child")
	}
	if childResult.Anon[0] != 5 {
		t.Errorf("child anon total = %d, want 5", childResult.Anon[0])
	}

	parentResult, ok := result[parent]
	if !ok {
		t.Fatal("no result for parent")
	}
	if parentResult.Anon[0] != 15 {
		t.Errorf("parent anon total = %d, want 15 (own 10 + child 5)", parentResult.Anon[0])
	}
}
