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

// Package pidfile guards against a second idlescand running against
// the same kernel page-idle state. It is a narrow single-instance
// lock, not a general-purpose PID-file library: the surface is
// exactly what cmd/idlescand/main.go needs (SetPath, Write, OwnerPid,
// Remove, GetPath) and nothing more.
package pidfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/pkg/errors"
)

// processName is the fixed binary name the default path and the file
// contents are derived from. idlescand only ever runs one binary, so,
// unlike a library meant for many callers, the name does not need to
// be rediscovered from os.Args[0].
const processName = "idlescand"

// envOverride, if set, takes priority over the built-in default path.
const envOverride = "IDLESCAND_PIDFILE"

var (
	path = defaultPath()
	file *os.File
)

// GetPath returns the pidfile path currently in effect.
func GetPath() string {
	return path
}

// SetPath overrides the pidfile path. Any file already held open under
// the previous path is released first.
func SetPath(p string) {
	release()
	path = p
}

// Write creates the pidfile and records the current process's PID in
// it, failing if one already exists. A repeated call while this
// process still holds the file is a no-op. The file is kept open for the
// life of the process so Remove can truncate-then-delete it
// unconditionally on shutdown.
func Write() error {
	if file != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "pidfile: create directory for %s", path)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrapf(err, "pidfile: create %s", path)
	}
	file = f

	if _, err := file.Write([]byte(fmt.Sprintf("%d\n", os.Getpid()))); err != nil {
		release()
		return errors.Wrapf(err, "pidfile: write %s", path)
	}
	return nil
}

// OwnerPid returns the PID recorded in the pidfile, provided the
// process it names is still alive. It returns 0 when no pidfile
// exists or the recorded PID has since exited (a stale lock), and a
// non-nil error only when liveness could not be determined.
func OwnerPid() (int, error) {
	pid, err := readPid()
	if err != nil {
		return -1, err
	}
	if pid == 0 {
		return 0, nil
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return -1, errors.Wrapf(err, "pidfile: find process %d", pid)
	}
	switch err := proc.Signal(syscall.Signal(0)); err {
	case nil:
		return pid, nil
	case os.ErrProcessDone:
		return 0, nil
	default:
		return -1, errors.Wrapf(err, "pidfile: probe process %d", pid)
	}
}

// Remove releases and deletes the pidfile unconditionally, regardless
// of whether this process created it.
func Remove() error {
	release()
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "pidfile: remove %s", path)
	}
	return nil
}

// readPid returns the PID recorded in the pidfile, or 0 if no pidfile
// exists.
func readPid() (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return -1, errors.Wrapf(err, "pidfile: read %s", path)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return -1, errors.Wrapf(err, "pidfile: malformed PID %q in %s", string(raw), path)
	}
	return pid, nil
}

// release closes and truncates the held file handle, if any, without
// deleting the path itself.
func release() {
	if file == nil {
		return
	}
	file.Truncate(0)
	file.Close()
	file = nil
}

// defaultPath returns IDLESCAND_PIDFILE when set, else a path rooted
// at /var/run for a privileged process or /tmp otherwise, matching
// where a daemon binary is conventionally allowed to write.
func defaultPath() string {
	if p := os.Getenv(envOverride); p != "" {
		return p
	}
	if os.Geteuid() == 0 {
		return filepath.Join("/", "var", "run", processName+".pid")
	}
	return filepath.Join("/tmp", processName+".pid")
}
