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

	"github.com/pkg/errors"
)

// InitError is returned from scanner construction: zone-info parsing
// failure, age-array allocation failure, or mount-point lookup failure.
// It is always fatal; the scanner that returns it is unusable.
type InitError struct {
	Op    string
	cause error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("idlescan: init failed (%s): %s", e.Op, e.cause)
}

func (e *InitError) Unwrap() error { return e.cause }

func newInitError(op string, cause error) *InitError {
	return &InitError{Op: op, cause: errors.WithStack(cause)}
}

// IOError is returned whenever an open/seek/read/write against one of
// the three kernel pseudo-files fails or returns short. It names the
// path, the byte offset, and the requested size so a caller can log
// enough to diagnose a permissions or kernel-support problem. The
// current iteration's partial progress (counters updated, ages
// touched) is not rolled back; callers are expected to abandon and
// restart the sweep.
type IOError struct {
	Path   string
	Offset int64
	Size   int
	cause  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("idlescan: i/o error on %s at offset %d (size %d): %s",
		e.Path, e.Offset, e.Size, e.cause)
}

func (e *IOError) Unwrap() error { return e.cause }

func newIOError(path string, offset int64, size int, cause error) *IOError {
	return &IOError{Path: path, Offset: offset, Size: size, cause: errors.WithStack(cause)}
}

// ConfigError is returned by SetSampling/SetSamplingRatio when the
// argument is out of range.
type ConfigError struct {
	msg string
}

func (e *ConfigError) Error() string { return "idlescan: " + e.msg }

func newConfigError(format string, args ...interface{}) *ConfigError {
	return &ConfigError{msg: fmt.Sprintf(format, args...)}
}
