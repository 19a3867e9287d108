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
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the daemon's on-disk configuration, unmarshaled from YAML
// following cmd/memtierd/main.go's loadConfigFile in the teacher.
type Config struct {
	// Sweep holds the scanner's batching/sampling tunables.
	Sweep SweepConfig `yaml:"sweep"`
	// SweepInterval is how long the daemon sleeps between Iterate
	// calls once a sweep completes.
	SweepInterval time.Duration `yaml:"sweepInterval"`
	// MetricsListen is the address the Prometheus handler binds to.
	// Empty disables the metrics server.
	MetricsListen string `yaml:"metricsListen"`
	// ServiceLimitsPath points at the JSON file a ServiceLimits
	// implementation loads. Empty disables limits loading.
	ServiceLimitsPath string `yaml:"serviceLimitsPath"`
	// CgroupMountOverride, if set, is used instead of discovering the
	// memory cgroup mount point from /proc/mounts.
	CgroupMountOverride string `yaml:"cgroupMountOverride"`
	// Debug turns on debug-level logging.
	Debug bool `yaml:"debug"`
}

// DefaultConfig returns a Config with the scanner's suggested
// defaults and a one-minute sweep interval.
func DefaultConfig() Config {
	return Config{
		Sweep:         DefaultSweepConfig(),
		SweepInterval: time.Minute,
	}
}

// LoadConfig reads and unmarshals a YAML config file, starting from
// DefaultConfig so a partial file only overrides what it sets.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, newConfigError("reading %s: %s", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, newConfigError("parsing %s: %s", path, err)
	}
	if cfg.Sweep.BatchPages == 0 || cfg.Sweep.BatchPages%wordsPerBitmapGroup != 0 {
		return cfg, newConfigError("sweep.batchPages must be a positive multiple of %d", wordsPerBitmapGroup)
	}
	if cfg.Sweep.ScanChunk == 0 {
		return cfg, newConfigError("sweep.scanChunk must be positive")
	}
	return cfg, nil
}

// Paths returns the scanner's kernel-pseudo-file locations, applying
// CgroupMountOverride directly to skip /proc/mounts discovery when set.
func (c Config) Paths() Paths {
	p := DefaultPaths()
	p.MountPointOverride = c.CgroupMountOverride
	return p
}
