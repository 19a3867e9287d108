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
	"context"
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// GuestInfo is the enumeration record for one VE (container or VM):
// the identity and resource grants a guarantee/limit manager needs
// alongside this daemon's working-set estimate.
type GuestInfo struct {
	ID          string
	CgroupPath  string
	RAMBytes    uint64
	SwapBytes   uint64
	VRAMBytes   uint64
	NUMANode    int
	CPUs        []int
	Guarantee   float64
}

// Limit is one service's configured memory guarantee/limit pair, as
// loaded by a ServiceLimits implementation.
type Limit struct {
	GuaranteeBytes uint64
	LimitBytes     uint64
}

// GuestRegistrar reports per-VE working-set estimates to the external
// service that owns guarantee/limit decisions. This repo does not
// implement that service; it only defines the contract and ships a
// gRPC-transport client plus a no-op stand-in.
type GuestRegistrar interface {
	RegisterGuest(ctx context.Context, guest GuestInfo) error
	ReportWorkingSet(ctx context.Context, cgroupPath string, anon, file IdleHistogram) error
}

// VEEnumerator lists the VEs currently running on the host. The real
// implementation inspects libvirt/systemd/container runtimes; this
// repo only consumes its output.
type VEEnumerator interface {
	List(ctx context.Context) ([]GuestInfo, error)
}

// ServiceLimits loads per-service memory limits from an external
// configuration source.
type ServiceLimits interface {
	Load(path string) (map[string]Limit, error)
}

// NoopRegistrar is a GuestRegistrar that only logs, so the daemon
// links and runs standalone without a real registrar endpoint wired
// in.
type NoopRegistrar struct{}

func (NoopRegistrar) RegisterGuest(_ context.Context, guest GuestInfo) error {
	log.Infof("registrar: would register guest %s (cgroup %s)", guest.ID, guest.CgroupPath)
	return nil
}

func (NoopRegistrar) ReportWorkingSet(_ context.Context, cgroupPath string, anon, file IdleHistogram) error {
	log.Debugf("registrar: would report working set for %s: anon total=%d file total=%d",
		cgroupPath, anon[0], file[0])
	return nil
}

// FileServiceLimits is the illustrative ServiceLimits implementation:
// it reads a flat JSON object mapping service name to a
// {guaranteeBytes, limitBytes} pair. The real service's limits config
// format belongs to the external daemon this repo does not own; this
// is only enough to let Config.ServiceLimitsPath resolve to something
// that compiles and runs standalone.
type FileServiceLimits struct{}

func (FileServiceLimits) Load(path string) (map[string]Limit, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading service limits %s", path)
	}
	var parsed map[string]struct {
		GuaranteeBytes uint64 `json:"guaranteeBytes"`
		LimitBytes     uint64 `json:"limitBytes"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, errors.Wrapf(err, "parsing service limits %s", path)
	}
	limits := make(map[string]Limit, len(parsed))
	for name, v := range parsed {
		limits[name] = Limit{GuaranteeBytes: v.GuaranteeBytes, LimitBytes: v.LimitBytes}
	}
	return limits, nil
}

// NoopVEEnumerator is the illustrative VEEnumerator implementation: it
// reports no guests. The real enumerator inspects running VMs/
// containers and is owned by the orchestration layer around this
// scanner, per spec's Out-of-scope list.
type NoopVEEnumerator struct{}

func (NoopVEEnumerator) List(_ context.Context) ([]GuestInfo, error) {
	return nil, nil
}
