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

	"google.golang.org/grpc"
)

// registerGuestRequest/workingSetReport are the wire messages for the
// two unary RPCs grpcRegistrar issues. The real registration service's
// proto contract belongs to the external system this repo reports to;
// these are a minimal hand-rolled stand-in so the transport can be
// exercised without vendoring a generated client.
type registerGuestRequest struct {
	Guest GuestInfo
}

type workingSetReport struct {
	CgroupPath string
	Anon, File IdleHistogram
}

type grpcAck struct{}

// grpcRegistrar implements GuestRegistrar over a caller-supplied gRPC
// connection. It issues codec-level unary calls directly against
// grpc.ClientConnInterface rather than through generated stubs.
type grpcRegistrar struct {
	cc grpc.ClientConnInterface
}

// NewGRPCRegistrar wraps an established connection to the external
// guest-registration service.
func NewGRPCRegistrar(cc grpc.ClientConnInterface) GuestRegistrar {
	return &grpcRegistrar{cc: cc}
}

func (r *grpcRegistrar) RegisterGuest(ctx context.Context, guest GuestInfo) error {
	req := &registerGuestRequest{Guest: guest}
	reply := &grpcAck{}
	return r.cc.Invoke(ctx, "/idlescan.GuestRegistrar/RegisterGuest", req, reply)
}

func (r *grpcRegistrar) ReportWorkingSet(ctx context.Context, cgroupPath string, anon, file IdleHistogram) error {
	req := &workingSetReport{CgroupPath: cgroupPath, Anon: anon, File: file}
	reply := &grpcAck{}
	return r.cc.Invoke(ctx, "/idlescan.GuestRegistrar/ReportWorkingSet", req, reply)
}
