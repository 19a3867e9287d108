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
	"time"
)

// Daemon drives a Scanner to completion on a fixed interval and hands
// each sweep's result to a GuestRegistrar. It runs on a single
// goroutine, following TrackerIdlePage.sampler in the teacher: a
// ticker loop with a buffered stop channel, no concurrent access to
// the scanner from anywhere else.
type Daemon struct {
	scanner    *Scanner
	registrar  GuestRegistrar
	interval   time.Duration
	toSampler  chan byte
}

// NewDaemon builds a Daemon around an already-constructed Scanner. The
// Scanner must not be driven by any other caller once Start is called.
func NewDaemon(scanner *Scanner, registrar GuestRegistrar, interval time.Duration) *Daemon {
	if registrar == nil {
		registrar = NoopRegistrar{}
	}
	return &Daemon{scanner: scanner, registrar: registrar, interval: interval}
}

// Start launches the sampling goroutine. Calling Start twice without
// an intervening Stop is an error.
func (d *Daemon) Start() error {
	if d.toSampler != nil {
		return newConfigError("daemon already running")
	}
	d.toSampler = make(chan byte, 1)
	go d.sample()
	return nil
}

// Stop signals the sampling goroutine to exit after its current
// iteration completes.
func (d *Daemon) Stop() {
	if d.toSampler != nil {
		d.toSampler <- 0
	}
}

func (d *Daemon) sample() {
	log.Debugf("idlescan daemon: online")
	defer log.Debugf("idlescan daemon: offline")

	for {
		result, err := d.scanner.Iterate()
		if err != nil {
			log.Errorf("idlescan daemon: iterate: %s", err)
		} else if result == Done {
			d.publish()
		}

		wait := d.interval
		if result == More {
			// Mid-sweep: iterate again promptly rather than
			// waiting a full interval, so a sweep with many
			// iterations still finishes close to schedule.
			wait = 0
		}

		select {
		case <-d.toSampler:
			close(d.toSampler)
			d.toSampler = nil
			return
		case <-time.After(wait):
		}
	}
}

func (d *Daemon) publish() {
	result, err := d.scanner.Result()
	if err != nil {
		log.Errorf("idlescan daemon: result: %s", err)
		return
	}
	ctx := context.Background()
	for path, pair := range result {
		if err := d.registrar.ReportWorkingSet(ctx, path, pair.Anon, pair.File); err != nil {
			log.Warnf("idlescan daemon: report working set for %s: %s", path, err)
		}
	}
}
