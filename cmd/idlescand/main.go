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

package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vzhost/idlescand/pkg/idlescan"
	"github.com/vzhost/idlescand/pkg/pidfile"
)

func exit(format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, fmt.Sprintf("idlescand: "+format+"\n", a...))
	os.Exit(1)
}

func main() {
	idlescan.SetLogger(log.New(os.Stderr, "", 0))

	optConfig := flag.String("config", "", "path to a YAML config file")
	optDebug := flag.Bool("debug", false, "print debug output")
	optMountOverride := flag.String("cgroup-mount", "", "memory cgroup mount point override")
	optPidfile := flag.String("pidfile", "", "PID file path (default: platform-specific, see pidfile.GetPath)")
	flag.Parse()

	if *optPidfile != "" {
		pidfile.SetPath(*optPidfile)
	}
	if owner, err := pidfile.OwnerPid(); err != nil {
		exit("checking pidfile %s: %s", pidfile.GetPath(), err)
	} else if owner != 0 {
		exit("idlescand already running as pid %d (%s)", owner, pidfile.GetPath())
	}
	if err := pidfile.Write(); err != nil {
		exit("writing pidfile: %s", err)
	}
	defer pidfile.Remove()

	cfg := idlescan.DefaultConfig()
	if *optConfig != "" {
		loaded, err := idlescan.LoadConfig(*optConfig)
		if err != nil {
			exit("%s", err)
		}
		cfg = loaded
	}
	if *optDebug {
		cfg.Debug = true
	}
	if *optMountOverride != "" {
		cfg.CgroupMountOverride = *optMountOverride
	}
	idlescan.SetLogDebug(cfg.Debug)

	if cfg.ServiceLimitsPath != "" {
		limits, err := (idlescan.FileServiceLimits{}).Load(cfg.ServiceLimitsPath)
		if err != nil {
			exit("loading service limits: %s", err)
		}
		log.Printf("idlescand: loaded %d service limit(s) from %s", len(limits), cfg.ServiceLimitsPath)
	}

	scanner, err := idlescan.NewScanner(cfg.Paths(), cfg.Sweep)
	if err != nil {
		exit("starting scanner: %s", err)
	}
	defer scanner.Close()

	if cfg.MetricsListen != "" {
		registry := prometheus.NewRegistry()
		registry.MustRegister(idlescan.NewCollector(scanner))
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(cfg.MetricsListen, mux); err != nil {
				log.Printf("idlescand: metrics server: %s", err)
			}
		}()
	}

	var registrar idlescan.GuestRegistrar = idlescan.NoopRegistrar{}
	daemon := idlescan.NewDaemon(scanner, registrar, cfg.SweepInterval)
	if err := daemon.Start(); err != nil {
		exit("starting daemon: %s", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	daemon.Stop()
}
