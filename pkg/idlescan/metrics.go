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
	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metric descriptor indices, following the layout of
// pkg/cgroupstats/collector.go in the teacher repository.
const (
	endPFNDesc = iota
	nrItersDesc
	iterationsRunDesc
	sweepsCompletedDesc
	lastIterationSecondsDesc
	numDescriptors
)

var descriptors = [numDescriptors]*prometheus.Desc{
	endPFNDesc: prometheus.NewDesc(
		"idlescan_end_pfn", "Highest page frame number discovered from zone-info.", nil, nil),
	nrItersDesc: prometheus.NewDesc(
		"idlescan_nr_iterations", "Iterations per full sweep at the active sampling rate.", nil, nil),
	iterationsRunDesc: prometheus.NewDesc(
		"idlescan_iterations_run_total", "Iterations executed since scanner start.", nil, nil),
	sweepsCompletedDesc: prometheus.NewDesc(
		"idlescan_sweeps_completed_total", "Full sweeps completed since scanner start.", nil, nil),
	lastIterationSecondsDesc: prometheus.NewDesc(
		"idlescan_last_iteration_seconds", "Wall time taken by the most recent iteration.", nil, nil),
}

// Collector exports a Scanner's operational telemetry as Prometheus
// metrics. The Scanner itself stays free of any metrics dependency;
// Collector only reads its Stats() snapshot.
type Collector struct {
	scanner *Scanner
}

// NewCollector wraps scanner for Prometheus registration.
func NewCollector(scanner *Scanner) *Collector {
	return &Collector{scanner: scanner}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range descriptors {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	stats := c.scanner.Stats()
	ch <- prometheus.MustNewConstMetric(descriptors[endPFNDesc], prometheus.GaugeValue, float64(stats.EndPFN))
	ch <- prometheus.MustNewConstMetric(descriptors[nrItersDesc], prometheus.GaugeValue, float64(stats.NrIters))
	ch <- prometheus.MustNewConstMetric(descriptors[iterationsRunDesc], prometheus.CounterValue, float64(stats.IterationsRun))
	ch <- prometheus.MustNewConstMetric(descriptors[sweepsCompletedDesc], prometheus.CounterValue, float64(stats.SweepsCompleted))
	ch <- prometheus.MustNewConstMetric(descriptors[lastIterationSecondsDesc], prometheus.GaugeValue, stats.LastIterationTook.Seconds())
}
