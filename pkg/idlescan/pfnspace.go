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
	"os"
	"regexp"
	"strconv"
	"strings"
)

var zoneHeaderRE = regexp.MustCompile(`,\s*zone\s+(\S+)`)

// discoverEndPFN parses a /proc/zoneinfo-formatted file at path and
// returns the highest page frame number any zone spans, i.e.
// max(start_pfn + spanned) across all zones. Overlapping or
// inconsistent zone spans are not rejected: the maximum of the
// candidate ends is taken, same as the source implementation.
func discoverEndPFN(path string) (PFN, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, newInitError("zoneinfo: open "+path, err)
	}
	defer f.Close()

	var endPFN PFN
	var found bool
	var haveSpanned, haveStart bool
	var spanned, start int64

	flush := func() {
		if haveSpanned && haveStart {
			end := PFN(start) + PFN(spanned)
			if end > endPFN {
				endPFN = end
			}
			found = true
		}
		haveSpanned, haveStart = false, false
	}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if zoneHeaderRE.MatchString(line) {
			// A new zone section begins; flush whatever the
			// previous one collected.
			flush()
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		switch fields[0] {
		case "spanned":
			if n, err := strconv.ParseInt(fields[1], 10, 64); err == nil {
				spanned = n
				haveSpanned = true
			}
		case "start_pfn:":
			if n, err := strconv.ParseInt(fields[1], 10, 64); err == nil {
				start = n
				haveStart = true
			}
		}
	}
	flush()
	if err := scanner.Err(); err != nil {
		return 0, newInitError("zoneinfo: read "+path, err)
	}
	if !found {
		return 0, newInitError("zoneinfo: no zone yielded an end", errNoZones)
	}
	return endPFN, nil
}

type zoneinfoError string

func (e zoneinfoError) Error() string { return string(e) }

var errNoZones = zoneinfoError("no zone in /proc/zoneinfo carried both spanned and start_pfn")
