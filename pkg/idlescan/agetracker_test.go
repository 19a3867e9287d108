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

import "testing"

func TestAgeTrackerBumpSaturatesAt255(t *testing.T) {
	a, err := newAgeTracker(128)
	if err != nil {
		t.Fatalf("newAgeTracker: %v", err)
	}
	defer a.Close()

	for i := 0; i < 255; i++ {
		a.Bump(10)
	}
	if got := a.Get(10); got != 255 {
		t.Fatalf("age after 255 bumps = %d, want 255", got)
	}
	prev := a.Bump(10)
	if prev != 255 {
		t.Errorf("Bump at saturation returned previous age %d, want 255", prev)
	}
	if got := a.Get(10); got != 255 {
		t.Errorf("age stays saturated at 255, got %d", got)
	}
}

func TestAgeTrackerBumpReturnsPriorAge(t *testing.T) {
	a, err := newAgeTracker(128)
	if err != nil {
		t.Fatalf("newAgeTracker: %v", err)
	}
	defer a.Close()

	if prev := a.Bump(3); prev != 0 {
		t.Errorf("first bump returned %d, want 0", prev)
	}
	if prev := a.Bump(3); prev != 1 {
		t.Errorf("second bump returned %d, want 1", prev)
	}
	if got := a.Get(3); got != 2 {
		t.Errorf("age = %d, want 2", got)
	}
}

func TestAgeTrackerReset(t *testing.T) {
	a, err := newAgeTracker(128)
	if err != nil {
		t.Fatalf("newAgeTracker: %v", err)
	}
	defer a.Close()

	a.Bump(7)
	a.Bump(7)
	a.Reset(7)
	if got := a.Get(7); got != 0 {
		t.Errorf("age after reset = %d, want 0", got)
	}
}
