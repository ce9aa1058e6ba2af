// Copyright (c) 2026, The Cogrid Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rl

import (
	"testing"

	"github.com/cogrid/cogrid/cogrid"
	"github.com/cogrid/cogrid/grid"
)

func TestHistoryRing(t *testing.T) {
	var h History
	descs := []cogrid.VisibleLayerDesc{{Size: grid.Int3{2, 2, 4}, Radius: 1}}
	h.Init(3, grid.Int3{2, 2, 4}, descs, true)

	if h.Len() != 0 {
		t.Fatalf("fresh ring Len = %d", h.Len())
	}
	for i := range h.Samples {
		s := &h.Samples[i]
		if len(s.VisibleCs) != 1 || len(s.VisibleCs[0]) != 4 || len(s.HiddenCs) != 4 || len(s.FeedBackCs) != 4 {
			t.Fatalf("slot %d not pre-allocated", i)
		}
	}

	// fill past capacity; each sample marked by its insertion number
	for i := 0; i < 5; i++ {
		s := h.Push()
		s.Reward = float32(i)
		s.HiddenCs[0] = int32(i)
	}
	if h.Len() != 3 {
		t.Fatalf("ring Len = %d after 5 pushes, want 3", h.Len())
	}
	// oldest-first order must be insertion numbers 2, 3, 4
	for i := 0; i < 3; i++ {
		if h.At(i).Reward != float32(i+2) || h.At(i).HiddenCs[0] != int32(i+2) {
			t.Errorf("At(%d) = sample %v, want %d", i, h.At(i).Reward, i+2)
		}
	}
}

func TestHistoryNoFeedBack(t *testing.T) {
	var h History
	descs := []cogrid.VisibleLayerDesc{{Size: grid.Int3{1, 1, 2}, Radius: 0}}
	h.Init(2, grid.Int3{1, 1, 2}, descs, false)
	for i := range h.Samples {
		if h.Samples[i].FeedBackCs != nil {
			t.Errorf("slot %d has a feedback lattice", i)
		}
	}
}

func TestHistoryPushReusesSlots(t *testing.T) {
	var h History
	descs := []cogrid.VisibleLayerDesc{{Size: grid.Int3{1, 1, 2}, Radius: 0}}
	h.Init(2, grid.Int3{1, 1, 2}, descs, false)
	a := h.Push()
	b := h.Push()
	c := h.Push() // evicts a's slot
	if c != a {
		t.Errorf("eviction did not reuse the oldest slot")
	}
	if h.At(0) != b || h.At(1) != c {
		t.Errorf("ring order wrong after eviction")
	}
}
