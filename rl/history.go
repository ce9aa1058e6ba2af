// Copyright (c) 2026, The Cogrid Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rl

import (
	"github.com/cogrid/cogrid/cogrid"
	"github.com/cogrid/cogrid/grid"
)

// HistorySample is a snapshot of one time step: copies of every visible
// input lattice, the action lattice produced that step, the feedback
// lattice (history-replay actor only), and a scalar reward (online
// actor-critic only).  All buffers are pre-allocated at ring construction
// and overwritten in place, never reallocated.
type HistorySample struct {
	VisibleCs  [][]int32 `desc:"copies of the visible input lattices"`
	HiddenCs   []int32   `desc:"action lattice produced at this step"`
	FeedBackCs []int32   `desc:"feedback lattice at this step -- nil when the actor takes scalar rewards"`
	Reward     float32   `desc:"scalar reward at this step -- 0 when the actor takes feedback lattices"`
}

// History is a fixed-capacity circular buffer of step snapshots, kept as
// an index ring over value-type samples: Start is the slot holding the
// oldest sample and N is the number of filled slots.  Samples are
// overwritten in place on insertion; no slot is ever reallocated.
type History struct {
	Samples []HistorySample `desc:"pre-allocated sample slots"`
	Start   int             `inactive:"+" desc:"slot index of the oldest sample"`
	N       int             `inactive:"+" desc:"number of filled slots"`
}

// Init pre-allocates capacity sample slots sized for the given hidden
// lattice and visible layer descriptors.  withFeedBack selects whether
// each slot carries a feedback lattice.
func (h *History) Init(capacity int, hiddenSize grid.Int3, descs []cogrid.VisibleLayerDesc, withFeedBack bool) {
	h.Samples = make([]HistorySample, capacity)
	h.Start = 0
	h.N = 0
	numCols := hiddenSize.NumColumns()
	for i := range h.Samples {
		s := &h.Samples[i]
		s.VisibleCs = make([][]int32, len(descs))
		for vli := range descs {
			s.VisibleCs[vli] = make([]int32, descs[vli].Size.NumColumns())
		}
		s.HiddenCs = make([]int32, numCols)
		if withFeedBack {
			s.FeedBackCs = make([]int32, numCols)
		}
	}
}

// Len returns the number of filled slots.
func (h *History) Len() int {
	return h.N
}

// At returns the i-th filled sample in insertion order: At(0) is the
// oldest, At(Len()-1) the newest.
func (h *History) At(i int) *HistorySample {
	return &h.Samples[(h.Start+i)%len(h.Samples)]
}

// Push returns the slot for a new newest sample, evicting the oldest slot
// for reuse once the ring is at capacity.  The caller fills the returned
// sample in place.
func (h *History) Push() *HistorySample {
	if h.N == len(h.Samples) {
		s := &h.Samples[h.Start]
		h.Start = (h.Start + 1) % len(h.Samples)
		return s
	}
	h.N++
	return h.At(h.N - 1)
}
