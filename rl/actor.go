// Copyright (c) 2026, The Cogrid Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rl

import (
	"encoding/binary"
	"fmt"
	"io"
	"math/rand"

	"github.com/chewxy/math32"
	"github.com/cogrid/cogrid/cogrid"
	"github.com/cogrid/cogrid/grid"
	"github.com/cogrid/cogrid/kernels"
	"github.com/emer/emergent/erand"
)

// Actor is the history-replay advantage-learning decision layer.  The
// forward pass selects actions greedily from accumulated activation, with
// no exploration noise.  Each step inserts a snapshot of (inputs, action,
// feedback) into a fixed-capacity ring; learning replays HistoryIters
// uniformly-random adjacent sample pairs, scoring each with a symbolic
// reward (1 when the recorded action matches the feedback lattice) and
// applying a persistence-corrected advantage (PAL) Q-learning update to
// the synapses of the recorded action only.  The PAL correction widens
// the action gap to stabilize learning under overlapping receptive
// fields.
type Actor struct {
	Alpha        float32                   `def:"0.01" desc:"learning rate on the advantage delta"`
	Gamma        float32                   `def:"0.99" desc:"reward discount factor"`
	Gap          float32                   `def:"0.5" desc:"action-gap scaling for the advantage correction"`
	HistoryIters int                       `def:"8" desc:"number of random adjacent sample pairs replayed per learning step"`
	WtInit       erand.RndParams           `view:"inline" desc:"initial weight distribution -- narrow uniform just below 0"`
	HiddenSize   grid.Int3                 `inactive:"+" desc:"action lattice size"`
	HiddenCs     []int32                   `desc:"selected action per hidden column"`
	HiddenCounts []int32                   `view:"-" desc:"in-bounds synapse-column count per hidden column, summed over visible layers"`
	Visibles     []cogrid.VisibleLayer     `desc:"per-input-layer weight store"`
	Descs        []cogrid.VisibleLayerDesc `desc:"per-input-layer configuration"`
	History      History                   `view:"-" desc:"ring of step snapshots for replay"`
}

// Defaults sets default parameters.
func (ac *Actor) Defaults() {
	ac.Alpha = 0.01
	ac.Gamma = 0.99
	ac.Gap = 0.5
	ac.HistoryIters = 8
	ac.WtInit.Mean = -0.00005
	ac.WtInit.Var = 0.00005
	ac.WtInit.Dist = erand.Uniform
}

// InitRandom builds the layer state for the given action lattice size,
// history capacity, and visible layer configuration, with randomly
// initialized weights.  Returns a configuration error for degenerate
// geometry or non-positive capacity.
func (ac *Actor) InitRandom(cs *kernels.ComputeSystem, hiddenSize grid.Int3, historyCapacity int, descs []cogrid.VisibleLayerDesc) error {
	if err := cogrid.ValidateDescs(hiddenSize, descs); err != nil {
		return err
	}
	if historyCapacity <= 0 {
		return fmt.Errorf("rl.Actor: history capacity must be positive, got %d", historyCapacity)
	}
	if ac.HistoryIters == 0 && ac.Alpha == 0 {
		ac.Defaults()
	}
	ac.HiddenSize = hiddenSize
	ac.Descs = append([]cogrid.VisibleLayerDesc{}, descs...)
	ac.Visibles = make([]cogrid.VisibleLayer, len(descs))
	numCols := hiddenSize.NumColumns()
	ac.HiddenCounts = make([]int32, numCols)
	for vli := range ac.Visibles {
		vl := &ac.Visibles[vli]
		vd := &ac.Descs[vli]
		vl.InitGeom(vd, hiddenSize)
		for i := range vl.Weights {
			vl.Weights[i] = float32(ac.WtInit.Gen(-1))
		}
		for y := 0; y < hiddenSize.Y; y++ {
			for x := 0; x < hiddenSize.X; x++ {
				p := grid.Int2{x, y}
				rf := grid.NewRF(p, vl.HiddenToVisible, vd.Radius, vd.Size)
				ac.HiddenCounts[grid.Addr2(p, hiddenSize.X)] += int32(rf.Count())
			}
		}
	}
	ac.HiddenCs = make([]int32, numCols)
	ac.History.Init(historyCapacity, hiddenSize, descs, true)
	return nil
}

// Step runs one time step: select actions from the current inputs, record
// the (inputs, action, feedback) snapshot, and, when enabled and the
// history holds more than two samples, replay HistoryIters random adjacent
// pairs through the advantage update.  With insufficient history, learning
// is a silent no-op.
func (ac *Actor) Step(cs *kernels.ComputeSystem, visibleCs [][]int32, feedBackCs []int32, learnEnabled bool) {
	hsz := grid.Int2{ac.HiddenSize.X, ac.HiddenSize.Y}
	cs.Run2D(hsz, func(p grid.Int2, rng *rand.Rand) {
		ac.forward(p, visibleCs)
	})

	s := ac.History.Push()
	for vli := range visibleCs {
		copy(s.VisibleCs[vli], visibleCs[vli])
	}
	copy(s.HiddenCs, ac.HiddenCs)
	copy(s.FeedBackCs, feedBackCs)

	if !learnEnabled || ac.History.Len() <= 2 {
		return
	}
	for it := 0; it < ac.HistoryIters; it++ {
		t := cs.Rand.Intn(ac.History.Len() - 1)
		sNext := ac.History.At(t + 1)
		sPrev := ac.History.At(t)
		cs.Run2D(hsz, func(p grid.Int2, rng *rand.Rand) {
			ac.learnCol(p, sNext, sPrev)
		})
	}
}

// forward selects the activation-maximizing action at one hidden column.
// Ties keep the lowest symbol index.
func (ac *Actor) forward(p grid.Int2, inputs [][]int32) {
	hs := ac.HiddenSize
	ci := grid.Addr2(p, hs.X)
	count := math32.Max(1, float32(ac.HiddenCounts[ci]))
	maxIndex := 0
	maxAct := float32(-math32.MaxFloat32)
	for hc := 0; hc < hs.Z; hc++ {
		sum := ac.activation(p, hc, inputs) / count
		if sum > maxAct {
			maxAct = sum
			maxIndex = hc
		}
	}
	ac.HiddenCs[ci] = int32(maxIndex)
}

// activation accumulates the raw (un-normalized) activation of one action
// cell against a set of input lattices.
func (ac *Actor) activation(p grid.Int2, hc int, inputs [][]int32) float32 {
	var sum float32
	for vli := range ac.Visibles {
		vl := &ac.Visibles[vli]
		vd := &ac.Descs[vli]
		rf := grid.NewRF(p, vl.HiddenToVisible, vd.Radius, vd.Size)
		for y := rf.IterLo.Y; y <= rf.IterHi.Y; y++ {
			for x := rf.IterLo.X; x <= rf.IterHi.X; x++ {
				v := grid.Int2{x, y}
				inC := int(inputs[vli][grid.Addr2(v, vd.Size.X)])
				sum += vl.Weights[grid.Addr4(grid.Int4{p.X, p.Y, hc, rf.Offset(v, inC)}, ac.HiddenSize)]
			}
		}
	}
	return sum
}

// learnCol applies the advantage update at one hidden column for a
// replayed pair: sNext supplies the recorded action, feedback, and the
// successor inputs; sPrev supplies the inputs the action was taken from.
func (ac *Actor) learnCol(p grid.Int2, sNext, sPrev *HistorySample) {
	hs := ac.HiddenSize
	ci := grid.Addr2(p, hs.X)
	targetC := int(sNext.HiddenCs[ci])
	count := math32.Max(1, float32(ac.HiddenCounts[ci]))

	maxAct := float32(-math32.MaxFloat32)
	maxActPrev := float32(-math32.MaxFloat32)
	var nextQAction, qAction float32
	for hc := 0; hc < hs.Z; hc++ {
		sum := ac.activation(p, hc, sNext.VisibleCs) / count
		sumPrev := ac.activation(p, hc, sPrev.VisibleCs) / count
		maxAct = math32.Max(maxAct, sum)
		maxActPrev = math32.Max(maxActPrev, sumPrev)
		if hc == targetC {
			nextQAction = sum
			qAction = sumPrev
		}
	}

	var reward float32
	if targetC == int(sNext.FeedBackCs[ci]) {
		reward = 1
	}

	dQ := reward + ac.Gamma*maxAct - qAction
	dAdv := dQ - ac.Gap*(maxActPrev-qAction)
	dPAL := math32.Max(dAdv, dQ-ac.Gap*(maxAct-nextQAction))
	delta := ac.Alpha * dPAL

	for vli := range ac.Visibles {
		vl := &ac.Visibles[vli]
		vd := &ac.Descs[vli]
		rf := grid.NewRF(p, vl.HiddenToVisible, vd.Radius, vd.Size)
		for y := rf.IterLo.Y; y <= rf.IterHi.Y; y++ {
			for x := rf.IterLo.X; x <= rf.IterHi.X; x++ {
				v := grid.Int2{x, y}
				inC := int(sPrev.VisibleCs[vli][grid.Addr2(v, vd.Size.X)])
				vl.Weights[grid.Addr4(grid.Int4{p.X, p.Y, targetC, rf.Offset(v, inC)}, hs)] += delta
			}
		}
	}
}

// WriteTo writes the layer state, including the full history ring, in the
// fixed binary field order.
func (ac *Actor) WriteTo(w io.Writer) error {
	if err := cogrid.WriteInt3(w, ac.HiddenSize); err != nil {
		return err
	}
	for _, f := range []float32{ac.Alpha, ac.Gamma, ac.Gap} {
		if err := binary.Write(w, binary.LittleEndian, f); err != nil {
			return err
		}
	}
	if err := binary.Write(w, binary.LittleEndian, int32(ac.HistoryIters)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, int32(ac.History.Len())); err != nil {
		return err
	}
	if err := cogrid.WriteIntBuffer(w, ac.HiddenCs); err != nil {
		return err
	}
	if err := cogrid.WriteIntBuffer(w, ac.HiddenCounts); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, int32(len(ac.Visibles))); err != nil {
		return err
	}
	for vli := range ac.Visibles {
		if err := cogrid.WriteVisibleLayer(w, &ac.Descs[vli], &ac.Visibles[vli]); err != nil {
			return err
		}
	}
	// Full ring, oldest slot first, unfilled slots included
	hcap := len(ac.History.Samples)
	if err := binary.Write(w, binary.LittleEndian, int32(hcap)); err != nil {
		return err
	}
	for i := 0; i < hcap; i++ {
		s := &ac.History.Samples[(ac.History.Start+i)%hcap]
		for vli := range s.VisibleCs {
			if err := cogrid.WriteIntBuffer(w, s.VisibleCs[vli]); err != nil {
				return err
			}
		}
		if err := cogrid.WriteIntBuffer(w, s.HiddenCs); err != nil {
			return err
		}
		if err := cogrid.WriteIntBuffer(w, s.FeedBackCs); err != nil {
			return err
		}
	}
	return nil
}

// ReadFrom reads layer state written by WriteTo.  The ring is rebuilt with
// the oldest sample at slot 0.
func (ac *Actor) ReadFrom(r io.Reader) error {
	var err error
	if ac.HiddenSize, err = cogrid.ReadInt3(r); err != nil {
		return err
	}
	for _, f := range []*float32{&ac.Alpha, &ac.Gamma, &ac.Gap} {
		if err = binary.Read(r, binary.LittleEndian, f); err != nil {
			return err
		}
	}
	var hiters, hsize int32
	if err = binary.Read(r, binary.LittleEndian, &hiters); err != nil {
		return err
	}
	if err = binary.Read(r, binary.LittleEndian, &hsize); err != nil {
		return err
	}
	ac.HistoryIters = int(hiters)
	if ac.HiddenCs, err = cogrid.ReadIntBuffer(r); err != nil {
		return err
	}
	if ac.HiddenCounts, err = cogrid.ReadIntBuffer(r); err != nil {
		return err
	}
	var nvl int32
	if err = binary.Read(r, binary.LittleEndian, &nvl); err != nil {
		return err
	}
	ac.Visibles = make([]cogrid.VisibleLayer, nvl)
	ac.Descs = make([]cogrid.VisibleLayerDesc, nvl)
	for vli := range ac.Visibles {
		if err = cogrid.ReadVisibleLayer(r, &ac.Descs[vli], &ac.Visibles[vli]); err != nil {
			return err
		}
	}
	var cap32 int32
	if err = binary.Read(r, binary.LittleEndian, &cap32); err != nil {
		return err
	}
	ac.History.Samples = make([]HistorySample, cap32)
	ac.History.Start = 0
	ac.History.N = int(hsize)
	for i := range ac.History.Samples {
		s := &ac.History.Samples[i]
		s.VisibleCs = make([][]int32, nvl)
		for vli := range s.VisibleCs {
			if s.VisibleCs[vli], err = cogrid.ReadIntBuffer(r); err != nil {
				return err
			}
		}
		if s.HiddenCs, err = cogrid.ReadIntBuffer(r); err != nil {
			return err
		}
		if s.FeedBackCs, err = cogrid.ReadIntBuffer(r); err != nil {
			return err
		}
	}
	return nil
}
