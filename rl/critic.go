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
	"github.com/goki/ki/kit"
	"github.com/goki/mat32"
)

// ExploreType selects the exploration policy of an action-selecting layer.
type ExploreType int32

//go:generate stringer -type=ExploreType

var KiT_ExploreType = kit.Enums.AddEnum(ExploreTypeN, kit.NotBitFlag, nil)

func (ev ExploreType) MarshalJSON() ([]byte, error)  { return kit.EnumMarshalJSON(ev) }
func (ev *ExploreType) UnmarshalJSON(b []byte) error { return kit.EnumUnmarshalJSON(ev, b) }

const (
	// Greedy always selects the activation-maximizing symbol.
	Greedy ExploreType = iota

	// EpsGreedy selects a uniform-random symbol with probability Epsilon,
	// else the activation-maximizing symbol.
	EpsGreedy

	ExploreTypeN
)

// CriticVisible is the per-input-layer state of a CriticActor: two weight
// planes over the same receptive-field footprint.  The value plane holds
// one weight per (hidden column, offset) and is shared by every symbol of
// the column; the action plane holds one weight per (hidden cell, offset).
type CriticVisible struct {
	ValueWeights    []float32  `view:"-" desc:"state-value weights: length = numHiddenColumns * diam^2 * inputColumnDepth"`
	ActionWeights   []float32  `view:"-" desc:"action-preference weights: length = numHiddenCells * diam^2 * inputColumnDepth"`
	HiddenToVisible mat32.Vec2 `inactive:"+" desc:"projection scale from hidden to visible lattice coordinates"`
}

// CriticActor is the online TD(0) actor-critic decision layer.  Unlike
// Actor it takes a scalar reward, explores (optionally) by epsilon-greedy
// draw, and learns once per step rather than by replay: the temporal
// difference between the discounted reward sum over the pending history
// window plus the current value estimate, and the value estimate recorded
// for the oldest pending sample.  Value weights move by Alpha times the
// TD error; action weights of the action taken move by the raw TD error.
// The asymmetry is intentional: the action plane integrates preference at
// unit rate while the value plane tracks slowly.
type CriticActor struct {
	Alpha        float32                   `def:"0.05" desc:"value-plane learning rate -- the action plane uses the raw TD error"`
	Gamma        float32                   `def:"0.9" desc:"reward discount factor"`
	Epsilon      float32                   `def:"0.02" desc:"random-action probability for EpsGreedy exploration"`
	Explore      ExploreType               `desc:"exploration policy for action selection"`
	WtInit       erand.RndParams           `view:"inline" desc:"initial action weight distribution -- value weights start at 0"`
	HiddenSize   grid.Int3                 `inactive:"+" desc:"action lattice size"`
	HiddenCs     []int32                   `desc:"selected action per hidden column"`
	HiddenValues []float32                 `desc:"state-value estimate per hidden column"`
	Visibles     []CriticVisible           `desc:"per-input-layer weight store"`
	Descs        []cogrid.VisibleLayerDesc `desc:"per-input-layer configuration"`
	History      History                   `view:"-" desc:"pending step snapshots for the discounted reward window"`
}

// Defaults sets default parameters.
func (ca *CriticActor) Defaults() {
	ca.Alpha = 0.05
	ca.Gamma = 0.9
	ca.Epsilon = 0.02
	ca.Explore = EpsGreedy
	ca.WtInit.Mean = 0
	ca.WtInit.Var = 0.0001
	ca.WtInit.Dist = erand.Uniform
}

// InitRandom builds the layer state for the given action lattice size,
// history capacity, and visible layer configuration.  Action weights are
// randomly initialized; value weights start at zero.
func (ca *CriticActor) InitRandom(cs *kernels.ComputeSystem, hiddenSize grid.Int3, historyCapacity int, descs []cogrid.VisibleLayerDesc) error {
	if err := cogrid.ValidateDescs(hiddenSize, descs); err != nil {
		return err
	}
	if historyCapacity <= 0 {
		return fmt.Errorf("rl.CriticActor: history capacity must be positive, got %d", historyCapacity)
	}
	if ca.Alpha == 0 && ca.Gamma == 0 {
		ca.Defaults()
	}
	ca.HiddenSize = hiddenSize
	ca.Descs = append([]cogrid.VisibleLayerDesc{}, descs...)
	ca.Visibles = make([]CriticVisible, len(descs))
	numCols := hiddenSize.NumColumns()
	numCells := hiddenSize.NumCells()
	for vli := range ca.Visibles {
		vl := &ca.Visibles[vli]
		vd := &ca.Descs[vli]
		vl.HiddenToVisible = grid.Scale(hiddenSize, vd.Size)
		diam := grid.Diam(vd.Radius)
		nwt := diam * diam * vd.Size.Z
		vl.ValueWeights = make([]float32, numCols*nwt)
		vl.ActionWeights = make([]float32, numCells*nwt)
		for i := range vl.ActionWeights {
			vl.ActionWeights[i] = float32(ca.WtInit.Gen(-1))
		}
	}
	ca.HiddenCs = make([]int32, numCols)
	ca.HiddenValues = make([]float32, numCols)
	ca.History.Init(historyCapacity, hiddenSize, descs, false)
	return nil
}

// Step runs one time step: estimate state values and select actions from
// the current inputs, record the (inputs, action, reward) snapshot, and,
// when enabled and more than one sample is pending, apply the TD(0)
// update against the oldest pending sample.  With insufficient history,
// learning is a silent no-op.
func (ca *CriticActor) Step(cs *kernels.ComputeSystem, visibleCs [][]int32, reward float32, learnEnabled bool) {
	hsz := grid.Int2{ca.HiddenSize.X, ca.HiddenSize.Y}
	cs.Run2D(hsz, func(p grid.Int2, rng *rand.Rand) {
		ca.forward(p, rng, visibleCs)
	})

	s := ca.History.Push()
	for vli := range visibleCs {
		copy(s.VisibleCs[vli], visibleCs[vli])
	}
	copy(s.HiddenCs, ca.HiddenCs)
	s.Reward = reward

	if !learnEnabled || ca.History.Len() <= 1 {
		return
	}
	// Discounted return over the pending window, recomputed in full each
	// step, and the residual discount carried by the current value estimate.
	n := ca.History.Len()
	var q float32
	for t := n - 1; t >= 1; t-- {
		q += ca.History.At(t).Reward * math32.Pow(ca.Gamma, float32(t-1))
	}
	g := math32.Pow(ca.Gamma, float32(n-1))
	sPrev := ca.History.At(0)
	cs.Run2D(hsz, func(p grid.Int2, rng *rand.Rand) {
		ca.learnCol(p, sPrev, q, g)
	})
}

// forward computes the count-normalized state value of one hidden column
// and selects its action per the exploration policy.
func (ca *CriticActor) forward(p grid.Int2, rng *rand.Rand, inputs [][]int32) {
	hs := ca.HiddenSize
	ci := grid.Addr2(p, hs.X)

	var value, count float32
	for vli := range ca.Visibles {
		vl := &ca.Visibles[vli]
		vd := &ca.Descs[vli]
		rf := grid.NewRF(p, vl.HiddenToVisible, vd.Radius, vd.Size)
		for y := rf.IterLo.Y; y <= rf.IterHi.Y; y++ {
			for x := rf.IterLo.X; x <= rf.IterHi.X; x++ {
				v := grid.Int2{x, y}
				inC := int(inputs[vli][grid.Addr2(v, vd.Size.X)])
				value += vl.ValueWeights[ca.valueAddr(ci, rf.Offset(v, inC))]
			}
		}
		count += float32(rf.Count())
	}
	count = math32.Max(1, count)
	ca.HiddenValues[ci] = value / count

	if ca.Explore == EpsGreedy && rng.Float32() < ca.Epsilon {
		ca.HiddenCs[ci] = int32(rng.Intn(hs.Z))
		return
	}
	maxIndex := 0
	maxAct := float32(-math32.MaxFloat32)
	for hc := 0; hc < hs.Z; hc++ {
		var act float32
		for vli := range ca.Visibles {
			vl := &ca.Visibles[vli]
			vd := &ca.Descs[vli]
			rf := grid.NewRF(p, vl.HiddenToVisible, vd.Radius, vd.Size)
			for y := rf.IterLo.Y; y <= rf.IterHi.Y; y++ {
				for x := rf.IterLo.X; x <= rf.IterHi.X; x++ {
					v := grid.Int2{x, y}
					inC := int(inputs[vli][grid.Addr2(v, vd.Size.X)])
					act += vl.ActionWeights[grid.Addr4(grid.Int4{p.X, p.Y, hc, rf.Offset(v, inC)}, hs)]
				}
			}
		}
		act /= count
		if act > maxAct {
			maxAct = act
			maxIndex = hc
		}
	}
	ca.HiddenCs[ci] = int32(maxIndex)
}

// learnCol applies the TD(0) update at one hidden column against the
// oldest pending sample.
func (ca *CriticActor) learnCol(p grid.Int2, sPrev *HistorySample, q, g float32) {
	hs := ca.HiddenSize
	ci := grid.Addr2(p, hs.X)

	var valuePrev, count float32
	for vli := range ca.Visibles {
		vl := &ca.Visibles[vli]
		vd := &ca.Descs[vli]
		rf := grid.NewRF(p, vl.HiddenToVisible, vd.Radius, vd.Size)
		for y := rf.IterLo.Y; y <= rf.IterHi.Y; y++ {
			for x := rf.IterLo.X; x <= rf.IterHi.X; x++ {
				v := grid.Int2{x, y}
				inC := int(sPrev.VisibleCs[vli][grid.Addr2(v, vd.Size.X)])
				valuePrev += vl.ValueWeights[ca.valueAddr(ci, rf.Offset(v, inC))]
			}
		}
		count += float32(rf.Count())
	}
	valuePrev /= math32.Max(1, count)

	tdError := q + g*ca.HiddenValues[ci] - valuePrev
	alphaTd := ca.Alpha * tdError

	actionC := int(sPrev.HiddenCs[ci])
	for vli := range ca.Visibles {
		vl := &ca.Visibles[vli]
		vd := &ca.Descs[vli]
		rf := grid.NewRF(p, vl.HiddenToVisible, vd.Radius, vd.Size)
		for y := rf.IterLo.Y; y <= rf.IterHi.Y; y++ {
			for x := rf.IterLo.X; x <= rf.IterHi.X; x++ {
				v := grid.Int2{x, y}
				inC := int(sPrev.VisibleCs[vli][grid.Addr2(v, vd.Size.X)])
				off := rf.Offset(v, inC)
				vl.ValueWeights[ca.valueAddr(ci, off)] += alphaTd
				vl.ActionWeights[grid.Addr4(grid.Int4{p.X, p.Y, actionC, off}, hs)] += tdError
			}
		}
	}
}

// valueAddr returns the flat index into a value weight plane: one plane
// slot per (column, offset), with the offset striding by the column count.
func (ca *CriticActor) valueAddr(ci, off int) int {
	return ci + off*ca.HiddenSize.NumColumns()
}

// WriteTo writes the layer state in the fixed binary field order.  The
// pending history window is not persisted; a reloaded layer starts its
// reward window fresh.
func (ca *CriticActor) WriteTo(w io.Writer) error {
	if err := cogrid.WriteInt3(w, ca.HiddenSize); err != nil {
		return err
	}
	for _, f := range []float32{ca.Alpha, ca.Gamma, ca.Epsilon} {
		if err := binary.Write(w, binary.LittleEndian, f); err != nil {
			return err
		}
	}
	if err := binary.Write(w, binary.LittleEndian, int32(ca.Explore)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, int32(len(ca.History.Samples))); err != nil {
		return err
	}
	if err := cogrid.WriteIntBuffer(w, ca.HiddenCs); err != nil {
		return err
	}
	if err := cogrid.WriteFloatBuffer(w, ca.HiddenValues); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, int32(len(ca.Visibles))); err != nil {
		return err
	}
	for vli := range ca.Visibles {
		vl := &ca.Visibles[vli]
		if err := cogrid.WriteDesc(w, &ca.Descs[vli]); err != nil {
			return err
		}
		if err := cogrid.WriteVec2(w, vl.HiddenToVisible); err != nil {
			return err
		}
		if err := cogrid.WriteFloatBuffer(w, vl.ValueWeights); err != nil {
			return err
		}
		if err := cogrid.WriteFloatBuffer(w, vl.ActionWeights); err != nil {
			return err
		}
	}
	return nil
}

// ReadFrom reads layer state written by WriteTo and resets the pending
// reward window.
func (ca *CriticActor) ReadFrom(r io.Reader) error {
	var err error
	if ca.HiddenSize, err = cogrid.ReadInt3(r); err != nil {
		return err
	}
	for _, f := range []*float32{&ca.Alpha, &ca.Gamma, &ca.Epsilon} {
		if err = binary.Read(r, binary.LittleEndian, f); err != nil {
			return err
		}
	}
	var explore, hcap int32
	if err = binary.Read(r, binary.LittleEndian, &explore); err != nil {
		return err
	}
	ca.Explore = ExploreType(explore)
	if err = binary.Read(r, binary.LittleEndian, &hcap); err != nil {
		return err
	}
	if ca.HiddenCs, err = cogrid.ReadIntBuffer(r); err != nil {
		return err
	}
	if ca.HiddenValues, err = cogrid.ReadFloatBuffer(r); err != nil {
		return err
	}
	var nvl int32
	if err = binary.Read(r, binary.LittleEndian, &nvl); err != nil {
		return err
	}
	ca.Visibles = make([]CriticVisible, nvl)
	ca.Descs = make([]cogrid.VisibleLayerDesc, nvl)
	for vli := range ca.Visibles {
		vl := &ca.Visibles[vli]
		if ca.Descs[vli], err = cogrid.ReadDesc(r); err != nil {
			return err
		}
		if vl.HiddenToVisible, err = cogrid.ReadVec2(r); err != nil {
			return err
		}
		if vl.ValueWeights, err = cogrid.ReadFloatBuffer(r); err != nil {
			return err
		}
		if vl.ActionWeights, err = cogrid.ReadFloatBuffer(r); err != nil {
			return err
		}
	}
	ca.History.Init(int(hcap), ca.HiddenSize, ca.Descs, false)
	return nil
}
