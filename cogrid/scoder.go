// Copyright (c) 2026, The Cogrid Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cogrid

import (
	"encoding/binary"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"unsafe"

	"github.com/c2h5oh/datasize"
	"github.com/chewxy/math32"
	"github.com/cogrid/cogrid/grid"
	"github.com/cogrid/cogrid/kernels"
	"github.com/emer/emergent/erand"
)

// SparseCoder is an iterative explaining-away sparse coding layer: it
// encodes one or more input CSDR lattices into a single winner-take-all
// code per hidden column, using learned reconstruction weights.
//
// Each Activate runs exactly ExplainIters iterations of forward encoding
// and backward reconstruction.  Iteration 0 accumulates raw input-driven
// activation; later iterations add the residual (input minus current
// reconstruction), pushing winners toward under-explained alternatives.
// This is a fixed number of coordinate-ascent passes, not a convergence
// loop.  Learn applies a delta rule on the reconstruction means, run once
// per step after the iterations.
type SparseCoder struct {
	Alpha        float32            `def:"0.1" desc:"learning rate on reconstruction weights"`
	ExplainIters int                `def:"4" desc:"number of explaining-away iterations per Activate"`
	WtInit       erand.RndParams    `view:"inline" desc:"initial weight distribution -- narrow uniform just below 1 so an untrained layer reconstructs indifferently"`
	HiddenSize   grid.Int3          `inactive:"+" desc:"hidden lattice size"`
	HiddenCs     []int32            `desc:"active symbol per hidden column -- the output code, overwritten each Activate"`
	HiddenActs   []float32          `view:"-" desc:"accumulated activation per hidden cell -- carried across iterations within one Activate only"`
	Visibles     []VisibleLayer     `desc:"per-input-layer weight store"`
	Descs        []VisibleLayerDesc `desc:"per-input-layer configuration"`
}

// Defaults sets default parameters.
func (sc *SparseCoder) Defaults() {
	sc.Alpha = 0.1
	sc.ExplainIters = 4
	sc.WtInit.Mean = 0.995
	sc.WtInit.Var = 0.005
	sc.WtInit.Dist = erand.Uniform
}

// InitRandom builds the layer state for the given hidden lattice size and
// visible layer configuration, with randomly initialized weights.
// Returns a configuration error for degenerate geometry.
func (sc *SparseCoder) InitRandom(cs *kernels.ComputeSystem, hiddenSize grid.Int3, descs []VisibleLayerDesc) error {
	if err := ValidateDescs(hiddenSize, descs); err != nil {
		return err
	}
	if sc.ExplainIters <= 0 {
		sc.Defaults()
	}
	sc.HiddenSize = hiddenSize
	sc.Descs = append([]VisibleLayerDesc{}, descs...)
	sc.Visibles = make([]VisibleLayer, len(descs))
	for vli := range sc.Visibles {
		vl := &sc.Visibles[vli]
		vd := &sc.Descs[vli]
		vl.InitGeom(vd, hiddenSize)
		for i := range vl.Weights {
			vl.Weights[i] = float32(sc.WtInit.Gen(-1))
		}
		vl.ReconCs = make([]int32, vd.Size.NumColumns())
	}
	sc.HiddenCs = make([]int32, hiddenSize.NumColumns())
	sc.HiddenActs = make([]float32, hiddenSize.NumCells())
	return nil
}

// Activate performs sparse coding on the given input lattices (one []int32
// per visible layer, borrowed read-only), leaving the resulting code in
// HiddenCs.  Deterministic given fixed weights and inputs.
func (sc *SparseCoder) Activate(cs *kernels.ComputeSystem, visibleCs [][]int32) {
	hsz := grid.Int2{sc.HiddenSize.X, sc.HiddenSize.Y}
	for it := 0; it < sc.ExplainIters; it++ {
		first := it == 0
		cs.Run2D(hsz, func(p grid.Int2, rng *rand.Rand) {
			sc.forward(p, visibleCs, first)
		})
		for vli := range sc.Visibles {
			vli := vli
			vd := &sc.Descs[vli]
			cs.Run2D(grid.Int2{vd.Size.X, vd.Size.Y}, func(p grid.Int2, rng *rand.Rand) {
				sc.backward(p, vli)
			})
		}
	}
}

// Learn updates the reconstruction weights toward the observed inputs,
// using the code currently in HiddenCs.  Call after Activate, once per step.
func (sc *SparseCoder) Learn(cs *kernels.ComputeSystem, visibleCs [][]int32) {
	for vli := range sc.Visibles {
		vli := vli
		vd := &sc.Descs[vli]
		cs.Run2D(grid.Int2{vd.Size.X, vd.Size.Y}, func(p grid.Int2, rng *rand.Rand) {
			sc.learnCol(p, visibleCs, vli)
		})
	}
}

// Step activates and then optionally learns -- the standard per-time-step
// call.
func (sc *SparseCoder) Step(cs *kernels.ComputeSystem, visibleCs [][]int32, learn bool) {
	sc.Activate(cs, visibleCs)
	if learn {
		sc.Learn(cs, visibleCs)
	}
}

// forward accumulates input-driven (and, after iteration 0, reconstruction
// residual) activation for every cell of one hidden column, and selects the
// winning symbol by running max (ties break to the lowest index).
func (sc *SparseCoder) forward(p grid.Int2, inputs [][]int32, first bool) {
	hs := sc.HiddenSize
	maxIdx := 0
	maxVal := float32(-math32.MaxFloat32)
	for hc := 0; hc < hs.Z; hc++ {
		hi := grid.Addr3(grid.Int3{p.X, p.Y, hc}, hs)
		var inAct, reconAct float32
		for vli := range sc.Visibles {
			vl := &sc.Visibles[vli]
			vd := &sc.Descs[vli]
			rf := grid.NewRF(p, vl.HiddenToVisible, vd.Radius, vd.Size)
			for y := rf.IterLo.Y; y <= rf.IterHi.Y; y++ {
				for x := rf.IterLo.X; x <= rf.IterHi.X; x++ {
					v := grid.Int2{x, y}
					vi := grid.Addr2(v, vd.Size.X)
					inC := int(inputs[vli][vi])
					inAct += vl.Weights[grid.Addr4(grid.Int4{p.X, p.Y, hc, rf.Offset(v, inC)}, hs)]
					if !first {
						rc := int(vl.ReconCs[vi])
						reconAct += vl.Weights[grid.Addr4(grid.Int4{p.X, p.Y, hc, rf.Offset(v, rc)}, hs)]
					}
				}
			}
		}
		if first {
			sc.HiddenActs[hi] = inAct
		} else {
			sc.HiddenActs[hi] += inAct - reconAct
		}
		if sc.HiddenActs[hi] > maxVal {
			maxVal = sc.HiddenActs[hi]
			maxIdx = hc
		}
	}
	sc.HiddenCs[grid.Addr2(p, hs.X)] = int32(maxIdx)
}

// backward reconstructs the most consistent input symbol at one visible
// column from the current hidden code: for each candidate symbol, the
// arithmetic mean of weights from every hidden cell whose field contains
// this column (denominator clamped to 1).
func (sc *SparseCoder) backward(p grid.Int2, vli int) {
	vl := &sc.Visibles[vli]
	vd := &sc.Descs[vli]
	hs := sc.HiddenSize
	lo, hi := vl.ReverseBounds(p, hs)
	maxIdx := 0
	maxVal := float32(-math32.MaxFloat32)
	for vc := 0; vc < vd.Size.Z; vc++ {
		var sum, count float32
		for y := lo.Y; y <= hi.Y; y++ {
			for x := lo.X; x <= hi.X; x++ {
				hp := grid.Int2{x, y}
				rf := grid.NewRF(hp, vl.HiddenToVisible, vd.Radius, vd.Size)
				if !rf.Contains(p) {
					continue
				}
				hc := int(sc.HiddenCs[grid.Addr2(hp, hs.X)])
				sum += vl.Weights[grid.Addr4(grid.Int4{hp.X, hp.Y, hc, rf.Offset(p, vc)}, hs)]
				count++
			}
		}
		sum /= math32.Max(1, count)
		if sum > maxVal {
			maxVal = sum
			maxIdx = vc
		}
	}
	vl.ReconCs[grid.Addr2(p, vd.Size.X)] = int32(maxIdx)
}

// learnCol applies the delta rule at one visible column: target 1 for the
// observed input symbol and 0 otherwise, against the reverse mean
// activation, with the delta written to exactly the synapses that
// contributed to the mean.
func (sc *SparseCoder) learnCol(p grid.Int2, inputs [][]int32, vli int) {
	vl := &sc.Visibles[vli]
	vd := &sc.Descs[vli]
	hs := sc.HiddenSize
	inC := int(inputs[vli][grid.Addr2(p, vd.Size.X)])
	lo, hi := vl.ReverseBounds(p, hs)
	for vc := 0; vc < vd.Size.Z; vc++ {
		var sum, count float32
		for y := lo.Y; y <= hi.Y; y++ {
			for x := lo.X; x <= hi.X; x++ {
				hp := grid.Int2{x, y}
				rf := grid.NewRF(hp, vl.HiddenToVisible, vd.Radius, vd.Size)
				if !rf.Contains(p) {
					continue
				}
				hc := int(sc.HiddenCs[grid.Addr2(hp, hs.X)])
				sum += vl.Weights[grid.Addr4(grid.Int4{hp.X, hp.Y, hc, rf.Offset(p, vc)}, hs)]
				count++
			}
		}
		var target float32
		if vc == inC {
			target = 1
		}
		delta := sc.Alpha * (target - sum/math32.Max(1, count))
		for y := lo.Y; y <= hi.Y; y++ {
			for x := lo.X; x <= hi.X; x++ {
				hp := grid.Int2{x, y}
				rf := grid.NewRF(hp, vl.HiddenToVisible, vd.Radius, vd.Size)
				if !rf.Contains(p) {
					continue
				}
				hc := int(sc.HiddenCs[grid.Addr2(hp, hs.X)])
				vl.Weights[grid.Addr4(grid.Int4{hp.X, hp.Y, hc, rf.Offset(p, vc)}, hs)] += delta
			}
		}
	}
}

// WriteTo writes the layer state in the fixed binary field order:
// hidden size, hyperparameters, hidden code, then per-visible-layer blocks.
func (sc *SparseCoder) WriteTo(w io.Writer) error {
	if err := WriteInt3(w, sc.HiddenSize); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, sc.Alpha); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, int32(sc.ExplainIters)); err != nil {
		return err
	}
	if err := WriteIntBuffer(w, sc.HiddenCs); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, int32(len(sc.Visibles))); err != nil {
		return err
	}
	for vli := range sc.Visibles {
		if err := WriteVisibleLayer(w, &sc.Descs[vli], &sc.Visibles[vli]); err != nil {
			return err
		}
	}
	return nil
}

// ReadFrom reads layer state written by WriteTo, rebuilding the transient
// activation and reconstruction buffers.
func (sc *SparseCoder) ReadFrom(r io.Reader) error {
	var err error
	if sc.HiddenSize, err = ReadInt3(r); err != nil {
		return err
	}
	if err = binary.Read(r, binary.LittleEndian, &sc.Alpha); err != nil {
		return err
	}
	var iters int32
	if err = binary.Read(r, binary.LittleEndian, &iters); err != nil {
		return err
	}
	sc.ExplainIters = int(iters)
	if sc.HiddenCs, err = ReadIntBuffer(r); err != nil {
		return err
	}
	sc.HiddenActs = make([]float32, sc.HiddenSize.NumCells())
	var nvl int32
	if err = binary.Read(r, binary.LittleEndian, &nvl); err != nil {
		return err
	}
	sc.Visibles = make([]VisibleLayer, nvl)
	sc.Descs = make([]VisibleLayerDesc, nvl)
	for vli := range sc.Visibles {
		if err = ReadVisibleLayer(r, &sc.Descs[vli], &sc.Visibles[vli]); err != nil {
			return err
		}
		sc.Visibles[vli].ReconCs = make([]int32, sc.Descs[vli].Size.NumColumns())
	}
	return nil
}

// SizeReport returns a string reporting the memory footprint of the layer's
// buffers, weights dominating.
func (sc *SparseCoder) SizeReport() string {
	var b strings.Builder
	wmem := 0
	for vli := range sc.Visibles {
		vm := len(sc.Visibles[vli].Weights) * int(unsafe.Sizeof(float32(0)))
		wmem += vm
		fmt.Fprintf(&b, "\tvisible %d:\t Weights: %d\t WtMem: %v\n", vli, len(sc.Visibles[vli].Weights), (datasize.ByteSize)(vm).HumanReadable())
	}
	hmem := len(sc.HiddenCs)*4 + len(sc.HiddenActs)*4
	fmt.Fprintf(&b, "SparseCoder:\t Columns: %d\t Cells: %d\t HidMem: %v\t WtMem: %v\n", sc.HiddenSize.NumColumns(), sc.HiddenSize.NumCells(), (datasize.ByteSize)(hmem).HumanReadable(), (datasize.ByteSize)(wmem).HumanReadable())
	return b.String()
}
