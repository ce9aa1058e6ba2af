// Copyright (c) 2026, The Cogrid Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cogrid

import (
	"encoding/binary"
	"io"
	"math/rand"

	"github.com/chewxy/math32"
	"github.com/cogrid/cogrid/grid"
	"github.com/cogrid/cogrid/kernels"
	"github.com/emer/emergent/erand"
)

// Predictor is a single-pass stochastic decoder from sparse codes to a
// target CSDR lattice.  The forward pass accumulates per-symbol activation,
// normalizes by the precomputed per-column synapse count, and samples the
// output symbol from the Boltzmann (softmax) distribution over activations
// -- the one layer whose output is sampled rather than selected greedily.
// Learning is a delta rule toward a caller-supplied one-hot target, using
// the sigmoid of the raw activation as the predicted probability.
type Predictor struct {
	Alpha        float32            `def:"0.1" desc:"learning rate -- 0 makes Learn a silent no-op"`
	WtInit       erand.RndParams    `view:"inline" desc:"initial weight distribution -- narrow uniform around 0"`
	HiddenSize   grid.Int3          `inactive:"+" desc:"hidden (target) lattice size"`
	HiddenCs     []int32            `desc:"sampled prediction per hidden column"`
	HiddenActs   []float32          `view:"-" desc:"count-normalized activation per hidden cell"`
	HiddenCounts []int32            `view:"-" desc:"in-bounds synapse-column count per hidden column, summed over visible layers"`
	Visibles     []VisibleLayer     `desc:"per-input-layer weight store"`
	Descs        []VisibleLayerDesc `desc:"per-input-layer configuration"`

	hiddenCsTmp []int32 // scratch for learn-time forward, so HiddenCs keeps the prediction
}

// Defaults sets default parameters.
func (pr *Predictor) Defaults() {
	pr.Alpha = 0.1
	pr.WtInit.Mean = 0
	pr.WtInit.Var = 0.0001
	pr.WtInit.Dist = erand.Uniform
}

// InitRandom builds the layer state for the given hidden lattice size and
// visible layer configuration, with randomly initialized weights.
// Returns a configuration error for degenerate geometry.
func (pr *Predictor) InitRandom(cs *kernels.ComputeSystem, hiddenSize grid.Int3, descs []VisibleLayerDesc) error {
	if err := ValidateDescs(hiddenSize, descs); err != nil {
		return err
	}
	if pr.WtInit.Dist == 0 && pr.Alpha == 0 {
		pr.Defaults()
	}
	pr.HiddenSize = hiddenSize
	pr.Descs = append([]VisibleLayerDesc{}, descs...)
	pr.Visibles = make([]VisibleLayer, len(descs))
	numCols := hiddenSize.NumColumns()
	pr.HiddenCounts = make([]int32, numCols)
	for vli := range pr.Visibles {
		vl := &pr.Visibles[vli]
		vd := &pr.Descs[vli]
		vl.InitGeom(vd, hiddenSize)
		for i := range vl.Weights {
			vl.Weights[i] = float32(pr.WtInit.Gen(-1))
		}
		for y := 0; y < hiddenSize.Y; y++ {
			for x := 0; x < hiddenSize.X; x++ {
				p := grid.Int2{x, y}
				rf := grid.NewRF(p, vl.HiddenToVisible, vd.Radius, vd.Size)
				pr.HiddenCounts[grid.Addr2(p, hiddenSize.X)] += int32(rf.Count())
			}
		}
	}
	pr.HiddenCs = make([]int32, numCols)
	pr.hiddenCsTmp = make([]int32, numCols)
	pr.HiddenActs = make([]float32, hiddenSize.NumCells())
	return nil
}

// Activate computes activations from the inputs and samples a prediction
// into HiddenCs.
func (pr *Predictor) Activate(cs *kernels.ComputeSystem, visibleCs [][]int32) {
	hsz := grid.Int2{pr.HiddenSize.X, pr.HiddenSize.Y}
	cs.Run2D(hsz, func(p grid.Int2, rng *rand.Rand) {
		pr.forward(p, rng, visibleCs)
	})
	copy(pr.HiddenCs, pr.hiddenCsTmp)
}

// Learn re-computes activations against the given (typically previous-step)
// inputs and applies the delta rule toward targetCs.  Silent no-op when
// Alpha is 0.  The sampled prediction in HiddenCs is left untouched.
func (pr *Predictor) Learn(cs *kernels.ComputeSystem, targetCs []int32, visibleCs [][]int32) {
	if pr.Alpha == 0 {
		return
	}
	hsz := grid.Int2{pr.HiddenSize.X, pr.HiddenSize.Y}
	cs.Run2D(hsz, func(p grid.Int2, rng *rand.Rand) {
		pr.forward(p, rng, visibleCs)
	})
	cs.Run2D(hsz, func(p grid.Int2, rng *rand.Rand) {
		pr.learnCol(p, targetCs, visibleCs)
	})
}

// forward accumulates count-normalized activation for every cell of one
// hidden column and Boltzmann-samples a symbol into the scratch buffer.
// Numerically stabilized by subtracting the column max before
// exponentiating.
func (pr *Predictor) forward(p grid.Int2, rng *rand.Rand, inputs [][]int32) {
	hs := pr.HiddenSize
	ci := grid.Addr2(p, hs.X)
	count := math32.Max(1, float32(pr.HiddenCounts[ci]))
	maxAct := float32(-math32.MaxFloat32)
	for hc := 0; hc < hs.Z; hc++ {
		hi := grid.Addr3(grid.Int3{p.X, p.Y, hc}, hs)
		var sum float32
		for vli := range pr.Visibles {
			vl := &pr.Visibles[vli]
			vd := &pr.Descs[vli]
			rf := grid.NewRF(p, vl.HiddenToVisible, vd.Radius, vd.Size)
			for y := rf.IterLo.Y; y <= rf.IterHi.Y; y++ {
				for x := rf.IterLo.X; x <= rf.IterHi.X; x++ {
					v := grid.Int2{x, y}
					inC := int(inputs[vli][grid.Addr2(v, vd.Size.X)])
					sum += vl.Weights[grid.Addr4(grid.Int4{p.X, p.Y, hc, rf.Offset(v, inC)}, hs)]
				}
			}
		}
		pr.HiddenActs[hi] = sum / count
		maxAct = math32.Max(maxAct, pr.HiddenActs[hi])
	}
	// Boltzmann exploration over the column
	var total float32
	for hc := 0; hc < hs.Z; hc++ {
		hi := grid.Addr3(grid.Int3{p.X, p.Y, hc}, hs)
		total += math32.Exp(pr.HiddenActs[hi] - maxAct)
	}
	cusp := rng.Float32() * total
	var sumSoFar float32
	sel := 0
	for hc := 0; hc < hs.Z; hc++ {
		hi := grid.Addr3(grid.Int3{p.X, p.Y, hc}, hs)
		sumSoFar += math32.Exp(pr.HiddenActs[hi] - maxAct)
		if sumSoFar >= cusp {
			sel = hc
			break
		}
	}
	pr.hiddenCsTmp[ci] = int32(sel)
}

// learnCol applies the delta rule at one hidden column, against the
// activations just computed by forward.
func (pr *Predictor) learnCol(p grid.Int2, targetCs []int32, inputs [][]int32) {
	hs := pr.HiddenSize
	targetC := int(targetCs[grid.Addr2(p, hs.X)])
	for hc := 0; hc < hs.Z; hc++ {
		hi := grid.Addr3(grid.Int3{p.X, p.Y, hc}, hs)
		var target float32
		if hc == targetC {
			target = 1
		}
		delta := pr.Alpha * (target - sigmoid(pr.HiddenActs[hi]))
		for vli := range pr.Visibles {
			vl := &pr.Visibles[vli]
			vd := &pr.Descs[vli]
			rf := grid.NewRF(p, vl.HiddenToVisible, vd.Radius, vd.Size)
			for y := rf.IterLo.Y; y <= rf.IterHi.Y; y++ {
				for x := rf.IterLo.X; x <= rf.IterHi.X; x++ {
					v := grid.Int2{x, y}
					inC := int(inputs[vli][grid.Addr2(v, vd.Size.X)])
					vl.Weights[grid.Addr4(grid.Int4{p.X, p.Y, hc, rf.Offset(v, inC)}, hs)] += delta
				}
			}
		}
	}
}

func sigmoid(x float32) float32 {
	return 1 / (1 + math32.Exp(-x))
}

// WriteTo writes the layer state in the fixed binary field order.
func (pr *Predictor) WriteTo(w io.Writer) error {
	if err := WriteInt3(w, pr.HiddenSize); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, pr.Alpha); err != nil {
		return err
	}
	if err := WriteIntBuffer(w, pr.HiddenCs); err != nil {
		return err
	}
	if err := WriteFloatBuffer(w, pr.HiddenActs); err != nil {
		return err
	}
	if err := WriteIntBuffer(w, pr.HiddenCounts); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, int32(len(pr.Visibles))); err != nil {
		return err
	}
	for vli := range pr.Visibles {
		if err := WriteVisibleLayer(w, &pr.Descs[vli], &pr.Visibles[vli]); err != nil {
			return err
		}
	}
	return nil
}

// ReadFrom reads layer state written by WriteTo.
func (pr *Predictor) ReadFrom(r io.Reader) error {
	var err error
	if pr.HiddenSize, err = ReadInt3(r); err != nil {
		return err
	}
	if err = binary.Read(r, binary.LittleEndian, &pr.Alpha); err != nil {
		return err
	}
	if pr.HiddenCs, err = ReadIntBuffer(r); err != nil {
		return err
	}
	if pr.HiddenActs, err = ReadFloatBuffer(r); err != nil {
		return err
	}
	if pr.HiddenCounts, err = ReadIntBuffer(r); err != nil {
		return err
	}
	pr.hiddenCsTmp = make([]int32, pr.HiddenSize.NumColumns())
	var nvl int32
	if err = binary.Read(r, binary.LittleEndian, &nvl); err != nil {
		return err
	}
	pr.Visibles = make([]VisibleLayer, nvl)
	pr.Descs = make([]VisibleLayerDesc, nvl)
	for vli := range pr.Visibles {
		if err = ReadVisibleLayer(r, &pr.Descs[vli], &pr.Visibles[vli]); err != nil {
			return err
		}
	}
	return nil
}
