// Copyright (c) 2026, The Cogrid Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cogrid

import (
	"bytes"
	"testing"

	"github.com/chewxy/math32"
	"github.com/cogrid/cogrid/grid"
	"github.com/cogrid/cogrid/kernels"
)

func TestPredictorCounts(t *testing.T) {
	cs := kernels.NewComputeSystem(1, 1)
	pr := &Predictor{}
	pr.Defaults()
	err := pr.InitRandom(cs, grid.Int3{4, 4, 8}, []VisibleLayerDesc{{Size: grid.Int3{4, 4, 4}, Radius: 2}})
	if err != nil {
		t.Fatal(err)
	}
	// equal-size lattices, radius 2: a corner column's field is clamped to
	// 3x3, an interior one keeps 5x5 clipped by the far edge
	if pr.HiddenCounts[0] != 9 {
		t.Errorf("corner count = %d, want 9", pr.HiddenCounts[0])
	}
	if pr.HiddenCounts[grid.Addr2(grid.Int2{2, 2}, 4)] != 16 {
		t.Errorf("interior count = %d, want 16", pr.HiddenCounts[grid.Addr2(grid.Int2{2, 2}, 4)])
	}
}

func TestPredictorSamplingDistribution(t *testing.T) {
	cs := kernels.NewComputeSystem(1, 11)
	pr := &Predictor{}
	pr.Defaults()
	err := pr.InitRandom(cs, grid.Int3{1, 1, 3}, []VisibleLayerDesc{{Size: grid.Int3{1, 1, 1}, Radius: 0}})
	if err != nil {
		t.Fatal(err)
	}
	// single synapse per cell: activation = weight, count = 1
	acts := []float32{1, 0, -1}
	copy(pr.Visibles[0].Weights, acts)

	var total float32
	probs := make([]float32, 3)
	for i, a := range acts {
		probs[i] = math32.Exp(a - acts[0])
		total += probs[i]
	}
	for i := range probs {
		probs[i] /= total
	}

	const nSamples = 20000
	in := [][]int32{{0}}
	counts := make([]int, 3)
	for i := 0; i < nSamples; i++ {
		pr.Activate(cs, in)
		counts[pr.HiddenCs[0]]++
	}
	for i := range counts {
		freq := float32(counts[i]) / nSamples
		if math32.Abs(freq-probs[i]) > 0.02 {
			t.Errorf("symbol %d frequency %v, want %v within 0.02", i, freq, probs[i])
		}
	}
}

func TestPredictorZeroAlphaNoOp(t *testing.T) {
	cs := kernels.NewComputeSystem(1, 5)
	pr := &Predictor{}
	pr.Defaults()
	err := pr.InitRandom(cs, grid.Int3{2, 2, 4}, []VisibleLayerDesc{{Size: grid.Int3{2, 2, 4}, Radius: 1}})
	if err != nil {
		t.Fatal(err)
	}
	pr.Alpha = 0
	before := append([]float32{}, pr.Visibles[0].Weights...)
	in := [][]int32{{0, 1, 2, 3}}
	pr.Activate(cs, in)
	pr.Learn(cs, []int32{1, 1, 1, 1}, in)
	CmprFloats(pr.Visibles[0].Weights, before, "zero-alpha weights", t)
}

func TestPredictorLearnsTarget(t *testing.T) {
	cs := kernels.NewComputeSystem(1, 6)
	pr := &Predictor{}
	pr.Defaults()
	err := pr.InitRandom(cs, grid.Int3{2, 2, 4}, []VisibleLayerDesc{{Size: grid.Int3{2, 2, 4}, Radius: 1}})
	if err != nil {
		t.Fatal(err)
	}
	in := [][]int32{{0, 1, 2, 3}}
	target := []int32{2, 0, 3, 1}
	for i := 0; i < 200; i++ {
		pr.Learn(cs, target, in)
	}
	// trained activations should make the target dominate the sample
	hit := 0
	const nSamples = 100
	for i := 0; i < nSamples; i++ {
		pr.Activate(cs, in)
		for ci := range target {
			if pr.HiddenCs[ci] == target[ci] {
				hit++
			}
		}
	}
	frac := float32(hit) / (nSamples * 4)
	if frac < 0.9 {
		t.Errorf("target hit fraction %v after training, want >= 0.9", frac)
	}
}

func TestPredictorSampleSurvivesLearn(t *testing.T) {
	cs := kernels.NewComputeSystem(1, 7)
	pr := &Predictor{}
	pr.Defaults()
	err := pr.InitRandom(cs, grid.Int3{2, 2, 4}, []VisibleLayerDesc{{Size: grid.Int3{2, 2, 4}, Radius: 1}})
	if err != nil {
		t.Fatal(err)
	}
	cur := [][]int32{{0, 1, 2, 3}}
	prev := [][]int32{{3, 2, 1, 0}}
	pr.Activate(cs, cur)
	sampled := append([]int32{}, pr.HiddenCs...)
	// learn-time forward runs against the previous inputs but must not
	// clobber the published prediction
	pr.Learn(cs, []int32{0, 0, 0, 0}, prev)
	CmprInts(pr.HiddenCs, sampled, "prediction after Learn", t)
}

func TestPredictorReadWrite(t *testing.T) {
	cs := kernels.NewComputeSystem(1, 8)
	pr := &Predictor{}
	pr.Defaults()
	err := pr.InitRandom(cs, grid.Int3{2, 2, 4}, []VisibleLayerDesc{{Size: grid.Int3{2, 2, 4}, Radius: 1}})
	if err != nil {
		t.Fatal(err)
	}
	in := [][]int32{{0, 1, 2, 3}}
	pr.Activate(cs, in)
	pr.Learn(cs, []int32{1, 2, 3, 0}, in)

	var buf bytes.Buffer
	if err := pr.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	saved := append([]byte{}, buf.Bytes()...)

	pr2 := &Predictor{}
	if err := pr2.ReadFrom(bytes.NewReader(saved)); err != nil {
		t.Fatal(err)
	}
	CmprInts(pr2.HiddenCs, pr.HiddenCs, "reloaded prediction", t)
	CmprInts(pr2.HiddenCounts, pr.HiddenCounts, "reloaded counts", t)
	CmprFloats(pr2.Visibles[0].Weights, pr.Visibles[0].Weights, "reloaded weights", t)

	var buf2 bytes.Buffer
	if err := pr2.WriteTo(&buf2); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(saved, buf2.Bytes()) {
		t.Errorf("second serialization not bit-identical: %d vs %d bytes", len(saved), buf2.Len())
	}
}
