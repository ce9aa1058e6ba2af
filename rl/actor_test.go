// Copyright (c) 2026, The Cogrid Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rl

import (
	"bytes"
	"testing"

	"github.com/chewxy/math32"
	"github.com/cogrid/cogrid/cogrid"
	"github.com/cogrid/cogrid/grid"
	"github.com/cogrid/cogrid/kernels"
)

// difTol is the numerical difference tolerance for comparing vals
const difTol = float32(1.0e-6)

func CmprFloats(got, trg []float32, msg string, t *testing.T) {
	t.Helper()
	if len(got) != len(trg) {
		t.Errorf("%v err: len(got) = %d, len(trg) = %d\n", msg, len(got), len(trg))
		return
	}
	for i := range got {
		dif := math32.Abs(got[i] - trg[i])
		if dif > difTol { // allow for small numerical diffs
			t.Errorf("%v err: got: %v, trg: %v, dif: %v\n", msg, got[i], trg[i], dif)
		}
	}
}

func makeActor(t *testing.T, seed int64, capacity int) (*Actor, *kernels.ComputeSystem) {
	t.Helper()
	cs := kernels.NewComputeSystem(1, seed)
	ac := &Actor{}
	ac.Defaults()
	err := ac.InitRandom(cs, grid.Int3{1, 1, 4}, capacity, []cogrid.VisibleLayerDesc{{Size: grid.Int3{1, 1, 2}, Radius: 0}})
	if err != nil {
		t.Fatal(err)
	}
	return ac, cs
}

func TestActorInit(t *testing.T) {
	ac, _ := makeActor(t, 1, 16)
	// single-synapse fields: weights = numHiddenCells * 1 * inputDepth
	if len(ac.Visibles[0].Weights) != 4*2 {
		t.Errorf("weight buffer length = %d, want 8", len(ac.Visibles[0].Weights))
	}
	if ac.HiddenCounts[0] != 1 {
		t.Errorf("hidden count = %d, want 1", ac.HiddenCounts[0])
	}
	for _, w := range ac.Visibles[0].Weights {
		if w > 0 || w < -0.0001 {
			t.Fatalf("initial weight %v outside init range", w)
		}
	}
	cs := kernels.NewComputeSystem(1, 1)
	bad := &Actor{}
	bad.Defaults()
	if err := bad.InitRandom(cs, grid.Int3{1, 1, 4}, 0, []cogrid.VisibleLayerDesc{{Size: grid.Int3{1, 1, 2}, Radius: 0}}); err == nil {
		t.Errorf("zero history capacity not rejected")
	}
}

func TestActorGreedyDeterminism(t *testing.T) {
	ac, cs := makeActor(t, 2, 16)
	// make action 2 the unambiguous argmax for input symbol 0
	ac.Visibles[0].Weights[grid.Addr4(grid.Int4{0, 0, 2, 0}, ac.HiddenSize)] = 1
	in := [][]int32{{0}}
	fb := []int32{0}
	for i := 0; i < 5; i++ {
		ac.Step(cs, in, fb, false)
		if ac.HiddenCs[0] != 2 {
			t.Fatalf("step %d selected %d, want 2", i, ac.HiddenCs[0])
		}
	}
}

func TestActorInsufficientHistoryNoOp(t *testing.T) {
	ac, cs := makeActor(t, 3, 16)
	before := append([]float32{}, ac.Visibles[0].Weights...)
	in := [][]int32{{0}}
	fb := []int32{1}
	// first two steps leave history at 2 samples: learning must not fire
	ac.Step(cs, in, fb, true)
	ac.Step(cs, in, fb, true)
	CmprFloats(ac.Visibles[0].Weights, before, "weights after 2 steps", t)
	// third step crosses the threshold
	ac.Step(cs, in, fb, true)
	same := true
	for i, w := range ac.Visibles[0].Weights {
		if w != before[i] {
			same = false
		}
	}
	if same {
		t.Errorf("weights unchanged after history exceeded 2 samples")
	}
}

func TestActorImprovesOnFixedFeedback(t *testing.T) {
	ac, cs := makeActor(t, 4, 16)
	// start with the rewarded action as the selected one, so replayed pairs
	// score reward 1 and its value must climb monotonically in expectation
	target := 1
	ti := grid.Addr4(grid.Int4{0, 0, target, 0}, ac.HiddenSize)
	ac.Visibles[0].Weights[ti] = 0.001
	in := [][]int32{{0}}
	fb := []int32{int32(target)}

	prev := ac.Visibles[0].Weights[ti]
	rises := 0
	const steps = 50
	for i := 0; i < steps; i++ {
		ac.Step(cs, in, fb, true)
		if ac.HiddenCs[0] != int32(target) {
			t.Fatalf("step %d abandoned the rewarded action", i)
		}
		w := ac.Visibles[0].Weights[ti]
		if w > prev {
			rises++
		}
		prev = w
	}
	if rises < steps*3/4 {
		t.Errorf("rewarded action value rose on %d of %d steps", rises, steps)
	}
	if prev <= 0.001 {
		t.Errorf("rewarded action value did not increase overall: %v", prev)
	}
}

func TestActorReadWrite(t *testing.T) {
	ac, cs := makeActor(t, 5, 8)
	in := [][]int32{{1}}
	fb := []int32{2}
	for i := 0; i < 12; i++ {
		in[0][0] = int32(i % 2)
		ac.Step(cs, in, fb, true)
	}

	var buf bytes.Buffer
	if err := ac.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	saved := append([]byte{}, buf.Bytes()...)

	ac2 := &Actor{}
	if err := ac2.ReadFrom(bytes.NewReader(saved)); err != nil {
		t.Fatal(err)
	}
	if ac2.History.Len() != ac.History.Len() {
		t.Fatalf("reloaded history length %d, want %d", ac2.History.Len(), ac.History.Len())
	}
	for i := 0; i < ac.History.Len(); i++ {
		if ac2.History.At(i).HiddenCs[0] != ac.History.At(i).HiddenCs[0] {
			t.Errorf("history sample %d differs after reload", i)
		}
	}
	CmprFloats(ac2.Visibles[0].Weights, ac.Visibles[0].Weights, "reloaded weights", t)

	var buf2 bytes.Buffer
	if err := ac2.WriteTo(&buf2); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(saved, buf2.Bytes()) {
		t.Errorf("second serialization not bit-identical: %d vs %d bytes", len(saved), buf2.Len())
	}
}
