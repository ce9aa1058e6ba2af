// Copyright (c) 2026, The Cogrid Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cogrid

import (
	"fmt"

	"github.com/cogrid/cogrid/grid"
	"github.com/goki/mat32"
)

// VisibleLayerDesc is the immutable per-input-layer configuration: the size
// of the input lattice and the receptive-field radius onto it.  Fixed at
// layer construction; steady-state operations assume inputs match it and
// never re-validate.
type VisibleLayerDesc struct {
	Size   grid.Int3 `desc:"visible lattice size: width, height, column depth"`
	Radius int       `def:"2" min:"0" desc:"receptive field radius onto this layer -- diameter is 2*radius+1"`
}

// Defaults sets default visible layer geometry.
func (vd *VisibleLayerDesc) Defaults() {
	vd.Size = grid.Int3{4, 4, 16}
	vd.Radius = 2
}

// Validate returns a configuration error for degenerate geometry.
// This is the construction-time counterpart of the silent-clamping policy
// used on all steady-state numeric paths.
func (vd *VisibleLayerDesc) Validate() error {
	if vd.Size.X <= 0 || vd.Size.Y <= 0 || vd.Size.Z <= 0 {
		return fmt.Errorf("cogrid.VisibleLayerDesc: size must be positive in all components, got %v", vd.Size)
	}
	if vd.Radius < 0 {
		return fmt.Errorf("cogrid.VisibleLayerDesc: radius must be >= 0, got %d", vd.Radius)
	}
	return nil
}

// ValidateDescs validates the hidden lattice size and every visible layer
// descriptor, for use by layer constructors.
func ValidateDescs(hiddenSize grid.Int3, descs []VisibleLayerDesc) error {
	if hiddenSize.X <= 0 || hiddenSize.Y <= 0 || hiddenSize.Z <= 0 {
		return fmt.Errorf("cogrid: hidden size must be positive in all components, got %v", hiddenSize)
	}
	if len(descs) == 0 {
		return fmt.Errorf("cogrid: at least one visible layer is required")
	}
	for vli := range descs {
		if err := descs[vli].Validate(); err != nil {
			return fmt.Errorf("visible layer %d: %v", vli, err)
		}
	}
	return nil
}

// VisibleLayer is the per-input-layer state of a hidden layer: the sparse
// local-receptive-field weight buffer and the precomputed projection
// constants between the two lattices.  The weight buffer holds exactly one
// value per (hidden cell, receptive-field offset, input symbol) triple,
// indexed by grid.Addr4 -- architectural sparsity from the fixed field
// footprint, not a compressed representation.
type VisibleLayer struct {
	Weights         []float32  `view:"-" desc:"weight buffer: length = numHiddenCells * diam^2 * inputColumnDepth"`
	VisibleToHidden mat32.Vec2 `inactive:"+" desc:"projection scale from visible to hidden lattice coordinates"`
	HiddenToVisible mat32.Vec2 `inactive:"+" desc:"projection scale from hidden to visible lattice coordinates"`
	ReverseRadii    grid.Int2  `inactive:"+" desc:"search radius on the hidden lattice covering all fields that touch a visible column"`
	ReconCs         []int32    `desc:"reconstructed symbol per visible column -- only allocated by layers that reconstruct"`
}

// InitGeom precomputes the projection constants and reverse radii for a
// visible layer feeding a hidden lattice of the given size, and allocates
// the weight buffer (uninitialized).
func (vl *VisibleLayer) InitGeom(vd *VisibleLayerDesc, hiddenSize grid.Int3) {
	vl.VisibleToHidden = grid.Scale(vd.Size, hiddenSize)
	vl.HiddenToVisible = grid.Scale(hiddenSize, vd.Size)
	vl.ReverseRadii = grid.ReverseRadii(vl.VisibleToHidden, vd.Radius)
	diam := grid.Diam(vd.Radius)
	vl.Weights = make([]float32, hiddenSize.NumCells()*diam*diam*vd.Size.Z)
}

// ReverseBounds returns the clamped inclusive iteration bounds on the hidden
// lattice for the reverse (visible to hidden) search around the projection
// of visible position v.
func (vl *VisibleLayer) ReverseBounds(v grid.Int2, hiddenSize grid.Int3) (lo, hi grid.Int2) {
	c := grid.Project(v, vl.VisibleToHidden)
	lo = grid.Int2{grid.MaxInt(0, c.X-vl.ReverseRadii.X), grid.MaxInt(0, c.Y-vl.ReverseRadii.Y)}
	hi = grid.Int2{grid.MinInt(hiddenSize.X-1, c.X+vl.ReverseRadii.X), grid.MinInt(hiddenSize.Y-1, c.Y+vl.ReverseRadii.Y)}
	return
}
