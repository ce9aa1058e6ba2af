// Copyright (c) 2026, The Cogrid Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package grid provides the lattice coordinate and addressing model shared by
all cogrid layers: flat row-major buffer offsets for 2D/3D/4D lattice
positions, affine projection between lattices of different resolution, and
the clamped local receptive-field window with its reversible weight-offset
formula.

The offset formula in RF.Offset is the single source of truth for weight
addressing: the forward (hidden accumulates from visible) and reverse
(visible queries hidden) passes of every layer must go through it, otherwise
the two directions silently address different synapses.
*/
package grid

import (
	"github.com/chewxy/math32"
	"github.com/goki/mat32"
)

// Int2 is an integer position or size on a 2D lattice.
type Int2 struct {
	X int `desc:"horizontal component"`
	Y int `desc:"vertical component"`
}

// Int3 is an integer position or size on a 3D lattice.
// For sizes, Z is the column depth: the number of mutually-exclusive
// symbols at each (X,Y) column.
type Int3 struct {
	X int `desc:"horizontal component"`
	Y int `desc:"vertical component"`
	Z int `desc:"depth component (column depth for sizes)"`
}

// Int4 is a 4D weight coordinate: a hidden cell position (X,Y,Z) plus the
// receptive-field offset W within that cell's weight segment.
type Int4 struct {
	X int `desc:"hidden column x"`
	Y int `desc:"hidden column y"`
	Z int `desc:"hidden symbol index"`
	W int `desc:"receptive-field weight offset"`
}

// NumColumns returns the number of spatial columns (X * Y) for a lattice size.
func (sz Int3) NumColumns() int {
	return sz.X * sz.Y
}

// NumCells returns the total number of cells (X * Y * Z) for a lattice size.
func (sz Int3) NumCells() int {
	return sz.X * sz.Y * sz.Z
}

// Addr2 returns the row-major flat offset of a 2D position: x + y*sizeX.
func Addr2(p Int2, sizeX int) int {
	return p.X + p.Y*sizeX
}

// Addr3 returns the row-major flat offset of a 3D position:
// x + y*sx + z*sx*sy.
func Addr3(p Int3, size Int3) int {
	return p.X + p.Y*size.X + p.Z*size.X*size.Y
}

// Addr4 returns the row-major flat offset of a 4D weight coordinate over a
// hidden lattice of the given size: x + y*sx + z*sx*sy + w*sx*sy*sz.
// The W stride is the total number of hidden cells, so a weight buffer
// indexed by Addr4 has length NumCells * (number of offsets per cell).
func Addr4(p Int4, size Int3) int {
	dxy := size.X * size.Y
	return p.X + p.Y*size.X + p.Z*dxy + p.W*dxy*size.Z
}

// Diam returns the receptive-field diameter for a radius: 2r+1.
func Diam(radius int) int {
	return 2*radius + 1
}

// Project maps a position on one lattice into the coordinates of another,
// using the precomputed component-wise size ratio as the scale.
// Rounds to nearest by adding 0.5 (positions are non-negative).
func Project(p Int2, scale mat32.Vec2) Int2 {
	return Int2{int(float32(p.X)*scale.X + 0.5), int(float32(p.Y)*scale.Y + 0.5)}
}

// Scale returns the component-wise projection scale from one lattice size
// to another (to / from).
func Scale(from, to Int3) mat32.Vec2 {
	return mat32.Vec2{X: float32(to.X) / float32(from.X), Y: float32(to.Y) / float32(from.Y)}
}

// ReverseRadii returns the minimum radius on the hidden lattice guaranteed
// to cover every hidden column whose receptive field could touch a given
// visible column: ceil(visibleToHidden * radius) + 1, per component.
func ReverseRadii(visibleToHidden mat32.Vec2, radius int) Int2 {
	return Int2{
		int(math32.Ceil(visibleToHidden.X*float32(radius))) + 1,
		int(math32.Ceil(visibleToHidden.Y*float32(radius))) + 1,
	}
}

// InBounds reports whether p is within [lower, upper) on both components.
func InBounds(p, lower, upper Int2) bool {
	return p.X >= lower.X && p.X < upper.X && p.Y >= lower.Y && p.Y < upper.Y
}

// MinInt returns the minimum of two ints.
func MinInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// MaxInt returns the maximum of two ints.
func MaxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// RF is the receptive-field iteration window of one hidden column onto a
// visible lattice: the unclamped lower corner that anchors weight offsets,
// the iteration bounds clamped to the lattice, and the diameter strides.
// Out-of-bounds positions are excluded from iteration entirely -- there is
// no wraparound and no padding value.
type RF struct {
	Lower  Int2 `desc:"unclamped lower corner of the field -- weight offsets are always relative to this, regardless of clamping"`
	IterLo Int2 `desc:"clamped inclusive lower iteration bound"`
	IterHi Int2 `desc:"clamped inclusive upper iteration bound"`
	Diam   int  `desc:"field diameter = 2*radius+1"`
	Diam2  int  `desc:"diameter squared -- stride of the symbol dimension in weight offsets"`
}

// NewRF returns the receptive field of the hidden column at hpos, projected
// through hiddenToVisible onto a visible lattice of the given size, with the
// given radius.
func NewRF(hpos Int2, hiddenToVisible mat32.Vec2, radius int, vsize Int3) RF {
	c := Project(hpos, hiddenToVisible)
	diam := Diam(radius)
	rf := RF{
		Lower:  Int2{c.X - radius, c.Y - radius},
		IterLo: Int2{MaxInt(0, c.X-radius), MaxInt(0, c.Y-radius)},
		IterHi: Int2{MinInt(vsize.X-1, c.X+radius), MinInt(vsize.Y-1, c.Y+radius)},
		Diam:   diam,
		Diam2:  diam * diam,
	}
	return rf
}

// Offset returns the weight offset of the synapse connecting this field to
// the visible position v with input symbol sym:
// (vx-fx) + (vy-fy)*diam + sym*diam², where (fx,fy) is the unclamped lower
// corner.  v must be within the iteration bounds.
func (rf *RF) Offset(v Int2, sym int) int {
	return v.X - rf.Lower.X + (v.Y-rf.Lower.Y)*rf.Diam + sym*rf.Diam2
}

// Contains reports whether the visible position v falls inside the
// unclamped field footprint.
func (rf *RF) Contains(v Int2) bool {
	return InBounds(v, rf.Lower, Int2{rf.Lower.X + rf.Diam, rf.Lower.Y + rf.Diam})
}

// Count returns the number of in-bounds visible columns in the field.
func (rf *RF) Count() int {
	return (rf.IterHi.X - rf.IterLo.X + 1) * (rf.IterHi.Y - rf.IterLo.Y + 1)
}
