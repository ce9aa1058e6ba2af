// Copyright (c) 2026, The Cogrid Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cogrid

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/cogrid/cogrid/grid"
	"github.com/goki/mat32"
)

// Layer state persistence: little-endian, fixed field order, no version
// header.  Scalars are int32 / float32; buffers are an int32 length prefix
// followed by raw element values.  Field order must match between write and
// read exactly -- there is no tagging to catch divergence.

// WriteIntBuffer writes a symbolic buffer as a length prefix plus raw values.
func WriteIntBuffer(w io.Writer, buf []int32) error {
	if err := binary.Write(w, binary.LittleEndian, int32(len(buf))); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, buf)
}

// ReadIntBuffer reads a length-prefixed symbolic buffer.
func ReadIntBuffer(r io.Reader) ([]int32, error) {
	var n int32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("cogrid: negative buffer length %d", n)
	}
	buf := make([]int32, n)
	if err := binary.Read(r, binary.LittleEndian, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// WriteFloatBuffer writes an activation or weight buffer as a length prefix
// plus raw values.
func WriteFloatBuffer(w io.Writer, buf []float32) error {
	if err := binary.Write(w, binary.LittleEndian, int32(len(buf))); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, buf)
}

// ReadFloatBuffer reads a length-prefixed activation or weight buffer.
func ReadFloatBuffer(r io.Reader) ([]float32, error) {
	var n int32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("cogrid: negative buffer length %d", n)
	}
	buf := make([]float32, n)
	if err := binary.Read(r, binary.LittleEndian, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// WriteInt3 writes a lattice size or position as three int32s.
func WriteInt3(w io.Writer, p grid.Int3) error {
	return binary.Write(w, binary.LittleEndian, [3]int32{int32(p.X), int32(p.Y), int32(p.Z)})
}

// ReadInt3 reads a lattice size or position written by WriteInt3.
func ReadInt3(r io.Reader) (grid.Int3, error) {
	var v [3]int32
	err := binary.Read(r, binary.LittleEndian, &v)
	return grid.Int3{int(v[0]), int(v[1]), int(v[2])}, err
}

// WriteInt2 writes a 2D size or radius pair as two int32s.
func WriteInt2(w io.Writer, p grid.Int2) error {
	return binary.Write(w, binary.LittleEndian, [2]int32{int32(p.X), int32(p.Y)})
}

// ReadInt2 reads a pair written by WriteInt2.
func ReadInt2(r io.Reader) (grid.Int2, error) {
	var v [2]int32
	err := binary.Read(r, binary.LittleEndian, &v)
	return grid.Int2{int(v[0]), int(v[1])}, err
}

// WriteVec2 writes a projection scale as two float32s.
func WriteVec2(w io.Writer, v mat32.Vec2) error {
	return binary.Write(w, binary.LittleEndian, [2]float32{v.X, v.Y})
}

// ReadVec2 reads a projection scale written by WriteVec2.
func ReadVec2(r io.Reader) (mat32.Vec2, error) {
	var v [2]float32
	err := binary.Read(r, binary.LittleEndian, &v)
	return mat32.Vec2{X: v[0], Y: v[1]}, err
}

// WriteDesc writes a visible layer descriptor: size then radius.
func WriteDesc(w io.Writer, vd *VisibleLayerDesc) error {
	if err := WriteInt3(w, vd.Size); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, int32(vd.Radius))
}

// ReadDesc reads a visible layer descriptor written by WriteDesc.
func ReadDesc(r io.Reader) (VisibleLayerDesc, error) {
	var vd VisibleLayerDesc
	var err error
	if vd.Size, err = ReadInt3(r); err != nil {
		return vd, err
	}
	var rad int32
	err = binary.Read(r, binary.LittleEndian, &rad)
	vd.Radius = int(rad)
	return vd, err
}

// WriteVisibleLayer writes one per-visible-layer block: descriptor,
// projection scales, reverse radii, weight buffer.
func WriteVisibleLayer(w io.Writer, vd *VisibleLayerDesc, vl *VisibleLayer) error {
	if err := WriteDesc(w, vd); err != nil {
		return err
	}
	if err := WriteVec2(w, vl.VisibleToHidden); err != nil {
		return err
	}
	if err := WriteVec2(w, vl.HiddenToVisible); err != nil {
		return err
	}
	if err := WriteInt2(w, vl.ReverseRadii); err != nil {
		return err
	}
	return WriteFloatBuffer(w, vl.Weights)
}

// ReadVisibleLayer reads one per-visible-layer block written by
// WriteVisibleLayer.  ReconCs is not persisted and is left nil.
func ReadVisibleLayer(r io.Reader, vd *VisibleLayerDesc, vl *VisibleLayer) error {
	var err error
	if *vd, err = ReadDesc(r); err != nil {
		return err
	}
	if vl.VisibleToHidden, err = ReadVec2(r); err != nil {
		return err
	}
	if vl.HiddenToVisible, err = ReadVec2(r); err != nil {
		return err
	}
	if vl.ReverseRadii, err = ReadInt2(r); err != nil {
		return err
	}
	vl.Weights, err = ReadFloatBuffer(r)
	return err
}
