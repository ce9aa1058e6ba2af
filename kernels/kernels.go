// Copyright (c) 2026, The Cogrid Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package kernels provides the ComputeSystem data-parallel dispatcher used by
all cogrid layers.  A kernel is a pure function of (position, per-position
random stream, shared read-only layer state) whose writes are confined to
that position's own output slots.  The dispatcher enumerates every position
of a 1D or 2D lattice, partitions them into batches, and runs the batches
either sequentially or over a pool of worker goroutines.

Results are identical regardless of worker count and batch sizes: each
position's random stream is seeded by a pure integer mix of the base seed,
a per-pass counter, and the position's flat index, never by sharing a
sequential generator across positions.
*/
package kernels

import (
	"math/rand"
	"sync"

	"github.com/cogrid/cogrid/grid"
)

// ComputeSystem holds the shared execution context for running per-cell
// kernels: thread and batch sizing, and the base random seed from which
// every per-position stream is derived.  One ComputeSystem is typically
// shared by all layers of a hierarchy; its methods are not safe for
// concurrent use by multiple callers.
type ComputeSystem struct {
	NThreads int        `desc:"number of worker goroutines for kernel batches -- 0 or 1 runs everything sequentially on the caller's goroutine"`
	Batch1   int        `def:"1024" desc:"number of positions per work item for 1D kernels"`
	Batch2   grid.Int2  `def:"{4 4}" desc:"positions per work item for 2D kernels, per dimension"`
	RandSeed int64      `desc:"base random seed -- all per-position streams and the step-level Rand derive from it"`
	Rand     *rand.Rand `view:"-" desc:"step-level random source for sequential caller-side draws (e.g. history sample selection) -- never used inside kernels"`

	pass int64 // per-pass counter mixed into position seeds
}

// NewComputeSystem returns a ComputeSystem with default batch sizing, the
// given number of worker goroutines, and the given base random seed.
func NewComputeSystem(nThreads int, seed int64) *ComputeSystem {
	cs := &ComputeSystem{NThreads: nThreads}
	cs.Defaults()
	cs.SetRandSeed(seed)
	return cs
}

// Defaults sets default batch sizing parameters.
func (cs *ComputeSystem) Defaults() {
	cs.Batch1 = 1024
	cs.Batch2 = grid.Int2{4, 4}
}

// SetRandSeed sets the base random seed and resets the pass counter and the
// step-level Rand, so that a subsequent identical sequence of kernel runs
// reproduces identical results.
func (cs *ComputeSystem) SetRandSeed(seed int64) {
	cs.RandSeed = seed
	cs.pass = 0
	cs.Rand = rand.New(rand.NewSource(seed))
}

// mix is a splitmix64-style finalizer: a pure integer mix producing
// well-distributed seeds from (base seed, pass, position index).
func mix(z uint64) uint64 {
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

// posSeed returns the random seed for one position in the current pass.
func (cs *ComputeSystem) posSeed(pass int64, idx int) int64 {
	z := uint64(cs.RandSeed) + uint64(pass)*0x9E3779B97F4A7C15 + uint64(idx)*0xD1342543DE82EF95
	return int64(mix(z))
}

// Run1D runs fun at every index in [0, n).  Each call gets a random stream
// derived from the base seed and its index.
func (cs *ComputeSystem) Run1D(n int, fun func(i int, rng *rand.Rand)) {
	pass := cs.pass
	cs.pass++
	if cs.NThreads <= 1 {
		for i := 0; i < n; i++ {
			fun(i, rand.New(rand.NewSource(cs.posSeed(pass, i))))
		}
		return
	}
	bsz := cs.Batch1
	if bsz < 1 {
		bsz = 1
	}
	nb := (n + bsz - 1) / bsz // ceil divide
	work := make(chan int, nb)
	for b := 0; b < nb; b++ {
		work <- b
	}
	close(work)
	var wg sync.WaitGroup
	for th := 0; th < cs.NThreads; th++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for b := range work {
				st := b * bsz
				ed := grid.MinInt(n, st+bsz)
				for i := st; i < ed; i++ {
					fun(i, rand.New(rand.NewSource(cs.posSeed(pass, i))))
				}
			}
		}()
	}
	wg.Wait()
}

// Run2D runs fun at every position of a size.X x size.Y lattice.  Each
// position gets a random stream derived from the base seed and its
// row-major flat index, so results are independent of batch partitioning
// and worker scheduling.
func (cs *ComputeSystem) Run2D(size grid.Int2, fun func(p grid.Int2, rng *rand.Rand)) {
	pass := cs.pass
	cs.pass++
	if cs.NThreads <= 1 {
		for y := 0; y < size.Y; y++ {
			for x := 0; x < size.X; x++ {
				p := grid.Int2{x, y}
				fun(p, rand.New(rand.NewSource(cs.posSeed(pass, grid.Addr2(p, size.X)))))
			}
		}
		return
	}
	bx := grid.MaxInt(1, cs.Batch2.X)
	by := grid.MaxInt(1, cs.Batch2.Y)
	nbx := (size.X + bx - 1) / bx
	nby := (size.Y + by - 1) / by
	nb := nbx * nby
	work := make(chan int, nb)
	for b := 0; b < nb; b++ {
		work <- b
	}
	close(work)
	var wg sync.WaitGroup
	for th := 0; th < cs.NThreads; th++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for b := range work {
				stx := (b % nbx) * bx
				sty := (b / nbx) * by
				edx := grid.MinInt(size.X, stx+bx)
				edy := grid.MinInt(size.Y, sty+by)
				for y := sty; y < edy; y++ {
					for x := stx; x < edx; x++ {
						p := grid.Int2{x, y}
						fun(p, rand.New(rand.NewSource(cs.posSeed(pass, grid.Addr2(p, size.X)))))
					}
				}
			}
		}()
	}
	wg.Wait()
}
