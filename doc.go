// Copyright (c) 2026, The Cogrid Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package cogrid is the overall repository for the cogrid columnar sparse-coding
and reinforcement-learning substrate, implemented in the Go language (golang).

Cogrid layers operate over columnar sparse distributed representations (CSDRs):
rectangular lattices of columns where each column holds exactly one active
symbol out of a fixed depth.  All learning is online, local, and memory-bounded,
driven one discrete time step at a time by an external caller -- there is no
offline batch training and no global gradient computation.

This top-level of the repository has no functional code -- everything is
organized into the following sub-packages:

* grid: lattice coordinates, flat buffer addressing, affine projection between
lattices of different resolution, and the local receptive-field window that
every layer uses for its weight addressing.

* kernels: the ComputeSystem data-parallel dispatcher that runs a per-cell
kernel over every position of a lattice, sequentially or over a worker pool,
with a deterministic per-position random stream.

* cogrid: the core layers -- SparseCoder (iterative explaining-away sparse
coding) and Predictor (stochastic single-pass decoding) -- together with the
shared visible-layer weight store and binary persistence.

* rl: the reinforcement-learning decision layers -- Actor (history-replay
advantage learning) and CriticActor (online TD(0) actor-critic).

* examples: runnable console programs; examples/csc is the place to start.
*/
package cogrid
