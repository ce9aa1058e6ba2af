// Copyright (c) 2026, The Cogrid Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package cogrid implements the core columnar sparse-coding layers.

Every layer maps one or more visible (input) CSDR lattices to a hidden
(output) CSDR lattice: an []int32 with one entry per spatial column holding
the index of the active symbol at that column.  Input buffers are borrowed
read-only references valid for the duration of a call; every buffer a layer
owns is exclusively its own and overwritten in place each step.

SparseCoder performs iterative explaining-away sparse coding: repeated
forward winner-take-all encoding with reconstruction-residual correction,
plus local delta-rule learning of the reconstruction weights.

Predictor is a single-pass stochastic decoder: count-normalized activation
accumulation followed by Boltzmann (softmax) sampling of the output symbol,
with sigmoid delta-rule learning toward a caller-supplied target lattice.

All per-cell computation runs through the kernels.ComputeSystem dispatcher
and addresses weights through the grid.RF receptive-field window, so the
forward and reverse directions always touch the identical synapses.
*/
package cogrid
