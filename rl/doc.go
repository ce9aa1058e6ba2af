// Copyright (c) 2026, The Cogrid Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package rl implements the reinforcement-learning decision layers: two
independent actor designs that map visible CSDR lattices to an action
lattice and learn from a scalar or symbolic reward signal via
temporal-difference updates.

Actor is the history-replay advantage learner: greedy action selection,
a fixed-capacity ring of step snapshots, and replayed advantage
(PAL-corrected) Q-learning updates over randomly drawn adjacent sample
pairs.  Its reward is symbolic: 1 when the historical action matches the
feedback lattice at that column, else 0.

CriticActor is the online TD(0) actor-critic: a per-column state-value
weight plane shared across the symbols of a column, a per-cell
action-preference plane, epsilon-greedy (or pure greedy) exploration,
and a single TD update per step against the oldest pending sample,
using the discounted sum of rewards accumulated across the history
window.

Both share the History ring: an index-based circular buffer over
pre-allocated value-type samples, filled in insertion order and
overwriting the oldest slot once at capacity.
*/
package rl
