// Package tally implements the counting state machine of a 108-bead mala
// counter.
//
// The state is three integers: count (progress within the current cycle,
// 0..107 at rest), round (completed cycles) and total (lifetime net
// increments). Transitions are pure functions of (State, Op); Counter wraps
// them with a key-value store commit, a completion notice, a journal and
// metrics.
//
// Rules:
//   - increment from 107 completes a cycle: count becomes 0, round grows by 1
//   - every increment adds exactly 1 to total
//   - decrement at count 0 with round > 0 reverses a completion: count 107, round - 1
//   - decrement at (0, 0) is a no-op
//   - decrement lowers total by 1, never below 0
//   - reset zeroes everything and clears the persisted keys
package tally
