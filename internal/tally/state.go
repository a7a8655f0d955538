package tally

import "fmt"

// CycleLength is the number of beads in one round.
const CycleLength = 108

// LastBead is the highest count a state rests at.
const LastBead = CycleLength - 1

// State is the counter value.
type State struct {
	Count int `json:"count"`
	Round int `json:"round"`
	Total int `json:"totalCount"`
}

// Zero is the initial and post-reset state.
var Zero = State{}

// Valid reports whether s satisfies the resting invariants.
func (s State) Valid() bool {
	return s.Count >= 0 && s.Count <= LastBead && s.Round >= 0 && s.Total >= 0
}

// AtFloor reports whether decrement would be a no-op.
func (s State) AtFloor() bool {
	return s.Count == 0 && s.Round == 0
}

func (s State) String() string {
	return fmt.Sprintf("%d/%d round=%d total=%d", s.Count, CycleLength, s.Round, s.Total)
}

// Op names a counter operation.
type Op string

const (
	OpIncrement Op = "increment"
	OpDecrement Op = "decrement"
	OpReset     Op = "reset"
)

// Transition describes one applied operation.
type Transition struct {
	Op        Op
	Before    State
	After     State
	Completed bool // increment that finished a round
}

// Changed reports whether the operation altered the state.
func (t Transition) Changed() bool {
	return t.Before != t.After
}

// Next applies op to s. Unknown ops leave the state untouched.
func Next(s State, op Op) Transition {
	t := Transition{Op: op, Before: s, After: s}
	switch op {
	case OpIncrement:
		t.After, t.Completed = increment(s)
	case OpDecrement:
		t.After = Decrement(s)
	case OpReset:
		t.After = Reset(s)
	}
	return t
}

// Increment returns the state after one increment.
func Increment(s State) State {
	next, _ := increment(s)
	return next
}

func increment(s State) (State, bool) {
	s.Total++
	if s.Count >= LastBead {
		s.Count = 0
		s.Round++
		return s, true
	}
	s.Count++
	return s, false
}

// Decrement returns the state after one decrement.
func Decrement(s State) State {
	switch {
	case s.Count > 0:
		s.Count--
	case s.Round > 0:
		s.Count = LastBead
		s.Round--
	default:
		return s
	}
	s.Total = max(s.Total-1, 0)
	return s
}

// Reset returns the zero state.
func Reset(State) State {
	return Zero
}
