// Package testutil provides test doubles shared across packages: a scripted
// dice source for deterministic roll outcomes and a Telnet test client for
// integration tests.
package testutil

import (
	"fmt"
	"sync"
)

// ScriptedSource is a dice.Source that returns a fixed sequence of die
// faces. Tests script the exact faces they want rolled and assertions become
// deterministic.
//
// Faces are 1-based die values; Intn converts them to the 0-based draw the
// Source contract requires. A fudge draw (from dice.RollFudge) consumes one
// face like any other.
type ScriptedSource struct {
	mu    sync.Mutex
	faces []int
	next  int
}

// NewScriptedSource returns a ScriptedSource that yields the given faces in
// order.
//
// Precondition: every face must be >= 1.
func NewScriptedSource(faces ...int) *ScriptedSource {
	return &ScriptedSource{faces: faces}
}

// Intn returns the next scripted face minus one. It panics when the script
// is exhausted or when a scripted face exceeds n, both of which indicate a
// broken test script rather than a broken subject.
func (s *ScriptedSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next >= len(s.faces) {
		panic(fmt.Sprintf("testutil: scripted source exhausted after %d draws", len(s.faces)))
	}
	face := s.faces[s.next]
	s.next++
	if face < 1 || face > n {
		panic(fmt.Sprintf("testutil: scripted face %d out of range for Intn(%d)", face, n))
	}
	return face - 1
}

// Remaining reports how many scripted faces have not been consumed.
func (s *ScriptedSource) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.faces) - s.next
}
