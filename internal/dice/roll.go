package dice

import "fmt"

// InvalidDieError reports a roll request for a die with fewer than one side.
type InvalidDieError struct {
	Sides int
}

func (e *InvalidDieError) Error() string {
	return fmt.Sprintf("dice: invalid die: %d sides (must be >= 1)", e.Sides)
}

// fudgeFaces maps a uniform draw in [0, 6) onto the six faces of a fudge
// die: two minus faces, two blanks, two plus faces.
var fudgeFaces = [6]int{-1, -1, 0, 0, 1, 1}

// Roll rolls a single die with the given number of sides.
//
// Precondition: src must be non-nil.
// Postcondition: Returns a value in [1, sides], or *InvalidDieError when
// sides < 1.
func Roll(src Source, sides int) (int, error) {
	if sides < 1 {
		return 0, &InvalidDieError{Sides: sides}
	}
	return src.Intn(sides) + 1, nil
}

// RollAcing rolls an acing (exploding) die. A roll aces when it equals
// sides and fewer than maxChain explosions have occurred; each ace chains
// one more roll. A one-sided die never aces, and maxChain <= 0 falls back
// to DefaultMaxChain.
//
// Precondition: src must be non-nil.
// Postcondition: Returns a Die whose Total() equals the sum of all chained
// values and whose ChainLength() <= maxChain+1, or *InvalidDieError when
// sides < 1.
func RollAcing(src Source, sides, maxChain int) (Die, error) {
	if sides < 1 {
		return Die{}, &InvalidDieError{Sides: sides}
	}
	if maxChain <= 0 {
		maxChain = DefaultMaxChain
	}

	first := Die{Value: src.Intn(sides) + 1, Sides: sides}
	// sides == 1 always rolls its maximum; without this guard it would
	// consume the whole chain budget on every roll.
	if sides == 1 {
		return first, nil
	}

	cur := &first
	for explosions := 0; cur.Value == sides && explosions < maxChain; explosions++ {
		cur.Exploded = true
		cur.Chain = &Die{Value: src.Intn(sides) + 1, Sides: sides}
		cur = cur.Chain
	}
	return first, nil
}

// RollFudge rolls one fudge die: -1, 0, or +1, each face appearing twice on
// a six-sided die.
//
// Precondition: src must be non-nil.
// Postcondition: Returns -1, 0, or 1.
func RollFudge(src Source) int {
	return fudgeFaces[src.Intn(6)]
}
