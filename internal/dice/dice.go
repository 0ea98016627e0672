// Package dice provides the core randomness abstraction and single-die
// primitives for the R2 roll engine: uniform rolls, acing (exploding)
// chains, and fudge dice.
package dice

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultMaxChain is the explosion-chain budget used when a caller does not
// supply one. It exists to guarantee termination: a die that always rolls
// its maximum face would otherwise chain forever.
const DefaultMaxChain = 100

// Die holds the outcome of a single die, including any acing chain.
// Chain is the die rolled because this one aced, or nil.
//
// Invariant: Exploded == true iff Value == Sides and the chain budget was
// not exhausted when the die was rolled. Total() == Value + Chain.Total().
type Die struct {
	Value    int  // face rolled: [1, Sides] for numbered dice, -1..1 for fudge dice
	Sides    int  // face count of the die
	Exploded bool // true when Value == Sides triggered another roll
	Chain    *Die // next die in the acing chain, nil when not exploded
}

// Total returns the sum of this die's value and every value in its chain.
//
// Postcondition: return value >= d.Value.
func (d Die) Total() int {
	total := d.Value
	for next := d.Chain; next != nil; next = next.Chain {
		total += next.Value
	}
	return total
}

// Values returns every face rolled in the chain, in roll order.
//
// Postcondition: len(return) >= 1 and sum(return) == d.Total().
func (d Die) Values() []int {
	values := []int{d.Value}
	for next := d.Chain; next != nil; next = next.Chain {
		values = append(values, next.Value)
	}
	return values
}

// ChainLength returns the number of dice in the chain, including the first.
func (d Die) ChainLength() int {
	n := 1
	for next := d.Chain; next != nil; next = next.Chain {
		n++
	}
	return n
}

// String renders the chain in audit form: "6!+6!+3 = 15" for an aced d6,
// or "4" for a plain roll.
func (d Die) String() string {
	if d.Chain == nil && !d.Exploded {
		return strconv.Itoa(d.Value)
	}
	var parts []string
	for cur := &d; cur != nil; cur = cur.Chain {
		s := strconv.Itoa(cur.Value)
		if cur.Exploded {
			s += "!"
		}
		parts = append(parts, s)
	}
	return fmt.Sprintf("%s = %d", strings.Join(parts, "+"), d.Total())
}

// Source is the randomness provider for dice rolls.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}
