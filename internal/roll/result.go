package roll

import (
	"fmt"
	"strings"

	"github.com/cory-johannsen/r2/internal/dice"
)

// ResultKind tags the concrete variant behind a Result.
type ResultKind int

const (
	KindSimple ResultKind = iota
	KindGeneric
	KindSavage
	KindSuccess
	KindMultiple
)

func (k ResultKind) String() string {
	switch k {
	case KindSimple:
		return "simple"
	case KindGeneric:
		return "generic"
	case KindSavage:
		return "savage"
	case KindSuccess:
		return "success"
	case KindMultiple:
		return "multiple"
	default:
		return "unknown"
	}
}

// KeepOp identifies the die-selection mode of a generic roll.
type KeepOp int

const (
	KeepNone KeepOp = iota
	KeepHighest
	KeepLowest
	KeepAdvantage    // keep highest, advantage spelling
	KeepDisadvantage // keep lowest, disadvantage spelling
)

func (k KeepOp) String() string {
	switch k {
	case KeepNone:
		return "none"
	case KeepHighest:
		return "keep highest"
	case KeepLowest:
		return "keep lowest"
	case KeepAdvantage:
		return "advantage"
	case KeepDisadvantage:
		return "disadvantage"
	default:
		return "unknown"
	}
}

// DieRole names which die a Savage Worlds roll used for its value.
type DieRole int

const (
	RoleTrait DieRole = iota
	RoleWild
)

func (r DieRole) String() string {
	if r == RoleWild {
		return "wild"
	}
	return "trait"
}

// RaiseOutcome is the success/raise breakdown of a total against a target
// number. Margin is total - target; Raises counts full raise intervals in
// the margin, zero on failure.
type RaiseOutcome struct {
	Success bool
	Raises  int
	Margin  int
}

// CalculateRaises compares total against target with the given raise
// interval.
//
// Precondition: raiseInterval > 0.
// Postcondition: Raises == Margin/raiseInterval when Success, else 0.
func CalculateRaises(total, target, raiseInterval int) RaiseOutcome {
	if raiseInterval <= 0 {
		panic("roll: CalculateRaises called with raiseInterval <= 0")
	}
	margin := total - target
	if margin < 0 {
		return RaiseOutcome{Success: false, Raises: 0, Margin: margin}
	}
	return RaiseOutcome{Success: true, Raises: margin / raiseInterval, Margin: margin}
}

func (o RaiseOutcome) String() string {
	if !o.Success {
		return fmt.Sprintf("failure (margin %d)", o.Margin)
	}
	if o.Raises > 0 {
		return fmt.Sprintf("success with %d raise(s)", o.Raises)
	}
	return "success"
}

// Result is the structured outcome of evaluating an R2 expression. Every
// variant's Total() is recomputed from its structural fields alone, so a
// caller can re-derive (and verify) the value without trusting a cached
// number.
type Result interface {
	Kind() ResultKind
	// Total returns the final numeric result after all modifiers and
	// selections are applied.
	Total() int
	fmt.Stringer
}

// SimpleResult is an arithmetic or variable result with no dice attached.
type SimpleResult struct {
	Value       int
	Description string
}

func (r *SimpleResult) Kind() ResultKind { return KindSimple }
func (r *SimpleResult) Total() int       { return r.Value }

func (r *SimpleResult) String() string {
	if r.Description == "" {
		return fmt.Sprintf("%d", r.Value)
	}
	return fmt.Sprintf("%s = %d", r.Description, r.Value)
}

// GenericResult is the outcome of an "NdS" roll, including any kept/dropped
// split, success counting, or target-number comparison.
type GenericResult struct {
	Dice     []dice.Die // all rolled dice, in roll order
	Modifier int

	// Keep selection. Kept/Dropped are populated only when Keep != KeepNone.
	Keep    KeepOp
	Kept    []dice.Die
	Dropped []dice.Die

	// Target number. Valid when HasTarget.
	Target        int
	RaiseInterval int
	HasTarget     bool
}

func (r *GenericResult) Kind() ResultKind { return KindGeneric }

// Total sums the kept dice (all dice when no keep selection applies) plus
// the modifier.
func (r *GenericResult) Total() int {
	counted := r.Dice
	if r.Keep != KeepNone {
		counted = r.Kept
	}
	total := r.Modifier
	for _, d := range counted {
		total += d.Total()
	}
	return total
}

// Raises returns the target-number outcome, or nil when the roll carried no
// target suffix.
func (r *GenericResult) Raises() *RaiseOutcome {
	if !r.HasTarget {
		return nil
	}
	o := CalculateRaises(r.Total(), r.Target, r.RaiseInterval)
	return &o
}

func (r *GenericResult) String() string {
	var b strings.Builder
	b.WriteString(formatDice(r.Dice))
	if r.Keep != KeepNone {
		fmt.Fprintf(&b, " %s %s", r.Keep, formatDice(r.Kept))
	}
	if r.Modifier != 0 {
		fmt.Fprintf(&b, " %+d", r.Modifier)
	}
	fmt.Fprintf(&b, " = %d", r.Total())
	if o := r.Raises(); o != nil {
		fmt.Fprintf(&b, " vs %d: %s", r.Target, o)
	}
	return b.String()
}

// SuccessResult is the outcome of a success-counting roll "NdSsX[fY]".
// Total is the number of successes; failures are counted independently and
// never subtracted.
type SuccessResult struct {
	Dice      []dice.Die
	SuccessAt int
	FailAt    int
	HasFail   bool
}

func (r *SuccessResult) Kind() ResultKind { return KindSuccess }

// Total counts dice whose chain total meets or exceeds the success
// threshold.
func (r *SuccessResult) Total() int {
	n := 0
	for _, d := range r.Dice {
		if d.Total() >= r.SuccessAt {
			n++
		}
	}
	return n
}

// Failures counts dice whose chain total is at or below the failure
// threshold. Zero when no failure threshold was given.
func (r *SuccessResult) Failures() int {
	if !r.HasFail {
		return 0
	}
	n := 0
	for _, d := range r.Dice {
		if d.Total() <= r.FailAt {
			n++
		}
	}
	return n
}

func (r *SuccessResult) String() string {
	s := fmt.Sprintf("%s = %d success(es)", formatDice(r.Dice), r.Total())
	if r.HasFail {
		s += fmt.Sprintf(", %d failure(s)", r.Failures())
	}
	return s
}

// SavageResult is the outcome of a Savage Worlds roll: an acing trait die
// and, for wild cards, an acing wild die, the higher total winning. Ties go
// to the trait die. The target number is always present: Savage Worlds
// rolls report success against TN 4 unless overridden.
type SavageResult struct {
	Trait    dice.Die
	Wild     dice.Die
	HasWild  bool
	Modifier int

	Target        int
	RaiseInterval int
}

func (r *SavageResult) Kind() ResultKind { return KindSavage }

// UsedDie reports which die supplied the total. The comparison is >=, so an
// exact tie uses the trait die.
func (r *SavageResult) UsedDie() DieRole {
	if !r.HasWild {
		return RoleTrait
	}
	if r.Trait.Total() >= r.Wild.Total() {
		return RoleTrait
	}
	return RoleWild
}

// Total is the higher chain total plus the modifier.
func (r *SavageResult) Total() int {
	best := r.Trait.Total()
	if r.HasWild && r.Wild.Total() > best {
		best = r.Wild.Total()
	}
	return best + r.Modifier
}

// Raises returns the outcome against the roll's target number.
func (r *SavageResult) Raises() RaiseOutcome {
	return CalculateRaises(r.Total(), r.Target, r.RaiseInterval)
}

func (r *SavageResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "trait [%s]", r.Trait)
	if r.HasWild {
		fmt.Fprintf(&b, " wild [%s] using %s", r.Wild, r.UsedDie())
	}
	if r.Modifier != 0 {
		fmt.Fprintf(&b, " %+d", r.Modifier)
	}
	fmt.Fprintf(&b, " = %d vs %d: %s", r.Total(), r.Target, r.Raises())
	return b.String()
}

// MultipleResult is a batch of independent sub-results, in iteration order.
// Total is the sum of the sub-totals.
type MultipleResult struct {
	Rolls []Result
}

func (r *MultipleResult) Kind() ResultKind { return KindMultiple }

func (r *MultipleResult) Total() int {
	total := 0
	for _, sub := range r.Rolls {
		total += sub.Total()
	}
	return total
}

func (r *MultipleResult) String() string {
	parts := make([]string, len(r.Rolls))
	for i, sub := range r.Rolls {
		parts[i] = sub.String()
	}
	return fmt.Sprintf("%s; sum = %d", strings.Join(parts, " | "), r.Total())
}

func formatDice(dies []dice.Die) string {
	parts := make([]string, len(dies))
	for i, d := range dies {
		parts[i] = d.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}
