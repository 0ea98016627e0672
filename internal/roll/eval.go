package roll

import (
	"fmt"
	"sort"

	"github.com/cory-johannsen/r2/internal/dice"
)

// Limits bound an evaluation so that any expression terminates quickly and
// cannot allocate an unreasonable number of dice. A zero value in any field
// falls back to the package default.
type Limits struct {
	MaxChain      int // explosion-chain budget per acing die
	MaxDice       int // dice per single roll term
	MaxBatch      int // iterations in an "Nx" batch
	MaxStatements int // ';'-separated statements per call

	DefaultTarget    int // Savage Worlds default target number
	DefaultRaise     int // Savage Worlds default raise interval
	DefaultWildSides int // Savage Worlds default wild die
}

// DefaultLimits returns the standard evaluation limits.
func DefaultLimits() Limits {
	return Limits{
		MaxChain:         dice.DefaultMaxChain,
		MaxDice:          100,
		MaxBatch:         50,
		MaxStatements:    20,
		DefaultTarget:    4,
		DefaultRaise:     4,
		DefaultWildSides: 6,
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxChain <= 0 {
		l.MaxChain = d.MaxChain
	}
	if l.MaxDice <= 0 {
		l.MaxDice = d.MaxDice
	}
	if l.MaxBatch <= 0 {
		l.MaxBatch = d.MaxBatch
	}
	if l.MaxStatements <= 0 {
		l.MaxStatements = d.MaxStatements
	}
	if l.DefaultTarget <= 0 {
		l.DefaultTarget = d.DefaultTarget
	}
	if l.DefaultRaise <= 0 {
		l.DefaultRaise = d.DefaultRaise
	}
	if l.DefaultWildSides <= 0 {
		l.DefaultWildSides = d.DefaultWildSides
	}
	return l
}

// Evaluator turns R2 expression strings into Results. It is a pure
// computation over its inputs plus the random source: safe for concurrent
// Evaluate calls as long as the Source is (both package Sources are).
type Evaluator struct {
	src    dice.Source
	limits Limits
}

// NewEvaluator creates an Evaluator rolling with src under the given
// limits.
//
// Precondition: src must be non-nil.
func NewEvaluator(src dice.Source, limits Limits) *Evaluator {
	return &Evaluator{src: src, limits: limits.withDefaults()}
}

// Evaluate parses and evaluates expr, returning the last statement's
// result. Statements share one variable environment scoped to this call;
// nothing persists across calls. Any failure aborts the whole expression.
func (e *Evaluator) Evaluate(expr string) (Result, error) {
	results, err := e.EvaluateAll(expr)
	if err != nil {
		return nil, err
	}
	return results[len(results)-1], nil
}

// EvaluateAll parses and evaluates expr, returning one Result per
// ';'-separated statement, in statement order, under a single shared
// variable environment.
//
// Postcondition: on success the slice is non-empty.
func (e *Evaluator) EvaluateAll(expr string) ([]Result, error) {
	cmd, err := Parse(expr)
	if err != nil {
		return nil, &EvalError{Expr: expr, Err: err}
	}
	if len(cmd.Statements) > e.limits.MaxStatements {
		return nil, &EvalError{Expr: expr, Err: fmt.Errorf("roll: too many statements: %d (limit %d)", len(cmd.Statements), e.limits.MaxStatements)}
	}

	env := make(map[string]int)
	results := make([]Result, 0, len(cmd.Statements))
	for _, stmt := range cmd.Statements {
		res, err := e.eval(stmt, env)
		if err != nil {
			return nil, &EvalError{Expr: expr, Err: err}
		}
		results = append(results, res)
	}
	return results, nil
}

// eval dispatches on the concrete node type. The node set is closed; an
// unknown type is an internal bug.
func (e *Evaluator) eval(node Node, env map[string]int) (Result, error) {
	switch n := node.(type) {
	case *Number:
		return &SimpleResult{Value: n.Value}, nil
	case *Variable:
		v, ok := env[n.Name]
		if !ok {
			return nil, fmt.Errorf("roll: undefined variable @%s", n.Name)
		}
		return &SimpleResult{Value: v, Description: "@" + n.Name}, nil
	case *Assign:
		res, err := e.eval(n.Expr, env)
		if err != nil {
			return nil, err
		}
		env[n.Target.Name] = res.Total()
		return res, nil
	case *Group:
		return e.eval(n.Expr, env)
	case *Prefix:
		res, err := e.eval(n.Expr, env)
		if err != nil {
			return nil, err
		}
		return &SimpleResult{Value: -res.Total()}, nil
	case *Infix:
		return e.evalInfix(n, env)
	case *Bounded:
		return e.evalBounded(n, env)
	case *Batch:
		return e.evalBatch(n, env)
	case *GenericRoll:
		return e.evalGenericRoll(n)
	case *FudgeRoll:
		return e.evalFudgeRoll(n)
	case *SavageRoll:
		return e.evalSavage(n)
	case *SavageExtras:
		return e.evalExtras(n)
	case *GygaxRange:
		lo, hi := n.Lo, n.Hi
		if lo > hi {
			lo, hi = hi, lo
		}
		return &SimpleResult{Value: lo + e.src.Intn(hi-lo+1), Description: fmt.Sprintf("%d--%d", n.Lo, n.Hi)}, nil
	default:
		return nil, fmt.Errorf("roll: internal: unhandled node type %T", node)
	}
}

// evalInfix applies an arithmetic operator. Additive operators preserve the
// left operand's dice structure when it is a roll variant, folding the
// right-hand total into its modifier; multiplicative operators collapse to
// a plain numeric result. Division truncates toward zero, for negative
// operands too.
func (e *Evaluator) evalInfix(n *Infix, env map[string]int) (Result, error) {
	left, err := e.eval(n.Left, env)
	if err != nil {
		return nil, err
	}
	right, err := e.eval(n.Right, env)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case TokenPlus:
		return addModifier(left, right.Total()), nil
	case TokenMinus:
		return addModifier(left, -right.Total()), nil
	case TokenStar:
		return &SimpleResult{Value: left.Total() * right.Total()}, nil
	case TokenSlash:
		if right.Total() == 0 {
			return nil, ErrDivisionByZero
		}
		return &SimpleResult{Value: left.Total() / right.Total()}, nil
	case TokenPercent:
		if right.Total() == 0 {
			return nil, ErrDivisionByZero
		}
		return &SimpleResult{Value: left.Total() % right.Total()}, nil
	default:
		return nil, fmt.Errorf("roll: internal: unhandled operator %v", n.Op)
	}
}

// addModifier folds delta into left, preserving roll structure where the
// variant carries a modifier. Batches of Savage rolls distribute the
// modifier to each sub-roll, matching the per-extra semantics of "2e8+1".
func addModifier(left Result, delta int) Result {
	switch r := left.(type) {
	case *GenericResult:
		updated := *r
		updated.Modifier += delta
		return &updated
	case *SavageResult:
		updated := *r
		updated.Modifier += delta
		return &updated
	case *MultipleResult:
		rolls := make([]Result, len(r.Rolls))
		for i, sub := range r.Rolls {
			rolls[i] = addModifier(sub, delta)
		}
		return &MultipleResult{Rolls: rolls}
	default:
		return &SimpleResult{Value: left.Total() + delta}
	}
}

// evalBounded clamps the inner value into [min, max]; either bound may be
// open.
func (e *Evaluator) evalBounded(n *Bounded, env map[string]int) (Result, error) {
	inner, err := e.eval(n.Expr, env)
	if err != nil {
		return nil, err
	}
	value := inner.Total()
	desc := fmt.Sprintf("%d bounded", value)

	if n.Min != nil {
		minRes, err := e.eval(n.Min, env)
		if err != nil {
			return nil, err
		}
		if value < minRes.Total() {
			value = minRes.Total()
		}
	}
	if n.Max != nil {
		maxRes, err := e.eval(n.Max, env)
		if err != nil {
			return nil, err
		}
		if value > maxRes.Total() {
			value = maxRes.Total()
		}
	}
	return &SimpleResult{Value: value, Description: desc}, nil
}

// evalBatch runs the sub-expression N times with fresh dice. The variable
// environment is shared across iterations: an assignment in iteration k is
// visible in iteration k+1.
func (e *Evaluator) evalBatch(n *Batch, env map[string]int) (Result, error) {
	if n.N > e.limits.MaxBatch {
		return nil, fmt.Errorf("roll: batch count %d exceeds limit %d", n.N, e.limits.MaxBatch)
	}
	rolls := make([]Result, 0, n.N)
	for i := 0; i < n.N; i++ {
		res, err := e.eval(n.Expr, env)
		if err != nil {
			return nil, err
		}
		rolls = append(rolls, res)
	}
	return &MultipleResult{Rolls: rolls}, nil
}

func (e *Evaluator) evalGenericRoll(n *GenericRoll) (Result, error) {
	if n.Count > e.limits.MaxDice {
		return nil, fmt.Errorf("roll: die count %d exceeds limit %d", n.Count, e.limits.MaxDice)
	}

	dies := make([]dice.Die, n.Count)
	for i := range dies {
		if n.Acing {
			d, err := dice.RollAcing(e.src, n.Sides, e.limits.MaxChain)
			if err != nil {
				return nil, err
			}
			dies[i] = d
		} else {
			v, err := dice.Roll(e.src, n.Sides)
			if err != nil {
				return nil, err
			}
			dies[i] = dice.Die{Value: v, Sides: n.Sides}
		}
	}

	switch n.Suffix.Kind {
	case SuffixNone:
		return &GenericResult{Dice: dies}, nil
	case SuffixKeep:
		kept, dropped := selectDice(dies, n.Suffix.Keep, n.Suffix.KeepN)
		return &GenericResult{Dice: dies, Keep: n.Suffix.Keep, Kept: kept, Dropped: dropped}, nil
	case SuffixSuccess:
		return &SuccessResult{
			Dice:      dies,
			SuccessAt: n.Suffix.SuccessAt,
			FailAt:    n.Suffix.FailAt,
			HasFail:   n.Suffix.HasFail,
		}, nil
	case SuffixTarget:
		res := &GenericResult{Dice: dies, HasTarget: true, Target: e.limits.DefaultTarget, RaiseInterval: e.limits.DefaultRaise}
		if n.Suffix.HasTarget {
			res.Target = n.Suffix.Target
		}
		if n.Suffix.HasRaise {
			res.RaiseInterval = n.Suffix.Raise
		}
		return res, nil
	default:
		return nil, ErrUnsupportedSuffix
	}
}

// selectDice splits dies into kept and dropped under a keep operation.
// Sorting is stable on original roll order: equal totals keep their
// relative order and the first n survive.
func selectDice(dies []dice.Die, op KeepOp, n int) (kept, dropped []dice.Die) {
	idx := make([]int, len(dies))
	for i := range idx {
		idx[i] = i
	}
	lowest := op == KeepLowest || op == KeepDisadvantage
	sort.SliceStable(idx, func(a, b int) bool {
		if lowest {
			return dies[idx[a]].Total() < dies[idx[b]].Total()
		}
		return dies[idx[a]].Total() > dies[idx[b]].Total()
	})

	keptSet := make(map[int]bool, n)
	kept = make([]dice.Die, 0, n)
	for _, i := range idx[:n] {
		kept = append(kept, dies[i])
		keptSet[i] = true
	}
	dropped = make([]dice.Die, 0, len(dies)-n)
	for i, d := range dies {
		if !keptSet[i] {
			dropped = append(dropped, d)
		}
	}
	return kept, dropped
}

func (e *Evaluator) evalFudgeRoll(n *FudgeRoll) (Result, error) {
	if n.Count > e.limits.MaxDice {
		return nil, fmt.Errorf("roll: die count %d exceeds limit %d", n.Count, e.limits.MaxDice)
	}
	dies := make([]dice.Die, n.Count)
	for i := range dies {
		dies[i] = dice.Die{Value: dice.RollFudge(e.src), Sides: 6}
	}
	return &GenericResult{Dice: dies}, nil
}

// evalSavage rolls trait and wild dice, both acing. Count > 1 repeats the
// whole roll and wraps the results in a MultipleResult.
func (e *Evaluator) evalSavage(n *SavageRoll) (Result, error) {
	if n.Count > e.limits.MaxDice {
		return nil, fmt.Errorf("roll: roll count %d exceeds limit %d", n.Count, e.limits.MaxDice)
	}
	wildSides := n.WildSides
	if wildSides == 0 {
		wildSides = e.limits.DefaultWildSides
	}

	single := func() (Result, error) {
		trait, err := dice.RollAcing(e.src, n.TraitSides, e.limits.MaxChain)
		if err != nil {
			return nil, err
		}
		wild, err := dice.RollAcing(e.src, wildSides, e.limits.MaxChain)
		if err != nil {
			return nil, err
		}
		res := &SavageResult{
			Trait:         trait,
			Wild:          wild,
			HasWild:       true,
			Target:        e.limits.DefaultTarget,
			RaiseInterval: e.limits.DefaultRaise,
		}
		if n.HasTarget {
			res.Target = n.Target
		}
		if n.HasRaise {
			res.RaiseInterval = n.Raise
		}
		return res, nil
	}

	if n.Count == 1 {
		return single()
	}
	rolls := make([]Result, 0, n.Count)
	for i := 0; i < n.Count; i++ {
		res, err := single()
		if err != nil {
			return nil, err
		}
		rolls = append(rolls, res)
	}
	return &MultipleResult{Rolls: rolls}, nil
}

// evalExtras rolls N independent acing dice, one per extra, no wild die.
func (e *Evaluator) evalExtras(n *SavageExtras) (Result, error) {
	if n.Count > e.limits.MaxDice {
		return nil, fmt.Errorf("roll: roll count %d exceeds limit %d", n.Count, e.limits.MaxDice)
	}

	single := func() (Result, error) {
		trait, err := dice.RollAcing(e.src, n.Sides, e.limits.MaxChain)
		if err != nil {
			return nil, err
		}
		res := &SavageResult{
			Trait:         trait,
			Target:        e.limits.DefaultTarget,
			RaiseInterval: e.limits.DefaultRaise,
		}
		if n.HasTarget {
			res.Target = n.Target
		}
		if n.HasRaise {
			res.RaiseInterval = n.Raise
		}
		return res, nil
	}

	if n.Count == 1 {
		return single()
	}
	rolls := make([]Result, 0, n.Count)
	for i := 0; i < n.Count; i++ {
		res, err := single()
		if err != nil {
			return nil, err
		}
		rolls = append(rolls, res)
	}
	return &MultipleResult{Rolls: rolls}, nil
}
