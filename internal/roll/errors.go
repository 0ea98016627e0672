package roll

import (
	"errors"
	"fmt"
)

// ErrDivisionByZero is returned for '/' or '%' with a zero right operand.
var ErrDivisionByZero = errors.New("roll: division by zero")

// ErrUnsupportedSuffix is returned when the parser produced a suffix
// combination the evaluator has no semantics for. The grammar should make
// this unreachable; seeing it means the two are out of sync.
var ErrUnsupportedSuffix = errors.New("roll: unsupported suffix combination")

// SyntaxError reports malformed expression text. Pos is the 1-based
// position of the offending character or token. There is no recovery: the
// first error aborts the parse.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("roll: syntax error at position %d: %s", e.Pos, e.Msg)
}

// EvalError wraps any failure during evaluation of an expression so callers
// can surface the original text alongside the cause. Evaluation either
// fully succeeds or fully fails; there is no partial result.
type EvalError struct {
	Expr string
	Err  error
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("roll: evaluating %q: %v", e.Expr, e.Err)
}

func (e *EvalError) Unwrap() error { return e.Err }
