package roll_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/r2/internal/dice"
	"github.com/cory-johannsen/r2/internal/roll"
	"github.com/cory-johannsen/r2/internal/testutil"
)

// scripted builds an evaluator whose dice land exactly on the given faces.
func scripted(faces ...int) *roll.Evaluator {
	return roll.NewEvaluator(testutil.NewScriptedSource(faces...), roll.DefaultLimits())
}

func TestEvaluate_TwoD6(t *testing.T) {
	res, err := scripted(3, 5).Evaluate("2d6")
	require.NoError(t, err)

	generic, ok := res.(*roll.GenericResult)
	require.True(t, ok)
	assert.Equal(t, 8, res.Total())
	require.Len(t, generic.Dice, 2)
	assert.Equal(t, 3, generic.Dice[0].Value)
	assert.Equal(t, 5, generic.Dice[1].Value)
}

func TestEvaluate_KeepHighest(t *testing.T) {
	res, err := scripted(6, 2, 5, 1).Evaluate("4d6k3")
	require.NoError(t, err)

	generic, ok := res.(*roll.GenericResult)
	require.True(t, ok)
	assert.Equal(t, 13, res.Total(), "sum of the 3 largest of [6 2 5 1]")
	require.Len(t, generic.Kept, 3)
	assert.Equal(t, 6, generic.Kept[0].Value)
	assert.Equal(t, 5, generic.Kept[1].Value)
	assert.Equal(t, 2, generic.Kept[2].Value)
	require.Len(t, generic.Dropped, 1)
	assert.Equal(t, 1, generic.Dropped[0].Value)
	assert.Equal(t, roll.KeepHighest, generic.Keep)
}

func TestEvaluate_KeepLowest(t *testing.T) {
	res, err := scripted(6, 2, 5, 1).Evaluate("4d6kl2")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total(), "sum of the 2 smallest of [6 2 5 1]")
}

func TestEvaluate_KeepTieBreakIsStable(t *testing.T) {
	// Three equal dice, keep two: the first two rolled must survive.
	res, err := scripted(4, 4, 4).Evaluate("3d6k2")
	require.NoError(t, err)

	generic := res.(*roll.GenericResult)
	assert.Equal(t, 8, res.Total())
	require.Len(t, generic.Dropped, 1)
	assert.Equal(t, 4, generic.Dropped[0].Value)
}

func TestEvaluate_SavageTargetDefaults(t *testing.T) {
	// Trait d8 rolls 6 (no ace), wild d6 rolls 3 (no ace).
	res, err := scripted(6, 3).Evaluate("s8t4")
	require.NoError(t, err)

	savage, ok := res.(*roll.SavageResult)
	require.True(t, ok)
	assert.Equal(t, roll.RoleTrait, savage.UsedDie())
	assert.Equal(t, 6, res.Total())
	assert.Equal(t, roll.RaiseOutcome{Success: true, Raises: 0, Margin: 2}, savage.Raises())
}

func TestEvaluate_SavageAlwaysHasTarget(t *testing.T) {
	// No explicit tN: Savage rolls still report against TN 4 / raise 4.
	res, err := scripted(3, 2).Evaluate("s8")
	require.NoError(t, err)

	savage := res.(*roll.SavageResult)
	assert.Equal(t, 4, savage.Target)
	assert.Equal(t, 4, savage.RaiseInterval)
	assert.False(t, savage.Raises().Success)
}

func TestEvaluate_SavageWildWins(t *testing.T) {
	// Trait d8 rolls 2; wild d6 aces 6 then 4 for a total of 10.
	res, err := scripted(2, 6, 4).Evaluate("s8")
	require.NoError(t, err)

	savage := res.(*roll.SavageResult)
	assert.Equal(t, roll.RoleWild, savage.UsedDie())
	assert.Equal(t, 10, res.Total())
	assert.True(t, savage.Wild.Exploded)
}

func TestEvaluate_SavageCustomWildDie(t *testing.T) {
	// s10w8: trait d10, wild d8.
	res, err := scripted(7, 5).Evaluate("s10w8")
	require.NoError(t, err)

	savage := res.(*roll.SavageResult)
	assert.Equal(t, 10, savage.Trait.Sides)
	assert.Equal(t, 8, savage.Wild.Sides)
}

func TestEvaluate_SavageExtras(t *testing.T) {
	res, err := scripted(5, 2, 8, 3).Evaluate("3e8")
	require.NoError(t, err)

	multi, ok := res.(*roll.MultipleResult)
	require.True(t, ok)
	require.Len(t, multi.Rolls, 3)
	// Third extra aced: 8 then 3.
	third := multi.Rolls[2].(*roll.SavageResult)
	assert.Equal(t, 11, third.Total())
	assert.Equal(t, roll.RoleTrait, third.UsedDie(), "extras roll no wild die")
}

func TestEvaluate_ExtrasModifierAppliesPerRoll(t *testing.T) {
	res, err := scripted(3, 5).Evaluate("2e8+1")
	require.NoError(t, err)

	multi, ok := res.(*roll.MultipleResult)
	require.True(t, ok)
	assert.Equal(t, 10, res.Total(), "(3+1)+(5+1)")
	first := multi.Rolls[0].(*roll.SavageResult)
	assert.Equal(t, 1, first.Modifier)
}

func TestEvaluate_GygaxRangeMinimum(t *testing.T) {
	res, err := scripted(1).Evaluate("1--100")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total())
}

func TestEvaluate_GygaxRangeReversedBounds(t *testing.T) {
	res, err := scripted(3).Evaluate("20--10")
	require.NoError(t, err)
	assert.Equal(t, 12, res.Total(), "bounds are ordered before drawing")
}

func TestEvaluate_Batch(t *testing.T) {
	res, err := scripted(2, 2, 4, 4, 6, 6).Evaluate("3x2d6+2")
	require.NoError(t, err)

	multi, ok := res.(*roll.MultipleResult)
	require.True(t, ok)
	require.Len(t, multi.Rolls, 3)
	assert.Equal(t, 6, multi.Rolls[0].Total())
	assert.Equal(t, 10, multi.Rolls[1].Total())
	assert.Equal(t, 14, multi.Rolls[2].Total())
	assert.Equal(t, 30, res.Total())
}

func TestEvaluate_VariablesAcrossStatements(t *testing.T) {
	res, err := scripted(3, 4).Evaluate("@hp := 2d6+10; @hp*2")
	require.NoError(t, err)
	assert.Equal(t, 34, res.Total(), "(3+4+10)*2")
}

func TestEvaluateAll_OneResultPerStatement(t *testing.T) {
	eval := scripted(3, 4)
	results, err := eval.EvaluateAll("@hp := 2d6+10; @hp*2")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 17, results[0].Total())
	assert.Equal(t, 34, results[1].Total())
}

func TestEvaluate_AssignmentIsTransparent(t *testing.T) {
	res, err := scripted(3, 4).Evaluate("@hp := 2d6")
	require.NoError(t, err)
	_, ok := res.(*roll.GenericResult)
	assert.True(t, ok, "assignment returns the inner result unchanged")
	assert.Equal(t, 7, res.Total())
}

func TestEvaluate_UndefinedVariable(t *testing.T) {
	_, err := scripted().Evaluate("@missing+1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undefined variable @missing")
}

func TestEvaluate_BatchSharesVariableEnvironment(t *testing.T) {
	// Each iteration adds the running total to @acc: 2, then 2+2.
	res, err := scripted().Evaluate("2x(@acc := @base+2); @acc")
	require.Error(t, err, "first iteration reads @base before any assignment")
	assert.Nil(t, res)

	res, err = scripted(1).Evaluate("@base := d6; 2x(@base := @base+1); @base")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total(), "assignments persist across batch iterations")
}

func TestEvaluate_ModifierPreservesStructure(t *testing.T) {
	res, err := scripted(3, 5).Evaluate("2d6+4")
	require.NoError(t, err)

	generic, ok := res.(*roll.GenericResult)
	require.True(t, ok, "additive ops keep the roll variant")
	assert.Equal(t, 4, generic.Modifier)
	assert.Equal(t, 12, res.Total())

	res, err = scripted(3, 5).Evaluate("2d6-2")
	require.NoError(t, err)
	generic = res.(*roll.GenericResult)
	assert.Equal(t, -2, generic.Modifier)
	assert.Equal(t, 6, res.Total())
}

func TestEvaluate_MultiplicativeCollapses(t *testing.T) {
	res, err := scripted(3, 5).Evaluate("2d6*2")
	require.NoError(t, err)

	_, ok := res.(*roll.SimpleResult)
	assert.True(t, ok, "multiplicative ops collapse to a plain number")
	assert.Equal(t, 16, res.Total())
}

func TestEvaluate_DivisionTruncatesTowardZero(t *testing.T) {
	tests := []struct {
		expr string
		want int
	}{
		{"7/2", 3},
		{"-7/2", -3}, // truncation toward zero, not floor
		{"7/-2", -3},
		{"-7/-2", 3},
		{"7%3", 1},
		{"-7%3", -1},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			res, err := scripted().Evaluate(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Total())
		})
	}
}

func TestEvaluate_DivisionByZero(t *testing.T) {
	for _, expr := range []string{"5/0", "5%0", "5/(2-2)"} {
		_, err := scripted().Evaluate(expr)
		require.ErrorIs(t, err, roll.ErrDivisionByZero, "expr %q", expr)
	}
}

func TestEvaluate_InvalidDie(t *testing.T) {
	_, err := scripted().Evaluate("2d0")
	var invalid *dice.InvalidDieError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, 0, invalid.Sides)
}

func TestEvaluate_SyntaxErrorWrapped(t *testing.T) {
	_, err := scripted().Evaluate("2d6t")
	var evalErr *roll.EvalError
	require.ErrorAs(t, err, &evalErr)
	var syntaxErr *roll.SyntaxError
	require.ErrorAs(t, err, &syntaxErr)
}

func TestEvaluate_Bounded(t *testing.T) {
	tests := []struct {
		expr  string
		faces []int
		want  int
	}{
		{"2d6[8:]", []int{2, 3}, 8},   // clamp up to the lower bound
		{"2d6[:5]", []int{4, 5}, 5},   // clamp down to the upper bound
		{"2d6[3:10]", []int{4, 4}, 8}, // in range, unchanged
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			res, err := scripted(tt.faces...).Evaluate(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Total())
		})
	}
}

func TestEvaluate_SuccessCounting(t *testing.T) {
	res, err := scripted(8, 7, 1, 4).Evaluate("4d10s7f1")
	require.NoError(t, err)

	succ, ok := res.(*roll.SuccessResult)
	require.True(t, ok)
	assert.Equal(t, 2, res.Total())
	assert.Equal(t, 1, succ.Failures())
}

func TestEvaluate_AcingGenericRoll(t *testing.T) {
	res, err := scripted(6, 6, 2, 3).Evaluate("2d6!")
	require.NoError(t, err)

	generic := res.(*roll.GenericResult)
	assert.Equal(t, 17, res.Total(), "(6+6+2)+3")
	assert.True(t, generic.Dice[0].Exploded)
	assert.False(t, generic.Dice[1].Exploded)
}

func TestEvaluate_PercentileRoll(t *testing.T) {
	res, err := scripted(73).Evaluate("d%")
	require.NoError(t, err)
	assert.Equal(t, 73, res.Total())
}

func TestEvaluate_FudgeRoll(t *testing.T) {
	// Faces 1,2 are -1; 3,4 are 0; 5,6 are +1.
	res, err := scripted(1, 3, 5, 5).Evaluate("4dF")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total())
}

func TestEvaluate_TargetNumberSuffix(t *testing.T) {
	res, err := scripted(8, 8).Evaluate("2d8t6r4")
	require.NoError(t, err)

	generic := res.(*roll.GenericResult)
	require.NotNil(t, generic.Raises())
	assert.Equal(t, roll.RaiseOutcome{Success: true, Raises: 2, Margin: 10}, *generic.Raises())
}

func TestEvaluate_Limits(t *testing.T) {
	eval := roll.NewEvaluator(dice.NewSeededSource(1), roll.Limits{MaxDice: 10, MaxBatch: 5, MaxStatements: 2})

	_, err := eval.Evaluate("11d6")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds limit")

	_, err = eval.Evaluate("6x2d6")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds limit")

	_, err = eval.Evaluate("1;2;3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too many statements")
}

// TestEvaluate_RangeInvariant_Property verifies evaluate("NdS").Total() is
// always within [N, N*S].
func TestEvaluate_RangeInvariant_Property(t *testing.T) {
	eval := roll.NewEvaluator(dice.NewCryptoSource(), roll.DefaultLimits())
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 100).Draw(rt, "n")
		s := rapid.IntRange(2, 100).Draw(rt, "s")

		res, err := eval.Evaluate(fmt.Sprintf("%dd%d", n, s))
		require.NoError(rt, err)
		assert.GreaterOrEqual(rt, res.Total(), n)
		assert.LessOrEqual(rt, res.Total(), n*s)
	})
}

// TestEvaluate_BatchCount_Property verifies batch size and the sum
// invariant for arbitrary N.
func TestEvaluate_BatchCount_Property(t *testing.T) {
	eval := roll.NewEvaluator(dice.NewSeededSource(7), roll.DefaultLimits())
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 20).Draw(rt, "n")

		res, err := eval.Evaluate(fmt.Sprintf("%dx2d6", n))
		require.NoError(rt, err)

		multi, ok := res.(*roll.MultipleResult)
		require.True(rt, ok)
		assert.Len(rt, multi.Rolls, n)

		sum := 0
		for _, sub := range multi.Rolls {
			sum += sub.Total()
		}
		assert.Equal(rt, sum, res.Total())
	})
}

func TestLoggedEvaluator_PassesThrough(t *testing.T) {
	logger := zaptest.NewLogger(t)
	eval := roll.NewLoggedEvaluator(scripted(3, 5), logger)

	res, err := eval.Evaluate("2d6")
	require.NoError(t, err)
	assert.Equal(t, 8, res.Total())

	_, err = eval.Evaluate("2d")
	require.Error(t, err)
}
