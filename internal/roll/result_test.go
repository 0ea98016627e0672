package roll

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/r2/internal/dice"
)

func TestCalculateRaises(t *testing.T) {
	tests := []struct {
		total, target, interval int
		want                    RaiseOutcome
	}{
		{12, 4, 4, RaiseOutcome{Success: true, Raises: 2, Margin: 8}},
		{3, 4, 4, RaiseOutcome{Success: false, Raises: 0, Margin: -1}},
		{4, 4, 4, RaiseOutcome{Success: true, Raises: 0, Margin: 0}},
		{8, 4, 4, RaiseOutcome{Success: true, Raises: 1, Margin: 4}},
		{7, 4, 4, RaiseOutcome{Success: true, Raises: 0, Margin: 3}},
		{10, 4, 2, RaiseOutcome{Success: true, Raises: 3, Margin: 6}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CalculateRaises(tt.total, tt.target, tt.interval),
			"CalculateRaises(%d, %d, %d)", tt.total, tt.target, tt.interval)
	}
}

func TestCalculateRaises_PanicsOnZeroInterval(t *testing.T) {
	assert.Panics(t, func() { CalculateRaises(10, 4, 0) })
}

func TestGenericResult_TotalRecompute(t *testing.T) {
	r := &GenericResult{
		Dice: []dice.Die{
			{Value: 6, Sides: 6, Exploded: true, Chain: &dice.Die{Value: 2, Sides: 6}},
			{Value: 3, Sides: 6},
		},
		Modifier: 4,
	}
	// (6+2) + 3 + 4
	assert.Equal(t, 15, r.Total())
}

func TestGenericResult_KeepCountsOnlyKept(t *testing.T) {
	all := []dice.Die{{Value: 6, Sides: 6}, {Value: 2, Sides: 6}, {Value: 5, Sides: 6}, {Value: 1, Sides: 6}}
	r := &GenericResult{
		Dice:    all,
		Keep:    KeepHighest,
		Kept:    []dice.Die{all[0], all[2], all[1]},
		Dropped: []dice.Die{all[3]},
	}
	assert.Equal(t, 13, r.Total())
}

func TestGenericResult_Raises(t *testing.T) {
	r := &GenericResult{Dice: []dice.Die{{Value: 9, Sides: 12}}}
	assert.Nil(t, r.Raises(), "no target suffix, no raise outcome")

	r.HasTarget = true
	r.Target = 4
	r.RaiseInterval = 4
	outcome := r.Raises()
	require.NotNil(t, outcome)
	assert.Equal(t, RaiseOutcome{Success: true, Raises: 1, Margin: 5}, *outcome)
}

func TestSuccessResult_IndependentCounting(t *testing.T) {
	r := &SuccessResult{
		Dice:      []dice.Die{{Value: 8, Sides: 10}, {Value: 7, Sides: 10}, {Value: 1, Sides: 10}, {Value: 4, Sides: 10}},
		SuccessAt: 7,
		FailAt:    1,
		HasFail:   true,
	}
	assert.Equal(t, 2, r.Total(), "successes are the value")
	assert.Equal(t, 1, r.Failures(), "failures tracked separately, never subtracted")
}

func TestSavageResult_TiePolicy(t *testing.T) {
	r := &SavageResult{
		Trait:         dice.Die{Value: 5, Sides: 8},
		Wild:          dice.Die{Value: 5, Sides: 6},
		HasWild:       true,
		Target:        4,
		RaiseInterval: 4,
	}
	assert.Equal(t, RoleTrait, r.UsedDie(), "exact tie must use the trait die")
	assert.Equal(t, 5, r.Total())

	r.Wild = dice.Die{Value: 6, Sides: 6, Exploded: true, Chain: &dice.Die{Value: 2, Sides: 6}}
	assert.Equal(t, RoleWild, r.UsedDie())
	assert.Equal(t, 8, r.Total())
}

func TestSavageResult_ModifierAndRaises(t *testing.T) {
	r := &SavageResult{
		Trait:         dice.Die{Value: 7, Sides: 8},
		Wild:          dice.Die{Value: 2, Sides: 6},
		HasWild:       true,
		Modifier:      1,
		Target:        4,
		RaiseInterval: 4,
	}
	assert.Equal(t, 8, r.Total())
	assert.Equal(t, RaiseOutcome{Success: true, Raises: 1, Margin: 4}, r.Raises())
}

func TestMultipleResult_TotalIsSum(t *testing.T) {
	r := &MultipleResult{Rolls: []Result{
		&SimpleResult{Value: 6},
		&SimpleResult{Value: 10},
		&SimpleResult{Value: 14},
	}}
	assert.Equal(t, 30, r.Total())
}

// TestGenericResult_TotalRecompute_Property verifies the round-trip
// invariant: Total() is a pure function of the structural fields for
// arbitrary dice and modifiers.
func TestGenericResult_TotalRecompute_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		dieGen := rapid.Custom(func(rt *rapid.T) dice.Die {
			d := dice.Die{Value: rapid.IntRange(1, 12).Draw(rt, "value"), Sides: 12}
			if rapid.Bool().Draw(rt, "aced") {
				d.Value = 12
				d.Exploded = true
				d.Chain = &dice.Die{Value: rapid.IntRange(1, 12).Draw(rt, "chained"), Sides: 12}
			}
			return d
		})
		dies := rapid.SliceOfN(dieGen, 1, 10).Draw(rt, "dice")
		modifier := rapid.IntRange(-20, 20).Draw(rt, "modifier")

		r := &GenericResult{Dice: dies, Modifier: modifier}

		expected := modifier
		for _, d := range dies {
			for _, v := range d.Values() {
				expected += v
			}
		}
		assert.Equal(rt, expected, r.Total(),
			"Total() must be recomputable from dice values and modifier")
	})
}

func TestResultKind_Strings(t *testing.T) {
	assert.Equal(t, "generic", KindGeneric.String())
	assert.Equal(t, "savage", KindSavage.String())
	assert.Equal(t, "keep highest", KeepHighest.String())
	assert.Equal(t, "trait", RoleTrait.String())
	assert.Equal(t, "wild", RoleWild.String())
}

func TestResult_StringFormats(t *testing.T) {
	generic := &GenericResult{Dice: []dice.Die{{Value: 3, Sides: 6}, {Value: 5, Sides: 6}}, Modifier: 2}
	assert.Equal(t, "[3 5] +2 = 10", generic.String())

	simple := &SimpleResult{Value: 34, Description: "@hp*2"}
	assert.Equal(t, "@hp*2 = 34", simple.String())
}
