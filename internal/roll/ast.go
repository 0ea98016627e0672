package roll

// Node is a parse-tree node. The node set is closed: the evaluator
// dispatches on concrete type with an exhaustive switch.
type Node interface {
	// Pos returns the 1-based position of the node's first character.
	Pos() int
}

// Command is the root of a parse: one or more ';'-separated statements.
type Command struct {
	Statements []Node
}

func (c *Command) Pos() int {
	if len(c.Statements) == 0 {
		return 1
	}
	return c.Statements[0].Pos()
}

// Number is an integer literal.
type Number struct {
	IntPos int
	Value  int
}

func (n *Number) Pos() int { return n.IntPos }

// Variable is a reference to a call-scoped variable: "@hp".
type Variable struct {
	AtPos int
	Name  string
}

func (v *Variable) Pos() int { return v.AtPos }

// Assign binds the value of Expr to Target: "@hp := 2d6+10". Assignment is
// transparent: it evaluates to Expr's result unchanged.
type Assign struct {
	Target *Variable
	Expr   Node
}

func (a *Assign) Pos() int { return a.Target.Pos() }

// Infix is a binary arithmetic expression.
type Infix struct {
	Left  Node
	Op    TokenKind // TokenPlus, TokenMinus, TokenStar, TokenSlash, TokenPercent
	OpPos int
	Right Node
}

func (i *Infix) Pos() int { return i.Left.Pos() }

// Prefix is a unary minus.
type Prefix struct {
	OpPos int
	Expr  Node
}

func (p *Prefix) Pos() int { return p.OpPos }

// Group is a parenthesized expression.
type Group struct {
	LParen int
	Expr   Node
}

func (g *Group) Pos() int { return g.LParen }

// Bounded clamps the value of Expr into [Min, Max]. A nil bound is open on
// that side: "2d6[3:]" has no upper bound.
type Bounded struct {
	Expr Node
	Min  Node // nil = open
	Max  Node // nil = open
}

func (b *Bounded) Pos() int { return b.Expr.Pos() }

// Batch evaluates Expr independently N times: "10x2d6". Fresh dice each
// iteration; the variable environment is shared across iterations.
type Batch struct {
	IntPos int
	N      int
	Expr   Node
}

func (b *Batch) Pos() int { return b.IntPos }

// SuffixKind identifies which suffix category a generic roll carries.
// The grammar allows at most one category per roll.
type SuffixKind int

const (
	SuffixNone SuffixKind = iota
	SuffixKeep
	SuffixSuccess
	SuffixTarget
)

// RollSuffix is the optional suffix of a generic roll: keep-highest/lowest
// selection, success/failure counting, or a target number with raises.
type RollSuffix struct {
	Kind SuffixKind

	// SuffixKeep
	Keep  KeepOp
	KeepN int

	// SuffixSuccess
	SuccessAt int
	FailAt    int
	HasFail   bool

	// SuffixTarget
	Target    int
	HasTarget bool
	Raise     int
	HasRaise  bool
}

// GenericRoll is "NdS" with optional acing and suffix: "4d6!k3", "3d10s5f2",
// "2d8t6r4", "d%". Percent means sides 100.
type GenericRoll struct {
	IntPos  int
	Count   int
	Sides   int
	Percent bool
	Acing   bool
	Suffix  RollSuffix
}

func (g *GenericRoll) Pos() int { return g.IntPos }

// FudgeRoll is "NdF": N fudge dice, each -1, 0, or +1.
type FudgeRoll struct {
	IntPos int
	Count  int
}

func (f *FudgeRoll) Pos() int { return f.IntPos }

// SavageRoll is a Savage Worlds trait roll "sN[wM]" with an acing trait die
// and an acing wild die (default d6). Count > 1 repeats the whole roll.
type SavageRoll struct {
	IntPos     int
	Count      int
	TraitSides int
	WildSides  int // 0 = default
	Target     int
	HasTarget  bool
	Raise      int
	HasRaise   bool
}

func (s *SavageRoll) Pos() int { return s.IntPos }

// SavageExtras is "NeS": N independent acing rolls with no wild die, one
// per extra. Target numbers apply to each roll individually.
type SavageExtras struct {
	IntPos    int
	Count     int
	Sides     int
	Target    int
	HasTarget bool
	Raise     int
	HasRaise  bool
}

func (s *SavageExtras) Pos() int { return s.IntPos }

// GygaxRange is "A--B": a uniform integer in [min(A,B), max(A,B)].
type GygaxRange struct {
	IntPos int
	Lo     int
	Hi     int
}

func (g *GygaxRange) Pos() int { return g.IntPos }
