package roll

import (
	"fmt"
	"strconv"
)

// Parse turns an R2 expression string into a parse tree. The first
// malformed token aborts the parse with a positional *SyntaxError; there is
// no best-effort recovery.
//
// Precondition: input must be non-empty.
// Postcondition: Returns a Command with at least one statement, or an error.
func Parse(input string) (*Command, error) {
	toks, err := lex(input)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}

	cmd := &Command{}
	for {
		if p.cur().Kind == TokenEOF {
			if len(cmd.Statements) == 0 {
				return nil, &SyntaxError{Pos: p.cur().Pos, Msg: "empty expression"}
			}
			break
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		cmd.Statements = append(cmd.Statements, stmt)

		switch p.cur().Kind {
		case TokenSemicolon:
			p.next()
		case TokenEOF:
		default:
			return nil, p.errorf("unexpected %s after statement", p.cur())
		}
	}
	return cmd, nil
}

type parser struct {
	toks []Token
	pos  int
}

func (p *parser) cur() Token  { return p.toks[p.pos] }
func (p *parser) peek() Token { return p.peekAt(1) }

func (p *parser) peekAt(n int) Token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *parser) next() Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Pos: p.cur().Pos, Msg: fmt.Sprintf(format, args...)}
}

// atWord reports whether the current token is the given letter keyword.
func (p *parser) atWord(lit string) bool {
	return p.cur().Kind == TokenWord && p.cur().Lit == lit
}

// parseInt consumes the current TokenInt and returns its value.
func (p *parser) parseInt(what string) (int, error) {
	if p.cur().Kind != TokenInt {
		return 0, p.errorf("expected %s, got %s", what, p.cur())
	}
	tok := p.next()
	v, err := strconv.Atoi(tok.Lit)
	if err != nil {
		return 0, &SyntaxError{Pos: tok.Pos, Msg: fmt.Sprintf("%s %q out of range", what, tok.Lit)}
	}
	return v, nil
}

// parseStatement handles the batch-prefix form "Nx<expr>" and falls back to
// a plain expression.
func (p *parser) parseStatement() (Node, error) {
	if p.cur().Kind == TokenInt && p.peek().Kind == TokenWord && p.peek().Lit == "x" {
		intPos := p.cur().Pos
		n, err := p.parseInt("batch count")
		if err != nil {
			return nil, err
		}
		if n < 1 {
			return nil, &SyntaxError{Pos: intPos, Msg: "batch count must be >= 1"}
		}
		p.next() // 'x'
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &Batch{IntPos: intPos, N: n, Expr: expr}, nil
	}
	return p.parseExpr()
}

// parseExpr handles assignment, then an additive expression with an
// optional bounded "[min:max]" postfix.
func (p *parser) parseExpr() (Node, error) {
	if p.cur().Kind == TokenAt && p.peekAt(2).Kind == TokenAssign {
		atPos := p.next().Pos
		if p.cur().Kind != TokenIdent {
			return nil, p.errorf("expected variable name, got %s", p.cur())
		}
		name := p.next().Lit
		p.next() // :=
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &Assign{Target: &Variable{AtPos: atPos, Name: name}, Expr: expr}, nil
	}

	node, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}

	for p.cur().Kind == TokenLBracket {
		node, err = p.parseBounds(node)
		if err != nil {
			return nil, err
		}
	}
	return node, nil
}

// parseBounds parses "[min?:max?]" following expr.
func (p *parser) parseBounds(expr Node) (Node, error) {
	p.next() // '['
	b := &Bounded{Expr: expr}
	var err error

	if p.cur().Kind != TokenColon {
		if b.Min, err = p.parseAdditive(); err != nil {
			return nil, err
		}
	}
	if p.cur().Kind != TokenColon {
		return nil, p.errorf("expected ':' in bounds, got %s", p.cur())
	}
	p.next()

	if p.cur().Kind != TokenRBracket {
		if b.Max, err = p.parseAdditive(); err != nil {
			return nil, err
		}
	}
	if p.cur().Kind != TokenRBracket {
		return nil, p.errorf("expected ']' to close bounds, got %s", p.cur())
	}
	p.next()
	return b, nil
}

func (p *parser) parseAdditive() (Node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == TokenPlus || p.cur().Kind == TokenMinus {
		op := p.next()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &Infix{Left: left, Op: op.Kind, OpPos: op.Pos, Right: right}
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == TokenStar || p.cur().Kind == TokenSlash || p.cur().Kind == TokenPercent {
		op := p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &Infix{Left: left, Op: op.Kind, OpPos: op.Pos, Right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (Node, error) {
	if p.cur().Kind == TokenMinus {
		op := p.next()
		expr, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Prefix{OpPos: op.Pos, Expr: expr}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Node, error) {
	tok := p.cur()
	switch tok.Kind {
	case TokenInt:
		switch {
		case p.peek().Kind == TokenWord && p.peek().Lit == "d":
			return p.parseRollTerm()
		case p.peek().Kind == TokenWord && p.peek().Lit == "s" && p.peekAt(2).Kind == TokenInt:
			return p.parseSavage()
		case p.peek().Kind == TokenWord && p.peek().Lit == "e" && p.peekAt(2).Kind == TokenInt:
			return p.parseExtras()
		case p.peek().Kind == TokenRange:
			return p.parseGygax()
		default:
			v, err := p.parseInt("number")
			if err != nil {
				return nil, err
			}
			return &Number{IntPos: tok.Pos, Value: v}, nil
		}
	case TokenWord:
		switch tok.Lit {
		case "d":
			return p.parseRollTerm()
		case "s":
			return p.parseSavage()
		}
	case TokenAt:
		p.next()
		if p.cur().Kind != TokenIdent {
			return nil, p.errorf("expected variable name, got %s", p.cur())
		}
		name := p.next().Lit
		return &Variable{AtPos: tok.Pos, Name: name}, nil
	case TokenLParen:
		p.next()
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.cur().Kind != TokenRParen {
			return nil, p.errorf("expected ')', got %s", p.cur())
		}
		p.next()
		return &Group{LParen: tok.Pos, Expr: expr}, nil
	}
	return nil, p.errorf("expected expression, got %s", tok)
}

// parseRollTerm parses "INT? d (INT|%|f) !? suffix?" — a generic roll or a
// fudge roll.
func (p *parser) parseRollTerm() (Node, error) {
	intPos := p.cur().Pos
	count := 1
	if p.cur().Kind == TokenInt {
		var err error
		if count, err = p.parseInt("die count"); err != nil {
			return nil, err
		}
		if count < 1 {
			return nil, &SyntaxError{Pos: intPos, Msg: "die count must be >= 1"}
		}
	}
	p.next() // 'd'

	roll := &GenericRoll{IntPos: intPos, Count: count}
	switch {
	case p.cur().Kind == TokenInt:
		sides, err := p.parseInt("die sides")
		if err != nil {
			return nil, err
		}
		roll.Sides = sides
	case p.cur().Kind == TokenPercent:
		p.next()
		roll.Sides = 100
		roll.Percent = true
	case p.atWord("f"):
		p.next()
		return &FudgeRoll{IntPos: intPos, Count: count}, nil
	default:
		return nil, p.errorf("expected die sides, got %s", p.cur())
	}

	if p.cur().Kind == TokenBang {
		p.next()
		roll.Acing = true
	}

	suffix, err := p.parseSuffix(count)
	if err != nil {
		return nil, err
	}
	roll.Suffix = suffix
	return roll, nil
}

// parseSuffix parses at most one suffix category: keep selection, success
// counting, or target number. The grammar does not allow stacking them.
func (p *parser) parseSuffix(count int) (RollSuffix, error) {
	s := RollSuffix{Kind: SuffixNone}

	if p.cur().Kind != TokenWord {
		return s, nil
	}

	switch p.cur().Lit {
	case "k", "kl", "adv", "dis":
		word := p.next()
		s.Kind = SuffixKeep
		switch word.Lit {
		case "k":
			s.Keep = KeepHighest
		case "kl":
			s.Keep = KeepLowest
		case "adv":
			s.Keep = KeepAdvantage
		case "dis":
			s.Keep = KeepDisadvantage
		}
		s.KeepN = 1
		if p.cur().Kind == TokenInt {
			n, err := p.parseInt("keep count")
			if err != nil {
				return s, err
			}
			s.KeepN = n
		}
		if s.KeepN < 1 || s.KeepN > count {
			return s, &SyntaxError{Pos: word.Pos, Msg: fmt.Sprintf("keep count %d must be between 1 and %d", s.KeepN, count)}
		}
	case "s":
		p.next()
		s.Kind = SuffixSuccess
		at, err := p.parseInt("success threshold")
		if err != nil {
			return s, err
		}
		s.SuccessAt = at
		if p.atWord("f") {
			p.next()
			fail, err := p.parseInt("failure threshold")
			if err != nil {
				return s, err
			}
			s.FailAt = fail
			s.HasFail = true
		}
	case "t", "r":
		s.Kind = SuffixTarget
		if err := p.parseTargetRaise(&s.Target, &s.HasTarget, &s.Raise, &s.HasRaise); err != nil {
			return s, err
		}
	}
	return s, nil
}

// parseTargetRaise parses "tN", "rN", "tN rN", or "rN tN".
func (p *parser) parseTargetRaise(target *int, hasTarget *bool, raise *int, hasRaise *bool) error {
	for p.atWord("t") || p.atWord("r") {
		word := p.next()
		v, err := p.parseInt(map[string]string{"t": "target number", "r": "raise interval"}[word.Lit])
		if err != nil {
			return err
		}
		switch word.Lit {
		case "t":
			if *hasTarget {
				return &SyntaxError{Pos: word.Pos, Msg: "duplicate target number"}
			}
			*target = v
			*hasTarget = true
		case "r":
			if *hasRaise {
				return &SyntaxError{Pos: word.Pos, Msg: "duplicate raise interval"}
			}
			if v < 1 {
				return &SyntaxError{Pos: word.Pos, Msg: "raise interval must be >= 1"}
			}
			*raise = v
			*hasRaise = true
		}
	}
	return nil
}

// parseSavage parses "INT? s INT (w INT)? (tN|rN)*".
func (p *parser) parseSavage() (Node, error) {
	intPos := p.cur().Pos
	count := 1
	if p.cur().Kind == TokenInt {
		var err error
		if count, err = p.parseInt("roll count"); err != nil {
			return nil, err
		}
		if count < 1 {
			return nil, &SyntaxError{Pos: intPos, Msg: "roll count must be >= 1"}
		}
	}
	p.next() // 's'

	roll := &SavageRoll{IntPos: intPos, Count: count}
	sides, err := p.parseInt("trait die sides")
	if err != nil {
		return nil, err
	}
	roll.TraitSides = sides

	if p.atWord("w") {
		p.next()
		wild, err := p.parseInt("wild die sides")
		if err != nil {
			return nil, err
		}
		roll.WildSides = wild
	}

	if err := p.parseTargetRaise(&roll.Target, &roll.HasTarget, &roll.Raise, &roll.HasRaise); err != nil {
		return nil, err
	}
	return roll, nil
}

// parseExtras parses "INT e INT (tN|rN)*" — Savage Worlds extras.
func (p *parser) parseExtras() (Node, error) {
	intPos := p.cur().Pos
	count, err := p.parseInt("roll count")
	if err != nil {
		return nil, err
	}
	if count < 1 {
		return nil, &SyntaxError{Pos: intPos, Msg: "roll count must be >= 1"}
	}
	p.next() // 'e'

	extras := &SavageExtras{IntPos: intPos, Count: count}
	if extras.Sides, err = p.parseInt("die sides"); err != nil {
		return nil, err
	}
	if err := p.parseTargetRaise(&extras.Target, &extras.HasTarget, &extras.Raise, &extras.HasRaise); err != nil {
		return nil, err
	}
	return extras, nil
}

// parseGygax parses "INT -- INT".
func (p *parser) parseGygax() (Node, error) {
	intPos := p.cur().Pos
	lo, err := p.parseInt("range start")
	if err != nil {
		return nil, err
	}
	p.next() // '--'
	hi, err := p.parseInt("range end")
	if err != nil {
		return nil, err
	}
	return &GygaxRange{IntPos: intPos, Lo: lo, Hi: hi}, nil
}
