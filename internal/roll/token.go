package roll

import (
	"fmt"
	"strings"
	"unicode"
)

// TokenKind identifies the lexical class of a Token.
type TokenKind int

const (
	TokenEOF TokenKind = iota
	TokenInt
	TokenWord  // lowercased letter keyword: "d", "k", "kl", "adv", "dis", "s", "f", "t", "r", "w", "e", "x"
	TokenIdent // variable name following '@'
	TokenAt
	TokenAssign // :=
	TokenSemicolon
	TokenPlus
	TokenMinus
	TokenStar
	TokenSlash
	TokenPercent
	TokenBang
	TokenLParen
	TokenRParen
	TokenLBracket
	TokenRBracket
	TokenColon
	TokenRange // --
)

// Token is a single lexical unit of an R2 expression. Pos is the 1-based
// byte offset of the token's first character in the source text.
type Token struct {
	Kind TokenKind
	Lit  string
	Pos  int
}

func (t Token) String() string {
	if t.Kind == TokenEOF {
		return "end of input"
	}
	return fmt.Sprintf("%q", t.Lit)
}

// multiLetterWords are the letter keywords matched greedily before falling
// back to single-letter words. Order matters: longest first.
var multiLetterWords = []string{"adv", "dis", "kl"}

// lex splits input into tokens. Letter runs are broken into grammar
// keywords ("adv", "dis", "kl", then single letters) so that forms like
// "3xd6" and "4d6kl2" tokenize without lexer-level grammar knowledge.
// Letter keywords are case-insensitive; variable names keep their case.
//
// Postcondition: the returned slice is terminated by a TokenEOF entry, or a
// *SyntaxError describes the first illegal character.
func lex(input string) ([]Token, error) {
	var toks []Token
	i := 0
	for i < len(input) {
		c := input[i]
		pos := i + 1
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c >= '0' && c <= '9':
			start := i
			for i < len(input) && input[i] >= '0' && input[i] <= '9' {
				i++
			}
			toks = append(toks, Token{Kind: TokenInt, Lit: input[start:i], Pos: pos})
		case isLetterByte(c):
			run := i
			for run < len(input) && isLetterByte(input[run]) {
				run++
			}
			word := strings.ToLower(input[i:run])
			for len(word) > 0 {
				matched := ""
				for _, kw := range multiLetterWords {
					if strings.HasPrefix(word, kw) {
						matched = kw
						break
					}
				}
				if matched == "" {
					matched = word[:1]
				}
				toks = append(toks, Token{Kind: TokenWord, Lit: matched, Pos: pos})
				pos += len(matched)
				word = word[len(matched):]
			}
			i = run
		case c == '@':
			toks = append(toks, Token{Kind: TokenAt, Lit: "@", Pos: pos})
			i++
			start := i
			for i < len(input) && isIdentByte(input[i], i > start) {
				i++
			}
			if start == i {
				return nil, &SyntaxError{Pos: pos, Msg: "expected variable name after '@'"}
			}
			toks = append(toks, Token{Kind: TokenIdent, Lit: input[start:i], Pos: start + 1})
		case c == ':':
			if i+1 < len(input) && input[i+1] == '=' {
				toks = append(toks, Token{Kind: TokenAssign, Lit: ":=", Pos: pos})
				i += 2
			} else {
				toks = append(toks, Token{Kind: TokenColon, Lit: ":", Pos: pos})
				i++
			}
		case c == '-':
			if i+1 < len(input) && input[i+1] == '-' {
				toks = append(toks, Token{Kind: TokenRange, Lit: "--", Pos: pos})
				i += 2
			} else {
				toks = append(toks, Token{Kind: TokenMinus, Lit: "-", Pos: pos})
				i++
			}
		default:
			kind, ok := punctKinds[c]
			if !ok {
				return nil, &SyntaxError{Pos: pos, Msg: fmt.Sprintf("unexpected character %q", string(rune(c)))}
			}
			toks = append(toks, Token{Kind: kind, Lit: string(rune(c)), Pos: pos})
			i++
		}
	}
	toks = append(toks, Token{Kind: TokenEOF, Pos: len(input) + 1})
	return toks, nil
}

var punctKinds = map[byte]TokenKind{
	';': TokenSemicolon,
	'+': TokenPlus,
	'*': TokenStar,
	'/': TokenSlash,
	'%': TokenPercent,
	'!': TokenBang,
	'(': TokenLParen,
	')': TokenRParen,
	'[': TokenLBracket,
	']': TokenRBracket,
}

func isLetterByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentByte(c byte, tail bool) bool {
	if isLetterByte(c) || c == '_' {
		return true
	}
	return tail && unicode.IsDigit(rune(c))
}
