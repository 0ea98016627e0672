package roll

import (
	"regexp"
	"strings"
)

// Suffix canonicalization. Users type roll suffixes in whatever order feels
// natural ("s10+5r2t5", "2d6t4!"); the parser wants one fixed order. Each
// statement that matches a recognized die-roll shape is re-emitted with its
// suffix tokens in canonical order:
//
//	base, wild, explosion, keep, target, raise, modifier
//
// Statements that do not match a recognized shape (multi-term arithmetic,
// batches of parenthesized expressions, success counting) pass through
// verbatim: they are assumed already valid for the grammar.

var (
	normalizeBatchRe   = regexp.MustCompile(`^\d+x`)
	normalizeGenericRe = regexp.MustCompile(`^\d*d(?:\d+|%)`)
	normalizeSavageRe  = regexp.MustCompile(`^\d*s\d+`)

	normalizeWildRe     = regexp.MustCompile(`^w\d+`)
	normalizeKeepRe     = regexp.MustCompile(`^(?:kl|k|adv|dis)\d*`)
	normalizeTargetRe   = regexp.MustCompile(`^t\d+`)
	normalizeRaiseRe    = regexp.MustCompile(`^r\d+`)
	normalizeModifierRe = regexp.MustCompile(`^[+-]\d+`)
)

// Normalize canonicalizes the suffix order of every recognized die-roll
// statement in input. Normalization is idempotent: a canonical string is
// returned unchanged, and any permutation of a fixed suffix set yields the
// same canonical form.
func Normalize(input string) string {
	segments := strings.Split(input, ";")
	out := make([]string, len(segments))
	changed := false
	for i, seg := range segments {
		trimmed := strings.TrimSpace(seg)
		norm := normalizeStatement(trimmed)
		if norm != trimmed {
			changed = true
		}
		out[i] = norm
	}
	if !changed {
		return input
	}
	return strings.Join(out, "; ")
}

// normalizeStatement canonicalizes one statement, or returns it unchanged
// when it does not match a recognized generic or Savage Worlds shape.
func normalizeStatement(stmt string) string {
	if stmt == "" || strings.ContainsAny(stmt, " \t") {
		return stmt
	}
	lower := strings.ToLower(stmt)

	prefix := normalizeBatchRe.FindString(lower)
	rest := lower[len(prefix):]

	var base string
	savage := false
	if m := normalizeGenericRe.FindString(rest); m != "" {
		base = m
	} else if m := normalizeSavageRe.FindString(rest); m != "" {
		base = m
		savage = true
	} else {
		return stmt
	}
	rest = rest[len(base):]

	// Collect each suffix category at most once, in any input order.
	var explosion, wild, keep, target, raise, modifier string
	for rest != "" {
		switch {
		case !savage && explosion == "" && rest[0] == '!':
			explosion, rest = "!", rest[1:]
		case savage && wild == "" && normalizeWildRe.MatchString(rest):
			wild = normalizeWildRe.FindString(rest)
			rest = rest[len(wild):]
		case !savage && keep == "" && normalizeKeepRe.MatchString(rest):
			keep = normalizeKeepRe.FindString(rest)
			rest = rest[len(keep):]
		case target == "" && normalizeTargetRe.MatchString(rest):
			target = normalizeTargetRe.FindString(rest)
			rest = rest[len(target):]
		case raise == "" && normalizeRaiseRe.MatchString(rest):
			raise = normalizeRaiseRe.FindString(rest)
			rest = rest[len(raise):]
		case modifier == "" && normalizeModifierRe.MatchString(rest):
			modifier = normalizeModifierRe.FindString(rest)
			rest = rest[len(modifier):]
		default:
			// Unconsumed tail: not a pure suffix statement (arithmetic,
			// success counting, bounds). Leave it alone.
			return stmt
		}
	}

	return prefix + base + wild + explosion + keep + target + raise + modifier
}
