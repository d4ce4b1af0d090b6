// Package glob implements the segment-wise glob dialect used by
// subscription patterns: *, ?, character classes, and backslash escapes,
// where wildcards never cross a path separator.
package glob

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	MaxTokens    = 50
	MaxWildcards = 10
)

// ValidateComplexity checks that a pattern doesn't exceed token/wildcard
// limits. Called at subscription registration so pathological patterns
// never reach the per-event matcher.
func ValidateComplexity(pattern string) error {
	segments := strings.Split(filepath.ToSlash(pattern), "/")
	totalTokens := 0
	totalWildcards := 0
	for _, seg := range segments {
		tokens, err := parseSegment(seg)
		if err != nil {
			return err
		}
		totalTokens += len(tokens)
		for _, t := range tokens {
			if t.kind == tokenStar || t.kind == tokenAny {
				totalWildcards++
			}
		}
	}
	if totalTokens > MaxTokens {
		return fmt.Errorf("pattern too complex: %d tokens exceeds limit of %d", totalTokens, MaxTokens)
	}
	if totalWildcards > MaxWildcards {
		return fmt.Errorf("pattern too complex: %d wildcards exceeds limit of %d", totalWildcards, MaxWildcards)
	}
	return nil
}

// QuoteMeta returns a pattern that matches s literally: every glob
// metacharacter is backslash-escaped. Used when a stored file path becomes
// a pattern, so paths like "weird[1].py" match themselves.
func QuoteMeta(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Match reports whether pattern matches the literal path. Both sides are
// split on the separator; segment counts must agree and each pattern
// segment must match the corresponding path segment.
func Match(pattern, path string) (bool, error) {
	pattern = filepath.ToSlash(pattern)
	path = filepath.ToSlash(path)

	patSegs := strings.Split(pattern, "/")
	pathSegs := strings.Split(path, "/")
	if len(patSegs) != len(pathSegs) {
		return false, nil
	}

	for i := range patSegs {
		ok, err := matchSegment(patSegs[i], pathSegs[i])
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func matchSegment(pattern, segment string) (bool, error) {
	tokens, err := parseSegment(pattern)
	if err != nil {
		return false, err
	}
	runes := []rune(segment)

	// reachable[j] tracks whether the first j runes can be consumed by the
	// tokens processed so far.
	reachable := make([]bool, len(runes)+1)
	reachable[0] = true

	for _, tok := range tokens {
		next := make([]bool, len(runes)+1)
		if tok.kind == tokenStar {
			// A star extends every reachable position to all later ones.
			carry := false
			for j := 0; j <= len(runes); j++ {
				carry = carry || reachable[j]
				next[j] = carry
			}
		} else {
			for j := 0; j < len(runes); j++ {
				if reachable[j] && tokenMatchesRune(tok, runes[j]) {
					next[j+1] = true
				}
			}
		}
		reachable = next
	}

	return reachable[len(runes)], nil
}

func tokenMatchesRune(tok token, r rune) bool {
	if tok.kind == tokenLiteral {
		return tok.lit == r
	}
	for _, rr := range tok.ranges {
		if r >= rr.lo && r <= rr.hi {
			return true
		}
	}
	return false
}
