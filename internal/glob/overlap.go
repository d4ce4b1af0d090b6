package glob

import (
	"path/filepath"
	"strings"
)

// PatternsOverlap reports whether two patterns can match the same path.
// Used at registration time to warn about subscriptions that will wake the
// same agent twice for one event.
func PatternsOverlap(a, b string) (bool, error) {
	a = filepath.ToSlash(a)
	b = filepath.ToSlash(b)

	segmentsA := strings.Split(a, "/")
	segmentsB := strings.Split(b, "/")
	if len(segmentsA) != len(segmentsB) {
		return false, nil
	}

	for i := range segmentsA {
		overlap, err := segmentPatternsOverlap(segmentsA[i], segmentsB[i])
		if err != nil {
			return false, err
		}
		if !overlap {
			return false, nil
		}
	}

	return true, nil
}

// segmentPatternsOverlap runs a product construction over the two token
// lists: a pair state (i, j) is reachable if some string is consumed by the
// first i tokens of a and the first j tokens of b simultaneously.
func segmentPatternsOverlap(a, b string) (bool, error) {
	tokensA, err := parseSegment(a)
	if err != nil {
		return false, err
	}
	tokensB, err := parseSegment(b)
	if err != nil {
		return false, err
	}

	type state struct {
		i int
		j int
	}

	addClosure := func(initial state, seen map[state]struct{}, queue *[]state) {
		stack := []state{initial}
		for len(stack) > 0 {
			curr := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if _, ok := seen[curr]; ok {
				continue
			}
			seen[curr] = struct{}{}
			*queue = append(*queue, curr)
			if curr.i < len(tokensA) && tokensA[curr.i].kind == tokenStar {
				stack = append(stack, state{i: curr.i + 1, j: curr.j})
			}
			if curr.j < len(tokensB) && tokensB[curr.j].kind == tokenStar {
				stack = append(stack, state{i: curr.i, j: curr.j + 1})
			}
		}
	}

	seen := make(map[state]struct{})
	queue := make([]state, 0, (len(tokensA)+1)*(len(tokensB)+1))
	addClosure(state{i: 0, j: 0}, seen, &queue)

	for idx := 0; idx < len(queue); idx++ {
		curr := queue[idx]
		if curr.i == len(tokensA) && curr.j == len(tokensB) {
			return true, nil
		}
		if curr.i == len(tokensA) || curr.j == len(tokensB) {
			continue
		}

		aNext, aRanges := tokenConsume(tokensA, curr.i)
		bNext, bRanges := tokenConsume(tokensB, curr.j)
		if !rangesOverlap(aRanges, bRanges) {
			continue
		}

		addClosure(state{i: aNext, j: bNext}, seen, &queue)
	}

	return false, nil
}

func tokenConsume(tokens []token, idx int) (next int, ranges []runeRange) {
	tok := tokens[idx]
	if tok.kind == tokenStar {
		return idx, nonSeparatorRanges
	}
	if tok.kind == tokenLiteral {
		return idx + 1, []runeRange{{lo: tok.lit, hi: tok.lit}}
	}
	return idx + 1, tok.ranges
}
