package glob

import "fmt"

type tokenKind int

const (
	tokenLiteral tokenKind = iota
	tokenAny
	tokenStar
	tokenClass
)

type runeRange struct {
	lo rune
	hi rune
}

type token struct {
	kind   tokenKind
	lit    rune
	ranges []runeRange
}

const maxRune = rune(0x10FFFF)

// Ranges matchable by wildcards inside one path segment: every rune except
// the separator.
var nonSeparatorRanges = []runeRange{
	{lo: 0, hi: '/' - 1},
	{lo: '/' + 1, hi: maxRune},
}

func parseSegment(segment string) ([]token, error) {
	runes := []rune(segment)
	tokens := make([]token, 0, len(runes))

	for i := 0; i < len(runes); {
		ch := runes[i]
		switch ch {
		case '*':
			tokens = append(tokens, token{kind: tokenStar})
			i++
		case '?':
			tokens = append(tokens, token{kind: tokenAny, ranges: nonSeparatorRanges})
			i++
		case '[':
			tok, next, err := parseClass(runes, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
			i = next
		case '\\':
			if i+1 >= len(runes) {
				return nil, fmt.Errorf("bad pattern")
			}
			tokens = append(tokens, token{kind: tokenLiteral, lit: runes[i+1]})
			i += 2
		default:
			tokens = append(tokens, token{kind: tokenLiteral, lit: ch})
			i++
		}
	}

	return tokens, nil
}

func parseClass(runes []rune, start int) (token, int, error) {
	i := start + 1
	if i >= len(runes) {
		return token{}, 0, fmt.Errorf("bad pattern")
	}
	negated := false
	if runes[i] == '^' {
		negated = true
		i++
	}

	var ranges []runeRange
	hadItem := false
	closed := false

	for i < len(runes) {
		if runes[i] == ']' && hadItem {
			i++
			closed = true
			break
		}

		lo, next, err := readClassRune(runes, i)
		if err != nil {
			return token{}, 0, err
		}
		i = next

		if i+1 < len(runes) && runes[i] == '-' && runes[i+1] != ']' {
			hi, nextHi, err := readClassRune(runes, i+1)
			if err != nil {
				return token{}, 0, err
			}
			if hi < lo {
				return token{}, 0, fmt.Errorf("bad pattern")
			}
			ranges = append(ranges, runeRange{lo: lo, hi: hi})
			i = nextHi
			hadItem = true
			continue
		}

		ranges = append(ranges, runeRange{lo: lo, hi: lo})
		hadItem = true
	}

	if !closed {
		return token{}, 0, fmt.Errorf("bad pattern")
	}

	ranges = normalizeRanges(ranges)
	if negated {
		ranges = subtractRanges(nonSeparatorRanges, ranges)
	} else {
		ranges = intersectRanges(ranges, nonSeparatorRanges)
	}

	return token{kind: tokenClass, ranges: ranges}, i, nil
}

func readClassRune(runes []rune, idx int) (rune, int, error) {
	if idx >= len(runes) {
		return 0, 0, fmt.Errorf("bad pattern")
	}
	if runes[idx] != '\\' {
		return runes[idx], idx + 1, nil
	}
	if idx+1 >= len(runes) {
		return 0, 0, fmt.Errorf("bad pattern")
	}
	return runes[idx+1], idx + 2, nil
}
