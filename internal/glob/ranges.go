package glob

import "sort"

func rangesOverlap(a, b []runeRange) bool {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i].hi < b[j].lo {
			i++
			continue
		}
		if b[j].hi < a[i].lo {
			j++
			continue
		}
		return true
	}
	return false
}

func intersectRanges(a, b []runeRange) []runeRange {
	a = normalizeRanges(a)
	b = normalizeRanges(b)
	out := make([]runeRange, 0)
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		lo := max(a[i].lo, b[j].lo)
		hi := min(a[i].hi, b[j].hi)
		if lo <= hi {
			out = append(out, runeRange{lo: lo, hi: hi})
		}
		if a[i].hi < b[j].hi {
			i++
		} else {
			j++
		}
	}
	return out
}

func subtractRanges(base, subtract []runeRange) []runeRange {
	base = normalizeRanges(base)
	subtract = normalizeRanges(subtract)

	out := make([]runeRange, 0, len(base))
	for _, b := range base {
		current := []runeRange{b}
		for _, s := range subtract {
			next := make([]runeRange, 0, len(current)+1)
			for _, c := range current {
				if s.hi < c.lo || s.lo > c.hi {
					next = append(next, c)
					continue
				}
				if s.lo > c.lo {
					next = append(next, runeRange{lo: c.lo, hi: s.lo - 1})
				}
				if s.hi < c.hi {
					next = append(next, runeRange{lo: s.hi + 1, hi: c.hi})
				}
			}
			current = next
			if len(current) == 0 {
				break
			}
		}
		out = append(out, current...)
	}
	return out
}

func normalizeRanges(ranges []runeRange) []runeRange {
	if len(ranges) <= 1 {
		return ranges
	}

	cp := append([]runeRange(nil), ranges...)
	sort.Slice(cp, func(i, j int) bool {
		if cp[i].lo == cp[j].lo {
			return cp[i].hi < cp[j].hi
		}
		return cp[i].lo < cp[j].lo
	})

	out := make([]runeRange, 0, len(cp))
	current := cp[0]
	for _, rr := range cp[1:] {
		if rr.lo <= current.hi+1 {
			if rr.hi > current.hi {
				current.hi = rr.hi
			}
			continue
		}
		out = append(out, current)
		current = rr
	}
	out = append(out, current)
	return out
}
