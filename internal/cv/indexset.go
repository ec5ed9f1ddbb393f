package cv

// Positions is a set of 0-based row positions into the caller's dataset.
// Sets produced by this package are ascending and duplicate-free.
type Positions []int

// Len returns the number of positions
func (p Positions) Len() int { return len(p) }

// Min returns the smallest position, false when the set is empty
func (p Positions) Min() (int, bool) {
	if len(p) == 0 {
		return 0, false
	}
	m := p[0]
	for _, v := range p[1:] {
		if v < m {
			m = v
		}
	}
	return m, true
}

// Max returns the largest position, false when the set is empty
func (p Positions) Max() (int, bool) {
	if len(p) == 0 {
		return 0, false
	}
	m := p[0]
	for _, v := range p[1:] {
		if v > m {
			m = v
		}
	}
	return m, true
}

// Range returns the positions [start, end)
func Range(start, end int) Positions {
	if end <= start {
		return Positions{}
	}
	out := make(Positions, end-start)
	for i := range out {
		out[i] = start + i
	}
	return out
}

// Intersect returns the ascending, duplicate-free intersection of two ascending sets
func Intersect(a, b Positions) Positions {
	out := make(Positions, 0, min(len(a), len(b)))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			if len(out) == 0 || out[len(out)-1] != a[i] {
				out = append(out, a[i])
			}
			i++
			j++
		}
	}
	return out
}

// Union returns the ascending, duplicate-free union of two ascending sets
func Union(a, b Positions) Positions {
	out := make(Positions, 0, len(a)+len(b))
	push := func(v int) {
		if len(out) == 0 || out[len(out)-1] != v {
			out = append(out, v)
		}
	}
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i] <= b[j] {
			push(a[i])
			i++
		} else {
			push(b[j])
			j++
		}
	}
	for ; i < len(a); i++ {
		push(a[i])
	}
	for ; j < len(b); j++ {
		push(b[j])
	}
	return out
}

// Concat joins sets in argument order without sorting or deduplicating
func Concat(parts ...Positions) Positions {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make(Positions, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// Where keeps the members of all for which keep returns true
func Where(all Positions, keep func(pos int) bool) Positions {
	out := make(Positions, 0, len(all))
	for _, pos := range all {
		if keep(pos) {
			out = append(out, pos)
		}
	}
	return out
}

// Disjoint reports whether two ascending sets share no element
func Disjoint(a, b Positions) bool {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			return false
		}
	}
	return true
}

// Remap translates positions into a sliced dataset back to the rows of the
// dataset it was sliced from: out[i] = base[local[i]].
func Remap(local, base Positions) Positions {
	out := make(Positions, len(local))
	for i, pos := range local {
		out[i] = base[pos]
	}
	return out
}
