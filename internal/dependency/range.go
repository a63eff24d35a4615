package dependency

// Range is the effective interval implied by a ConstraintSet, used to test
// whether several declarations' constraints can be satisfied simultaneously
// without enumerating the version space.
type Range struct {
	Min          *Version
	MinInclusive bool
	Max          *Version
	MaxInclusive bool
	Excluded     []Version
	Pinned       *Version
	// pinBoundaryOnly records that the only reason two declarations are
	// incompatible is a pinned version sitting exactly on another
	// declaration's strict (exclusive) bound — the narrower warning case
	// of the conflict rule rather than a broad incompatibility.
	pinBoundaryOnly bool
}

// FullRange returns an unconstrained range (no lower or upper bound).
func FullRange() Range {
	return Range{}
}

// Narrow applies one ConstraintSet's constraints onto r, returning the
// tightened range.
func (r Range) Narrow(cs ConstraintSet) Range {
	for _, c := range cs.Constraints {
		r = r.narrowOne(c)
	}
	return r
}

func (r Range) narrowOne(c Constraint) Range {
	if c.Wildcard {
		return r.narrowWildcard(c)
	}
	switch c.Operator {
	case OpEQ:
		v := c.Version
		if r.Pinned != nil && CompareVersions(*r.Pinned, v) != 0 {
			lo, hi := *r.Pinned, v
			if CompareVersions(lo, hi) > 0 {
				lo, hi = hi, lo
			}
			r = r.raiseMin(hi, true)
			r = r.lowerMax(lo, true)
		}
		r.Pinned = &v
	case OpNE:
		r.Excluded = append(r.Excluded, c.Version)
	case OpGE:
		r = r.raiseMin(c.Version, true)
	case OpGT:
		r = r.raiseMin(c.Version, false)
	case OpLE:
		r = r.lowerMax(c.Version, true)
	case OpLT:
		r = r.lowerMax(c.Version, false)
	case OpCompatible:
		lower, upper := compatibleBounds(c.Version)
		r = r.raiseMin(lower, true)
		r = r.lowerMax(upper, false)
	}
	return r
}

// narrowWildcard applies a "==X.Y.*" / "!=X.Y.*" constraint. An == wildcard
// with a non-empty prefix narrows to the equivalent [X.Y, X.(Y+1)) bound, so
// it participates in intersection-emptiness checks the same as any other
// range constraint. A bare "*" (empty prefix) matches everything and leaves
// the range untouched. A != wildcard excludes a sub-range rather than a
// single version, which Range.Excluded cannot represent; it is accepted for
// parsing but does not narrow the range.
func (r Range) narrowWildcard(c Constraint) Range {
	if c.Operator != OpEQ || len(c.Version.Release) == 0 {
		return r
	}
	lower := Version{Release: append([]int(nil), c.Version.Release...), raw: releaseString(c.Version.Release)}
	upperRelease := bumpLastSegment(c.Version.Release)
	upper := Version{Release: upperRelease, raw: releaseString(upperRelease)}
	r = r.raiseMin(lower, true)
	r = r.lowerMax(upper, false)
	return r
}

func (r Range) raiseMin(v Version, inclusive bool) Range {
	if r.Min == nil || CompareVersions(v, *r.Min) > 0 ||
		(CompareVersions(v, *r.Min) == 0 && !inclusive) {
		r.Min = &v
		r.MinInclusive = inclusive
	}
	return r
}

func (r Range) lowerMax(v Version, inclusive bool) Range {
	if r.Max == nil || CompareVersions(v, *r.Max) < 0 ||
		(CompareVersions(v, *r.Max) == 0 && !inclusive) {
		r.Max = &v
		r.MaxInclusive = inclusive
	}
	return r
}

// Empty reports whether the range admits no version at all, and whether
// the sole cause is a pinned version landing exactly on a strict
// (exclusive) lower bound — the "forbids X only by lower bound" warning
// case. A pin on an exclusive upper bound is reported as plainly empty.
func (r Range) Empty() (empty bool, pinBoundaryOnly bool) {
	if r.Min != nil && r.Max != nil {
		cmp := CompareVersions(*r.Min, *r.Max)
		if cmp > 0 {
			return true, false
		}
		if cmp == 0 && !(r.MinInclusive && r.MaxInclusive) {
			return true, false
		}
	}
	if r.Pinned != nil {
		p := *r.Pinned
		if r.Min != nil {
			cmp := CompareVersions(p, *r.Min)
			if cmp < 0 || (cmp == 0 && !r.MinInclusive) {
				return true, cmp == 0
			}
		}
		if r.Max != nil {
			cmp := CompareVersions(p, *r.Max)
			if cmp > 0 || (cmp == 0 && !r.MaxInclusive) {
				return true, false
			}
		}
		for _, excl := range r.Excluded {
			if CompareVersions(p, excl) == 0 {
				return true, false
			}
		}
	}
	return false, false
}
