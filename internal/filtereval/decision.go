// Package filtereval implements the per-type filter comparator (§4.E) and
// the tri-valued combinator (§4.F) that compose leaf comparisons across
// And/Or/Not into a single verdict for a log event.
package filtereval

// Decision is the tri-valued result described in §4.F: True, False, or
// Prune ("the predicate's target is absent in this record and its presence
// was not observed").
type Decision int

const (
	False Decision = iota
	True
	Prune
)

func (d Decision) String() string {
	switch d {
	case True:
		return "True"
	case False:
		return "False"
	case Prune:
		return "Prune"
	default:
		return "?"
	}
}

// Invert applies a FilterExpr/AndExpr/OrExpr's Inverted flag: True and False
// swap, Prune is left untouched (§4.F: "Apply the inverted flag by swapping
// True/False (not Prune)").
func (d Decision) Invert(inverted bool) Decision {
	if !inverted || d == Prune {
		return d
	}
	if d == True {
		return False
	}
	return True
}

// CombineAnd implements §4.F's And rule: any Prune child prunes the whole
// conjunction; else any False makes it False; else True. An empty operand
// list (never produced by the parser or rewrite passes, which require at
// least one operand) is treated as vacuously True.
func CombineAnd(children []Decision) Decision {
	sawFalse := false
	for _, c := range children {
		switch c {
		case Prune:
			return Prune
		case False:
			sawFalse = true
		}
	}
	if sawFalse {
		return False
	}
	return True
}

// CombineOr implements §4.F's Or rule: any True child makes the whole
// disjunction True; else if every child is Prune, the result is Prune; else
// False.
func CombineOr(children []Decision) Decision {
	allPrune := len(children) > 0
	for _, c := range children {
		if c == True {
			return True
		}
		if c != Prune {
			allPrune = false
		}
	}
	if allPrune {
		return Prune
	}
	return False
}
