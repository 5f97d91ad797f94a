package querylang

import "logsift/internal/value"

// Preprocess runs the three normalization passes described in §4.C, in
// order, and returns the result. Each pass is independently idempotent;
// Preprocess itself is therefore idempotent too. A query that turns out to
// be unsatisfiable at any stage collapses to EmptyExpr and every later pass
// is a no-op on it.
func Preprocess(expr Expr) Expr {
	expr = NormalizeToOrOfAnd(expr)
	if IsEmpty(expr) {
		return expr
	}
	expr = NarrowTypes(expr)
	if IsEmpty(expr) {
		return expr
	}
	expr = ConvertToExists(expr)
	return expr
}

// NormalizeToOrOfAnd pushes every Inverted flag down to the leaves via De
// Morgan's laws, flattens nested same-kind operators, and distributes AND
// over OR so the result is a single OR of ANDs (or a bare AND, OR, or
// FilterExpr when no distribution was needed). It is idempotent: running it
// again on its own output returns an equal tree.
func NormalizeToOrOfAnd(expr Expr) Expr {
	expr = pushDownNot(expr)
	return distributeToDNF(expr)
}

// pushDownNot eliminates Inverted=true on AndExpr/OrExpr nodes by flipping
// to the dual operator and inverting each child instead, recursively. A
// FilterExpr's own Inverted flag is left as-is: inversion of a leaf
// predicate is handled directly by the evaluator (internal/filtereval).
func pushDownNot(e Expr) Expr {
	switch n := e.(type) {
	case *AndExpr:
		children := make([]Expr, len(n.Operands))
		for i, c := range n.Operands {
			children[i] = pushDownNot(c)
		}
		if n.Inverted {
			inverted := make([]Expr, len(children))
			for i, c := range children {
				inverted[i] = pushDownNot(invert(c))
			}
			return flattenVariadic(false, inverted)
		}
		return flattenVariadic(true, children)
	case *OrExpr:
		children := make([]Expr, len(n.Operands))
		for i, c := range n.Operands {
			children[i] = pushDownNot(c)
		}
		if n.Inverted {
			inverted := make([]Expr, len(children))
			for i, c := range children {
				inverted[i] = pushDownNot(invert(c))
			}
			return flattenVariadic(true, inverted)
		}
		return flattenVariadic(false, children)
	default:
		return e
	}
}

// flattenVariadic builds a non-inverted AndExpr (kind=true) or OrExpr
// (kind=false) from operands, absorbing any nested non-inverted node of the
// same kind. A single operand collapses to itself rather than a
// one-element wrapper.
func flattenVariadic(kindAnd bool, operands []Expr) Expr {
	var flat []Expr
	for _, op := range operands {
		if kindAnd {
			if a, ok := op.(*AndExpr); ok && !a.Inverted {
				flat = append(flat, a.Operands...)
				continue
			}
		} else {
			if o, ok := op.(*OrExpr); ok && !o.Inverted {
				flat = append(flat, o.Operands...)
				continue
			}
		}
		flat = append(flat, op)
	}
	if len(flat) == 1 {
		return flat[0]
	}
	if kindAnd {
		return &AndExpr{Operands: flat}
	}
	return &OrExpr{Operands: flat}
}

// distributeToDNF distributes AND over OR bottom-up so the tree becomes a
// single OR whose direct operands are each a single AND (or a bare
// FilterExpr where no disjunction was present). Operands are expected to
// already have their Inverted flags pushed to the leaves by pushDownNot.
func distributeToDNF(e Expr) Expr {
	switch n := e.(type) {
	case *OrExpr:
		operands := make([][]Expr, len(n.Operands))
		for i, c := range n.Operands {
			operands[i] = conjunctsOf(distributeToDNF(c))
		}
		var flat []Expr
		for _, conj := range operands {
			flat = append(flat, reassembleAnd(conj))
		}
		return flattenVariadic(false, flat)
	case *AndExpr:
		// Distribute: convert each operand to a list of OR-disjuncts (each
		// itself a conjunction list), then take the cross product.
		disjunctLists := make([][][]Expr, len(n.Operands))
		for i, c := range n.Operands {
			disjunctLists[i] = disjunctsOf(distributeToDNF(c))
		}
		product := crossProduct(disjunctLists)
		if len(product) == 1 {
			return reassembleAnd(product[0])
		}
		ors := make([]Expr, len(product))
		for i, conj := range product {
			ors[i] = reassembleAnd(conj)
		}
		return flattenVariadic(false, ors)
	default:
		return e
	}
}

// conjunctsOf returns the AND-operands of e, treating a bare non-AND node as
// a singleton conjunction.
func conjunctsOf(e Expr) []Expr {
	if a, ok := e.(*AndExpr); ok && !a.Inverted {
		return a.Operands
	}
	return []Expr{e}
}

// disjunctsOf returns e's top-level OR branches, each expressed as its own
// conjunction list; a bare non-OR node is a single one-term disjunct.
func disjunctsOf(e Expr) [][]Expr {
	if o, ok := e.(*OrExpr); ok && !o.Inverted {
		out := make([][]Expr, len(o.Operands))
		for i, c := range o.Operands {
			out[i] = conjunctsOf(c)
		}
		return out
	}
	return [][]Expr{conjunctsOf(e)}
}

func reassembleAnd(conjuncts []Expr) Expr {
	return flattenVariadic(true, conjuncts)
}

// crossProduct computes the Cartesian product of disjunctLists, concatenating
// one conjunction list per combination, implementing AND-distributes-over-OR.
func crossProduct(disjunctLists [][][]Expr) [][]Expr {
	result := [][]Expr{{}}
	for _, disjuncts := range disjunctLists {
		var next [][]Expr
		for _, prefix := range result {
			for _, conj := range disjuncts {
				combined := make([]Expr, 0, len(prefix)+len(conj))
				combined = append(combined, prefix...)
				combined = append(combined, conj...)
				next = append(next, combined)
			}
		}
		result = next
	}
	return result
}

// NarrowTypes intersects the TypeMask of every FilterExpr that shares a
// column path with its siblings within the same AND-conjunction (§4.C): if
// two predicates on the same resolved path require disjoint literal types,
// that conjunction can never hold for any single node, since a node has
// exactly one schema.NodeType, so the whole AND collapses to EmptyExpr. The
// pass is idempotent: it only ever narrows, and re-intersecting an
// already-narrowed mask with itself is a no-op.
func NarrowTypes(expr Expr) Expr {
	switch n := expr.(type) {
	case *OrExpr:
		operands := make([]Expr, 0, len(n.Operands))
		for _, c := range n.Operands {
			narrowed := NarrowTypes(c)
			if IsEmpty(narrowed) {
				continue
			}
			operands = append(operands, narrowed)
		}
		if len(operands) == 0 {
			return EmptyExpr{}
		}
		return flattenVariadic(false, operands)
	case *AndExpr:
		byColumn := make(map[string]value.LiteralType)
		for _, c := range n.Operands {
			if f, ok := c.(*FilterExpr); ok {
				key := f.Column.String()
				if existing, seen := byColumn[key]; seen {
					byColumn[key] = existing & f.TypeMask
				} else {
					byColumn[key] = f.TypeMask
				}
			}
		}
		for _, mask := range byColumn {
			if mask == 0 {
				return EmptyExpr{}
			}
		}
		operands := make([]Expr, len(n.Operands))
		for i, c := range n.Operands {
			if f, ok := c.(*FilterExpr); ok {
				narrowed := *f
				narrowed.TypeMask = byColumn[f.Column.String()]
				operands[i] = &narrowed
				continue
			}
			operands[i] = c
		}
		return &AndExpr{Operands: operands, Inverted: n.Inverted}
	default:
		return expr
	}
}

// ConvertToExists rewrites FilterExpr leaves whose predicate is resolvable
// purely from a node's type, rather than its value, into Exists/Nexists
// (§4.C): a wildcard-only string operand ("*") only ever tests "some string
// value is present here", and an equality/inequality test against Null only
// ever tests "a Null-typed node is present here". Both collapse the same
// way: Op==OpEq becomes Exists, OpNeq becomes Nexists, preserving Inverted.
func ConvertToExists(expr Expr) Expr {
	switch n := expr.(type) {
	case *AndExpr:
		operands := make([]Expr, len(n.Operands))
		for i, c := range n.Operands {
			operands[i] = ConvertToExists(c)
		}
		return &AndExpr{Operands: operands, Inverted: n.Inverted}
	case *OrExpr:
		operands := make([]Expr, len(n.Operands))
		for i, c := range n.Operands {
			operands[i] = ConvertToExists(c)
		}
		return &OrExpr{Operands: operands, Inverted: n.Inverted}
	case *FilterExpr:
		if isTypeOnlyResolvable(n) {
			switch n.Op {
			case OpEq:
				return &FilterExpr{Column: n.Column, Op: OpExists, Inverted: n.Inverted, TypeMask: n.TypeMask}
			case OpNeq:
				return &FilterExpr{Column: n.Column, Op: OpNexists, Inverted: n.Inverted, TypeMask: n.TypeMask}
			}
		}
		return n
	default:
		return expr
	}
}

func isTypeOnlyResolvable(f *FilterExpr) bool {
	if f.Op != OpEq && f.Op != OpNeq {
		return false
	}
	if f.Operand.IsWildcardOnly() {
		return true
	}
	return f.Operand.Kind == LitNull
}
