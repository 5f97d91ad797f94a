package filtereval

import (
	"logsift/internal/format"
	"logsift/internal/logevent"
	"logsift/internal/pathmatch"
	"logsift/internal/querylang"
	"logsift/internal/schema"
	"logsift/internal/value"
)

// Context bundles everything the combinator needs to reduce a normalized
// query Expr against one log event: the two schema trees (to look up a
// resolved node's type), the incremental resolver (to look up a column's
// final resolutions), the arena index recorded for each FilterExpr at
// construction time, and the query's case-sensitivity flag.
type Context struct {
	AutoTree *schema.Tree
	UserTree *schema.Tree
	Resolver *pathmatch.Resolver
	Columns  map[*querylang.FilterExpr]pathmatch.ColumnIndex
	Event    logevent.LogEvent

	CaseSensitive bool
}

func (c *Context) treeFor(ns format.Namespace) *schema.Tree {
	if ns == format.NamespaceAuto {
		return c.AutoTree
	}
	return c.UserTree
}

// Evaluate reduces a normalized Expr (the output of querylang.Preprocess)
// against ctx.Event, implementing §4.F end to end.
func Evaluate(expr querylang.Expr, ctx *Context) Decision {
	switch n := expr.(type) {
	case *querylang.AndExpr:
		children := make([]Decision, len(n.Operands))
		for i, c := range n.Operands {
			children[i] = Evaluate(c, ctx)
		}
		return CombineAnd(children).Invert(n.Inverted)
	case *querylang.OrExpr:
		children := make([]Decision, len(n.Operands))
		for i, c := range n.Operands {
			children[i] = Evaluate(c, ctx)
		}
		return CombineOr(children).Invert(n.Inverted)
	case *querylang.FilterExpr:
		return evaluateFilter(n, ctx)
	case querylang.EmptyExpr:
		// Empty is unsatisfiable by construction (§4.C); no event ever
		// matches it. Preprocess's caller is expected to short-circuit
		// before ever calling Evaluate, but returning False here keeps
		// this function total.
		return False
	default:
		return False
	}
}

func evaluateFilter(f *querylang.FilterExpr, ctx *Context) Decision {
	if f.Column.IsPureWildcard() {
		return evaluatePureWildcard(f, ctx).Invert(f.Inverted)
	}

	idx, ok := ctx.Columns[f]
	if !ok {
		// Every non-pure-wildcard filter column is registered with the
		// resolver at construction time (§3 "Initial state"); reaching
		// this means the caller built ctx.Columns incompletely.
		return Prune
	}
	finals := ctx.Resolver.FinalResolutions(idx)
	pairs := ctx.Event.PairsFor(f.Column.Namespace)
	tree := ctx.treeFor(f.Column.Namespace)

	matched := false
	result := False
	for _, id := range finals {
		v, present := pairs[id]
		if !present {
			continue
		}
		matched = true
		node, err := tree.Get(id)
		if err != nil {
			continue
		}
		if EvaluateLeaf(node.Type, v, f.Op, f.Operand, ctx.CaseSensitive) == True {
			result = True
			break
		}
	}
	if !matched {
		return Prune
	}
	return result.Invert(f.Inverted)
}

// evaluatePureWildcard implements §4.F's pure-wildcard special case: iterate
// every pair in both namespaces, ignoring namespace and any resolver state,
// since a pure-wildcard column was never installed as a partial resolution.
func evaluatePureWildcard(f *querylang.FilterExpr, ctx *Context) Decision {
	matchedType := false
	for ns, pairs := range map[format.Namespace]logevent.Pairs{
		format.NamespaceAuto: ctx.Event.Auto,
		format.NamespaceUser: ctx.Event.User,
	} {
		tree := ctx.treeFor(ns)
		for id, v := range pairs {
			node, err := tree.Get(id)
			if err != nil {
				continue
			}
			lt := value.ToLiteralType(node.Type, v)
			if !f.TypeMask.Has(lt) {
				continue
			}
			matchedType = true
			if EvaluateLeaf(node.Type, v, f.Op, f.Operand, ctx.CaseSensitive) == True {
				return True
			}
		}
	}
	if !matchedType {
		return Prune
	}
	return False
}
