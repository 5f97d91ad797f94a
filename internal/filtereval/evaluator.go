package filtereval

import (
	"logsift/internal/querylang"
	"logsift/internal/schema"
	"logsift/internal/value"
)

// EvaluateLeaf implements §4.E for a single (node_type, value) pair already
// known to be present: Exists/Nexists are decided purely by presence
// (True/False respectively), everything else dispatches on the value's
// concrete literal type. caseSensitive threads the query's case-sensitivity
// flag into the VarString/ClpString wildcard-match path.
func EvaluateLeaf(nodeType schema.NodeType, v value.Value, op querylang.FilterOp, operand querylang.Literal, caseSensitive bool) Decision {
	switch op {
	case querylang.OpExists:
		return True
	case querylang.OpNexists:
		return False
	}

	lt := value.ToLiteralType(nodeType, v)
	switch lt {
	case value.LiteralInt:
		i, _ := v.AsInt()
		return evalOrderedInt(i, op, operand)
	case value.LiteralFloat:
		f, _ := v.AsFloat()
		return evalOrderedFloat(f, op, operand)
	case value.LiteralBool:
		b, _ := v.AsBool()
		return evalBool(b, op, operand)
	case value.LiteralVarString:
		s, _ := v.AsPlainString()
		return evalStringWildcard(s, op, operand, caseSensitive)
	case value.LiteralClpString:
		s, ok := v.Decode()
		if !ok {
			return False
		}
		return evalStringWildcard(s, op, operand, caseSensitive)
	default:
		// Array, Null, EpochDate-as-node-type, Object, Unknown: unsupported
		// operators yield False (§4.E).
		return False
	}
}

func evalOrderedInt(i int64, op querylang.FilterOp, operand querylang.Literal) Decision {
	var rhs int64
	switch operand.Kind {
	case querylang.LitInt, querylang.LitEpochDate:
		rhs = operand.I
	default:
		return False // mixed-type operand
	}
	return decisionOf(compareInt(i, rhs), op)
}

func evalOrderedFloat(f float64, op querylang.FilterOp, operand querylang.Literal) Decision {
	if operand.Kind != querylang.LitFloat {
		return False
	}
	return decisionOf(compareFloat(f, operand.F), op)
}

func evalBool(b bool, op querylang.FilterOp, operand querylang.Literal) Decision {
	if operand.Kind != querylang.LitBool {
		return False
	}
	if op != querylang.OpEq && op != querylang.OpNeq {
		return False
	}
	eq := b == operand.B
	if op == querylang.OpNeq {
		eq = !eq
	}
	return boolDecision(eq)
}

func evalStringWildcard(s string, op querylang.FilterOp, operand querylang.Literal, caseSensitive bool) Decision {
	if op != querylang.OpEq && op != querylang.OpNeq {
		return False
	}
	if operand.Kind != querylang.LitVarString && operand.Kind != querylang.LitClpString {
		return False
	}
	re, err := querylang.CompileGlob(operand.S, caseSensitive)
	if err != nil {
		return False
	}
	matched := re.MatchString(s)
	if op == querylang.OpNeq {
		matched = !matched
	}
	return boolDecision(matched)
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func decisionOf(cmp int, op querylang.FilterOp) Decision {
	switch op {
	case querylang.OpEq:
		return boolDecision(cmp == 0)
	case querylang.OpNeq:
		return boolDecision(cmp != 0)
	case querylang.OpLt:
		return boolDecision(cmp < 0)
	case querylang.OpGt:
		return boolDecision(cmp > 0)
	case querylang.OpLte:
		return boolDecision(cmp <= 0)
	case querylang.OpGte:
		return boolDecision(cmp >= 0)
	default:
		return False
	}
}

func boolDecision(b bool) Decision {
	if b {
		return True
	}
	return False
}
