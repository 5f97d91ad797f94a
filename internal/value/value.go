// Package value implements the tagged-union Value model described in §3/§4.B:
// the scalar payload a log event pair carries, including the two compressed
// text representations and the node-type-aware classification used by the
// filter evaluator.
package value

import (
	"logsift/internal/schema"
)

// Kind discriminates the Value union.
type Kind byte

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindPlainString
	KindEncodedTextAst8
	KindEncodedTextAst4
)

// Value is an immutable tagged union. Construct with the New* helpers;
// the zero value is KindNull.
type Value struct {
	kind   Kind
	b      bool
	i      int64
	f      float64
	s      string // PlainString payload, or Logtype for the encoded variants
	dict   []string
	vars8  []int64
	vars4  []int32
}

func NewNull() Value                 { return Value{kind: KindNull} }
func NewBool(b bool) Value            { return Value{kind: KindBool, b: b} }
func NewInt(i int64) Value            { return Value{kind: KindInt, i: i} }
func NewFloat(f float64) Value         { return Value{kind: KindFloat, f: f} }
func NewPlainString(s string) Value   { return Value{kind: KindPlainString, s: s} }

// NewEncodedTextAst8 constructs an eight-byte encoded compressed-text value.
func NewEncodedTextAst8(logtype string, dictVars []string, encodedVars []int64) Value {
	return Value{kind: KindEncodedTextAst8, s: logtype, dict: dictVars, vars8: encodedVars}
}

// NewEncodedTextAst4 constructs a four-byte encoded compressed-text value.
func NewEncodedTextAst4(logtype string, dictVars []string, encodedVars []int32) Value {
	return Value{kind: KindEncodedTextAst4, s: logtype, dict: dictVars, vars4: encodedVars}
}

func (v Value) Kind() Kind { return v.kind }

// AsBool returns (value, true) if v is representable as a bool. A mismatch
// is not an error — it simply reports "not representable as bool".
func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

func (v Value) AsInt() (int64, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return v.i, true
}

func (v Value) AsFloat() (float64, bool) {
	if v.kind != KindFloat {
		return 0, false
	}
	return v.f, true
}

func (v Value) AsPlainString() (string, bool) {
	if v.kind != KindPlainString {
		return "", false
	}
	return v.s, true
}

// Logtype returns the raw logtype template for the encoded-text variants,
// the second return value reports whether v is one of them.
func (v Value) Logtype() (string, bool) {
	if v.kind != KindEncodedTextAst8 && v.kind != KindEncodedTextAst4 {
		return "", false
	}
	return v.s, true
}

func (v Value) DictVars() []string {
	return v.dict
}

func (v Value) EncodedVars8() []int64 {
	return v.vars8
}

func (v Value) EncodedVars4() []int32 {
	return v.vars4
}

// Decode reconstructs the fully materialized string for an encoded-text
// value. It is a pure, deterministic function of the value's fields; for
// any other Kind it returns ("", false).
func (v Value) Decode() (string, bool) {
	switch v.kind {
	case KindEncodedTextAst8:
		vars := make([]int64, len(v.vars8))
		copy(vars, v.vars8)
		return decodeLogtype(v.s, v.dict, vars), true
	case KindEncodedTextAst4:
		vars := make([]int64, len(v.vars4))
		for i, x := range v.vars4 {
			vars[i] = int64(x)
		}
		return decodeLogtype(v.s, v.dict, vars), true
	default:
		return "", false
	}
}

// LiteralType is a bitmask of the literal/value types a query literal or a
// resolved column may inhabit (§3/§4.B).
type LiteralType uint16

const (
	LiteralInt LiteralType = 1 << iota
	LiteralFloat
	LiteralBool
	LiteralVarString
	LiteralClpString
	LiteralArray
	LiteralNull
	LiteralEpochDate
	LiteralObject
	LiteralUnknown
)

// All is the union of every literal type; used as the starting point for
// the NarrowTypes rewrite pass before any literal has constrained it.
const All = LiteralInt | LiteralFloat | LiteralBool | LiteralVarString |
	LiteralClpString | LiteralArray | LiteralNull | LiteralEpochDate |
	LiteralObject | LiteralUnknown

func (m LiteralType) Has(t LiteralType) bool { return m&t != 0 }

// ToLiteralType returns the singular literal type that value inhabits given
// the schema-tree node type it is attached to (§4.B). For a Str node the
// choice between VarString and ClpString is determined by whether the value
// carries a PlainString or one of the EncodedTextAst* variants. For an Obj
// node the value may be Null (per the Open Question in §9, unified with
// LiteralNull); any other combination is Unknown.
func ToLiteralType(nodeType schema.NodeType, v Value) LiteralType {
	switch nodeType {
	case schema.Int:
		if v.kind == KindInt {
			return LiteralInt
		}
	case schema.Float:
		if v.kind == KindFloat {
			return LiteralFloat
		}
	case schema.Bool:
		if v.kind == KindBool {
			return LiteralBool
		}
	case schema.Str:
		if v.kind == KindPlainString {
			return LiteralVarString
		}
		if v.kind == KindEncodedTextAst8 || v.kind == KindEncodedTextAst4 {
			return LiteralClpString
		}
	case schema.Obj:
		if v.kind == KindNull {
			return LiteralNull
		}
	case schema.UnstructuredArray:
		return LiteralArray
	}
	return LiteralUnknown
}
