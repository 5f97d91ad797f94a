package querylang

import "testing"

func TestParseSimpleFilter(t *testing.T) {
	expr, err := Parse(`user:req.status == 200`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	f, ok := expr.(*FilterExpr)
	if !ok {
		t.Fatalf("got %T, want *FilterExpr", expr)
	}
	if f.Op != OpEq {
		t.Errorf("Op = %v, want OpEq", f.Op)
	}
	if f.Column.Namespace != NamespaceUser {
		t.Errorf("Namespace = %v, want NamespaceUser", f.Column.Namespace)
	}
	if got := f.Column.Path(); got != "req.status" {
		t.Errorf("Path = %q, want %q", got, "req.status")
	}
	if f.Operand.Kind != LitInt || f.Operand.I != 200 {
		t.Errorf("Operand = %+v, want int 200", f.Operand)
	}
}

func TestParseDefaultNamespaceIsAuto(t *testing.T) {
	expr, err := Parse(`a.b.c == "x"`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	f := expr.(*FilterExpr)
	if f.Column.Namespace != NamespaceAuto {
		t.Errorf("Namespace = %v, want NamespaceAuto", f.Column.Namespace)
	}
}

func TestParseWildcardSegment(t *testing.T) {
	expr, err := Parse(`a.*.c EXISTS`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	f := expr.(*FilterExpr)
	if len(f.Column.Tokens) != 3 || f.Column.Tokens[1].Kind != TokenWildcard {
		t.Fatalf("Tokens = %+v, want [a * c]", f.Column.Tokens)
	}
	if f.Op != OpExists {
		t.Errorf("Op = %v, want OpExists", f.Op)
	}
}

func TestParseImplicitAnd(t *testing.T) {
	expr, err := Parse(`a == 1 b == 2`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	and, ok := expr.(*AndExpr)
	if !ok || len(and.Operands) != 2 {
		t.Fatalf("got %#v, want 2-operand AndExpr", expr)
	}
}

func TestParseOrLowerPrecedenceThanAnd(t *testing.T) {
	expr, err := Parse(`a == 1 AND b == 2 OR c == 3`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	or, ok := expr.(*OrExpr)
	if !ok || len(or.Operands) != 2 {
		t.Fatalf("got %#v, want 2-operand OrExpr", expr)
	}
	if _, ok := or.Operands[0].(*AndExpr); !ok {
		t.Errorf("first OR operand = %T, want *AndExpr", or.Operands[0])
	}
}

func TestParseNotInvertsFilterFlag(t *testing.T) {
	expr, err := Parse(`NOT a == 1`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	f, ok := expr.(*FilterExpr)
	if !ok || !f.Inverted {
		t.Fatalf("got %#v, want inverted FilterExpr", expr)
	}
}

func TestParseNotDistributesOverGroup(t *testing.T) {
	expr, err := Parse(`NOT (a == 1 AND b == 2)`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	and, ok := expr.(*AndExpr)
	if !ok || !and.Inverted {
		t.Fatalf("got %#v, want inverted AndExpr", expr)
	}
}

func TestParseParenGrouping(t *testing.T) {
	expr, err := Parse(`(a == 1 OR b == 2) AND c == 3`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	and, ok := expr.(*AndExpr)
	if !ok || len(and.Operands) != 2 {
		t.Fatalf("got %#v, want 2-operand AndExpr", expr)
	}
	if _, ok := and.Operands[0].(*OrExpr); !ok {
		t.Errorf("first AND operand = %T, want *OrExpr", and.Operands[0])
	}
}

func TestParseLiteralKinds(t *testing.T) {
	tests := []struct {
		query    string
		wantKind LiteralKind
	}{
		{`a == 1`, LitInt},
		{`a == -5`, LitInt},
		{`a == 1.5`, LitFloat},
		{`a == true`, LitBool},
		{`a == false`, LitBool},
		{`a == null`, LitNull},
		{`a == "hi"`, LitVarString},
		{`a == c"hi"`, LitClpString},
		{`a == @1700000000`, LitEpochDate},
	}
	for _, tc := range tests {
		expr, err := Parse(tc.query)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tc.query, err)
		}
		f := expr.(*FilterExpr)
		if f.Operand.Kind != tc.wantKind {
			t.Errorf("Parse(%q).Operand.Kind = %v, want %v", tc.query, f.Operand.Kind, tc.wantKind)
		}
	}
}

func TestParseComparisonOperators(t *testing.T) {
	tests := []struct {
		op   string
		want FilterOp
	}{
		{"==", OpEq}, {"!=", OpNeq}, {"<", OpLt}, {">", OpGt}, {"<=", OpLte}, {">=", OpGte},
	}
	for _, tc := range tests {
		expr, err := Parse("a " + tc.op + " 1")
		if err != nil {
			t.Fatalf("Parse with op %q: %v", tc.op, err)
		}
		if got := expr.(*FilterExpr).Op; got != tc.want {
			t.Errorf("op %q => %v, want %v", tc.op, got, tc.want)
		}
	}
}

func TestParseEmptyQueryError(t *testing.T) {
	if _, err := Parse(""); err == nil {
		t.Fatal("expected error for empty query")
	}
}

func TestParseUnmatchedParenError(t *testing.T) {
	if _, err := Parse(`(a == 1`); err == nil {
		t.Fatal("expected error for unmatched paren")
	}
}

func TestParseTrailingTokenError(t *testing.T) {
	if _, err := Parse(`a == 1)`); err == nil {
		t.Fatal("expected error for trailing token")
	}
}

func TestParseUnknownNamespaceError(t *testing.T) {
	if _, err := Parse(`weird:a == 1`); err == nil {
		t.Fatal("expected error for unknown namespace prefix")
	}
}
