package querylang

import (
	"strconv"
	"strings"

	"logsift/internal/value"
)

// Parse compiles a query string into an Expr. The grammar:
//
//	query      := orExpr EOF
//	orExpr     := andExpr (OR andExpr)*
//	andExpr    := unary (AND? unary)*      // juxtaposition implies AND
//	unary      := NOT unary | primary
//	primary    := '(' orExpr ')' | filterPred
//	filterPred := columnPath (compareOp literal | EXISTS | NEXISTS)
//
// Parse does not run the rewrite passes; callers needing a normalized,
// type-narrowed expression call Preprocess on the result.
func Parse(input string) (Expr, error) {
	p := &parser{lx: NewLexer(input)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.cur.Kind == LexEOF {
		return nil, newParseError(0, ErrEmptyQuery, "query is empty")
	}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.cur.Kind != LexEOF {
		return nil, newParseError(p.cur.Pos, ErrUnexpectedToken, "unexpected trailing token %q", p.cur.Lit)
	}
	return expr, nil
}

type parser struct {
	lx  *Lexer
	cur LexToken
}

func (p *parser) advance() error {
	tok, err := p.lx.Next()
	if err != nil {
		return err
	}
	p.cur = tok
	return nil
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.cur.Kind == LexOr {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = flattenOr(left, right)
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.startsUnary() {
		if p.cur.Kind == LexAnd {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = flattenAnd(left, right)
	}
	return left, nil
}

// startsUnary reports whether the current token can begin another unary
// operand of an implicit- or explicit-AND chain, i.e. we have not hit OR,
// a closing paren, or EOF.
func (p *parser) startsUnary() bool {
	switch p.cur.Kind {
	case LexEOF, LexOr, LexRParen:
		return false
	default:
		return true
	}
}

func (p *parser) parseUnary() (Expr, error) {
	if p.cur.Kind == LexNot {
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return invert(inner), nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Expr, error) {
	if p.cur.Kind == LexLParen {
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.cur.Kind != LexRParen {
			return nil, newParseError(p.cur.Pos, ErrUnmatchedParen, "expected ')'")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return inner, nil
	}
	return p.parseFilter()
}

func (p *parser) parseFilter() (Expr, error) {
	if p.cur.Kind != LexPath {
		return nil, newParseError(p.cur.Pos, ErrUnexpectedToken, "expected column path, got %q", p.cur.Lit)
	}
	col, err := parseColumnDescriptor(p.cur.Lit, p.cur.Pos)
	if err != nil {
		return nil, err
	}
	if err := p.advance(); err != nil {
		return nil, err
	}

	switch p.cur.Kind {
	case LexExists:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &FilterExpr{Column: col, Op: OpExists, TypeMask: value.All}, nil
	case LexNexists:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &FilterExpr{Column: col, Op: OpNexists, TypeMask: value.All}, nil
	}

	op, err := p.parseCompareOp()
	if err != nil {
		return nil, err
	}
	lit, err := p.parseLiteral()
	if err != nil {
		return nil, err
	}
	return &FilterExpr{Column: col, Op: op, Operand: lit, TypeMask: lit.CompatibleTypes()}, nil
}

func (p *parser) parseCompareOp() (FilterOp, error) {
	var op FilterOp
	switch p.cur.Kind {
	case LexEqEq:
		op = OpEq
	case LexNeq:
		op = OpNeq
	case LexLt:
		op = OpLt
	case LexGt:
		op = OpGt
	case LexLte:
		op = OpLte
	case LexGte:
		op = OpGte
	default:
		return 0, newParseError(p.cur.Pos, ErrUnexpectedToken, "expected comparison operator, EXISTS, or NEXISTS, got %q", p.cur.Lit)
	}
	if err := p.advance(); err != nil {
		return 0, err
	}
	return op, nil
}

func (p *parser) parseLiteral() (Literal, error) {
	tok := p.cur

	switch tok.Kind {
	case LexString:
		if err := p.advance(); err != nil {
			return Literal{}, err
		}
		return VarStringLiteral(tok.Lit), nil
	case LexCString:
		if err := p.advance(); err != nil {
			return Literal{}, err
		}
		return ClpStringLiteral(tok.Lit), nil
	case LexNumber:
		if err := p.advance(); err != nil {
			return Literal{}, err
		}
		return parseNumberLiteral(tok)
	case LexEpoch:
		if err := p.advance(); err != nil {
			return Literal{}, err
		}
		i, err := strconv.ParseInt(tok.Lit, 10, 64)
		if err != nil {
			return Literal{}, newParseError(tok.Pos, ErrInvalidLiteral, "invalid epoch literal %q", tok.Lit)
		}
		return EpochDateLiteral(i), nil
	case LexTrue:
		if err := p.advance(); err != nil {
			return Literal{}, err
		}
		return BoolLiteral(true), nil
	case LexFalse:
		if err := p.advance(); err != nil {
			return Literal{}, err
		}
		return BoolLiteral(false), nil
	case LexNull:
		if err := p.advance(); err != nil {
			return Literal{}, err
		}
		return NullLiteral(), nil
	default:
		return Literal{}, newParseError(tok.Pos, ErrUnexpectedToken, "expected a literal, got %q", tok.Lit)
	}
}

func parseNumberLiteral(tok LexToken) (Literal, error) {
	if strings.ContainsRune(tok.Lit, '.') {
		f, err := strconv.ParseFloat(tok.Lit, 64)
		if err != nil {
			return Literal{}, newParseError(tok.Pos, ErrInvalidLiteral, "invalid float literal %q", tok.Lit)
		}
		return FloatLiteral(f), nil
	}
	i, err := strconv.ParseInt(tok.Lit, 10, 64)
	if err != nil {
		return Literal{}, newParseError(tok.Pos, ErrInvalidLiteral, "invalid int literal %q", tok.Lit)
	}
	return IntLiteral(i), nil
}

// invert applies De Morgan negation directly at parse time: NOT of an
// And/Or flips its Inverted flag rather than allocating a wrapper node,
// matching the AST's "no separate Not node" shape (§3). Double negation
// cancels, and NOT of a filter flips its own Inverted flag in place.
func invert(e Expr) Expr {
	switch n := e.(type) {
	case *AndExpr:
		return &AndExpr{Operands: n.Operands, Inverted: !n.Inverted}
	case *OrExpr:
		return &OrExpr{Operands: n.Operands, Inverted: !n.Inverted}
	case *FilterExpr:
		return &FilterExpr{Column: n.Column, Op: n.Op, Operand: n.Operand, Inverted: !n.Inverted, TypeMask: n.TypeMask}
	case EmptyExpr:
		return n
	default:
		return n
	}
}

// ParseColumnPath splits a standalone column-path string (e.g.
// "user:a.*.b") into its namespace prefix and literal/wildcard segments, the
// same grammar parseFilter uses for a FilterExpr's column. Exported so
// projection-path validation (§4.G construction step 5) can reuse it
// without going through the full query grammar.
func ParseColumnPath(lit string) (ColumnDescriptor, error) {
	return parseColumnDescriptor(lit, 0)
}

// parseColumnDescriptor splits a single lexed path token (e.g.
// "user:a.*.b") into its namespace prefix and literal/wildcard segments. A
// path with no "ns:" prefix defaults to the auto namespace.
func parseColumnDescriptor(lit string, pos int) (ColumnDescriptor, error) {
	ns := NamespaceAuto
	body := lit
	if idx := strings.IndexByte(lit, ':'); idx >= 0 {
		prefix := lit[:idx]
		body = lit[idx+1:]
		switch prefix {
		case "auto":
			ns = NamespaceAuto
		case "user":
			ns = NamespaceUser
		case "*":
			// Pure-wildcard columns match regardless of namespace (§3); the
			// namespace value here is never consulted once IsPureWildcard
			// is true, so NamespaceAuto is an arbitrary placeholder.
			ns = NamespaceAuto
		default:
			return ColumnDescriptor{}, newParseError(pos, ErrInvalidColumnPath, "unknown namespace prefix %q", prefix)
		}
	}
	if body == "" {
		return ColumnDescriptor{}, newParseError(pos, ErrInvalidColumnPath, "empty column path")
	}

	segments := strings.Split(body, ".")
	tokens := make([]Token, 0, len(segments))
	for _, seg := range segments {
		if seg == "" {
			return ColumnDescriptor{}, newParseError(pos, ErrInvalidColumnPath, "empty path segment in %q", lit)
		}
		if seg == "*" {
			tokens = append(tokens, Token{Kind: TokenWildcard})
			continue
		}
		tokens = append(tokens, Token{Kind: TokenLiteral, Literal: seg})
	}
	return NewColumnDescriptor(ns, tokens), nil
}
