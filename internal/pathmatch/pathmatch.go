// Package pathmatch implements the incremental path resolver described in
// §3 ("Resolutions") and §4.D: it drives ColumnDescriptors and projected
// paths to sets of schema.NodeID as the schema trees grow, without ever
// re-walking the whole tree per record. Resolution state is arena-indexed
// (§9's "prefer arena + stable index" note) rather than pointer-keyed, since
// Go has no shared-pointer aliasing story that matches the source's
// map<column_ptr, ...>.
package pathmatch

import (
	"logsift/internal/format"
	"logsift/internal/querylang"
	"logsift/internal/schema"
	"logsift/internal/value"
)

// ColumnIndex is a stable handle into a Resolver's column arena, taking the
// place of the source's column_ptr identity (§9).
type ColumnIndex int

// ProjectionHandler receives a handle_projection_resolution callback (§4.H)
// each time a projected path resolves to a concrete node.
type ProjectionHandler interface {
	HandleProjectionResolution(ns format.Namespace, id schema.NodeID, originalPath string) error
}

// partialKey anchors an in-flight descent at a specific schema-tree node in
// a specific namespace (§3's partial_resolutions map key).
type partialKey struct {
	node schema.NodeID
	ns   format.Namespace
}

type partial struct {
	column ColumnIndex
	cursor int // index of the next token to match
}

// column is one arena entry: either a query filter column or a projection
// target, distinguished by isProjection.
type column struct {
	descriptor   querylang.ColumnDescriptor
	typeMask     value.LiteralType
	isProjection bool
	originalText string // set when isProjection
}

// Resolver owns the column arena and the resolution state for both
// namespaces of a single deserializer instance. It is not safe for
// concurrent use (§5: single-threaded per stream).
type Resolver struct {
	columns []column

	partials map[partialKey][]partial
	finals   map[ColumnIndex][]schema.NodeID

	handler ProjectionHandler

	// pending buffers appends discovered during a single OnInsert call so
	// mutating partials while iterating it never invalidates the range
	// (§9: "mutable re-insertion during iteration").
	pending map[partialKey][]partial
}

// New returns an empty Resolver. handler may be nil if no query uses
// projected paths (HandleProjectionResolution is then never called).
func New(handler ProjectionHandler) *Resolver {
	return &Resolver{
		partials: make(map[partialKey][]partial),
		finals:   make(map[ColumnIndex][]schema.NodeID),
		handler:  handler,
	}
}

// AddFilterColumn registers a query column for final-resolution tracking
// and installs its initial partial resolution(s) anchored at rootID (§3:
// "Initial state"). Pure-wildcard columns are never installed — they are
// evaluated directly against a record's pairs by the filter combinator
// (§4.F) and never populate final_resolutions.
func (r *Resolver) AddFilterColumn(rootID schema.NodeID, desc querylang.ColumnDescriptor, typeMask value.LiteralType) ColumnIndex {
	idx := ColumnIndex(len(r.columns))
	r.columns = append(r.columns, column{descriptor: desc, typeMask: typeMask})
	if desc.IsPureWildcard() {
		return idx
	}
	r.installInitial(rootID, idx, desc)
	return idx
}

// AddProjection registers a fully-qualified projected path (§4.G
// construction step 5 has already rejected wildcards/regex/duplicates
// before this is called) and installs its initial partial resolution.
func (r *Resolver) AddProjection(rootID schema.NodeID, desc querylang.ColumnDescriptor, originalText string) ColumnIndex {
	idx := ColumnIndex(len(r.columns))
	r.columns = append(r.columns, column{
		descriptor:   desc,
		typeMask:     value.All,
		isProjection: true,
		originalText: originalText,
	})
	r.installInitial(rootID, idx, desc)
	return idx
}

// installInitial anchors one (or two, for a leading-wildcard column) partial
// resolution at rootID, per §3: "If the first token is a wildcard, also
// install a second partial anchored at the same key with cursor on the
// second token (covers the zero-width wildcard match)."
func (r *Resolver) installInitial(rootID schema.NodeID, idx ColumnIndex, desc querylang.ColumnDescriptor) {
	key := partialKey{node: rootID, ns: desc.Namespace}
	r.partials[key] = append(r.partials[key], partial{column: idx, cursor: 0})
	if len(desc.Tokens) > 0 && desc.Tokens[0].Kind == querylang.TokenWildcard && len(desc.Tokens) > 1 {
		r.partials[key] = append(r.partials[key], partial{column: idx, cursor: 1})
	}
}

// FinalResolutions returns the node ids a (non-pure-wildcard) column has
// resolved to so far. The returned slice must not be mutated by the caller.
func (r *Resolver) FinalResolutions(idx ColumnIndex) []schema.NodeID {
	return r.finals[idx]
}

// OnInsert runs the resolution step described in §4.D for a freshly
// inserted node. It must be called exactly once per successful
// schema-tree insertion, after the tree has assigned n.ID, and before any
// log event referencing n.ID is evaluated (§5's ordering invariant).
func (r *Resolver) OnInsert(ns format.Namespace, n schema.Node) error {
	key := partialKey{node: n.ParentID, ns: ns}
	entries, ok := r.partials[key]
	if !ok {
		return nil
	}

	r.pending = make(map[partialKey][]partial)
	for _, p := range entries {
		if err := r.step(ns, n, p); err != nil {
			return err
		}
	}
	for k, adds := range r.pending {
		r.partials[k] = append(r.partials[k], adds...)
	}
	r.pending = nil
	return nil
}

func (r *Resolver) addPending(key partialKey, p partial) {
	r.pending[key] = append(r.pending[key], p)
}

// step advances a single partial resolution against the newly inserted node
// n, implementing §4.D's intermediate-match / terminal-match cases.
func (r *Resolver) step(ns format.Namespace, n schema.Node, p partial) error {
	col := r.columns[p.column]
	tokens := col.descriptor.Tokens
	tok := tokens[p.cursor]
	nextCursor := p.cursor + 1
	isLast := nextCursor == len(tokens)

	matchesName := tok.Kind == querylang.TokenWildcard || tokenMatchesName(tok, n.Name)
	if !matchesName {
		return nil
	}

	if n.Type == schema.Obj && !isLast {
		nextKey := partialKey{node: n.ID, ns: ns}
		if tok.Kind == querylang.TokenWildcard {
			// Wildcard keeps consuming further levels at the same cursor,
			// and also advances past itself for a one-level match.
			r.addPending(nextKey, partial{column: p.column, cursor: p.cursor})
			r.addPending(nextKey, partial{column: p.column, cursor: nextCursor})
		} else {
			r.addPending(nextKey, partial{column: p.column, cursor: nextCursor})
		}
		// Zero-width wildcard coverage: if the token just consumed is
		// immediately followed by a wildcard that is itself not the last
		// token, also install past that wildcard so "a.*.b" matches "a.b".
		if nextCursor < len(tokens) && tokens[nextCursor].Kind == querylang.TokenWildcard && nextCursor+1 < len(tokens) {
			r.addPending(nextKey, partial{column: p.column, cursor: nextCursor + 1})
		}
		return nil
	}

	// Terminal match: this was the last token for the column (§4.D).
	if !isLast {
		return nil
	}
	nodeLiteralType := nodeTypeLiteralMask(n.Type)
	if nodeLiteralType&col.typeMask == 0 {
		return nil
	}

	if col.isProjection {
		if r.handler == nil {
			return nil
		}
		return r.handler.HandleProjectionResolution(ns, n.ID, col.originalText)
	}
	r.finals[p.column] = append(r.finals[p.column], n.ID)
	return nil
}

func tokenMatchesName(tok querylang.Token, name string) bool {
	switch tok.Kind {
	case querylang.TokenLiteral:
		return tok.Literal == name
	case querylang.TokenRegex:
		// Regex tokens are reserved but unimplemented (§4.D, §9 Open
		// Question a): fall through to wildcard behavior.
		return true
	default:
		return true
	}
}

// nodeTypeLiteralMask returns the LiteralType bitmask a schema-tree node of
// the given type can ever produce, independent of any particular value
// instance. Used at resolution time, before any value has been observed,
// to decide whether a terminal match's type is compatible with a column's
// TypeMask (§4.D: "n.type's literal-type bitmask intersects column.type_mask").
func nodeTypeLiteralMask(t schema.NodeType) value.LiteralType {
	switch t {
	case schema.Int:
		return value.LiteralInt
	case schema.Float:
		return value.LiteralFloat
	case schema.Bool:
		return value.LiteralBool
	case schema.Str:
		return value.LiteralVarString | value.LiteralClpString
	case schema.UnstructuredArray:
		return value.LiteralArray
	case schema.Obj:
		return value.LiteralNull
	default:
		return value.LiteralUnknown
	}
}
