// Package stream implements the stream deserializer described in §4.G/§4.H:
// the preamble + per-unit main loop that owns both schema trees, the
// incremental path matcher, and the tri-value combinator, and dispatches
// accepted units to a caller-supplied UnitHandler. It also implements the
// wire decoder for individual units (§6), since no other component in this
// repository's scope owns that (see SPEC_FULL.md's expanded Out of scope
// section).
package stream

import (
	"errors"
	"log/slog"
	"strconv"

	"logsift/internal/filtereval"
	"logsift/internal/format"
	"logsift/internal/logging"
	"logsift/internal/pathmatch"
	"logsift/internal/querylang"
	"logsift/internal/schema"
)

// Options configures a Deserializer at construction time. The zero value is
// usable: a nil logger discards, and case sensitivity defaults to
// insensitive (matching the teacher's own CompileGlob default).
type Options struct {
	Logger        *slog.Logger
	CaseSensitive bool
}

// Option mutates an Options value; used with Create's variadic opts
// parameter in the teacher's own functional-options idiom.
type Option func(*Options)

// WithLogger sets the *slog.Logger the deserializer logs lifecycle events
// to (stream open, stream close, malformed unit rejected). Never used
// inside the per-unit hot loop.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithCaseSensitive controls whether VarString/ClpString wildcard-match
// filters (§4.E) are case-sensitive.
func WithCaseSensitive(cs bool) Option {
	return func(o *Options) { o.CaseSensitive = cs }
}

// Deserializer owns the two schema trees, the incremental resolver, and the
// normalized query for one byte stream. It is not safe for concurrent use
// (§5): one instance drives exactly one stream on the calling goroutine.
type Deserializer struct {
	handler UnitHandler
	logger  *slog.Logger

	autoTree *schema.Tree
	userTree *schema.Tree
	resolver *pathmatch.Resolver

	query       querylang.Expr
	queryEmpty  bool
	columnIndex map[*querylang.FilterExpr]pathmatch.ColumnIndex
	byPath      map[string]pathmatch.ColumnIndex

	caseSensitive bool
	utcOffsetSec  int64
	isComplete    bool

	sessionMeta Metadata
}

// projectionAdapter forwards handle_projection_resolution to handler only
// if handler implements ProjectionHandler; otherwise every resolution is a
// silent no-op success, matching §4.H's "optional; default = success".
type projectionAdapter struct {
	handler UnitHandler
}

func (a projectionAdapter) HandleProjectionResolution(ns format.Namespace, id schema.NodeID, originalPath string) error {
	if ph, ok := a.handler.(ProjectionHandler); ok {
		return ph.HandleProjectionResolution(ns, id, originalPath)
	}
	return nil
}

// Create performs the construction steps of §4.G: read the encoding tag,
// read and validate the preamble, preprocess the query, and parse/validate
// every projection path. query is an already-built AST (the query parser
// producing it is a separate, optional collaborator — see
// internal/querylang.Parse); projectionPaths are raw column-path strings
// (e.g. "user:a.b").
func Create(reader Reader, handler UnitHandler, query querylang.Expr, projectionPaths []string, opts ...Option) (*Deserializer, error) {
	options := Options{}
	for _, opt := range opts {
		opt(&options)
	}

	encTagByte, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if _, err := format.ValidEncodingTag(encTagByte); err != nil {
		return nil, newProtocolError("%v: 0x%02x", err, encTagByte)
	}

	metaTypeByte, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if _, err := format.ValidMetadataType(metaTypeByte); err != nil {
		return nil, newNotSupportedError("%v: 0x%02x", err, metaTypeByte)
	}
	metaLen, err := reader.ReadUvarint()
	if err != nil {
		return nil, err
	}
	metaBytes, err := reader.ReadFull(int(metaLen))
	if err != nil {
		return nil, err
	}
	meta, err := decodeMetadata(metaBytes)
	if err != nil {
		return nil, err
	}

	logger := logging.Default(options.Logger).With("component", "stream.Deserializer")

	normalized := querylang.Preprocess(query)
	isEmpty := querylang.IsEmpty(normalized)

	d := &Deserializer{
		handler:       handler,
		logger:        logger,
		autoTree:      schema.New(),
		userTree:      schema.New(),
		query:         normalized,
		queryEmpty:    isEmpty,
		columnIndex:   make(map[*querylang.FilterExpr]pathmatch.ColumnIndex),
		byPath:        make(map[string]pathmatch.ColumnIndex),
		caseSensitive: options.CaseSensitive,
		sessionMeta:   meta,
	}
	d.resolver = pathmatch.New(projectionAdapter{handler: handler})

	if !isEmpty {
		registerColumns(normalized, d)
	}

	if err := d.installProjections(projectionPaths); err != nil {
		return nil, err
	}

	logger.Info("stream opened", "version", meta.Version, "query_empty", isEmpty)
	return d, nil
}

// registerColumns walks the normalized (OR-of-AND) expression and installs
// each distinct non-pure-wildcard FilterExpr column with the resolver
// (§3's "Initial state": one partial resolution per column that is not a
// pure wildcard, plus every projected path).
func registerColumns(expr querylang.Expr, d *Deserializer) {
	switch n := expr.(type) {
	case *querylang.AndExpr:
		for _, c := range n.Operands {
			registerColumns(c, d)
		}
	case *querylang.OrExpr:
		for _, c := range n.Operands {
			registerColumns(c, d)
		}
	case *querylang.FilterExpr:
		if n.Column.IsPureWildcard() {
			return
		}
		// Two FilterExpr leaves over the same column path and the same
		// narrowed TypeMask (e.g. from two OR branches, or a duplicate
		// predicate) share one resolver column, so the tree is walked once
		// per distinct (column, type mask) rather than once per predicate
		// occurrence (§3: "once per (column, reached-node) prefix").
		key := n.Column.String() + "\x00" + strconv.Itoa(int(n.TypeMask))
		if idx, ok := d.byPath[key]; ok {
			d.columnIndex[n] = idx
			return
		}
		rootID := d.rootFor(n.Column.Namespace)
		idx := d.resolver.AddFilterColumn(rootID, n.Column, n.TypeMask)
		d.columnIndex[n] = idx
		d.byPath[key] = idx
	}
}

// installProjections validates each projection path (§4.G construction step
// 5: reject duplicates, empty paths, and unresolved wildcards — projection
// targets must be fully-qualified) and installs its initial resolution.
func (d *Deserializer) installProjections(paths []string) error {
	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		if p == "" {
			return newInvalidArgumentError("empty projection path")
		}
		if seen[p] {
			return newInvalidArgumentError("duplicate projection path %q", p)
		}
		seen[p] = true

		desc, err := querylang.ParseColumnPath(p)
		if err != nil {
			return newInvalidArgumentError("invalid projection path %q: %v", p, err)
		}
		if desc.HasWildcardOrRegex() {
			return newInvalidArgumentError("projection path %q must be fully qualified (no wildcards)", p)
		}
		rootID := d.rootFor(desc.Namespace)
		d.resolver.AddProjection(rootID, desc, p)
	}
	return nil
}

func (d *Deserializer) rootFor(ns format.Namespace) schema.NodeID {
	return d.treeFor(ns).RootNodeID()
}

func (d *Deserializer) treeFor(ns format.Namespace) *schema.Tree {
	if ns == format.NamespaceAuto {
		return d.autoTree
	}
	return d.userTree
}

// Metadata returns the decoded preamble metadata.
func (d *Deserializer) Metadata() Metadata { return d.sessionMeta }

// DeserializeNextUnit implements the main loop of §4.G: read one framing
// tag, decode the unit, apply the effect described for its kind, and
// dispatch to the handler. Returns ErrOperationNotPermitted if the stream
// has already accepted its EndOfStream unit.
func (d *Deserializer) DeserializeNextUnit(reader Reader) (Result, error) {
	if d.isComplete {
		return Result{}, ErrOperationNotPermitted
	}

	tagByte, err := reader.ReadByte()
	if err != nil {
		return Result{}, err
	}
	var res Result
	tag, err := format.ValidUnitTag(tagByte)
	if err != nil {
		err = newNotSupportedError("%v: 0x%02x", err, tagByte)
	} else {
		switch tag {
		case format.UnitLogEvent:
			res, err = d.handleLogEventUnit(reader)
		case format.UnitSchemaTreeNodeInsertion:
			res, err = d.handleSchemaInsertionUnit(reader)
		case format.UnitUTCOffsetChange:
			res, err = d.handleUTCOffsetUnit(reader)
		case format.UnitEndOfStream:
			res, err = d.handleEndOfStreamUnit()
		default:
			err = newNotSupportedError("unit tag 0x%02x not implemented", tagByte)
		}
	}
	if errors.Is(err, ErrProtocol) || errors.Is(err, ErrProtocolNotSupported) {
		d.logger.Warn("malformed unit rejected", "error", err)
	}
	return res, err
}

func (d *Deserializer) handleLogEventUnit(reader Reader) (Result, error) {
	event, err := readLogEvent(reader)
	if err != nil {
		return Result{}, err
	}

	if d.queryEmpty {
		return Result{Type: UnitLogEvent, Outcome: Filtered}, nil
	}

	ctx := &filtereval.Context{
		AutoTree:      d.autoTree,
		UserTree:      d.userTree,
		Resolver:      d.resolver,
		Columns:       d.columnIndex,
		Event:         event,
		CaseSensitive: d.caseSensitive,
	}
	if filtereval.Evaluate(d.query, ctx) != filtereval.True {
		return Result{Type: UnitLogEvent, Outcome: Filtered}, nil
	}

	if err := d.handler.HandleLogEvent(event); err != nil {
		return Result{}, &HandlerError{Method: "handle_log_event", Err: err}
	}
	return Result{Type: UnitLogEvent, Outcome: Accepted}, nil
}

func (d *Deserializer) handleSchemaInsertionUnit(reader Reader) (Result, error) {
	nsByte, err := reader.ReadByte()
	if err != nil {
		return Result{}, err
	}
	ns := format.Namespace(nsByte)
	if ns != format.NamespaceAuto && ns != format.NamespaceUser {
		return Result{}, newProtocolError("unknown namespace tag 0x%02x", nsByte)
	}

	locator, err := readLocator(reader)
	if err != nil {
		return Result{}, err
	}

	tree := d.treeFor(ns)
	if tree.Has(locator) {
		return Result{}, newProtocolError("duplicate schema-tree locator %+v in namespace %s", locator, ns)
	}
	id, err := tree.Insert(locator)
	if err != nil {
		return Result{}, newProtocolError("schema-tree insert failed: %v", err)
	}

	node, _ := tree.Get(id)
	if err := d.resolver.OnInsert(ns, node); err != nil {
		return Result{}, &HandlerError{Method: "handle_projection_resolution", Err: err}
	}

	payload := SchemaInsertionPayload{Namespace: ns, Locator: locator, ID: id}
	if err := d.handler.HandleSchemaTreeNodeInsertion(ns, payload, TreeSnapshot{tree: tree}); err != nil {
		return Result{}, &HandlerError{Method: "handle_schema_tree_node_insertion", Err: err}
	}
	return Result{Type: UnitSchemaTreeNodeInsertion, Outcome: Accepted}, nil
}

func (d *Deserializer) handleUTCOffsetUnit(reader Reader) (Result, error) {
	newOffset, err := reader.ReadVarint()
	if err != nil {
		return Result{}, err
	}
	change := UTCOffsetChange{OldOffsetSeconds: d.utcOffsetSec, NewOffsetSeconds: newOffset}
	if err := d.handler.HandleUTCOffsetChange(change); err != nil {
		return Result{}, &HandlerError{Method: "handle_utc_offset_change", Err: err}
	}
	d.utcOffsetSec = newOffset
	return Result{Type: UnitUTCOffsetChange, Outcome: Accepted}, nil
}

func (d *Deserializer) handleEndOfStreamUnit() (Result, error) {
	if err := d.handler.HandleEndOfStream(); err != nil {
		return Result{}, &HandlerError{Method: "handle_end_of_stream", Err: err}
	}
	d.isComplete = true
	d.logger.Info("stream closed")
	return Result{Type: UnitEndOfStream, Outcome: Accepted}, nil
}

// IsComplete reports whether the EndOfStream unit has been accepted.
func (d *Deserializer) IsComplete() bool { return d.isComplete }
